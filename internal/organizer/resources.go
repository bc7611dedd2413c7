package organizer

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/model"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/idgen"
)

const (
	ResourceNotes = "notes"
	ResourceLinks = "links"
	ResourceTodos = "todos"
	ResourceFiles = "files"
	ResourceMedia = "media"
)

type NoteDraft struct {
	Title   string
	Content string
}

type LinkDraft struct {
	URL         string
	Description string
}

type TodoDraft struct {
	Text      string
	Completed bool
}

// FileDraft is an upload about to be created. Body is read once by Put.
type FileDraft struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

func NoteSchema() *Schema[model.Note, NoteDraft] {
	return &Schema[model.Note, NoteDraft]{
		Name:    ResourceNotes,
		OrderBy: gateway.OrderByCtimeDesc,
		Validate: func(d NoteDraft) error {
			if strings.TrimSpace(d.Title) == "" {
				return appErr.NewValidation("title", "is required")
			}
			return nil
		},
		NewRow: func(ownerID string, d NoteDraft) model.Note {
			return model.Note{UserID: ownerID, Title: strings.TrimSpace(d.Title), Content: strings.TrimSpace(d.Content)}
		},
		Patch: func(d NoteDraft) gateway.Patch {
			return gateway.Patch{"title": strings.TrimSpace(d.Title), "content": strings.TrimSpace(d.Content)}
		},
		DraftOf: func(n model.Note) NoteDraft { return NoteDraft{Title: n.Title, Content: n.Content} },
		ID:      func(n model.Note) string { return n.ID },
		Ctime:   func(n model.Note) int64 { return n.Ctime },
	}
}

func LinkSchema() *Schema[model.Link, LinkDraft] {
	return &Schema[model.Link, LinkDraft]{
		Name:    ResourceLinks,
		OrderBy: gateway.OrderByCtimeDesc,
		Validate: func(d LinkDraft) error {
			raw := strings.TrimSpace(d.URL)
			if raw == "" {
				return appErr.NewValidation("url", "is required")
			}
			if !IsAbsoluteURL(raw) {
				return appErr.NewValidation("url", "must be an absolute url")
			}
			return nil
		},
		NewRow: func(ownerID string, d LinkDraft) model.Link {
			return model.Link{UserID: ownerID, URL: strings.TrimSpace(d.URL), Description: strings.TrimSpace(d.Description)}
		},
		Patch: func(d LinkDraft) gateway.Patch {
			return gateway.Patch{"url": strings.TrimSpace(d.URL), "description": strings.TrimSpace(d.Description)}
		},
		DraftOf: func(l model.Link) LinkDraft { return LinkDraft{URL: l.URL, Description: l.Description} },
		ID:      func(l model.Link) string { return l.ID },
		Ctime:   func(l model.Link) int64 { return l.Ctime },
	}
}

func TodoSchema() *Schema[model.Todo, TodoDraft] {
	return &Schema[model.Todo, TodoDraft]{
		Name:    ResourceTodos,
		OrderBy: gateway.OrderByCtimeDesc,
		Validate: func(d TodoDraft) error {
			if strings.TrimSpace(d.Text) == "" {
				return appErr.NewValidation("text", "is required")
			}
			return nil
		},
		NewRow: func(ownerID string, d TodoDraft) model.Todo {
			return model.Todo{UserID: ownerID, Text: strings.TrimSpace(d.Text), Completed: d.Completed}
		},
		// only completion is mutable
		Patch: func(d TodoDraft) gateway.Patch {
			return gateway.Patch{"completed": d.Completed}
		},
		DraftOf: func(t model.Todo) TodoDraft { return TodoDraft{Text: t.Text, Completed: t.Completed} },
		ID:      func(t model.Todo) string { return t.ID },
		Ctime:   func(t model.Todo) int64 { return t.Ctime },
	}
}

// FileSchema describes binary-backed rows. name selects the files or media
// view of the shared files table; now stamps storage paths.
func FileSchema(name string, now func() time.Time) *Schema[model.FileAsset, FileDraft] {
	if now == nil {
		now = time.Now
	}
	media := name == ResourceMedia
	return &Schema[model.FileAsset, FileDraft]{
		Name:    name,
		OrderBy: gateway.OrderByCtimeDesc,
		Validate: func(d FileDraft) error {
			switch {
			case strings.TrimSpace(d.Filename) == "":
				return appErr.NewValidation("filename", "is required")
			case strings.TrimSpace(d.MimeType) == "":
				return appErr.NewValidation("mime_type", "is required")
			case d.Size < 0:
				return appErr.NewValidation("size", "must not be negative")
			case d.Body == nil:
				return appErr.NewValidation("body", "is required")
			}
			return nil
		},
		NewRow: func(ownerID string, d FileDraft) model.FileAsset {
			return model.FileAsset{
				UserID:      ownerID,
				Filename:    d.Filename,
				MimeType:    d.MimeType,
				Size:        d.Size,
				StoragePath: BuildStoragePath(ownerID, d.Filename, now()),
			}
		},
		DraftOf: func(f model.FileAsset) FileDraft {
			return FileDraft{Filename: f.Filename, MimeType: f.MimeType, Size: f.Size}
		},
		ID:          func(f model.FileAsset) string { return f.ID },
		Ctime:       func(f model.FileAsset) int64 { return f.Ctime },
		StoragePath: func(f model.FileAsset) string { return f.StoragePath },
		Payload: func(d FileDraft) (io.Reader, int64, string) {
			return d.Body, d.Size, d.MimeType
		},
		Visible: func(f model.FileAsset) bool { return f.IsMedia() == media },
	}
}

// IsAbsoluteURL accepts urls with a scheme and either a host or an opaque part.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !u.IsAbs() {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

const storageTokenBytes = 6

// BuildStoragePath derives an object path inside the owner's namespace from
// the upload time, a random token and the sanitized file name. The token
// keeps same-named files created in the same millisecond apart.
func BuildStoragePath(ownerID, filename string, at time.Time) string {
	return fmt.Sprintf("%s/%d_%s_%s", ownerID, at.UnixMilli(), idgen.RandomHex(storageTokenBytes), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
