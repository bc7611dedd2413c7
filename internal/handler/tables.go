package handler

import (
	"strings"

	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/model"
	"github.com/xxxsen/mshelf/internal/organizer"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

func NewNoteHandler(table gateway.Table[model.Note]) *TableHandler[model.Note] {
	return NewTableHandler(table, func(n *model.Note, owner string) { n.UserID = owner }, func(n model.Note) error {
		if strings.TrimSpace(n.Title) == "" {
			return appErr.NewValidation("title", "is required")
		}
		return nil
	})
}

func NewLinkHandler(table gateway.Table[model.Link]) *TableHandler[model.Link] {
	return NewTableHandler(table, func(l *model.Link, owner string) { l.UserID = owner }, func(l model.Link) error {
		if !organizer.IsAbsoluteURL(strings.TrimSpace(l.URL)) {
			return appErr.NewValidation("url", "must be an absolute url")
		}
		return nil
	})
}

func NewTodoHandler(table gateway.Table[model.Todo]) *TableHandler[model.Todo] {
	return NewTableHandler(table, func(t *model.Todo, owner string) { t.UserID = owner }, func(t model.Todo) error {
		if strings.TrimSpace(t.Text) == "" {
			return appErr.NewValidation("text", "is required")
		}
		return nil
	})
}

// NewFileHandler only accepts metadata for objects in the caller's namespace.
func NewFileHandler(table gateway.Table[model.FileAsset]) *TableHandler[model.FileAsset] {
	return NewTableHandler(table, func(f *model.FileAsset, owner string) { f.UserID = owner }, func(f model.FileAsset) error {
		switch {
		case strings.TrimSpace(f.Filename) == "":
			return appErr.NewValidation("filename", "is required")
		case strings.TrimSpace(f.MimeType) == "":
			return appErr.NewValidation("mime_type", "is required")
		case f.Size < 0:
			return appErr.NewValidation("size", "must not be negative")
		case !gateway.OwnsPath(f.UserID, f.StoragePath):
			return appErr.ErrForbidden
		}
		return nil
	})
}
