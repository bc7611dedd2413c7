package organizer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/mshelf/internal/model"
	"github.com/xxxsen/mshelf/internal/notify"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

const DefaultMaxUploadSize = 10 * 1024 * 1024

var (
	FilesPolicy = Policy{Accept: []string{"application/pdf"}, MaxSize: DefaultMaxUploadSize}
	MediaPolicy = Policy{Accept: []string{"image/jpeg", "image/png", "video/mp4", "video/quicktime"}, MaxSize: DefaultMaxUploadSize}
)

// Candidate is one file offered for upload.
type Candidate struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// Policy decides which candidates may be uploaded. Accept holds exact mime
// types or "type/*" wildcards; an empty Accept admits nothing. MaxSize must
// be positive, a zero limit rejects every candidate.
type Policy struct {
	Accept  []string
	MaxSize int64
}

type Rejection struct {
	Name   string
	Reason string
}

// BatchRejectedError is reported when no file of a batch passes the policy.
type BatchRejectedError struct {
	Rejected []Rejection
}

func (e *BatchRejectedError) Error() string {
	parts := make([]string, 0, len(e.Rejected))
	for _, r := range e.Rejected {
		parts = append(parts, r.Name+": "+r.Reason)
	}
	if len(parts) == 0 {
		return "no files to upload"
	}
	return "no acceptable files: " + strings.Join(parts, "; ")
}

func (e *BatchRejectedError) Is(target error) bool {
	return target == appErr.ErrInvalid
}

// Check returns the reason c is rejected, or "" when it passes.
func (p Policy) Check(c Candidate) string {
	if p.MaxSize <= 0 {
		return "no size limit configured"
	}
	if c.Size > p.MaxSize {
		return fmt.Sprintf("size %d exceeds limit %d", c.Size, p.MaxSize)
	}
	for _, pattern := range p.Accept {
		if MatchType(pattern, c.MimeType) {
			return ""
		}
	}
	return fmt.Sprintf("type %q is not accepted", c.MimeType)
}

func (p Policy) Filter(candidates []Candidate) ([]Candidate, []Rejection) {
	accepted := make([]Candidate, 0, len(candidates))
	rejected := make([]Rejection, 0)
	for _, c := range candidates {
		if reason := p.Check(c); reason != "" {
			rejected = append(rejected, Rejection{Name: c.Name, Reason: reason})
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted, rejected
}

// MatchType matches a declared mime type against an exact type or a
// "type/*" wildcard. Both sides are parsed into type and subtype; parameters
// are ignored and comparison is case-insensitive.
func MatchType(pattern, declared string) bool {
	pt, ps, ok := splitMediaType(pattern)
	if !ok {
		return false
	}
	dt, ds, ok := splitMediaType(declared)
	if !ok || ds == "*" || dt == "*" {
		return false
	}
	if ps == "*" {
		return pt == "*" || pt == dt
	}
	return pt == dt && ps == ds
}

func splitMediaType(v string) (string, string, bool) {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	v = strings.ToLower(strings.TrimSpace(v))
	typ, sub, ok := strings.Cut(v, "/")
	if !ok || typ == "" || sub == "" || strings.ContainsAny(sub, "/ ") || strings.ContainsAny(typ, " ") {
		return "", "", false
	}
	return typ, sub, true
}

type UploadResult struct {
	Name  string
	Asset model.FileAsset
	Err   error
}

// Uploader filters a batch and creates every accepted file independently.
type Uploader struct {
	policy   Policy
	files    *Coordinator[model.FileAsset, FileDraft]
	notifier notify.Notifier
}

func NewUploader(policy Policy, files *Coordinator[model.FileAsset, FileDraft], notifier notify.Notifier) *Uploader {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Uploader{policy: policy, files: files, notifier: notifier}
}

func (u *Uploader) Policy() Policy {
	return u.policy
}

// Submit returns one result per candidate, in input order. Accepted files are
// created concurrently; one failure never affects another file. When nothing
// passes the policy a single BatchRejectedError is returned and no create is
// issued.
func (u *Uploader) Submit(ctx context.Context, candidates []Candidate) ([]UploadResult, error) {
	accepted, rejected := u.policy.Filter(candidates)
	if len(accepted) == 0 {
		err := &BatchRejectedError{Rejected: rejected}
		u.notifier.Failure(ctx, "upload", err)
		return nil, err
	}

	results := make([]UploadResult, len(candidates))
	var g errgroup.Group
	for i, c := range candidates {
		results[i].Name = c.Name
		if reason := u.policy.Check(c); reason != "" {
			results[i].Err = appErr.NewValidation(c.Name, reason)
			continue
		}
		g.Go(func() error {
			asset, err := u.files.Create(ctx, FileDraft{
				Filename: c.Name,
				MimeType: c.MimeType,
				Size:     c.Size,
				Body:     c.Body,
			})
			results[i].Asset, results[i].Err = asset, err
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}
