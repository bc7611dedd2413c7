package remote

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

type ObjectStore struct {
	client *Client
}

func NewObjectStore(client *Client) *ObjectStore {
	return &ObjectStore{client: client}
}

// Put streams body as a multipart upload without buffering it.
func (s *ObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(key)))
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	var out struct {
		Path string `json:"path"`
	}
	err := s.client.do(ctx, http.MethodPut, "/objects", url.Values{"path": {key}}, pr, mw.FormDataContentType(), &out)
	// unblock the writer when the request ended before the body was consumed
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return "", err
	}
	return out.Path, nil
}

func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	return s.client.do(ctx, http.MethodDelete, "/objects", url.Values{"path": {key}}, nil, "", nil)
}

func (s *ObjectStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	q := url.Values{"path": {key}}
	if secs := int64(ttl / time.Second); secs > 0 {
		q.Set("ttl", strconv.FormatInt(secs, 10))
	}
	return s.url(ctx, "/objects/signed", q)
}

func (s *ObjectStore) PublicURL(ctx context.Context, key string) (string, error) {
	return s.url(ctx, "/objects/public", url.Values{"path": {key}})
}

func (s *ObjectStore) url(ctx context.Context, endpoint string, q url.Values) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := s.client.do(ctx, http.MethodGet, endpoint, q, nil, "", &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", fmt.Errorf("server returned an empty url")
	}
	return s.client.resolve(out.URL), nil
}
