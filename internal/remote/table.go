package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/xxxsen/mshelf/internal/gateway"
)

// Table is a gateway.Table served by the api. The server scopes every call
// to the token's owner, so ownerID only guards against an unbound context.
type Table[T any] struct {
	client *Client
	name   string
}

func NewTable[T any](client *Client, name string) *Table[T] {
	return &Table[T]{client: client, name: name}
}

func (t *Table[T]) Select(ctx context.Context, ownerID, orderBy string) ([]T, error) {
	q := url.Values{}
	if orderBy != "" {
		q.Set("order", orderBy)
	}
	items := make([]T, 0)
	if err := t.client.do(ctx, http.MethodGet, "/"+t.name, q, nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (t *Table[T]) Insert(ctx context.Context, row T) (T, error) {
	var created T
	body, err := json.Marshal(row)
	if err != nil {
		return created, fmt.Errorf("encode %s row: %w", t.name, err)
	}
	err = t.client.do(ctx, http.MethodPost, "/"+t.name, nil, bytes.NewReader(body), "application/json", &created)
	return created, err
}

func (t *Table[T]) Update(ctx context.Context, ownerID, id string, patch gateway.Patch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	return t.client.do(ctx, http.MethodPatch, "/"+t.name+"/"+url.PathEscape(id), nil, bytes.NewReader(body), "application/json", nil)
}

func (t *Table[T]) Delete(ctx context.Context, ownerID, id string) error {
	return t.client.do(ctx, http.MethodDelete, "/"+t.name+"/"+url.PathEscape(id), nil, nil, "", nil)
}
