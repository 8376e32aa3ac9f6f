package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
)

// Resource is one REST collection, seen with one admin's token.
type Resource[T liststate.Record] struct {
	client *Client
	name   string
	token  string
}

// NewResource binds the collection name (e.g. "zone") to a session token.
func NewResource[T liststate.Record](client *Client, name, token string) *Resource[T] {
	return &Resource[T]{client: client, name: name, token: token}
}

// Name returns the collection name.
func (r *Resource[T]) Name() string { return r.name }

func (r *Resource[T]) path(op string) string {
	return "/api/" + url.PathEscape(r.name) + "/" + op
}

// FetchList posts the list query. A non-empty term is sent as ?q=.
func (r *Resource[T]) FetchList(ctx context.Context, q liststate.Query, term string) (liststate.Page[T], error) {
	var params url.Values
	if term != "" {
		params = url.Values{"q": {term}}
	}
	env, err := r.client.do(ctx, r.token, http.MethodPost, r.path("get-all"), params, q)
	if err != nil {
		return liststate.Page[T]{}, err
	}
	page := liststate.Page[T]{Success: env.Success, Message: env.Message, Count: env.Count}
	if !env.Success || len(env.Data) == 0 || string(env.Data) == "null" {
		return page, nil
	}
	if err := json.Unmarshal(env.Data, &page.Data); err != nil {
		return liststate.Page[T]{}, fmt.Errorf("backend: decode %s list: %w", r.name, err)
	}
	return page, nil
}

type idsBody struct {
	IDs []string `json:"ids"`
}

type updateManyBody struct {
	IDs  []string        `json:"ids"`
	Data liststate.Patch `json:"data"`
}

// BulkDelete removes every id in one call.
func (r *Resource[T]) BulkDelete(ctx context.Context, ids []string) (liststate.Result, error) {
	env, err := r.client.do(ctx, r.token, http.MethodPost, r.path("delete-multiple"), nil, idsBody{IDs: ids})
	if err != nil {
		return liststate.Result{}, err
	}
	return liststate.Result{Success: env.Success, Message: env.Message}, nil
}

// BulkUpdate applies patch to every id in one call.
func (r *Resource[T]) BulkUpdate(ctx context.Context, ids []string, patch liststate.Patch) (liststate.Result, error) {
	env, err := r.client.do(ctx, r.token, http.MethodPut, r.path("update-multiple"), nil, updateManyBody{IDs: ids, Data: patch})
	if err != nil {
		return liststate.Result{}, err
	}
	return liststate.Result{Success: env.Success, Message: env.Message}, nil
}

// Get loads a single record. A rejected lookup is reported as a
// *liststate.RejectedError.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	env, err := r.client.do(ctx, r.token, http.MethodGet, r.path(url.PathEscape(id)), nil, nil)
	if err != nil {
		return zero, err
	}
	if !env.Success {
		return zero, &liststate.RejectedError{Op: "get", Message: env.Message}
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return zero, fmt.Errorf("backend: decode %s %s: %w", r.name, id, err)
	}
	return out, nil
}

// Add creates a record from payload.
func (r *Resource[T]) Add(ctx context.Context, payload any) (liststate.Result, error) {
	env, err := r.client.do(ctx, r.token, http.MethodPost, r.path("add"), nil, payload)
	if err != nil {
		return liststate.Result{}, err
	}
	return liststate.Result{Success: env.Success, Message: env.Message}, nil
}

// Update replaces the fields of record id with payload.
func (r *Resource[T]) Update(ctx context.Context, id string, payload any) (liststate.Result, error) {
	env, err := r.client.do(ctx, r.token, http.MethodPut, r.path("update/"+url.PathEscape(id)), nil, payload)
	if err != nil {
		return liststate.Result{}, err
	}
	return liststate.Result{Success: env.Success, Message: env.Message}, nil
}
