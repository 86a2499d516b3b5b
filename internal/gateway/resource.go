package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/spendwise-dev/spendwise/internal/model"
)

// maxPages stops runaway paging against a backend that never reports the last page.
const maxPages = 1000

// Endpoint is the HTTP implementation of Resource for one collection.
type Endpoint[T any] struct {
	client     *Client
	collection string
	paged      bool
	decode     func(json.RawMessage) (T, error)
	encode     func(T) any
}

var _ Resource[model.Transaction] = (*Endpoint[model.Transaction])(nil)

// Transactions returns the transactions collection. It is paged on the
// backend, so List follows pages until the last one.
func (c *Client) Transactions() *Endpoint[model.Transaction] {
	return &Endpoint[model.Transaction]{
		client:     c,
		collection: CollectionTransactions,
		paged:      true,
		decode:     decodeTransaction,
		encode:     encodeTransaction,
	}
}

// Categories returns the categories collection.
func (c *Client) Categories() *Endpoint[model.Category] {
	return &Endpoint[model.Category]{
		client:     c,
		collection: CollectionCategories,
		decode:     decodeCategory,
		encode:     encodeCategory,
	}
}

// Accounts returns the accounts collection.
func (c *Client) Accounts() *Endpoint[model.Account] {
	return &Endpoint[model.Account]{
		client:     c,
		collection: CollectionAccounts,
		decode:     decodeAccount,
		encode:     encodeAccount,
	}
}

// Budgets returns the budgets collection.
func (c *Client) Budgets() *Endpoint[model.Budget] {
	return &Endpoint[model.Budget]{
		client:     c,
		collection: CollectionBudgets,
		decode:     decodeBudget,
		encode:     encodeBudget,
	}
}

// Name returns the collection name, e.g. "budgets".
func (e *Endpoint[T]) Name() string { return e.collection }

func (e *Endpoint[T]) path(id string) string {
	if id == "" {
		return "/" + e.collection
	}
	return "/" + e.collection + "/" + url.PathEscape(id)
}

// List fetches the whole collection.
func (e *Endpoint[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	for page := 0; page < maxPages; page++ {
		var query url.Values
		if e.paged {
			query = url.Values{
				"page": {strconv.Itoa(page)},
				"size": {strconv.Itoa(e.client.pageSize)},
			}
		}
		raw, err := e.client.do(ctx, http.MethodGet, e.path(""), query, nil)
		if err != nil {
			return nil, err
		}
		items, more, err := unwrapList(raw, e.collection)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", e.collection, err)
		}
		for i, item := range items {
			rec, err := e.decode(item)
			if err != nil {
				// One malformed record must not hide the rest of the collection.
				e.client.log.WithFields(logrus.Fields{
					"collection": e.collection,
					"page":       page,
					"item":       i,
				}).WithError(err).Warn("skipping undecodable record")
				continue
			}
			out = append(out, rec)
		}
		if !e.paged || !more || len(items) == 0 {
			break
		}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Get fetches one record.
func (e *Endpoint[T]) Get(ctx context.Context, id string) (T, error) {
	raw, err := e.client.do(ctx, http.MethodGet, e.path(id), nil, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return e.decodeOne(raw)
}

// Create posts draft and returns the record as the server stored it.
func (e *Endpoint[T]) Create(ctx context.Context, draft T) (T, error) {
	raw, err := e.client.do(ctx, http.MethodPost, e.path(""), nil, e.encode(draft))
	if err != nil {
		var zero T
		return zero, err
	}
	return e.decodeOne(raw)
}

// Update replaces the record with id and returns the server's copy.
func (e *Endpoint[T]) Update(ctx context.Context, id string, rec T) (T, error) {
	raw, err := e.client.do(ctx, http.MethodPut, e.path(id), nil, e.encode(rec))
	if err != nil {
		var zero T
		return zero, err
	}
	return e.decodeOne(raw)
}

// Delete removes the record with id. Any response body is ignored.
func (e *Endpoint[T]) Delete(ctx context.Context, id string) error {
	_, err := e.client.do(ctx, http.MethodDelete, e.path(id), nil, nil)
	return err
}

func (e *Endpoint[T]) decodeOne(raw []byte) (T, error) {
	rec, err := e.decode(unwrapOne(raw))
	if err != nil {
		return rec, fmt.Errorf("%s: %w", e.collection, err)
	}
	return rec, nil
}
