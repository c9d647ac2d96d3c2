// Package fetch drains paginated list endpoints into one ordered collection.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"examseed/internal/types"
)

// PageLister is the part of the gateway the fetcher needs.
type PageLister interface {
	ListPage(ctx context.Context, collection types.Collection, page, size int) (types.Page, error)
}

// LegacyLister lists a whole collection in one call.
type LegacyLister interface {
	ListAll(ctx context.Context, collection types.Collection) ([]json.RawMessage, error)
}

// JSON is the default item decoder.
func JSON[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// Raw keeps items undecoded.
func Raw(raw json.RawMessage) (json.RawMessage, error) {
	return raw, nil
}

// ErrPageLimit marks a fetch cut short by Options.MaxPages.
var ErrPageLimit = errors.New("page limit reached")

// PartialError reports a fetch that stopped early. The items accumulated
// before the failing page are still returned alongside it.
type PartialError struct {
	Collection types.Collection
	Page       int
	Fetched    int
	Err        error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("fetch %s stopped at page %d after %d items: %v", e.Collection, e.Page, e.Fetched, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Options bounds a paginated fetch.
type Options struct {
	PageSize int
	// MaxPages stops the fetch after this many pages. Zero means unlimited.
	MaxPages int
}

// All requests pages 0, 1, 2, ... until a page is empty or flagged last.
// Items are appended in the order received without de-duplication. A list
// error, an undecodable item or hitting MaxPages before the last page ends the
// fetch with a *PartialError.
func All[T any](ctx context.Context, lister PageLister, collection types.Collection, opts Options, decode func(json.RawMessage) (T, error)) ([]T, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}

	var items []T
	for page := 0; opts.MaxPages <= 0 || page < opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return items, &PartialError{Collection: collection, Page: page, Fetched: len(items), Err: err}
		}

		env, err := lister.ListPage(ctx, collection, page, opts.PageSize)
		if err != nil {
			return items, &PartialError{Collection: collection, Page: page, Fetched: len(items), Err: err}
		}
		if len(env.Content) == 0 {
			return items, nil
		}
		for _, raw := range env.Content {
			item, err := decode(raw)
			if err != nil {
				return items, &PartialError{Collection: collection, Page: page, Fetched: len(items), Err: fmt.Errorf("decode item: %w", err)}
			}
			items = append(items, item)
		}
		if env.Last {
			return items, nil
		}
	}
	return items, &PartialError{Collection: collection, Page: opts.MaxPages, Fetched: len(items), Err: ErrPageLimit}
}

// Legacy fetches a collection from its non-paginated endpoint.
func Legacy[T any](ctx context.Context, lister LegacyLister, collection types.Collection, decode func(json.RawMessage) (T, error)) ([]T, error) {
	raws, err := lister.ListAll(ctx, collection)
	if err != nil {
		return nil, &PartialError{Collection: collection, Err: err}
	}
	items := make([]T, 0, len(raws))
	for _, raw := range raws {
		item, err := decode(raw)
		if err != nil {
			return items, &PartialError{Collection: collection, Fetched: len(items), Err: fmt.Errorf("decode item: %w", err)}
		}
		items = append(items, item)
	}
	return items, nil
}

// Lister can serve both list forms; the gateway client implements it.
type Lister interface {
	PageLister
	LegacyLister
}

// Collection fetches with the paginated form when the collection supports it
// and legacy is false, and with the legacy form otherwise.
func Collection[T any](ctx context.Context, lister Lister, collection types.Collection, legacy bool, opts Options, decode func(json.RawMessage) (T, error)) ([]T, error) {
	if legacy || !collection.Paginated() {
		return Legacy(ctx, lister, collection, decode)
	}
	return All(ctx, lister, collection, opts, decode)
}
