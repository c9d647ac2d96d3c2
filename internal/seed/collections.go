package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"examseed/internal/fetch"
	"examseed/internal/logging"
	"examseed/internal/types"

	"go.uber.org/zap"
)

// loadCollection returns the decoded items of a collection, from the cache
// when FromCache is set and from the service otherwise. Fetch problems are
// logged and yield whatever was usable; undecodable items are dropped.
func loadCollection[T any](ctx context.Context, s *Seeder, c types.Collection, decode func(json.RawMessage) (T, error)) []T {
	log := s.fetchLog.With(zap.String("collection", string(c)))

	var raws []json.RawMessage
	if s.opts.FromCache && s.cache != nil {
		var err error
		raws, err = s.readCache(c)
		if err != nil {
			s.storeLog.Warn("cache read failed", zap.String("collection", string(c)), zap.Error(err))
			return nil
		}
	} else {
		var err error
		raws, err = s.fetchRaw(ctx, c)
		var partial *fetch.PartialError
		switch {
		case errors.As(err, &partial):
			log.Warn("partial fetch; continuing with what was retrieved", zap.Int("items", len(raws)), zap.Error(err))
		case err != nil:
			log.Warn("fetch failed", zap.Error(err))
		default:
			s.writeCache(c, raws)
		}
	}

	items := make([]T, 0, len(raws))
	for i, raw := range raws {
		item, err := decode(raw)
		if err != nil {
			log.Warn("dropping undecodable item", zap.Int("position", i), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	log.Debug("collection loaded", zap.Int("items", len(items)))
	return items
}

func (s *Seeder) fetchRaw(ctx context.Context, c types.Collection) ([]json.RawMessage, error) {
	timer := logging.StartTimer(s.fetchLog, string(c))
	defer timer.Stop()
	opts := fetch.Options{PageSize: s.opts.PageSize, MaxPages: s.opts.MaxPages}
	return fetch.Collection(ctx, s.svc, c, s.opts.LegacyLists, opts, fetch.Raw)
}

func (s *Seeder) readCache(c types.Collection) ([]json.RawMessage, error) {
	data, err := s.cache.Read(c.CacheName())
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		// Older dumps stored the first page envelope as-is.
		var page types.Page
		if perr := json.Unmarshal(data, &page); perr != nil || page.Content == nil {
			return nil, fmt.Errorf("failed to decode cached %s: %w", c, err)
		}
		raws = page.Content
	}
	return raws, nil
}

func (s *Seeder) writeCache(c types.Collection, raws []json.RawMessage) {
	if s.cache == nil {
		return
	}
	if raws == nil {
		raws = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(raws, "", "  ")
	if err == nil {
		err = s.cache.Write(c.CacheName(), data)
	}
	if err != nil {
		s.storeLog.Warn("cache write failed", zap.String("collection", string(c)), zap.Error(err))
	}
}

// Dump fetches each collection from the service and stores it in the cache.
// It returns the item count per collection; a partial fetch is stored too and
// reported in the joined error.
func (s *Seeder) Dump(ctx context.Context, collections []types.Collection) (map[types.Collection]int, error) {
	if s.cache == nil {
		return nil, errors.New("dump requires a cache")
	}
	counts := make(map[types.Collection]int, len(collections))
	var errs []error
	for _, c := range collections {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		raws, err := s.fetchRaw(ctx, c)
		if err != nil {
			errs = append(errs, err)
			s.storeLog.Warn("fetch incomplete", zap.String("collection", string(c)), zap.Error(err))
		}
		s.writeCache(c, raws)
		counts[c] = len(raws)
		s.storeLog.Info("collection stored", zap.String("collection", string(c)), zap.Int("items", len(raws)))
	}
	return counts, errors.Join(errs...)
}
