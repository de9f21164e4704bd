// Package memstore is an in-memory docpager.Store.
//
// Documents are deep-copied on the way in and out, so callers never share
// state with the store. Dates are kept in UTC at millisecond precision, the
// resolution of docpager.DateLayout. Ids are generated as UUIDv7 strings, which sort by
// creation time under byte-wise comparison.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alp4ka/docpager"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docpager.Document
	patterns    sync.Map
}

var _ docpager.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]docpager.Document),
	}
}

func (s *Store) Find(ctx context.Context, collection string, filter docpager.Filter, opts docpager.FindOptions) ([]docpager.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := docpager.ValidateFilter(filter); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.filter(collection, filter)
	if err != nil {
		return nil, err
	}

	sortDocuments(docs, opts.Sort)
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}

	ret := make([]docpager.Document, 0, len(docs))
	for _, doc := range docs {
		if len(opts.Projection) == 0 {
			ret = append(ret, doc.Clone())
			continue
		}
		ret = append(ret, opts.Projection.Apply(doc))
	}

	return ret, nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc docpager.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, _ = storedValue(map[string]any(doc)).(map[string]any)
	if doc == nil {
		doc = docpager.Document{}
	}

	id := doc.ID()
	if id == "" {
		v7, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("cannot generate document id: %w", err)
		}
		id = v7.String()
	}
	doc[docpager.IDField] = id

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]docpager.Document)
		s.collections[collection] = coll
	}

	if _, exists := coll[id]; exists {
		return "", fmt.Errorf("%w: '%s' in '%s'", docpager.ErrDuplicateID, id, collection)
	}
	coll[id] = doc

	return id, nil
}

func (s *Store) UpdateMany(ctx context.Context, collection string, filter docpager.Filter, set docpager.Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := docpager.ValidateFilter(filter); err != nil {
		return 0, err
	}
	for path := range set {
		if err := docpager.ValidateField(path); err != nil {
			return 0, err
		}
		if path == docpager.IDField {
			return 0, fmt.Errorf("cannot update document id")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.filter(collection, filter)
	if err != nil {
		return 0, err
	}

	for _, doc := range docs {
		for path, value := range set {
			doc.Set(path, storedValue(value))
		}
	}

	return int64(len(docs)), nil
}

func (s *Store) DeleteOne(ctx context.Context, collection string, filter docpager.Filter) (int64, error) {
	return s.delete(ctx, collection, filter, 1)
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter docpager.Filter) (int64, error) {
	return s.delete(ctx, collection, filter, 0)
}

func (s *Store) delete(ctx context.Context, collection string, filter docpager.Filter, limit int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := docpager.ValidateFilter(filter); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.filter(collection, filter)
	if err != nil {
		return 0, err
	}

	sortDocuments(docs, nil)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	for _, doc := range docs {
		delete(s.collections[collection], doc.ID())
	}

	return int64(len(docs)), nil
}

func (s *Store) Count(ctx context.Context, collection string, filter docpager.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := docpager.ValidateFilter(filter); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.filter(collection, filter)
	if err != nil {
		return 0, err
	}

	return int64(len(docs)), nil
}

func (s *Store) DropCollection(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection]; !ok {
		return fmt.Errorf("%w: '%s'", docpager.ErrCollectionNotFound, collection)
	}
	delete(s.collections, collection)

	return nil
}

func (s *Store) CollectionExists(ctx context.Context, collection string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.collections[collection]

	return ok, nil
}

// filter returns the stored documents matching f, unordered. The caller holds the lock.
func (s *Store) filter(collection string, f docpager.Filter) ([]docpager.Document, error) {
	coll := s.collections[collection]

	ret := make([]docpager.Document, 0, len(coll))
	for _, doc := range coll {
		ok, err := s.matches(doc, f)
		if err != nil {
			return nil, err
		}
		if ok {
			ret = append(ret, doc)
		}
	}

	return ret, nil
}

// sortDocuments orders docs by sort, then by ascending id.
func sortDocuments(docs []docpager.Document, sort docpager.Sort) {
	slices.SortFunc(docs, func(a, b docpager.Document) int {
		for _, field := range sort {
			va, _ := a.Lookup(field.Field)
			vb, _ := b.Lookup(field.Field)

			c := compareValues(va, vb)
			if !field.Ascending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}

		return strings.Compare(a.ID(), b.ID())
	})
}

// storedValue deep-copies v, truncating dates to milliseconds in UTC.
func storedValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Truncate(time.Millisecond)
	case *time.Time:
		if t == nil {
			return nil
		}
		return storedValue(*t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = storedValue(e)
		}
		return out
	case docpager.Document:
		return storedValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = storedValue(e)
		}
		return out
	default:
		return v
	}
}
