package docpager

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrDuplicateID        = errors.New("duplicate document id")
	ErrCollectionNotFound = errors.New("collection not found")
)

// FindOptions controls ordering, size and shape of a Store.Find result.
type FindOptions struct {
	// Sort is applied verbatim.
	Sort Sort
	// Limit is the maximum number of documents. Zero means unlimited.
	Limit int
	// Projection is passed through as-is.
	Projection Projection
}

// Store is the document store contract consumed by the pager and the
// components built on top of it. Collections are created implicitly by the
// first insert.
//
// Implementations must order ids by byte-wise string comparison: the pager
// relies on it for the tie-breaker and for resuming after the last id.
type Store interface {
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error)
	// InsertOne stores doc and returns its id. An id is generated when the
	// document has none. Inserting an existing id fails with ErrDuplicateID.
	InsertOne(ctx context.Context, collection string, doc Document) (string, error)
	// UpdateMany assigns every (dotted path, value) of set on matching
	// documents and returns the number of updated documents.
	UpdateMany(ctx context.Context, collection string, filter Filter, set Document) (int64, error)
	DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error)
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	// DropCollection fails with ErrCollectionNotFound if the collection does not exist.
	DropCollection(ctx context.Context, collection string) error
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// FindOne returns the first document (in id order) matching filter, or ErrNotFound.
func FindOne(ctx context.Context, store Store, collection string, filter Filter) (Document, error) {
	docs, err := store.Find(ctx, collection, filter, FindOptions{
		Sort:  Sort{Asc(IDField)},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	return docs[0], nil
}
