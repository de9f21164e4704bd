package docpager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-logr/logr"
	"github.com/samber/lo"
)

// ErrCursorSortMismatch is returned when a cursor is fed to a query whose sort
// differs from the sort of the page that produced it.
var ErrCursorSortMismatch = errors.New("cursor does not match query sort")

type (
	// Query describes one page request.
	Query struct {
		// Filter is the caller predicate. Nil matches every document.
		Filter Filter
		// Limit is the page size. Non-positive values fall back to DefaultLimit.
		Limit int
		// Cursor is the opaque token of the previous page. Empty starts from the
		// first page.
		Cursor string
		// Sort is the requested ordering. The id tie-breaker is appended implicitly.
		Sort Sort
		// Projection shapes the returned documents. The id and sort fields are
		// still fetched to build the next cursor, then dropped if excluded.
		Projection Projection
	}

	// SearchInput is a free-text page request, typically bound from an API payload.
	SearchInput struct {
		Q          string     `json:"q"`
		Limit      int        `json:"limit"`
		Cursor     string     `json:"cursor"`
		Sort       Sort       `json:"sort"`
		Projection Projection `json:"projection"`
	}

	Option func(*Pager)

	// Pager executes paginated queries against a Store. It holds no per-query
	// state and is safe for concurrent use.
	Pager struct {
		store       Store
		codec       *Codec
		log         logr.Logger
		maxLimit    int
		lookahead   bool
		singleField bool
	}
)

// WithCodec sets the cursor codec. Defaults to ModeCompressURI.
func WithCodec(codec *Codec) Option {
	return func(p *Pager) {
		p.codec = codec
	}
}

func WithLogger(log logr.Logger) Option {
	return func(p *Pager) {
		p.log = log
	}
}

// WithMaxLimit overrides MaxLimit. Unbounded lifts the bound, negative values
// keep MaxLimit.
func WithMaxLimit(limit int) Option {
	return func(p *Pager) {
		p.maxLimit = limit
	}
}

// WithLookahead enables lookahead pagination, which fetches one extra document
// to determine whether the current page is the last one. Without it a page of
// exactly Limit documents always carries a cursor, and the next page may be empty.
func WithLookahead() Option {
	return func(p *Pager) {
		p.lookahead = true
	}
}

// WithSingleFieldResume restricts resuming to cursors with at most one recorded
// sort value. Resuming a multi-field cursor fails with ErrMultiSortResume.
func WithSingleFieldResume() Option {
	return func(p *Pager) {
		p.singleField = true
	}
}

func NewPager(store Store, opts ...Option) *Pager {
	p := &Pager{
		store:    store,
		maxLimit: MaxLimit,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.log = resolveLogger(p.log).WithName("pager")
	if p.codec == nil {
		p.codec = NewCodec(ModeCompressURI, p.log)
	}
	if p.maxLimit < 0 {
		p.maxLimit = MaxLimit
	}

	return p
}

func (p *Pager) Codec() *Codec {
	return p.codec
}

// Find returns one page of documents matching q from collection.
func (p *Pager) Find(ctx context.Context, collection string, q Query) (*Page[Document], error) {
	if err := q.Sort.validate(); err != nil {
		return nil, err
	}
	if err := ValidateFilter(q.Filter); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	cursor := p.codec.Decode(q.Cursor)
	if err := cursor.validate(q.Sort); err != nil {
		return nil, err
	}

	resume, err := resumeFilter(cursor, p.singleField)
	if err != nil {
		return nil, err
	}

	limit, clamped := ClampLimit(q.Limit, p.maxLimit)
	opts := FindOptions{
		Sort:       q.Sort.WithTieBreaker(),
		Limit:      lo.Ternary(p.lookahead, limit+1, limit),
		Projection: q.Projection.keeping(append(q.Sort.Fields(), IDField)...),
	}

	p.log.V(1).Info("Paginated find",
		"collection", collection,
		"sort", opts.Sort.Strings(),
		"limit", opts.Limit,
		"limitClamped", clamped,
		"resume", !cursor.IsEmpty(),
	)

	docs, err := p.store.Find(ctx, collection, And(q.Filter, resume), opts)
	if err != nil {
		return nil, fmt.Errorf("cannot paginate '%s': %w", collection, err)
	}

	if p.isLastPage(docs, limit) {
		return &Page[Document]{Docs: project(docs, q.Projection)}, nil
	}
	docs = docs[:limit]

	next, err := p.codec.Encode(lo.LastOrEmpty(docs), q.Sort)
	if err != nil {
		return nil, fmt.Errorf("cannot build next page cursor: %w", err)
	}

	return &Page[Document]{Docs: project(docs, q.Projection), Cursor: next}, nil
}

func project(docs []Document, projection Projection) []Document {
	if len(projection) == 0 {
		return docs
	}

	return lo.Map(docs, func(doc Document, _ int) Document { return projection.Apply(doc) })
}

// isLastPage returns true if the result set is the last page in the dataset:
//  1. The number of returned documents is less than limit.
//  2. Lookahead is on and the number of returned documents is at most limit.
func (p *Pager) isLastPage(docs []Document, limit int) bool {
	return len(docs) < limit || (p.lookahead && len(docs) <= limit)
}

// Search builds a starts-with OR ends-with predicate for in.Q over fields and
// returns the requested page. The sort falls back to defaultSort, then to the
// first field ascending.
func (p *Pager) Search(ctx context.Context, collection string, in SearchInput, fields []string, defaultSort Sort) (*Page[Document], error) {
	sort := in.Sort
	if len(sort) == 0 {
		sort = defaultSort
	}
	if len(sort) == 0 && len(fields) > 0 {
		sort = Sort{Asc(fields[0])}
	}

	return p.Find(ctx, collection, Query{
		Filter:     SearchFilter(in.Q, fields),
		Limit:      in.Limit,
		Cursor:     in.Cursor,
		Sort:       sort,
		Projection: in.Projection,
	})
}

// SearchFilter matches documents where any of fields starts or ends with term,
// case-insensitively. A blank term yields nil.
func SearchFilter(term string, fields []string) Filter {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	quoted := regexp.QuoteMeta(term)
	conditions := make([]Filter, 0, len(fields)*2)
	for _, field := range fields {
		conditions = append(conditions,
			Match(field, "^"+quoted, true),
			Match(field, quoted+"$", true),
		)
	}

	return Or(conditions...)
}

// FindAs is Find with every document decoded into T.
func FindAs[T any](ctx context.Context, p *Pager, collection string, q Query) (*Page[T], error) {
	page, err := p.Find(ctx, collection, q)
	if err != nil {
		return nil, err
	}

	return MapPage[T](page)
}

// SearchAs is Search with every document decoded into T.
func SearchAs[T any](ctx context.Context, p *Pager, collection string, in SearchInput, fields []string, defaultSort Sort) (*Page[T], error) {
	page, err := p.Search(ctx, collection, in, fields, defaultSort)
	if err != nil {
		return nil, err
	}

	return MapPage[T](page)
}

// MapPage decodes every document of page into T, keeping the cursor.
func MapPage[T any](page *Page[Document]) (*Page[T], error) {
	ret := &Page[T]{
		Docs:   make([]T, 0, len(page.Docs)),
		Cursor: page.Cursor,
	}
	for _, doc := range page.Docs {
		var v T
		if err := DecodeDocument(doc, &v); err != nil {
			return nil, err
		}
		ret.Docs = append(ret.Docs, v)
	}

	return ret, nil
}

// DecodeDocument maps doc onto dst through its JSON representation. The
// document id is exposed under "id" as a string.
func DecodeDocument(doc Document, dst any) error {
	public := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		public[k] = v
	}
	if id := doc.ID(); id != "" {
		public["id"] = id
	}

	data, err := MarshalValue(public)
	if err != nil {
		return fmt.Errorf("cannot encode document '%s': %w", doc.ID(), err)
	}

	if err = json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("cannot decode document '%s': %w", doc.ID(), err)
	}

	return nil
}

// validate checks that the recorded sort values follow sort field by field.
func (c Cursor) validate(sort Sort) error {
	if len(c.SortValues) == 0 {
		return nil
	}

	if len(c.SortValues) != len(sort) {
		return fmt.Errorf("%w: cursor has %d sort values, query sorts by %d fields",
			ErrCursorSortMismatch, len(c.SortValues), len(sort))
	}

	for i, sv := range c.SortValues {
		if sv.Field != sort[i].Field || sv.Ascending != sort[i].Ascending {
			return fmt.Errorf("%w: unexpected cursor field '%s'", ErrCursorSortMismatch, SortField{
				Field:     sv.Field,
				Ascending: sv.Ascending,
			})
		}
	}

	return nil
}

func resolveLogger(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}

	return log
}
