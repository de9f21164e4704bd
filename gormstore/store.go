// Package gormstore is a docpager.Store on top of GORM.
//
// Each collection is a table with two columns: a string primary key (id) and
// a JSON document (doc, jsonb on PostgreSQL, JSON on MySQL). Tables are created
// by the first write. Filters and sorts are compiled into JSON path
// expressions over the doc column; the id column is compared byte-wise.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alp4ka/docpager"
)

var _collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

type (
	Config struct {
		// Driver is DriverPostgres or DriverMySQL.
		Driver string
		DSN    string
	}

	Option func(*Store)

	Store struct {
		db       *gorm.DB
		compiler compiler
		log      logr.Logger
		tables   sync.Map
	}

	record struct {
		ID  string `gorm:"column:id"`
		Doc string `gorm:"column:doc"`
	}
)

var _ docpager.Store = (*Store)(nil)

// WithLogger routes gorm logs to log.
func WithLogger(log logr.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Open connects to the database described by cfg.
func Open(cfg Config, opts ...Option) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver '%s'", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("cannot open %s database: %w", cfg.Driver, err)
	}

	return New(db, opts...)
}

// New wraps an open connection. The SQL flavor is taken from the dialector.
// Duplicate ids are reported as docpager.ErrDuplicateID only if db was opened
// with TranslateError.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	d := dialect(db.Dialector.Name())
	if !d.valid() {
		return nil, fmt.Errorf("unsupported dialect '%s'", d)
	}

	s := &Store{compiler: compiler{d: d}}
	for _, opt := range opts {
		opt(s)
	}

	if s.log.GetSink() != nil {
		db = db.Session(&gorm.Session{Logger: newGORMLogger(s.log)})
	} else {
		s.log = logr.Discard()
	}
	s.db = db

	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (s *Store) Find(ctx context.Context, collection string, filter docpager.Filter, opts docpager.FindOptions) ([]docpager.Document, error) {
	query, err := s.query(ctx, collection, filter)
	if err != nil {
		return nil, err
	}

	query = query.Select("id", "doc")
	if len(opts.Sort) > 0 {
		query = query.Order(s.compiler.orderBy(opts.Sort))
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var records []record
	if err = query.Find(&records).Error; err != nil {
		if s.missing(ctx, collection) {
			return []docpager.Document{}, nil
		}
		return nil, fmt.Errorf("cannot find in '%s': %w", collection, err)
	}

	ret := make([]docpager.Document, 0, len(records))
	for _, r := range records {
		doc, err := docpager.UnmarshalDocument([]byte(r.Doc))
		if err != nil {
			return nil, fmt.Errorf("corrupt document '%s' in '%s': %w", r.ID, collection, err)
		}
		doc[docpager.IDField] = r.ID

		ret = append(ret, opts.Projection.Apply(doc))
	}

	return ret, nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc docpager.Document) (string, error) {
	if err := s.ensureTable(ctx, collection); err != nil {
		return "", err
	}

	id := doc.ID()
	if id == "" {
		v7, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("cannot generate document id: %w", err)
		}
		id = v7.String()
	}

	body := make(docpager.Document, len(doc))
	for k, v := range doc {
		if k != docpager.IDField {
			body[k] = v
		}
	}

	data, err := docpager.MarshalValue(body)
	if err != nil {
		return "", fmt.Errorf("cannot encode document '%s': %w", id, err)
	}

	err = s.db.WithContext(ctx).Table(collection).Create(map[string]any{
		"id":  id,
		"doc": string(data),
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", fmt.Errorf("%w: '%s' in '%s'", docpager.ErrDuplicateID, id, collection)
	}
	if err != nil {
		return "", fmt.Errorf("cannot insert into '%s': %w", collection, err)
	}

	return id, nil
}

func (s *Store) UpdateMany(ctx context.Context, collection string, filter docpager.Filter, set docpager.Document) (int64, error) {
	where, vars, err := s.where(collection, filter)
	if err != nil {
		return 0, err
	}

	expr, setVars, err := s.compiler.update(set)
	if err != nil {
		return 0, err
	}

	res := s.db.WithContext(ctx).Exec(
		fmt.Sprintf("UPDATE ? SET doc = %s WHERE %s", expr, where),
		append(append([]any{clause.Table{Name: collection}}, setVars...), vars...)...,
	)
	if res.Error != nil {
		if s.missing(ctx, collection) {
			return 0, nil
		}
		return 0, fmt.Errorf("cannot update '%s': %w", collection, res.Error)
	}

	return res.RowsAffected, nil
}

// DeleteOne deletes the first matching document in id order.
func (s *Store) DeleteOne(ctx context.Context, collection string, filter docpager.Filter) (int64, error) {
	docs, err := s.Find(ctx, collection, filter, docpager.FindOptions{
		Sort:       docpager.Sort{docpager.Asc(docpager.IDField)},
		Limit:      1,
		Projection: docpager.Projection{docpager.IDField: true},
	})
	if err != nil || len(docs) == 0 {
		return 0, err
	}

	return s.DeleteMany(ctx, collection, docpager.Eq(docpager.IDField, docs[0].ID()))
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter docpager.Filter) (int64, error) {
	where, vars, err := s.where(collection, filter)
	if err != nil {
		return 0, err
	}

	res := s.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM ? WHERE %s", where),
		append([]any{clause.Table{Name: collection}}, vars...)...,
	)
	if res.Error != nil {
		if s.missing(ctx, collection) {
			return 0, nil
		}
		return 0, fmt.Errorf("cannot delete from '%s': %w", collection, res.Error)
	}

	return res.RowsAffected, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter docpager.Filter) (int64, error) {
	query, err := s.query(ctx, collection, filter)
	if err != nil {
		return 0, err
	}

	var n int64
	if err = query.Count(&n).Error; err != nil {
		if s.missing(ctx, collection) {
			return 0, nil
		}
		return 0, fmt.Errorf("cannot count '%s': %w", collection, err)
	}

	return n, nil
}

func (s *Store) DropCollection(ctx context.Context, collection string) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: '%s'", docpager.ErrCollectionNotFound, collection)
	}

	s.tables.Delete(collection)
	if err = s.db.WithContext(ctx).Migrator().DropTable(collection); err != nil {
		return fmt.Errorf("cannot drop '%s': %w", collection, err)
	}

	return nil
}

func (s *Store) CollectionExists(ctx context.Context, collection string) (bool, error) {
	if err := validateCollection(collection); err != nil {
		return false, err
	}

	return s.db.WithContext(ctx).Migrator().HasTable(collection), nil
}

func (s *Store) query(ctx context.Context, collection string, filter docpager.Filter) (*gorm.DB, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := docpager.ValidateFilter(filter); err != nil {
		return nil, err
	}

	expr, err := s.compiler.toGORMExpression(filter)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Table(collection)
	if expr != nil {
		query = query.Clauses(expr)
	}

	return query, nil
}

// where compiles filter for a raw statement. A nil filter matches all rows.
func (s *Store) where(collection string, filter docpager.Filter) (string, []any, error) {
	if err := validateCollection(collection); err != nil {
		return "", nil, err
	}
	if err := docpager.ValidateFilter(filter); err != nil {
		return "", nil, err
	}

	return s.compiler.toSQLClause(filter)
}

func (s *Store) ensureTable(ctx context.Context, collection string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if _, ok := s.tables.Load(collection); ok {
		return nil
	}

	err := s.db.WithContext(ctx).Exec(s.compiler.d.createTable(), clause.Table{Name: collection}).Error
	if err != nil {
		return fmt.Errorf("cannot create collection '%s': %w", collection, err)
	}
	s.tables.Store(collection, struct{}{})

	return nil
}

// missing reports whether a failed statement ran against a nonexistent table,
// which reads as an empty collection.
func (s *Store) missing(ctx context.Context, collection string) bool {
	if _, ok := s.tables.Load(collection); ok {
		return false
	}

	return !s.db.WithContext(ctx).Migrator().HasTable(collection)
}

func validateCollection(name string) error {
	if !_collectionName.MatchString(name) {
		return fmt.Errorf("invalid collection name '%s'", name)
	}

	return nil
}
