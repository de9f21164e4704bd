package gormstore

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type mockFn func() (string, *gorm.DB, sqlmock.Sqlmock, error)

func newGORMMySQLMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return "", nil, nil, err
	}

	return DriverMySQL, db, mock, nil
}

func newGORMPostgresMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return "", nil, nil, err
	}

	return DriverPostgres, db, mock, nil
}

// newMockStore returns a store over a mocked connection with gorm logs
// routed to the test.
func newMockStore(t *testing.T, fn mockFn) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	_, db, mock, err := fn()
	require.NoError(t, err)

	s, err := New(db, WithLogger(testr.New(t)))
	require.NoError(t, err)

	return s, mock
}
