package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"

	"github.com/carson-networks/ledger-rules/internal/config"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

// Tables groups the table accessors bound to a single executor.
type Tables struct {
	Transactions transaction.ITransactionTable
	Rules        rule.IRuleTable
	Uploads      upload.IUploadTable
}

// NewTables binds every table to exec, which may be the pool or an open
// transaction.
func NewTables(exec bob.Executor) Tables {
	return Tables{
		Transactions: transaction.NewTable(exec),
		Rules:        rule.NewTable(exec),
		Uploads:      upload.NewTable(exec),
	}
}

// Storage is the entry point to the database. Its embedded tables read and
// write outside of any transaction; Write opens one.
type Storage struct {
	DB *sql.DB
	Tables

	begin func(ctx context.Context) (*Writer, error)
}

func NewStorage(env *config.Config) (*Storage, error) {
	db, err := sql.Open("postgres", env.PostgresURL())
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open")
	}
	return NewStorageFromDB(db), nil
}

func NewStorageFromDB(db *sql.DB) *Storage {
	bobDB := bob.NewDB(db)
	return &Storage{
		DB:     db,
		Tables: NewTables(bobDB),
		begin: func(ctx context.Context) (*Writer, error) {
			tx, err := bobDB.BeginTx(ctx, nil)
			if err != nil {
				return nil, errors.Wrap(err, "storage.BeginTx")
			}
			return NewWriter(tx, NewTables(tx)), nil
		},
	}
}

// NewStorageWith assembles a Storage from prebuilt tables and a writer
// factory. Used for alternative backends.
func NewStorageWith(tables Tables, begin func(ctx context.Context) (*Writer, error)) *Storage {
	return &Storage{Tables: tables, begin: begin}
}

// Write opens a transaction and returns the tables bound to it.
func (s *Storage) Write(ctx context.Context) (*Writer, error) {
	if s.begin == nil {
		return nil, errors.New("storage: no writer configured")
	}
	return s.begin(ctx)
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
