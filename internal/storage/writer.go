package storage

import (
	"context"
)

// Committer finishes a unit of work.
type Committer interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Writer exposes the tables bound to one open transaction.
type Writer struct {
	tx Committer
	Tables
}

func NewWriter(tx Committer, tables Tables) *Writer {
	return &Writer{
		tx:     tx,
		Tables: tables,
	}
}

func (w *Writer) Commit(ctx context.Context) error {
	return w.tx.Commit(ctx)
}

func (w *Writer) Rollback(ctx context.Context) error {
	return w.tx.Rollback(ctx)
}
