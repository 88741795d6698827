// Package storagetest provides an in-memory storage backend with the same
// semantics as the Postgres tables, for tests that exercise business logic.
package storagetest

import (
	"context"
	"database/sql"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/pkg/errors"

	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

type state struct {
	nextID       int64
	transactions []*transaction.Transaction
	rules        []*rule.Rule
	uploads      map[uuid.UUID]*upload.Upload
}

func (s *state) clone() *state {
	c := &state{
		nextID:       s.nextID,
		transactions: make([]*transaction.Transaction, len(s.transactions)),
		rules:        make([]*rule.Rule, len(s.rules)),
		uploads:      make(map[uuid.UUID]*upload.Upload, len(s.uploads)),
	}
	for i, tx := range s.transactions {
		cp := *tx
		c.transactions[i] = &cp
	}
	for i, r := range s.rules {
		cp := *r
		c.rules[i] = &cp
	}
	for id, u := range s.uploads {
		c.uploads[id] = copyUpload(u)
	}
	return c
}

// Memory is a process-local store. Writers snapshot the state when opened
// and restore it on rollback; concurrent writers are not isolated.
type Memory struct {
	mu       sync.Mutex
	state    *state
	clock    time.Time
	failures map[string]error
	panics   map[string]any
	statuses map[uuid.UUID][]upload.Status

	commits   int
	rollbacks int
}

func New() *Memory {
	return &Memory{
		state:    &state{uploads: make(map[uuid.UUID]*upload.Upload)},
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		failures: make(map[string]error),
		panics:   make(map[string]any),
		statuses: make(map[uuid.UUID][]upload.Status),
	}
}

// Storage wires the memory tables into a storage.Storage.
func (m *Memory) Storage() *storage.Storage {
	return storage.NewStorageWith(m.tables(), func(ctx context.Context) (*storage.Writer, error) {
		if err := m.fail("Write"); err != nil {
			return nil, err
		}
		m.mu.Lock()
		snapshot := m.state.clone()
		m.mu.Unlock()
		return storage.NewWriter(&committer{m: m, snapshot: snapshot}, m.tables()), nil
	})
}

func (m *Memory) tables() storage.Tables {
	return storage.Tables{
		Transactions: &TransactionTable{m: m},
		Rules:        &RuleTable{m: m},
		Uploads:      &UploadTable{m: m},
	}
}

// FailOn makes the named table method return err until cleared with nil.
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// PanicOn makes the named table method panic with v until cleared with nil.
func (m *Memory) PanicOn(method string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v == nil {
		delete(m.panics, method)
		return
	}
	m.panics[method] = v
}

func (m *Memory) fail(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.panics[method]; ok {
		panic(v)
	}
	return m.failures[method]
}

// Commits and Rollbacks count finished writers.
func (m *Memory) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

func (m *Memory) Rollbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollbacks
}

// now advances a fake clock so creation order is strict.
func (m *Memory) now() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

// Transactions returns copies of every stored transaction in id order.
func (m *Memory) Transactions() []transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transaction.Transaction, len(m.state.transactions))
	for i, tx := range m.state.transactions {
		out[i] = *tx
	}
	return out
}

// Transaction returns a copy of one stored transaction.
func (m *Memory) Transaction(id int64) (transaction.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.state.transactions {
		if tx.ID == id {
			return *tx, true
		}
	}
	return transaction.Transaction{}, false
}

// Seed stores a fully formed transaction as-is and returns its id.
func (m *Memory) Seed(tx transaction.Transaction) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextID++
	tx.ID = m.state.nextID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = m.now()
	}
	tx.UpdatedAt = tx.CreatedAt
	m.state.transactions = append(m.state.transactions, &tx)
	return tx.ID
}

// SavedStatuses lists the status of every save of one upload, in order.
func (m *Memory) SavedStatuses(id uuid.UUID) []upload.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.statuses[id])
}

// Upload returns a copy of one stored upload.
func (m *Memory) Upload(id uuid.UUID) (*upload.Upload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.state.uploads[id]
	if !ok {
		return nil, false
	}
	return copyUpload(u), true
}

type committer struct {
	m        *Memory
	snapshot *state
	done     bool
}

func (c *committer) Commit(ctx context.Context) error {
	if err := c.m.fail("Commit"); err != nil {
		return err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.done {
		return sql.ErrTxDone
	}
	c.done = true
	c.m.commits++
	return nil
}

func (c *committer) Rollback(ctx context.Context) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.done {
		return sql.ErrTxDone
	}
	c.done = true
	c.m.state = c.snapshot
	c.m.rollbacks++
	return nil
}

func notFound(kind string, id any) error {
	return errors.Wrapf(sql.ErrNoRows, "%s %v", kind, id)
}

func copyUpload(u *upload.Upload) *upload.Upload {
	cp := *u
	cp.ErrorDetails = slices.Clone(u.ErrorDetails)
	return &cp
}

func sortedDistinct(values []string) []string {
	sort.Strings(values)
	return slices.Compact(values)
}
