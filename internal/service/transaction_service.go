package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/operator/actions"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

const defaultLimit = 20

var ErrInvalidTransaction = errors.New("invalid transaction")

// TransactionService handles transaction business logic.
type TransactionService struct {
	storage   *storage.Storage
	processor Processor
	logger    logrus.FieldLogger
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(store *storage.Storage, processor Processor, logger logrus.FieldLogger) *TransactionService {
	return &TransactionService{storage: store, processor: processor, logger: logger}
}

// CreateTransaction stores a manual entry after classifying it and checking
// it for anomalies.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if strings.TrimSpace(tx.Description) == "" {
		return Transaction{}, errors.Wrap(ErrInvalidTransaction, "description is required")
	}
	if tx.Date.IsZero() {
		return Transaction{}, errors.Wrap(ErrInvalidTransaction, "date is required")
	}

	action := &actions.CreateTransaction{
		Date:        tx.Date,
		Description: strings.TrimSpace(tx.Description),
		Amount:      tx.Amount,
		Category:    strings.TrimSpace(tx.Category),
		Flag:        strings.TrimSpace(tx.Flag),
		Logger:      s.logger,
	}
	if err := s.processor.Process(ctx, action); err != nil {
		return Transaction{}, err
	}
	return fromStorageTransaction(action.Result), nil
}

// UpdateTransaction applies a manual edit and returns the stored row.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, edit TransactionEdit) (Transaction, error) {
	if description, ok := edit.Description.Get(); ok && strings.TrimSpace(description) == "" {
		return Transaction{}, errors.Wrap(ErrInvalidTransaction, "description cannot be blank")
	}

	action := &actions.UpdateTransaction{
		ID: id,
		Update: transaction.TransactionUpdate{
			Date:        edit.Date,
			Description: edit.Description,
			Amount:      edit.Amount,
			Category:    edit.Category,
			Flag:        edit.Flag,
		},
		Logger: s.logger,
	}
	if err := s.processor.Process(ctx, action); err != nil {
		return Transaction{}, err
	}
	return fromStorageTransaction(action.Result), nil
}

// BulkCategorize pins category on every listed row.
func (s *TransactionService) BulkCategorize(ctx context.Context, ids []int64, category string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	action := &actions.BulkCategorize{IDs: ids, Category: strings.TrimSpace(category), Logger: s.logger}
	if err := s.processor.Process(ctx, action); err != nil {
		return 0, err
	}
	return action.Updated, nil
}

// ListTransactions returns a page of transactions using cursor-based pagination.
// A cursor overrides filter so later pages stay consistent with the first.
func (s *TransactionService) ListTransactions(ctx context.Context, filter TransactionListFilter, cursor *TransactionCursor) ([]Transaction, *TransactionCursor, error) {
	limit := defaultLimit
	offset := 0
	var maxCreationTime *time.Time
	if cursor != nil {
		limit = cursor.Limit
		offset = cursor.Position
		maxCreationTime = &cursor.MaxCreationTime
		filter = cursor.Filter
	}

	storageFilter := &transaction.TransactionFilter{
		FlaggedOnly:       filter.FlaggedOnly,
		UncategorizedOnly: filter.UncategorizedOnly,
		Limit:             limit,
		Offset:            offset,
		MaxCreationTime:   maxCreationTime,
	}

	rows, err := s.storage.Transactions.List(ctx, storageFilter)
	if err != nil {
		return nil, nil, err
	}

	if len(rows) == 0 {
		return nil, nil, nil
	}

	var nextCursor *TransactionCursor
	if len(rows) > limit {
		rows = rows[:limit]

		cursorMaxCreationTime := rows[0].CreatedAt
		if maxCreationTime != nil {
			cursorMaxCreationTime = *maxCreationTime
		}

		nextCursor = &TransactionCursor{
			Position:        offset + limit,
			Limit:           limit,
			MaxCreationTime: cursorMaxCreationTime,
			Filter:          filter,
		}
	}

	convertedTransactions := make([]Transaction, len(rows))
	for i, row := range rows {
		convertedTransactions[i] = fromStorageTransaction(row)
	}

	return convertedTransactions, nextCursor, nil
}
