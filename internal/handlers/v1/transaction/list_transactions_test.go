package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/ledger-rules/internal/service"
)

func newListTestAPI(t *testing.T, svc transactionLister) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	NewListTransactionsHandler(svc).Register(api)
	return api
}

func TestParseListTransactionsInput_NoCursor(t *testing.T) {
	input := &ListTransactionsInput{Body: ListTransactionsBody{FlaggedOnly: true}}

	filter, cursor, err := parseListTransactionsInput(input)
	require.NoError(t, err)
	assert.Nil(t, cursor)
	assert.True(t, filter.FlaggedOnly)
	assert.False(t, filter.UncategorizedOnly)
}

func TestParseListTransactionsInput_WithCursor(t *testing.T) {
	input := &ListTransactionsInput{
		Body: ListTransactionsBody{
			Cursor: &ListTransactionsCursor{
				Position:          40,
				Limit:             10,
				MaxCreationTime:   "2025-06-15T08:00:00Z",
				UncategorizedOnly: true,
			},
		},
	}

	_, cursor, err := parseListTransactionsInput(input)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, 40, cursor.Position)
	assert.Equal(t, 10, cursor.Limit)
	assert.True(t, cursor.MaxCreationTime.Equal(time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)))
	assert.True(t, cursor.Filter.UncategorizedOnly)
}

func TestParseListTransactionsInput_InvalidCursorTime(t *testing.T) {
	input := &ListTransactionsInput{
		Body: ListTransactionsBody{
			Cursor: &ListTransactionsCursor{Limit: 10, MaxCreationTime: "yesterday"},
		},
	}

	_, _, err := parseListTransactionsInput(input)
	assert.Error(t, err)
}

func TestHTTP_ListTransactions_FirstPage(t *testing.T) {
	maxTime := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	mockSvc := new(mockTransactionService)
	mockSvc.On("ListTransactions", mock.Anything,
		service.TransactionListFilter{FlaggedOnly: true},
		(*service.TransactionCursor)(nil),
	).Return(
		[]service.Transaction{sampleTransaction(2), sampleTransaction(1)},
		&service.TransactionCursor{
			Position:        2,
			Limit:           2,
			MaxCreationTime: maxTime,
			Filter:          service.TransactionListFilter{FlaggedOnly: true},
		},
		nil,
	)

	resp := newListTestAPI(t, mockSvc).Post("/v1/transaction/list", ListTransactionsBody{FlaggedOnly: true})

	require.Equal(t, http.StatusOK, resp.Code)
	var body ListTransactionsResponseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Transactions, 2)
	assert.Equal(t, int64(2), body.Transactions[0].ID)
	require.NotNil(t, body.NextCursor)
	assert.Equal(t, 2, body.NextCursor.Position)
	assert.True(t, body.NextCursor.FlaggedOnly)
	parsed, err := time.Parse(time.RFC3339Nano, body.NextCursor.MaxCreationTime)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(maxTime))
	mockSvc.AssertExpectations(t)
}

func TestHTTP_ListTransactions_LastPage(t *testing.T) {
	mockSvc := new(mockTransactionService)
	mockSvc.On("ListTransactions", mock.Anything, mock.Anything, mock.MatchedBy(func(c *service.TransactionCursor) bool {
		return c != nil && c.Position == 2
	})).Return([]service.Transaction{sampleTransaction(1)}, nil, nil)

	resp := newListTestAPI(t, mockSvc).Post("/v1/transaction/list", ListTransactionsBody{
		Cursor: &ListTransactionsCursor{Position: 2, Limit: 2, MaxCreationTime: "2025-06-15T08:00:00Z"},
	})

	require.Equal(t, http.StatusOK, resp.Code)
	var body ListTransactionsResponseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Transactions, 1)
	assert.Nil(t, body.NextCursor)
}

func TestHTTP_ListTransactions_ServiceError(t *testing.T) {
	mockSvc := new(mockTransactionService)
	mockSvc.On("ListTransactions", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil, errors.New("connection reset"))

	resp := newListTestAPI(t, mockSvc).Post("/v1/transaction/list", ListTransactionsBody{})

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
