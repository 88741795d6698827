package classify

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

func TestDetectAll_DuplicateBeforeRecurring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.seed("2024-01-15", "Netflix", "15.49")
	second := f.seed("2024-01-15", "Netflix", "15.49")
	third := f.seed("2024-01-15", "Netflix", "15.49")
	nextMonth := f.seed("2024-02-15", "Netflix", "15.49")
	unrelated := f.seed("2024-01-15", "Grocery run", "80.00")

	result, err := f.detector.DetectAll(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Duplicates)
	assert.Equal(t, int64(2), result.Recurring)

	assert.Equal(t, transaction.FlagRecurring, f.get(t, first).Flag)
	assert.Equal(t, transaction.FlagDuplicate, f.get(t, second).Flag)
	assert.Equal(t, transaction.FlagDuplicate, f.get(t, third).Flag)
	assert.Equal(t, transaction.FlagRecurring, f.get(t, nextMonth).Flag)
	assert.Equal(t, "", f.get(t, unrelated).Flag)
	assert.True(t, f.get(t, second).FlagManualOverride)

	again, err := f.detector.DetectAll(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, AnomalyResult{}, again)
}

func TestDetectDuplicates_ReviewedUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	canonical := f.seed("2024-03-01", "Hotel", "220.00", withFlag(transaction.FlagReviewed, true))
	copyOne := f.seed("2024-03-01", "Hotel", "220.00")
	copyTwo := f.seed("2024-03-01", "Hotel", "220.00", withFlag("REVIEWED", false))

	n, err := f.detector.DetectDuplicates(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, transaction.FlagReviewed, f.get(t, canonical).Flag)
	assert.Equal(t, transaction.FlagDuplicate, f.get(t, copyOne).Flag)
	assert.Equal(t, "REVIEWED", f.get(t, copyTwo).Flag)
}

func TestDetectDuplicates_AmountComparedNumerically(t *testing.T) {
	f := newFixture(t)

	f.seed("2024-03-01", "Parking", "5.5")
	later := f.mem.Seed(transaction.Transaction{
		Date:        day("2024-03-01"),
		Description: "Parking",
		Amount:      decimal.RequireFromString("5.50"),
	})
	different := f.seed("2024-03-01", "parking", "5.50")

	n, err := f.detector.DetectDuplicates(context.Background(), transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, transaction.FlagDuplicate, f.get(t, later).Flag)
	assert.Equal(t, "", f.get(t, different).Flag, "description match is exact")
}

func TestDetectRecurring_SkipsReviewedAndDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jan := f.seed("2024-01-05", "Gym", "45.00")
	feb := f.seed("2024-02-05", "Gym", "45.00", withFlag("reviewed", false))
	dup := f.seed("2024-03-05", "Gym", "45.00", withFlag(transaction.FlagDuplicate, true))
	single := f.seed("2024-01-05", "Dentist", "120.00")

	n, err := f.detector.DetectRecurring(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, transaction.FlagRecurring, f.get(t, jan).Flag)
	assert.Equal(t, "reviewed", f.get(t, feb).Flag)
	assert.Equal(t, transaction.FlagDuplicate, f.get(t, dup).Flag)
	assert.Equal(t, "", f.get(t, single).Flag)
}

func TestDetectAll_UploadBatchScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uploadID := uuid.Must(uuid.NewV4())

	before := f.seed("2024-01-15", "Spotify", "9.99")
	inBatch := f.seed("2024-01-15", "Spotify", "9.99", withUpload(uploadID, 1))
	otherBatch := f.seed("2024-01-15", "Spotify", "9.99", withUpload(uploadID, 2))

	result, err := f.detector.DetectAll(ctx, transaction.ForUploadBatch(uploadID, 1))
	require.NoError(t, err)
	assert.Equal(t, AnomalyResult{}, result, "a single row in the batch has no peers inside the scope")

	result, err = f.detector.DetectAll(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Duplicates)
	assert.Equal(t, "", f.get(t, before).Flag)
	assert.Equal(t, transaction.FlagDuplicate, f.get(t, inBatch).Flag)
	assert.Equal(t, transaction.FlagDuplicate, f.get(t, otherBatch).Flag)
}

func TestDetectAll_EmptyScope(t *testing.T) {
	f := newFixture(t)
	f.seed("2024-01-15", "Spotify", "9.99")
	f.seed("2024-01-15", "Spotify", "9.99")

	result, err := f.detector.DetectAll(context.Background(), transaction.ForIDs())
	require.NoError(t, err)
	assert.Equal(t, AnomalyResult{}, result)
}

func TestDetectAll_StorageError(t *testing.T) {
	f := newFixture(t)
	f.mem.FailOn("RecurringGroups", assert.AnError)

	_, err := f.detector.DetectAll(context.Background(), transaction.AllTransactions())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDetectForTransaction(t *testing.T) {
	t.Run("duplicate flags only the new row", func(t *testing.T) {
		f := newFixture(t)
		existing := f.seed("2024-05-01", "Lunch", "12.00")
		id := f.seed("2024-05-01", "Lunch", "12.00")
		tx := f.get(t, id)

		label, err := f.detector.DetectForTransaction(context.Background(), &tx)
		require.NoError(t, err)
		assert.Equal(t, transaction.FlagDuplicate, label)
		assert.Equal(t, transaction.FlagDuplicate, tx.Flag)
		assert.Equal(t, transaction.FlagDuplicate, f.get(t, id).Flag)
		assert.Equal(t, "", f.get(t, existing).Flag)
	})

	t.Run("recurring flags the whole cohort", func(t *testing.T) {
		f := newFixture(t)
		jan := f.seed("2024-01-01", "Internet", "60.00")
		reviewed := f.seed("2024-02-01", "Internet", "60.00", withFlag(transaction.FlagReviewed, true))
		id := f.seed("2024-03-01", "Internet", "60.00")
		tx := f.get(t, id)

		label, err := f.detector.DetectForTransaction(context.Background(), &tx)
		require.NoError(t, err)
		assert.Equal(t, transaction.FlagRecurring, label)
		assert.Equal(t, transaction.FlagRecurring, tx.Flag)
		assert.Equal(t, transaction.FlagRecurring, f.get(t, jan).Flag)
		assert.Equal(t, transaction.FlagRecurring, f.get(t, id).Flag)
		assert.Equal(t, transaction.FlagReviewed, f.get(t, reviewed).Flag)
	})

	t.Run("reviewed row is skipped", func(t *testing.T) {
		f := newFixture(t)
		f.seed("2024-05-01", "Lunch", "12.00")
		id := f.seed("2024-05-01", "Lunch", "12.00", withFlag("Reviewed", true))
		tx := f.get(t, id)

		label, err := f.detector.DetectForTransaction(context.Background(), &tx)
		require.NoError(t, err)
		assert.Empty(t, label)
		assert.Equal(t, "Reviewed", f.get(t, id).Flag)
	})

	t.Run("no anomaly", func(t *testing.T) {
		f := newFixture(t)
		f.seed("2024-05-01", "Lunch", "12.00")
		id := f.seed("2024-05-02", "Lunch", "12.50")
		tx := f.get(t, id)

		label, err := f.detector.DetectForTransaction(context.Background(), &tx)
		require.NoError(t, err)
		assert.Empty(t, label)
		assert.Equal(t, "", tx.Flag)
	})
}
