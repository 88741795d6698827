package service

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/ledger-rules/internal/config"
	"github.com/carson-networks/ledger-rules/internal/importer"
	"github.com/carson-networks/ledger-rules/internal/operator"
	"github.com/carson-networks/ledger-rules/internal/staging"
	"github.com/carson-networks/ledger-rules/internal/storage/storagetest"
	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

func newUploadService(t *testing.T, runner *recordingRunner) (*UploadService, *storagetest.Memory, string) {
	t.Helper()
	mem := storagetest.New()
	store := mem.Storage()
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()
	imp := importer.NewImporter(store, &config.Config{ImportBatchSize: 100, ImportMaxErrors: 10}, logger)
	return NewUploadService(store, runner, imp, staging.NewStager(dir, nil), logger), mem, dir
}

func TestStartUpload_QueuesImport(t *testing.T) {
	runner := &recordingRunner{}
	svc, mem, dir := newUploadService(t, runner)
	ctx := context.Background()

	u, err := svc.StartUpload(ctx, "../../bank/statement.csv", strings.NewReader("date,description,amount\n2025-01-02,Lunch,12.00\n2025-01-03,,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "statement.csv", u.Filename)
	assert.Equal(t, upload.StatusPending, u.Status)
	require.Len(t, runner.tasks, 1)

	staged, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, staged, 1)

	require.NoError(t, runner.tasks[0].Run(ctx))

	done, err := svc.GetUpload(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, upload.StatusCompleted, done.Status)
	assert.Equal(t, 2, done.TotalRows)
	assert.Equal(t, 1, done.SuccessfulRows)
	assert.Equal(t, 1, done.FailedRows)
	assert.Len(t, mem.Transactions(), 1)

	staged, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestStartUpload_RunnerStopped(t *testing.T) {
	runner := &recordingRunner{err: operator.ErrRunnerStopped}
	svc, _, dir := newUploadService(t, runner)

	_, err := svc.StartUpload(context.Background(), "statement.csv", strings.NewReader("date,description,amount\n"))
	assert.ErrorIs(t, err, operator.ErrRunnerStopped)

	staged, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, staged, "staged file is removed when the import cannot be queued")
}

func TestStartUploadFromURI_RequiresObjectStore(t *testing.T) {
	svc, _, _ := newUploadService(t, &recordingRunner{})

	_, err := svc.StartUploadFromURI(context.Background(), "gs://bucket/file.csv")
	assert.ErrorIs(t, err, staging.ErrUnsupportedSource)
	_, err = svc.StartUploadFromURI(context.Background(), "https://example.com/file.csv")
	assert.ErrorIs(t, err, staging.ErrUnsupportedSource)
}

func TestGetUpload_NotFound(t *testing.T) {
	svc, _, _ := newUploadService(t, &recordingRunner{})

	_, err := svc.GetUpload(context.Background(), uuid.Must(uuid.NewV4()))
	assert.Error(t, err)
}
