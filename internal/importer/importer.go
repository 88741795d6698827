package importer

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/classify"
	"github.com/carson-networks/ledger-rules/internal/config"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

var (
	// ErrMalformedCSV means the file could not be split into records. No row
	// of such a file is imported.
	ErrMalformedCSV = errors.New("malformed csv")

	// ErrUploadFinished is returned when asked to import into an upload that
	// already completed or failed.
	ErrUploadFinished = errors.New("upload already finished")
)

const (
	DefaultBatchSize = 5000
	DefaultMaxErrors = 100
)

// Importer streams CSV files into the ledger, classifying and checking each
// inserted batch before moving on.
type Importer struct {
	store     *storage.Storage
	logger    logrus.FieldLogger
	batchSize int
	maxErrors int
}

func NewImporter(store *storage.Storage, env *config.Config, logger logrus.FieldLogger) *Importer {
	batchSize, maxErrors := DefaultBatchSize, DefaultMaxErrors
	if env != nil {
		batchSize, maxErrors = env.ImportBatchSize, env.ImportMaxErrors
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if maxErrors < 0 {
		maxErrors = DefaultMaxErrors
	}
	return &Importer{
		store:     store,
		logger:    logger,
		batchSize: batchSize,
		maxErrors: maxErrors,
	}
}

// run holds the working state of one import.
type run struct {
	upload    *upload.Upload
	header    []string
	batch     []*transaction.TransactionCreate
	batchSeq  int
	processed int
	failed    int
	errors    []upload.RowError
}

// Import processes the file at path into u, moving it from pending through
// processing to completed or failed. The file is removed in every case. A
// failed import, including one that panics, is recorded on u and also
// returned.
func (i *Importer) Import(ctx context.Context, u *upload.Upload, path string) (err error) {
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			i.logger.WithError(rmErr).WithField("path", path).Warn("Importer.Import.RemoveFile")
		}
	}()

	if u.Status.Terminal() {
		return errors.Wrapf(ErrUploadFinished, "upload %s is %s", u.ID, u.Status)
	}

	logData := logging.NewLogData(i.logger)
	logData.AddData("uploadID", u.ID.String())
	logData.AddData("filename", u.Filename)
	endTimer := logData.AddTiming("duration")

	r := &run{upload: u, errors: u.ErrorDetails}
	defer func() {
		endTimer()
		logData.AddData("processed", u.ProcessedRows)
		logData.AddData("successful", u.SuccessfulRows)
		logData.AddData("failed", u.FailedRows)
		logData.AddData("batches", r.batchSeq)
		if err != nil {
			logData.Log().WithError(err).Error("Importer.Import.Failed")
			return
		}
		logData.Log().Info("Importer.Import.Complete")
	}()

	defer func() {
		if p := recover(); p != nil {
			err = i.fail(ctx, r, errors.Errorf("import panicked: %v", p))
		}
	}()

	u.Status = upload.StatusProcessing
	if err := i.store.Uploads.Save(ctx, u); err != nil {
		return i.fail(ctx, r, errors.Wrap(err, "mark processing"))
	}

	endCount := logData.AddTiming("countDuration")
	total, err := countRows(path)
	endCount()
	if err != nil {
		return i.fail(ctx, r, err)
	}

	u.TotalRows = total
	if err := i.store.Uploads.Save(ctx, u); err != nil {
		return i.fail(ctx, r, errors.Wrap(err, "record total rows"))
	}

	if err := i.stream(ctx, r, path, logData); err != nil {
		return i.fail(ctx, r, err)
	}

	u.Status = upload.StatusCompleted
	u.ProcessedRows = r.processed
	u.FailedRows = r.failed
	u.ErrorDetails = r.errors
	if err := i.store.Uploads.Save(ctx, u); err != nil {
		return i.fail(ctx, r, errors.Wrap(err, "mark completed"))
	}
	return nil
}

func (i *Importer) fail(ctx context.Context, r *run, cause error) error {
	u := r.upload
	u.Status = upload.StatusFailed
	u.ErrorMessage = sanitize(cause.Error())
	u.ProcessedRows = r.processed
	u.FailedRows = r.failed
	u.ErrorDetails = r.errors
	if err := i.store.Uploads.Save(ctx, u); err != nil {
		i.logger.WithError(err).WithField("uploadID", u.ID.String()).Error("Importer.Import.SaveFailure")
	}
	return cause
}

func newReader(f io.Reader) *csv.Reader {
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return reader
}

// countRows reads the whole file once without interpreting it, returning the
// number of data rows. Framing errors surface here before anything is
// written.
func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open csv")
	}
	defer f.Close()

	reader := newReader(f)
	rows := -1
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, errors.Wrapf(ErrMalformedCSV, "%v", err)
		}
		rows++
	}
	return max(rows, 0), nil
}

func (i *Importer) stream(ctx context.Context, r *run, path string, logData *logging.LogData) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open csv")
	}
	defer f.Close()

	reader := newReader(f)
	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.Wrapf(ErrMalformedCSV, "%v", err)
	}
	r.header = make([]string, len(header))
	for idx, name := range header {
		r.header[idx] = NormalizeHeader(name)
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(ErrMalformedCSV, "%v", err)
		}

		r.processed++
		i.processRow(r, newRecord(r.header, fields))

		if len(r.batch) >= i.batchSize {
			if err := i.flush(ctx, r, logData); err != nil {
				return err
			}
		}
	}

	if len(r.batch) > 0 {
		return i.flush(ctx, r, logData)
	}
	return nil
}

func (i *Importer) processRow(r *run, rec record) {
	create, messages := rec.validate()
	if len(messages) > 0 {
		r.failed++
		if len(r.errors) < i.maxErrors {
			r.errors = append(r.errors, upload.RowError{
				Row:    r.processed + 1,
				Errors: messages,
				Data:   rec.sanitized(),
			})
		}
		return
	}

	uploadID := r.upload.ID
	batchSeq := r.batchSeq + 1
	create.UploadID = &uploadID
	create.UploadBatch = &batchSeq
	r.batch = append(r.batch, create)
}

// flush writes the pending batch, classifies it, flags anomalies within it
// and records progress, all in one store transaction.
func (i *Importer) flush(ctx context.Context, r *run, logData *logging.LogData) (err error) {
	defer logData.AddToExistingTiming("flushDuration")()

	seq := r.batchSeq + 1
	scope := transaction.ForUploadBatch(r.upload.ID, seq).CreatedSince(r.upload.CreatedAt)

	writer, err := i.store.Write(ctx)
	if err != nil {
		return errors.Wrap(err, "open writer")
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := writer.Rollback(ctx); rbErr != nil {
				i.logger.WithError(rbErr).Warn("Importer.Flush.Rollback")
			}
		}
	}()

	inserted, err := writer.Transactions.InsertBatch(ctx, r.batch)
	if err != nil {
		return errors.Wrapf(err, "insert batch %d", seq)
	}

	applied, err := classify.NewRuleApplicator(writer.Tables, i.logger).ApplyAll(ctx, scope)
	if err != nil {
		return errors.Wrapf(err, "apply rules to batch %d", seq)
	}
	anomalies, err := classify.NewAnomalyDetector(writer.Tables, i.logger).DetectAll(ctx, scope)
	if err != nil {
		return errors.Wrapf(err, "detect anomalies in batch %d", seq)
	}

	next := *r.upload
	next.ProcessedRows = r.processed
	next.SuccessfulRows = r.upload.SuccessfulRows + int(inserted)
	next.FailedRows = r.failed
	next.ErrorDetails = r.errors
	if err = writer.Uploads.Save(ctx, &next); err != nil {
		return errors.Wrap(err, "save progress")
	}
	if err = writer.Commit(ctx); err != nil {
		return errors.Wrapf(err, "commit batch %d", seq)
	}
	committed = true

	*r.upload = next
	r.batchSeq = seq
	r.batch = r.batch[:0]

	i.logger.WithFields(logrus.Fields{
		"uploadID":   r.upload.ID.String(),
		"batch":      seq,
		"inserted":   inserted,
		"applied":    applied,
		"duplicates": anomalies.Duplicates,
		"recurring":  anomalies.Recurring,
	}).Debug("Importer.Flush.Complete")
	return nil
}
