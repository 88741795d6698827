package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/operator"
	"github.com/carson-networks/ledger-rules/internal/staging"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

// UploadService stages CSV uploads and hands them to the background runner.
type UploadService struct {
	storage  *storage.Storage
	runner   TaskSubmitter
	importer UploadImporter
	stager   *staging.Stager
	logger   logrus.FieldLogger
}

func NewUploadService(store *storage.Storage, runner TaskSubmitter, importer UploadImporter, stager *staging.Stager, logger logrus.FieldLogger) *UploadService {
	return &UploadService{
		storage:  store,
		runner:   runner,
		importer: importer,
		stager:   stager,
		logger:   logger,
	}
}

// StartUpload stages body, records a pending upload and queues its import.
// The returned record reflects the state at submission.
func (s *UploadService) StartUpload(ctx context.Context, filename string, body io.Reader) (*upload.Upload, error) {
	path, err := s.stager.StageReader(body)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, cleanFilename(filename), path)
}

// StartUploadFromURI stages a gs:// object and queues its import.
func (s *UploadService) StartUploadFromURI(ctx context.Context, uri string) (*upload.Upload, error) {
	path, filename, err := s.stager.StageURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, filename, path)
}

func (s *UploadService) start(ctx context.Context, filename, path string) (*upload.Upload, error) {
	u, err := s.storage.Uploads.Create(ctx, filename)
	if err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "create upload")
	}

	task := *u
	err = s.runner.Submit(operator.Task{
		Name: "import:" + u.ID.String(),
		Run: func(ctx context.Context) error {
			return s.importer.Import(ctx, &task, path)
		},
	})
	if err != nil {
		os.Remove(path)
		u.Status = upload.StatusFailed
		u.ErrorMessage = err.Error()
		if saveErr := s.storage.Uploads.Save(ctx, u); saveErr != nil {
			s.logger.WithError(saveErr).WithField("uploadID", u.ID.String()).Error("UploadService.StartUpload.SaveFailure")
		}
		return nil, errors.Wrap(err, "queue import")
	}
	return u, nil
}

func (s *UploadService) GetUpload(ctx context.Context, id uuid.UUID) (*upload.Upload, error) {
	return s.storage.Uploads.FindByID(ctx, id)
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "upload.csv"
	}
	return name
}
