// Package staging copies upload sources into the local upload directory so
// the importer can stream them from disk.
package staging

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

var ErrUnsupportedSource = errors.New("unsupported upload source")

// ObjectOpener reads objects from a bucket store.
type ObjectOpener interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// GCSOpener opens Cloud Storage objects with Application Default
// Credentials.
type GCSOpener struct{}

func (GCSOpener) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create storage client")
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "open gs://%s/%s", bucket, object)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

type Stager struct {
	dir     string
	objects ObjectOpener
}

func NewStager(dir string, objects ObjectOpener) *Stager {
	return &Stager{dir: dir, objects: objects}
}

// StageReader copies r into a new file in the upload directory and returns
// its path.
func (s *Stager) StageReader(r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", errors.Wrap(err, "create upload dir")
	}
	f, err := os.CreateTemp(s.dir, "upload-*.csv")
	if err != nil {
		return "", errors.Wrap(err, "create staged file")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrap(err, "copy upload")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "close staged file")
	}
	return f.Name(), nil
}

// StageURI fetches a gs://bucket/object source into the upload directory.
// It returns the staged path and the object's base name.
func (s *Stager) StageURI(ctx context.Context, uri string) (string, string, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return "", "", err
	}
	if s.objects == nil {
		return "", "", errors.Wrap(ErrUnsupportedSource, "no object store configured")
	}

	r, err := s.objects.Open(ctx, bucket, object)
	if err != nil {
		return "", "", err
	}
	defer r.Close()

	staged, err := s.StageReader(r)
	if err != nil {
		return "", "", err
	}
	return staged, path.Base(object), nil
}

// ParseGCSURI splits gs://bucket/object.
func ParseGCSURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", errors.Wrapf(ErrUnsupportedSource, "%q", uri)
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", errors.Wrapf(ErrUnsupportedSource, "%q must name a bucket and an object", uri)
	}
	return bucket, object, nil
}
