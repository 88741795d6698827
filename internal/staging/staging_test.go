package staging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects map[string]string
	opened  []string
}

func (f *fakeObjects) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	key := bucket + "/" + object
	f.opened = append(f.opened, key)
	content, ok := f.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := ParseGCSURI("gs://statements/2024/january.csv")
	require.NoError(t, err)
	assert.Equal(t, "statements", bucket)
	assert.Equal(t, "2024/january.csv", object)

	for _, uri := range []string{"s3://bucket/key", "gs://bucket", "gs:///key", "gs://bucket/dir/", "/tmp/file.csv"} {
		_, _, err := ParseGCSURI(uri)
		assert.ErrorIs(t, err, ErrUnsupportedSource, uri)
	}
}

func TestStageReader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	stager := NewStager(dir, nil)

	path, err := stager.StageReader(strings.NewReader("date,description,amount\n"))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,description,amount\n", string(content))
}

func TestStageURI(t *testing.T) {
	objects := &fakeObjects{objects: map[string]string{"statements/2024/january.csv": "a,b\n"}}
	stager := NewStager(t.TempDir(), objects)

	path, filename, err := stager.StageURI(context.Background(), "gs://statements/2024/january.csv")
	require.NoError(t, err)
	assert.Equal(t, "january.csv", filename)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(content))

	_, _, err = stager.StageURI(context.Background(), "gs://statements/missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = NewStager(t.TempDir(), nil).StageURI(context.Background(), "gs://statements/2024/january.csv")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}
