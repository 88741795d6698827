package storagetest

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

var _ upload.IUploadTable = (*UploadTable)(nil)

// UploadTable mirrors upload.Table over Memory.
type UploadTable struct {
	m *Memory
}

func (t *UploadTable) Create(ctx context.Context, filename string) (*upload.Upload, error) {
	if err := t.m.fail("CreateUpload"); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	now := t.m.now()
	u := &upload.Upload{
		ID:        id,
		Filename:  filename,
		Status:    upload.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.m.state.uploads[id] = u
	return copyUpload(u), nil
}

func (t *UploadTable) FindByID(ctx context.Context, id uuid.UUID) (*upload.Upload, error) {
	if err := t.m.fail("FindUpload"); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	u, ok := t.m.state.uploads[id]
	if !ok {
		return nil, notFound("upload", id)
	}
	return copyUpload(u), nil
}

func (t *UploadTable) Save(ctx context.Context, u *upload.Upload) error {
	if err := t.m.fail("SaveUpload"); err != nil {
		return err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	existing, ok := t.m.state.uploads[u.ID]
	if !ok {
		return notFound("upload", u.ID)
	}
	saved := copyUpload(u)
	saved.CreatedAt = existing.CreatedAt
	saved.UpdatedAt = t.m.now()
	t.m.state.uploads[u.ID] = saved
	t.m.statuses[u.ID] = append(t.m.statuses[u.ID], saved.Status)
	return nil
}
