package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/carson-networks/ledger-rules/internal/operator"
	"github.com/carson-networks/ledger-rules/internal/operator/actions"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/storagetest"
)

// inlineProcessor performs actions synchronously in their own writer.
type inlineProcessor struct {
	store *storage.Storage
	calls int
}

func (p *inlineProcessor) Process(ctx context.Context, action actions.IAction) error {
	p.calls++
	writer, err := p.store.Write(ctx)
	if err != nil {
		return err
	}
	if err := action.Perform(ctx, writer); err != nil {
		_ = writer.Rollback(ctx)
		return err
	}
	return writer.Commit(ctx)
}

// recordingRunner keeps submitted tasks until the test runs them.
type recordingRunner struct {
	tasks []operator.Task
	err   error
}

func (r *recordingRunner) Submit(task operator.Task) error {
	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, task)
	return nil
}

func newMemoryService(t *testing.T) (*Service, *storagetest.Memory, *inlineProcessor) {
	t.Helper()
	mem := storagetest.New()
	store := mem.Storage()
	logger, _ := test.NewNullLogger()
	processor := &inlineProcessor{store: store}
	svc := NewService(Dependencies{
		Storage:   store,
		Processor: processor,
		Runner:    &recordingRunner{},
		Logger:    logger,
	})
	return svc, mem, processor
}
