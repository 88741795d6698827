package operator

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrRunnerStopped = errors.New("runner stopped")

// Task is a unit of background work, such as one CSV import.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes tasks outside the request lifecycle on a fixed pool of
// workers. Failures are logged; the task itself records its outcome.
type Runner struct {
	logger     logrus.FieldLogger
	queue      chan Task
	numWorkers int
	wg         sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewRunner(numWorkers int, logger logrus.FieldLogger) *Runner {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Runner{
		logger:     logger,
		queue:      make(chan Task, 100),
		numWorkers: numWorkers,
	}
}

func (r *Runner) Start() {
	for i := 0; i < r.numWorkers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for task := range r.queue {
				r.run(task)
			}
		}()
	}
}

func (r *Runner) run(task Task) {
	log := r.logger.WithField("task", task.Name)
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("Runner.Task.Panic")
		}
	}()

	log.Debug("Runner.Task.Start")
	if err := task.Run(context.Background()); err != nil {
		log.WithError(err).Error("Runner.Task.Failed")
		return
	}
	log.Debug("Runner.Task.Complete")
}

// Submit queues task. It blocks while the queue is full and fails once the
// runner is stopped.
func (r *Runner) Submit(task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrRunnerStopped
	}
	r.queue <- task
	return nil
}

// Stop rejects new tasks, lets queued ones finish and waits for the workers.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}
