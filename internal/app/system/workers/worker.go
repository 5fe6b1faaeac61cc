// internal/app/system/workers/worker.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/jobs"
	"go.uber.org/zap"
)

// Worker runs one job on a ticker until stopped.
type Worker struct {
	job    jobs.Job
	log    *zap.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a worker for job.
func New(job jobs.Job, logger *zap.Logger) *Worker {
	return &Worker{
		job:    job,
		log:    logger.With(zap.String("job", job.Name)),
		stopCh: make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("worker started", zap.Duration("interval", w.job.Interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe
// to call more than once.
func (w *Worker) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("worker stopped")
	})
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce runs the job a single time with its timeout.
func (w *Worker) RunOnce() {
	timeout := w.job.Timeout
	if timeout <= 0 {
		timeout = w.job.Interval
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if err := w.job.Run(ctx); err != nil {
		w.log.Error("job failed", zap.Duration("took", time.Since(start)), zap.Error(err))
	}
}

// Group starts and stops several workers together.
type Group struct {
	workers []*Worker
}

// NewGroup builds one worker per job.
func NewGroup(logger *zap.Logger, js ...jobs.Job) *Group {
	g := &Group{}
	for _, j := range js {
		g.workers = append(g.workers, New(j, logger))
	}
	return g
}

// Start starts every worker.
func (g *Group) Start() {
	for _, w := range g.workers {
		w.Start()
	}
}

// Stop stops every worker.
func (g *Group) Stop() {
	for _, w := range g.workers {
		w.Stop()
	}
}
