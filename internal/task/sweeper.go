package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/redact"
	"github.com/google/uuid"
)

// staleTaskMessage is recorded on tasks the sweeper gives up on.
const staleTaskMessage = "timed out waiting for image runner"

// StaleTaskStore is the persistence surface the sweeper needs.
// Satisfied by store.AsyncTaskStore.
type StaleTaskStore interface {
	ListPendingOlderThan(ctx context.Context, age time.Duration) ([]*domain.AsyncTask, error)
	MarkTerminal(
		ctx context.Context,
		taskID uuid.UUID,
		status domain.TaskStatus,
		taskErr *domain.TaskError,
	) (bool, error)
}

// Sweeper periodically marks long-pending tasks as errored. A task stays
// pending forever if the runner accepts the call but never reports back;
// the sweeper is the only path that resolves those. Disabled by default
// and enabled through configuration.
type Sweeper struct {
	tasks    StaleTaskStore
	age      time.Duration
	interval time.Duration
	logger   *slog.Logger

	cancelFunc context.CancelFunc
	done       chan struct{}
}

// NewSweeper creates a Sweeper that errors pending tasks older than age,
// checking every interval.
func NewSweeper(tasks StaleTaskStore, age, interval time.Duration, logger *slog.Logger) *Sweeper {
	if tasks == nil {
		panic("sweeper requires a task store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if age <= 0 {
		age = 30 * time.Minute
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Sweeper{
		tasks:    tasks,
		age:      age,
		interval: interval,
		logger:   logger.With(slog.String("component", "stale_task_sweeper")),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("stale task sweeper started",
			slog.Duration("age", s.age),
			slog.Duration("interval", s.interval))

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	if s.cancelFunc == nil {
		return
	}
	s.cancelFunc()
	<-s.done
}

// Sweep runs one pass: every pending task older than the configured age
// is transitioned to error. Tasks that complete between the listing and
// the update are skipped by the guarded transition.
func (s *Sweeper) Sweep(ctx context.Context) {
	stale, err := s.tasks.ListPendingOlderThan(ctx, s.age)
	if err != nil {
		s.logger.Error("failed to list stale tasks",
			slog.String("error", redact.Error(err)))
		return
	}
	if len(stale) == 0 {
		return
	}

	s.logger.Warn("sweeping stale pending tasks", slog.Int("count", len(stale)))

	taskErr := domain.NewServerTaskError(staleTaskMessage)
	for _, t := range stale {
		transitioned, err := s.tasks.MarkTerminal(ctx, t.ID, domain.TaskStatusError, taskErr)
		if err != nil {
			s.logger.Error("failed to sweep stale task",
				slog.String("task_id", t.ID.String()),
				slog.String("error", redact.Error(err)))
			continue
		}
		if transitioned {
			s.logger.Info("stale task marked as errored",
				slog.String("task_id", t.ID.String()))
		}
	}
}
