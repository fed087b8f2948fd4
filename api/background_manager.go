package api

import (
	"context"
	"errors"
	"time"

	"props-bible/core/store"
	"props-bible/core/utils"
)

type BackgroundWorker interface {
	StartWithContext(context.Context)
	StopWithContext(context.Context) error
}

type BackgroundController interface {
	Start(context.Context)
	Stop(context.Context) error
}

type backgroundManager struct {
	sessions store.SessionStore
	logger   *utils.Logger
	workers  []BackgroundWorker
	now      func() time.Time
}

func newBackgroundManager(sessions store.SessionStore, logger *utils.Logger, workers ...BackgroundWorker) *backgroundManager {
	out := make([]BackgroundWorker, 0, len(workers))
	for _, w := range workers {
		if w == nil {
			continue
		}
		out = append(out, w)
	}
	return &backgroundManager{
		sessions: sessions,
		logger:   logger,
		workers:  out,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func BuildBackgroundController(sessions store.SessionStore, logger *utils.Logger, workers ...BackgroundWorker) BackgroundController {
	return newBackgroundManager(sessions, logger, workers...)
}

// Start drops sessions that expired while the process was down, then starts the workers.
func (m *backgroundManager) Start(ctx context.Context) {
	if m == nil {
		return
	}
	if m.sessions != nil {
		n, err := m.sessions.PurgeExpired(ctx, m.now())
		if err != nil && m.logger != nil {
			m.logger.Errorf("purge expired sessions on startup: %v", err)
		} else if n > 0 && m.logger != nil {
			m.logger.Printf("purged %d expired sessions", n)
		}
	}
	for _, w := range m.workers {
		w.StartWithContext(ctx)
	}
}

func (m *backgroundManager) Stop(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, w := range m.workers {
		if err := w.StopWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
