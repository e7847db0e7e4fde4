package sessioncache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Manager hands out one Store per unit of work.
type Manager struct {
	db  *bun.DB
	cfg settings
}

// NewManager returns a Manager backed by db.
func NewManager(db *bun.DB, opts ...Option) *Manager {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{db: db, cfg: cfg}
}

// NewStore returns a fresh store in StateCreated. Callers own its lifecycle
// and must Close it; Scope does this for them.
func (m *Manager) NewStore() *Store {
	return newStore(m.db, m.cfg, uuid.NewString())
}

// Logger returns the configured logger.
func (m *Manager) Logger() *zap.Logger { return m.cfg.logger }

// Scope runs fn with a new store. A nil return commits. An error rolls back
// and is returned once the rollback finished, joined with the rollback error
// if there was one. A panic rolls back and panics again. The store is closed
// on every path and fails with catalog.ErrScopeClosed afterwards.
func (m *Manager) Scope(ctx context.Context, fn func(ctx context.Context, s *Store) error) (err error) {
	s := m.NewStore()
	log := s.logger
	started := time.Now()
	outcome := OutcomeRolledBack

	defer func() {
		if r := recover(); r != nil {
			rbErr := s.Rollback(context.WithoutCancel(ctx))
			_ = s.Close()
			log.Error("scope panicked, rolled back",
				zap.Any("panic", r),
				zap.NamedError("rollback_error", rbErr),
			)
			m.cfg.observer.ScopeClosed(OutcomePanicked, time.Since(started))
			panic(r)
		}
		if closeErr := s.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		m.cfg.observer.ScopeClosed(outcome, time.Since(started))
		log.Debug("scope closed",
			zap.String("outcome", string(outcome)),
			zap.Duration("elapsed", time.Since(started)),
		)
	}()

	if fnErr := fn(ctx, s); fnErr != nil {
		if rbErr := s.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			log.Error("rollback failed", zap.Error(rbErr), zap.NamedError("cause", fnErr))
			return errors.Join(fnErr, rbErr)
		}
		log.Info("scope rolled back", zap.Error(fnErr))
		return fnErr
	}

	if commitErr := s.Commit(ctx); commitErr != nil {
		log.Error("commit failed", zap.Error(commitErr))
		if rbErr := s.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(commitErr, rbErr)
		}
		return commitErr
	}
	outcome = OutcomeCommitted
	return nil
}
