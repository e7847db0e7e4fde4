package sessioncache

import (
	"database/sql"
	"time"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/naming"
	"go.uber.org/zap"
)

// WriteOp names the statement an entity write executed.
type WriteOp string

const (
	OpInsert WriteOp = "insert"
	OpUpdate WriteOp = "update"
	OpDelete WriteOp = "delete"
)

// Outcome is how a scope ended.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomePanicked   Outcome = "panicked"
)

// Observer receives store and scope events. Implementations must be safe for
// concurrent use since several scopes may run at once.
type Observer interface {
	IdentityLookup(kind catalog.Kind, hit bool)
	EntityWritten(kind catalog.Kind, op WriteOp)
	ScopeClosed(outcome Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) IdentityLookup(catalog.Kind, bool)   {}
func (nopObserver) EntityWritten(catalog.Kind, WriteOp) {}
func (nopObserver) ScopeClosed(Outcome, time.Duration)  {}

// NopObserver discards every event.
var NopObserver Observer = nopObserver{}

type settings struct {
	logger     *zap.Logger
	observer   Observer
	normalizer naming.Normalizer
	clock      func() time.Time
	txOptions  *sql.TxOptions
}

func defaultSettings() settings {
	return settings{
		logger:     zap.NewNop(),
		observer:   NopObserver,
		normalizer: naming.Default,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// Option configures a Manager and the stores it creates.
type Option func(*settings)

// WithLogger sets the logger. Stores log under a "scope" field.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an Observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithNormalizer replaces naming.Default.
func WithNormalizer(n naming.Normalizer) Option {
	return func(s *settings) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithClock sets the source of date_added timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithTxOptions sets the options every transaction begins with.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(s *settings) {
		s.txOptions = opts
	}
}

// AddOption tunes a single Add call.
type AddOption func(*addOptions)

type addOptions struct {
	warn bool
}

// Quiet suppresses the warning logged when Add is given a name the identity
// cache already holds for another instance.
func Quiet() AddOption {
	return func(o *addOptions) {
		o.warn = false
	}
}
