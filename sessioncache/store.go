package sessioncache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/internal/dbinfra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// State is the lifecycle position of a Store.
type State uint8

const (
	StateCreated State = iota
	StateOpen
	StateCommitted
	StateRolledBack
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats reports identity cache usage of one store.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Store is a transactional entity store with an identity cache keyed by
// kind and normalized name. Statements run immediately inside a transaction
// that begins on first use; Commit and Rollback end it and clear the cache.
// A Store must be used by one goroutine at a time.
type Store struct {
	db     *bun.DB
	cfg    settings
	logger *zap.Logger
	id     string

	tx    bun.Tx
	inTx  bool
	state State
	ids   *identityMap
	seq   int
}

func newStore(db *bun.DB, cfg settings, id string) *Store {
	return &Store{
		db:     db,
		cfg:    cfg,
		logger: cfg.logger.With(zap.String("scope", id)),
		id:     id,
		ids:    newIdentityMap(),
	}
}

// ID identifies the store in logs.
func (s *Store) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Store) State() State { return s.state }

// Stats returns the identity cache counters.
func (s *Store) Stats() Stats {
	return Stats{Hits: s.ids.hits, Misses: s.ids.misses, Entries: s.ids.len()}
}

// Get returns the entity of kind named name. A missing entity is reported
// with ok == false and a nil error.
func (s *Store) Get(ctx context.Context, kind catalog.Kind, name string) (catalog.Entity, bool, error) {
	if err := s.check(kind); err != nil {
		return nil, false, err
	}
	key, err := s.normalize(kind, name)
	if err != nil {
		return nil, false, err
	}
	return s.get(ctx, kind, key)
}

func (s *Store) get(ctx context.Context, kind catalog.Kind, name string) (catalog.Entity, bool, error) {
	ent, hit := s.ids.lookup(identityKey{kind: kind, name: name})
	s.cfg.observer.IdentityLookup(kind, hit)
	if hit {
		if ent.deleted {
			return nil, false, nil
		}
		return ent.entity, true, nil
	}

	e, err := s.selectOne(ctx, kind, "?TableAlias.name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &catalog.PersistenceError{Op: "get", Kind: kind, Err: err}
	}
	return s.adopt(e), true, nil
}

// GetByKey returns the entity of kind with primary key id, or an error
// matching catalog.ErrNotFound.
func (s *Store) GetByKey(ctx context.Context, kind catalog.Kind, id int64) (catalog.Entity, error) {
	if err := s.check(kind); err != nil {
		return nil, err
	}
	if ent, ok := s.ids.byKey(kind, id); ok {
		s.ids.hits++
		s.cfg.observer.IdentityLookup(kind, true)
		if ent.deleted {
			return nil, notFound(kind, id)
		}
		return ent.entity, nil
	}
	s.ids.misses++
	s.cfg.observer.IdentityLookup(kind, false)

	e, err := s.selectOne(ctx, kind, "?TableAlias.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(kind, id)
	}
	if err != nil {
		return nil, &catalog.PersistenceError{Op: "get", Kind: kind, Err: err}
	}
	return s.adopt(e), nil
}

func (s *Store) selectOne(ctx context.Context, kind catalog.Kind, where string, arg any) (catalog.Entity, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	e := kind.New()
	q := tx.NewSelect().Model(e).Where(where, arg).Limit(1)
	for _, rel := range catalog.RelationsOf(kind) {
		q = q.Relation(rel.Field)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// adopt caches a freshly loaded entity. Related entities already in the
// cache replace the copies loaded by the join so every name maps to one
// instance.
func (s *Store) adopt(e catalog.Entity) catalog.Entity {
	if ent, ok := s.ids.peek(keyOf(e)); ok && !ent.deleted && ent.entity.Key() == e.Key() {
		return ent.entity
	}
	for _, rel := range catalog.RelationsOf(e.Kind()) {
		target := rel.Get(e)
		if target == nil {
			continue
		}
		if target.Key() == 0 {
			rel.Set(e, nil)
			continue
		}
		if ent, ok := s.ids.peek(keyOf(target)); ok && !ent.deleted && ent.entity.Key() == target.Key() {
			rel.Set(e, ent.entity)
			continue
		}
		s.ids.put(target)
	}
	s.ids.put(e)
	return e
}

// Add inserts e inside a savepoint of the open transaction and caches it.
// The name is normalized again first. Unsaved related entities are added
// before e. An entity that already has a key is only cached.
func (s *Store) Add(ctx context.Context, e catalog.Entity, opts ...AddOption) error {
	if e == nil {
		return errors.New("sessioncache: add of nil entity")
	}
	if err := s.check(e.Kind()); err != nil {
		return err
	}
	o := addOptions{warn: true}
	for _, opt := range opts {
		opt(&o)
	}
	return s.add(ctx, e, o.warn)
}

func (s *Store) add(ctx context.Context, e catalog.Entity, warn bool) error {
	if e.Key() != 0 {
		s.ids.put(e)
		return nil
	}
	raw := e.DisplayName()
	if err := e.Rename(s.cfg.normalizer, raw); err != nil {
		return &catalog.InvalidNameError{Kind: e.Kind(), Raw: raw, Err: err}
	}

	for _, rel := range catalog.RelationsOf(e.Kind()) {
		target := rel.Get(e)
		if target == nil {
			continue
		}
		if target.Key() == 0 {
			if err := s.add(ctx, target, warn); err != nil {
				return err
			}
		}
		rel.Set(e, target)
	}

	key := keyOf(e)
	if ent, ok := s.ids.peek(key); ok && warn && !ent.deleted && ent.entity != e {
		s.logger.Warn("identity cache already holds this name, insert will conflict",
			zap.Stringer("kind", e.Kind()),
			zap.String("name", key.name),
			zap.Int64("cached_key", ent.entity.Key()),
		)
	}

	catalog.Stamp(e, s.cfg.clock())
	err := s.savepoint(ctx, func(tx bun.Tx) error {
		_, err := tx.NewInsert().Model(e).Exec(ctx)
		return err
	})
	if err != nil {
		return s.writeError("insert", e, err)
	}

	s.ids.put(e)
	s.cfg.observer.EntityWritten(e.Kind(), OpInsert)
	s.logger.Debug("entity inserted",
		zap.Stringer("kind", e.Kind()),
		zap.String("name", key.name),
		zap.Int64("key", e.Key()),
	)
	return nil
}

// Create returns the entity of kind named name, creating it when missing.
// An existing entity is returned unchanged whatever attrs holds. Relation
// attributes given as strings are created or fetched the same way.
func (s *Store) Create(ctx context.Context, kind catalog.Kind, name string, attrs catalog.Attrs) (catalog.Entity, error) {
	if err := s.check(kind); err != nil {
		return nil, err
	}
	if err := catalog.CheckAttrs(kind, attrs, false); err != nil {
		return nil, err
	}
	return s.create(ctx, kind, name, attrs)
}

func (s *Store) create(ctx context.Context, kind catalog.Kind, name string, attrs catalog.Attrs) (catalog.Entity, error) {
	key, err := s.normalize(kind, name)
	if err != nil {
		return nil, err
	}
	existing, ok, err := s.get(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return existing, nil
	}

	e, err := catalog.New(kind, s.cfg.normalizer, key, s.cfg.clock())
	if err != nil {
		return nil, err
	}
	if err := applyScalars(e, attrs); err != nil {
		return nil, err
	}
	if err := s.resolveRelations(ctx, e, attrs, false); err != nil {
		return nil, err
	}
	if err := s.add(ctx, e, true); err != nil {
		return nil, err
	}
	return e, nil
}

// Update applies attrs to a saved entity and writes it. The name attribute
// renames it. A nil relation value clears the link. On error the instance
// may be partly modified and the scope should be rolled back.
func (s *Store) Update(ctx context.Context, e catalog.Entity, attrs catalog.Attrs) error {
	if e == nil {
		return errors.New("sessioncache: update of nil entity")
	}
	if err := s.check(e.Kind()); err != nil {
		return err
	}
	if e.Key() == 0 {
		return fmt.Errorf("%w: %s has not been added", catalog.ErrNotFound, e.Kind())
	}
	if err := catalog.CheckAttrs(e.Kind(), attrs, true); err != nil {
		return err
	}

	oldKey := keyOf(e)
	if raw, ok := attrs[catalog.AttrName]; ok {
		name, isString := raw.(string)
		if !isString {
			return &catalog.AttributeValueError{Kind: e.Kind(), Attr: catalog.AttrName, Value: raw}
		}
		if err := e.Rename(s.cfg.normalizer, name); err != nil {
			return &catalog.InvalidNameError{Kind: e.Kind(), Raw: name, Err: err}
		}
	}
	if err := applyScalars(e, attrs); err != nil {
		return err
	}
	if err := s.resolveRelations(ctx, e, attrs, true); err != nil {
		return err
	}

	err := s.savepoint(ctx, func(tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(e).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return s.writeError("update", e, err)
	}

	s.ids.forget(oldKey, e)
	s.ids.put(e)
	s.cfg.observer.EntityWritten(e.Kind(), OpUpdate)
	return nil
}

func applyScalars(e catalog.Entity, attrs catalog.Attrs) error {
	for _, sc := range catalog.ScalarsOf(e.Kind()) {
		v, ok := attrs[sc.Tag]
		if !ok {
			continue
		}
		if err := sc.Apply(e, v); err != nil {
			return err
		}
	}
	return nil
}

// resolveRelations links e to the entities named by relation attributes, in
// registry order. With clearNil a nil value unlinks; otherwise it is skipped.
func (s *Store) resolveRelations(ctx context.Context, e catalog.Entity, attrs catalog.Attrs, clearNil bool) error {
	for _, rel := range catalog.RelationsOf(e.Kind()) {
		v, ok := attrs[rel.Tag]
		if !ok {
			continue
		}
		if v == nil {
			if clearNil {
				rel.Set(e, nil)
			}
			continue
		}
		target, err := s.resolve(ctx, rel, v)
		if err != nil {
			return err
		}
		rel.Set(e, target)
	}
	return nil
}

func (s *Store) resolve(ctx context.Context, rel catalog.Relation, v any) (catalog.Entity, error) {
	switch v := v.(type) {
	case string:
		return s.create(ctx, rel.Target, v, nil)
	case catalog.Entity:
		if v.Kind() != rel.Target {
			return nil, &catalog.RelationTypeError{Attr: rel.Tag, Want: rel.Target, Got: v.Kind()}
		}
		if v.Key() == 0 {
			if err := s.add(ctx, v, true); err != nil {
				return nil, err
			}
		}
		return v, nil
	default:
		return nil, &catalog.AttributeValueError{Kind: rel.Owner, Attr: rel.Tag, Value: v}
	}
}

// Delete deletes e in the open transaction. Later name lookups in this
// transaction report it missing and cached entities referencing it are
// unlinked, matching the ON DELETE SET NULL foreign keys.
func (s *Store) Delete(ctx context.Context, e catalog.Entity) error {
	if e == nil {
		return errors.New("sessioncache: delete of nil entity")
	}
	if err := s.check(e.Kind()); err != nil {
		return err
	}
	if e.Key() == 0 {
		return fmt.Errorf("%w: %s has not been added", catalog.ErrNotFound, e.Kind())
	}
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	res, err := tx.NewDelete().Model(e).WherePK().Exec(ctx)
	if err != nil {
		return &catalog.PersistenceError{Op: "delete", Kind: e.Kind(), Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(e.Kind(), e.Key())
	}

	s.ids.tombstone(e)
	s.ids.detach(e)
	s.cfg.observer.EntityWritten(e.Kind(), OpDelete)
	return nil
}

// Index maps the key of every row of kind visible to the transaction to its
// name. It always reads the database.
func (s *Store) Index(ctx context.Context, kind catalog.Kind) (catalog.Index, error) {
	if err := s.check(kind); err != nil {
		return nil, err
	}
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.NewSelect().
		Table(kind.Table()).
		Column("id", "name").
		OrderExpr("id ASC").
		Rows(ctx)
	if err != nil {
		return nil, &catalog.PersistenceError{Op: "index", Kind: kind, Err: err}
	}
	defer rows.Close()

	idx := catalog.Index{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, &catalog.PersistenceError{Op: "index", Kind: kind, Err: err}
		}
		idx[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, &catalog.PersistenceError{Op: "index", Kind: kind, Err: err}
	}
	return idx, nil
}

// Commit commits the open transaction and clears the identity cache. The
// store stays usable and begins a new transaction on next use.
func (s *Store) Commit(ctx context.Context) error {
	if s.state == StateClosed {
		return catalog.ErrScopeClosed
	}
	defer s.ids.clear()
	if !s.inTx {
		s.state = StateCommitted
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &catalog.PersistenceError{Op: "commit", Err: errors.Join(err, s.endTx())}
	}

	err := s.tx.Commit()
	s.inTx = false
	if err != nil {
		s.state = StateRolledBack
		return &catalog.PersistenceError{Op: "commit", Err: err}
	}
	s.state = StateCommitted
	return nil
}

// Rollback discards the open transaction and clears the identity cache.
func (s *Store) Rollback(_ context.Context) error {
	if s.state == StateClosed {
		return catalog.ErrScopeClosed
	}
	s.ids.clear()
	err := s.endTx()
	s.state = StateRolledBack
	if err != nil {
		return &catalog.PersistenceError{Op: "rollback", Err: err}
	}
	return nil
}

// Close rolls back any open transaction and makes the store unusable.
// Closing twice is a no-op.
func (s *Store) Close() error {
	if s.state == StateClosed {
		return nil
	}
	err := s.endTx()
	s.ids.clear()
	s.state = StateClosed
	if err != nil {
		return &catalog.PersistenceError{Op: "close", Err: err}
	}
	return nil
}

// endTx rolls back the open transaction, if any.
func (s *Store) endTx() error {
	if !s.inTx {
		return nil
	}
	s.inTx = false
	s.state = StateRolledBack
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (s *Store) begin(ctx context.Context) (bun.Tx, error) {
	if s.inTx {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, s.cfg.txOptions)
	if err != nil {
		return bun.Tx{}, &catalog.PersistenceError{Op: "begin", Err: err}
	}
	s.tx, s.inTx = tx, true
	s.state = StateOpen
	return tx, nil
}

// savepoint runs fn so that a failing statement leaves the enclosing
// transaction usable.
func (s *Store) savepoint(ctx context.Context, fn func(tx bun.Tx) error) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	s.seq++
	name := fmt.Sprintf("sp_%d", s.seq)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if _, rbErr := tx.ExecContext(context.WithoutCancel(ctx), "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	_, err = tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

func (s *Store) writeError(op string, e catalog.Entity, err error) error {
	var pe *catalog.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	if dbinfra.IsUniqueViolation(err) {
		return &catalog.DuplicateNameError{Kind: e.Kind(), Name: e.DisplayName(), Err: err}
	}
	return &catalog.PersistenceError{Op: op, Kind: e.Kind(), Err: err}
}

func (s *Store) check(kind catalog.Kind) error {
	if s.state == StateClosed {
		return catalog.ErrScopeClosed
	}
	if !kind.Valid() {
		return fmt.Errorf("sessioncache: unknown kind %d", kind)
	}
	return nil
}

func (s *Store) normalize(kind catalog.Kind, raw string) (string, error) {
	name, err := s.cfg.normalizer.Normalize(raw)
	if err != nil {
		return "", &catalog.InvalidNameError{Kind: kind, Raw: raw, Err: err}
	}
	return name, nil
}

func notFound(kind catalog.Kind, id int64) error {
	return fmt.Errorf("%w: %s %d", catalog.ErrNotFound, kind, id)
}
