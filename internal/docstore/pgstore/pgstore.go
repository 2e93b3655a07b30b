// Package pgstore keeps documents as JSONB rows in a single PostgreSQL table.
// Patches are applied under SELECT ... FOR UPDATE so that transforms and
// conditional updates are atomic per document.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/database"
	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/hub"
)

const table = "documents"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	db     *database.DB
	hub    *hub.Hub
	log    logrus.FieldLogger
	now    func() time.Time
	cancel context.CancelFunc
}

var _ docstore.Gateway = (*Store)(nil)

func New(db *database.DB, log logrus.FieldLogger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:     db,
		hub:    hub.NewHub(),
		log:    log.WithField("store", "postgres"),
		now:    func() time.Time { return time.Now().UTC() },
		cancel: cancel,
	}
	go s.hub.Run(ctx)
	return s
}

func (s *Store) Close() {
	s.cancel()
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Snapshot, error) {
	query, args, err := psql.Select("data").
		From(table).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var raw []byte
	if err := s.db.Pool.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return &docstore.Snapshot{ID: id, Data: doc}, nil
}

func (s *Store) Create(ctx context.Context, collection string, data docstore.Doc) (string, error) {
	id := docstore.NewID()
	resolved, err := docstore.Resolve(data, s.now())
	if err != nil {
		return "", err
	}
	raw, err := encode(resolved)
	if err != nil {
		return "", err
	}

	query, args, err := psql.Insert(table).
		Columns("collection", "id", "data").
		Values(collection, id, raw).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := s.db.Pool.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to create %s document: %w", collection, err)
	}

	s.hub.Publish(collection, id)
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data docstore.Doc) error {
	resolved, err := docstore.Resolve(data, s.now())
	if err != nil {
		return err
	}
	raw, err := encode(resolved)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert(table).
		Columns("collection", "id", "data").
		Values(collection, id, raw).
		Suffix("ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}

	s.hub.Publish(collection, id)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch docstore.Doc) error {
	applied, err := s.update(ctx, collection, id, nil, patch)
	if err != nil {
		return err
	}
	if !applied {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateWhere(ctx context.Context, collection, id string, where []docstore.Predicate, patch docstore.Doc) (bool, error) {
	return s.update(ctx, collection, id, where, patch)
}

func (s *Store) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	return s.Update(ctx, collection, id, docstore.Doc{field: docstore.Increment(delta)})
}

func (s *Store) update(ctx context.Context, collection, id string, where []docstore.Predicate, patch docstore.Doc) (bool, error) {
	selectQuery, selectArgs, err := psql.Select("data").
		From(table).
		Where(sq.Eq{"collection": collection, "id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return false, err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	if err := tx.QueryRow(ctx, selectQuery, selectArgs...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock %s/%s: %w", collection, id, err)
	}
	current, err := decode(raw)
	if err != nil {
		return false, err
	}
	if !docstore.Match(current, where) {
		return false, nil
	}

	next, err := docstore.ApplyPatch(current, patch, s.now())
	if err != nil {
		return false, err
	}
	encoded, err := encode(next)
	if err != nil {
		return false, err
	}

	updateQuery, updateArgs, err := psql.Update(table).
		Set("data", encoded).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, updateQuery, updateArgs...); err != nil {
		return false, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.hub.Publish(collection, id)
	return true, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	query, args, err := psql.Delete(table).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return err
	}
	result, err := s.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if result.RowsAffected() > 0 {
		s.hub.Publish(collection, id)
	}
	return nil
}

// Query narrows the scan with JSONB containment where a predicate allows it,
// then evaluates the full query in process so that results match every other
// gateway exactly.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	builder := psql.Select("id", "data").
		From(table).
		Where(sq.Eq{"collection": q.Collection})
	for _, p := range q.Filters {
		if cond, ok := containment(p); ok {
			builder = builder.Where(cond)
		}
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var snaps []docstore.Snapshot
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, docstore.Snapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", q.Collection, err)
	}

	return docstore.Apply(snaps, q), nil
}

// containment turns equality and array-contains predicates on plain values
// into a `data @> {...}` condition. Strings that parse as timestamps are left
// to the in-process filter because they may match a differently formatted
// stored value.
func containment(p docstore.Predicate) (sq.Sqlizer, bool) {
	if p.Op != docstore.OpEqual && p.Op != docstore.OpArrayContains {
		return nil, false
	}
	switch v := p.Value.(type) {
	case string:
		if _, isTime := docstore.ParseTime(v); isTime {
			return nil, false
		}
	case bool, int, int64:
	default:
		return nil, false
	}

	var leaf any = p.Value
	if p.Op == docstore.OpArrayContains {
		leaf = []any{p.Value}
	}
	parts := strings.Split(p.Field, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		leaf = map[string]any{parts[i]: leaf}
	}
	raw, err := encode(leaf.(map[string]any))
	if err != nil {
		return nil, false
	}
	return sq.Expr("data @> ?::jsonb", raw), true
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn docstore.QueryCallback) (docstore.Unsubscribe, error) {
	return docstore.SubscribeQuery(ctx, s.hub, s.Query, q, fn)
}

func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, fn docstore.DocCallback) (docstore.Unsubscribe, error) {
	return docstore.SubscribeDocument(ctx, s.hub, s.Get, collection, id, fn)
}

// Listen relays change notifications written by other processes into the
// local hub until ctx ends. Connection failures are retried.
func (s *Store) Listen(ctx context.Context, pool *pgxpool.Pool) {
	for ctx.Err() == nil {
		if err := s.listenOnce(ctx, pool); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("change listener interrupted, reconnecting")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *Store) listenOnce(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+database.NotifyChannel); err != nil {
		return err
	}
	s.log.WithField("channel", database.NotifyChannel).Info("listening for document changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		collection, id, ok := strings.Cut(n.Payload, "/")
		if !ok {
			continue
		}
		s.hub.Publish(collection, id)
	}
}
