// Package journal persists world events to postgres off the tick loop.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	domainworld "barnyard/internal/domain/world"
)

const (
	writeTimeout = 5 * time.Second
	maxRecent    = 500
)

// DB is the subset of *pgxpool.Pool the journal needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Entry struct {
	ID           uuid.UUID             `json:"id"`
	Frame        uint64                `json:"frame"`
	Tick         int                   `json:"tick"`
	Kind         domainworld.EventKind `json:"kind"`
	CreatureID   *uuid.UUID            `json:"creature_id,omitempty"`
	CreatureKind string                `json:"creature_kind,omitempty"`
	X            int                   `json:"x"`
	Y            int                   `json:"y"`
	RecordedAt   time.Time             `json:"recorded_at"`
}

// Journal queues events in a bounded buffer and writes them from a single
// worker. When the buffer is full new events are dropped.
type Journal struct {
	logger   zerolog.Logger
	db       DB
	cache    *redis.Client
	cacheTTL time.Duration

	mu      sync.RWMutex
	closed  bool
	events  chan domainworld.Event
	done    chan struct{}
	dropped atomic.Int64
}

func New(logger zerolog.Logger, db DB, cache *redis.Client, cacheTTL time.Duration, buffer int) *Journal {
	if buffer <= 0 {
		buffer = 1024
	}
	j := &Journal{
		logger:   logger,
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		events:   make(chan domainworld.Event, buffer),
		done:     make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *Journal) Record(evt domainworld.Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.events <- evt:
	default:
		if n := j.dropped.Add(1); n == 1 || n%100 == 0 {
			j.logger.Warn().Int64("dropped", n).Msg("journal buffer full, dropping events")
		}
	}
}

func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Close stops accepting events and waits for the queue to drain.
func (j *Journal) Close(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.events)
	}
	j.mu.Unlock()

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain journal: %w", ctx.Err())
	}
}

func (j *Journal) run() {
	defer close(j.done)
	for evt := range j.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := j.insert(ctx, evt); err != nil {
			j.logger.Warn().Err(err).Str("event", string(evt.Kind)).Msg("journal write failed")
		}
		cancel()
	}
}

func (j *Journal) insert(ctx context.Context, evt domainworld.Event) error {
	var kind *string
	if evt.CreatureKind != "" {
		k := string(evt.CreatureKind)
		kind = &k
	}
	_, err := j.db.Exec(ctx, `
INSERT INTO world_events (id, frame, tick, kind, creature_id, creature_kind, x, y)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, uuid.New(), int64(evt.Frame), evt.Tick, string(evt.Kind),
		uuid.NullUUID{UUID: evt.CreatureID, Valid: evt.CreatureID != uuid.Nil}, kind, evt.Pos.X, evt.Pos.Y)
	if err != nil {
		return fmt.Errorf("insert world event: %w", err)
	}
	return nil
}

// Recent returns the newest entries first. Results are cached briefly in
// redis when a cache is configured.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	key := "world_events:recent:" + strconv.Itoa(limit)
	if j.cache != nil {
		cached, err := j.cache.Get(ctx, key).Result()
		if err == nil {
			var entries []Entry
			if uErr := json.Unmarshal([]byte(cached), &entries); uErr == nil {
				return entries, nil
			}
		}
	}

	rows, err := j.db.Query(ctx, `
SELECT id, frame, tick, kind, creature_id, creature_kind, x, y, recorded_at
FROM world_events ORDER BY recorded_at DESC, frame DESC LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query world events: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e     Entry
			frame int64
			kind  string
			cid   uuid.NullUUID
			ckind *string
		)
		if err := rows.Scan(&e.ID, &frame, &e.Tick, &kind, &cid, &ckind, &e.X, &e.Y, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan world event: %w", err)
		}
		e.Frame = uint64(frame)
		e.Kind = domainworld.EventKind(kind)
		if cid.Valid {
			id := cid.UUID
			e.CreatureID = &id
		}
		if ckind != nil {
			e.CreatureKind = *ckind
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate world events: %w", err)
	}
	if j.cache != nil && j.cacheTTL > 0 {
		if b, err := json.Marshal(entries); err == nil {
			_ = j.cache.Set(ctx, key, b, j.cacheTTL).Err()
		}
	}
	return entries, nil
}
