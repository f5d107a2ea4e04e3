// Package workspace owns the per-user bid pipeline and job tracker stores and
// persists their snapshots through object storage.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/pipeline"
	"github.com/mcsmartbytes/job-sense/internal/storage"
	"github.com/mcsmartbytes/job-sense/internal/tracker"
	"go.uber.org/zap"
)

const snapshotContentType = "application/json"

// PipelineKey is the storage key of a user's pipeline snapshot
func PipelineKey(userID uuid.UUID) string {
	return "pipeline/" + userID.String() + ".json"
}

// TrackerKey is the storage key of a user's tracker snapshot
func TrackerKey(userID uuid.UUID) string {
	return "tracker/" + userID.String() + ".json"
}

// Workspace is one user's loaded stores
type Workspace struct {
	UserID   uuid.UUID
	Pipeline *pipeline.Store
	Tracker  *tracker.Store

	// mu serializes mutate-then-persist so snapshots are written in order
	mu         sync.Mutex
	dirty      bool
	lastAccess time.Time
}

// Manager lazily loads workspaces and writes them back after mutations
type Manager struct {
	storage storage.Storage
	logger  *zap.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu         sync.Mutex
	workspaces map[uuid.UUID]*Workspace
}

type Option func(*Manager)

// WithClock replaces time.Now for the manager and the stores it creates
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager; idleTTL <= 0 disables eviction
func NewManager(store storage.Storage, idleTTL time.Duration, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		storage:    store,
		logger:     logger,
		idleTTL:    idleTTL,
		now:        time.Now,
		workspaces: make(map[uuid.UUID]*Workspace),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// View runs fn against the user's workspace without persisting
func (m *Manager) View(ctx context.Context, userID uuid.UUID, fn func(ws *Workspace) error) error {
	ws, err := m.get(ctx, userID)
	if err != nil {
		return err
	}
	return fn(ws)
}

// Mutate runs fn against the user's workspace and persists both snapshots when fn succeeds.
// A failed write leaves the workspace dirty for the next Flush and is not reported to the caller.
func (m *Manager) Mutate(ctx context.Context, userID uuid.UUID, fn func(ws *Workspace) error) error {
	ws, err := m.get(ctx, userID)
	if err != nil {
		return err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := fn(ws); err != nil {
		return err
	}

	ws.dirty = true
	if err := m.persist(ctx, ws); err != nil {
		m.logger.Warn("Failed to persist workspace, will retry on flush",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil
	}
	ws.dirty = false
	return nil
}

// Flush writes every dirty workspace and returns how many were written
func (m *Manager) Flush(ctx context.Context) (int, error) {
	var errs []error
	flushed := 0
	for _, ws := range m.loaded() {
		ws.mu.Lock()
		if ws.dirty {
			if err := m.persist(ctx, ws); err != nil {
				errs = append(errs, fmt.Errorf("user %s: %w", ws.UserID, err))
			} else {
				ws.dirty = false
				flushed++
			}
		}
		ws.mu.Unlock()
	}
	return flushed, errors.Join(errs...)
}

// EvictIdle drops clean workspaces not accessed within the idle TTL
func (m *Manager) EvictIdle() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, ws := range m.workspaces {
		if !ws.mu.TryLock() {
			continue
		}
		if !ws.dirty && ws.lastAccess.Before(cutoff) {
			delete(m.workspaces, id)
			evicted++
		}
		ws.mu.Unlock()
	}
	return evicted
}

// FlushAndEvict is the maintenance pass run by the scheduler
func (m *Manager) FlushAndEvict(ctx context.Context) error {
	flushed, err := m.Flush(ctx)
	evicted := m.EvictIdle()
	m.logger.Info("Workspace maintenance completed",
		zap.Int("flushed", flushed),
		zap.Int("evicted", evicted),
		zap.Int("loaded", m.Loaded()),
	)
	return err
}

// Loaded returns the number of workspaces held in memory
func (m *Manager) Loaded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

func (m *Manager) loaded() []*Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		out = append(out, ws)
	}
	return out
}

func (m *Manager) get(ctx context.Context, userID uuid.UUID) (*Workspace, error) {
	if userID == uuid.Nil {
		return nil, errors.New("workspace requires a user id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.workspaces[userID]; ok {
		ws.lastAccess = m.now()
		return ws, nil
	}

	ws, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	ws.lastAccess = m.now()
	m.workspaces[userID] = ws
	return ws, nil
}

func (m *Manager) load(ctx context.Context, userID uuid.UUID) (*Workspace, error) {
	ws := &Workspace{
		UserID:   userID,
		Pipeline: pipeline.NewStore(pipeline.WithClock(m.now)),
		Tracker:  tracker.NewStore(tracker.WithClock(m.now)),
	}

	var pipeSnap pipeline.Snapshot
	found, err := m.read(ctx, PipelineKey(userID), &pipeSnap)
	if err != nil {
		return nil, err
	}
	if found {
		ws.Pipeline.Restore(pipeSnap)
	}

	var trackSnap tracker.Snapshot
	found, err = m.read(ctx, TrackerKey(userID), &trackSnap)
	if err != nil {
		return nil, err
	}
	if found {
		ws.Tracker.Restore(trackSnap)
	}

	m.logger.Debug("Workspace loaded",
		zap.String("user_id", userID.String()),
		zap.Int("bids", len(pipeSnap.Bids)),
		zap.Int("jobs", len(trackSnap.Jobs)),
	)
	return ws, nil
}

func (m *Manager) read(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := m.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) persist(ctx context.Context, ws *Workspace) error {
	if err := m.write(ctx, PipelineKey(ws.UserID), ws.Pipeline.Snapshot()); err != nil {
		return err
	}
	return m.write(ctx, TrackerKey(ws.UserID), ws.Tracker.Snapshot())
}

func (m *Manager) write(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}
	if err := m.storage.Put(ctx, key, snapshotContentType, data); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	return nil
}
