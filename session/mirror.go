// Package session owns the client's mirror of a single game. It enforces
// the calling discipline the reconciler relies on: full snapshots replace
// the mirror, deltas are folded into the latest mirror only, and deltas
// without a base are dropped and turned into a resync request.
//
// The mirror does not detect reordered or lost deltas. The transport must
// deliver events for a game in the order the server produced them.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brunoga/deep"
	"go.uber.org/zap"

	"github.com/majeanson/anthropicJoffre-sub005/gameModel"
	"github.com/majeanson/anthropicJoffre-sub005/logging"
)

var (
	// ErrNoSnapshot is returned for a delta that arrives before any full snapshot.
	ErrNoSnapshot = errors.New("no snapshot to apply delta to")
	// ErrGameMismatch is returned for a delta addressed to another game.
	ErrGameMismatch = errors.New("delta addressed to a different game")
)

type Stats struct {
	Snapshots      uint64
	Deltas         uint64
	IgnoredDeltas  uint64
	SkippedUpdates uint64
}

// Mirror holds the current GameState for one client session.
type Mirror struct {
	mu       sync.RWMutex
	state    *gameModel.GameState
	logger   *zap.Logger
	resync   *resyncPolicy
	stats    Stats
	onChange func(gameModel.GameState)
}

type Option func(*Mirror)

// WithOnChange registers fn to receive a deep copy of every new mirror.
// fn runs on the goroutine that applied the event, after the lock is released.
func WithOnChange(fn func(gameModel.GameState)) Option {
	return func(m *Mirror) { m.onChange = fn }
}

func New(logger *zap.Logger, opts ...Option) *Mirror {
	m := &Mirror{logger: logging.OrNop(logger), resync: newResyncPolicy()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ApplyFullSnapshot replaces the mirror outright.
func (m *Mirror) ApplyFullSnapshot(s gameModel.GameState) {
	if err := s.Validate(); err != nil {
		m.logger.Warn("suspicious snapshot", zap.Error(err))
	}
	owned := deep.MustCopy(s)
	m.mu.Lock()
	m.state = &owned
	m.stats.Snapshots++
	m.resync.reset()
	m.mu.Unlock()

	m.notify(owned)
}

// ApplyDelta folds d into the current mirror. A delta with no mirror to
// apply to, or for another game, is ignored and schedules a resync.
func (m *Mirror) ApplyDelta(d gameModel.Delta) error {
	m.mu.Lock()
	if m.state == nil {
		m.stats.IgnoredDeltas++
		// Without a game id there is nothing to ask the server for.
		if d.ID != "" {
			m.resync.noteIgnored(d.ID, "no snapshot")
		}
		m.mu.Unlock()
		m.logger.Debug("ignoring delta without snapshot", zap.String("game_id", d.ID))
		return fmt.Errorf("apply delta for game %s: %w", d.ID, ErrNoSnapshot)
	}
	if d.ID != m.state.ID {
		current := m.state.ID
		m.stats.IgnoredDeltas++
		m.resync.noteIgnored(current, "game mismatch")
		m.mu.Unlock()
		m.logger.Warn("ignoring delta for another game",
			zap.String("game_id", current), zap.String("delta_game_id", d.ID))
		return fmt.Errorf("apply delta for game %s to mirror of %s: %w", d.ID, current, ErrGameMismatch)
	}

	next, report := gameModel.Reconcile(*m.state, d)
	m.state = &next
	m.stats.Deltas++
	m.stats.SkippedUpdates += uint64(len(report.SkippedPlayerIndices))
	m.mu.Unlock()

	if len(report.SkippedPlayerIndices) > 0 {
		m.logger.Warn("skipped player updates with invalid index",
			zap.String("game_id", d.ID),
			zap.Ints("indices", report.SkippedPlayerIndices),
			zap.Int("players", len(next.Players)))
	}
	m.logger.Debug("applied delta",
		zap.String("game_id", d.ID),
		zap.Int64("timestamp", d.Timestamp),
		zap.Strings("fields", report.Fields))

	m.notify(next)
	return nil
}

// Apply dispatches a wire envelope to ApplyFullSnapshot or ApplyDelta.
// Events that carry neither are ignored.
func (m *Mirror) Apply(env gameModel.Envelope) error {
	switch {
	case env.Event.IsFullSnapshot():
		s, err := env.DecodeSnapshot()
		if err != nil {
			return err
		}
		m.ApplyFullSnapshot(s)
		return nil
	case env.Event == gameModel.EventGameUpdatedDelta:
		d, err := env.DecodeDelta()
		if err != nil {
			return err
		}
		return m.ApplyDelta(d)
	}
	m.logger.Debug("ignoring event", zap.String("event", string(env.Event)))
	return nil
}

// Snapshot returns a deep copy of the mirror, or false when none is held.
func (m *Mirror) Snapshot() (gameModel.GameState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return gameModel.GameState{}, false
	}
	return deep.MustCopy(*m.state), true
}

// GameID returns the id of the mirrored game, or "" when none is held.
func (m *Mirror) GameID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return ""
	}
	return m.state.ID
}

// Discard drops the mirror, e.g. when the player leaves the game.
func (m *Mirror) Discard() {
	m.mu.Lock()
	m.state = nil
	m.resync.reset()
	m.mu.Unlock()
}

// ConsumeResync returns a pending resync request once.
func (m *Mirror) ConsumeResync() (ResyncSignal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resync.consume()
}

func (m *Mirror) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Mirror) notify(s gameModel.GameState) {
	if m.onChange == nil {
		return
	}
	m.onChange(deep.MustCopy(s))
}
