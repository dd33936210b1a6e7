package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/majeanson/anthropicJoffre-sub005/gameModel"
)

// game serializes writers and broadcasts on broadcastMu. stateMu only
// guards state, so readers never wait on a slow subscriber.
type game struct {
	broadcastMu sync.Mutex
	subscribers map[*subscriber]struct{}

	stateMu sync.RWMutex
	state   gameModel.GameState
}

func (g *game) current() gameModel.GameState {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.state
}

type subscriber struct {
	conn   *websocket.Conn
	gameID string
}

// GameServer holds the authoritative copy of each game and relays every
// change to its subscribers, as a delta when one can express it.
type GameServer struct {
	games        map[string]*game
	mutex        sync.RWMutex // guards games only
	logger       *zap.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

func NewGameServer(logger *zap.Logger, writeTimeout time.Duration) *GameServer {
	return &GameServer{
		games:        make(map[string]*game),
		logger:       logger,
		writeTimeout: writeTimeout,
		now:          time.Now,
	}
}

func (gs *GameServer) createGame(initial *gameModel.GameState) (gameModel.GameState, error) {
	id := uuid.NewString()
	state := gameModel.NewLobby(id)
	if initial != nil {
		state = *initial
		if state.ID == "" {
			state.ID = id
		}
	}
	if err := state.Validate(); err != nil {
		return gameModel.GameState{}, err
	}

	gs.mutex.Lock()
	defer gs.mutex.Unlock()
	if _, exists := gs.games[state.ID]; exists {
		return gameModel.GameState{}, fmt.Errorf("game %s already exists", state.ID)
	}
	gs.games[state.ID] = &game{state: state, subscribers: make(map[*subscriber]struct{})}
	gs.logger.Info("created game", zap.String("game_id", state.ID), zap.String("phase", string(state.Phase)))
	return state, nil
}

func (gs *GameServer) lookup(gameID string) (*game, bool) {
	gs.mutex.RLock()
	defer gs.mutex.RUnlock()
	g, exists := gs.games[gameID]
	return g, exists
}

func (gs *GameServer) getGame(gameID string) (gameModel.GameState, bool) {
	g, exists := gs.lookup(gameID)
	if !exists {
		return gameModel.GameState{}, false
	}
	return g.current(), true
}

// updateGame stores next and broadcasts it under event. A delta event falls
// back to a full game_updated snapshot when Diff cannot express the change.
// Updates to one game are serialized across the broadcast so subscribers see
// them in order; reads of the game are not blocked by it.
func (gs *GameServer) updateGame(gameID string, next gameModel.GameState, event gameModel.Event) (gameModel.Event, error) {
	next.ID = gameID
	if err := next.Validate(); err != nil {
		return "", err
	}

	g, exists := gs.lookup(gameID)
	if !exists {
		return "", errGameNotFound
	}
	g.broadcastMu.Lock()
	defer g.broadcastMu.Unlock()

	var env gameModel.Envelope
	var err error
	if event == gameModel.EventGameUpdatedDelta {
		if delta, ok := gameModel.Diff(g.state, next, gs.now().UnixMilli()); ok {
			env, err = gameModel.NewEnvelope(event, delta)
		} else {
			event = gameModel.EventGameUpdated
		}
	}
	if event != gameModel.EventGameUpdatedDelta {
		env, err = gameModel.NewEnvelope(event, next)
	}
	if err != nil {
		return "", err
	}

	g.stateMu.Lock()
	g.state = next
	g.stateMu.Unlock()
	for sub := range g.subscribers {
		if err := gs.send(sub, env); err != nil {
			gs.logger.Warn("dropping subscriber", zap.String("game_id", gameID), zap.Error(err))
			delete(g.subscribers, sub)
			sub.conn.Close()
		}
	}
	gs.logger.Debug("broadcast update",
		zap.String("game_id", gameID),
		zap.String("event", string(event)),
		zap.Int("subscribers", len(g.subscribers)))
	return event, nil
}

// subscribe registers sub and sends it the current snapshot first.
func (gs *GameServer) subscribe(sub *subscriber) error {
	g, exists := gs.lookup(sub.gameID)
	if !exists {
		return errGameNotFound
	}
	g.broadcastMu.Lock()
	defer g.broadcastMu.Unlock()
	env, err := gameModel.NewEnvelope(gameModel.EventPlayerJoined, g.state)
	if err != nil {
		return err
	}
	if err := gs.send(sub, env); err != nil {
		return err
	}
	g.subscribers[sub] = struct{}{}
	return nil
}

func (gs *GameServer) unsubscribe(sub *subscriber) {
	if g, exists := gs.lookup(sub.gameID); exists {
		g.broadcastMu.Lock()
		delete(g.subscribers, sub)
		g.broadcastMu.Unlock()
	}
}

// resync answers a sync request with a full game_updated snapshot.
func (gs *GameServer) resync(sub *subscriber) error {
	g, exists := gs.lookup(sub.gameID)
	if !exists {
		return errGameNotFound
	}
	g.broadcastMu.Lock()
	defer g.broadcastMu.Unlock()
	env, err := gameModel.NewEnvelope(gameModel.EventGameUpdated, g.state)
	if err != nil {
		return err
	}
	return gs.send(sub, env)
}

func (gs *GameServer) send(sub *subscriber, env gameModel.Envelope) error {
	sub.conn.SetWriteDeadline(gs.now().Add(gs.writeTimeout))
	if err := sub.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write %s to subscriber of %s: %w", env.Event, sub.gameID, err)
	}
	return nil
}
