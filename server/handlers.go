package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/majeanson/anthropicJoffre-sub005/gameModel"
)

var errGameNotFound = errors.New("game not found")

func setCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (gs *GameServer) handleNewGame(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var initial *gameModel.GameState
	var body gameModel.GameState
	switch err := json.NewDecoder(r.Body).Decode(&body); {
	case err == nil:
		initial = &body
	case errors.Is(err, io.EOF):
	default:
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state, err := gs.createGame(initial)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(gameModel.NewGameResponse{Success: false, Message: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(gameModel.NewGameResponse{
		Success:   true,
		Message:   "New game created successfully",
		GameState: state,
	})
}

func (gs *GameServer) handleGetGame(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "GET")
	state, exists := gs.getGame(mux.Vars(r)["gameID"])
	if !exists {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(state)
}

// handlePushState installs the next full state of a game and relays it.
// ?event= picks the broadcast event; the default sends a delta.
func (gs *GameServer) handlePushState(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "PUT, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	event := gameModel.Event(r.URL.Query().Get("event"))
	if event == "" {
		event = gameModel.EventGameUpdatedDelta
	}
	if event != gameModel.EventGameUpdatedDelta && !event.IsFullSnapshot() {
		http.Error(w, "Unknown event", http.StatusBadRequest)
		return
	}

	var next gameModel.GameState
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	gameID := mux.Vars(r)["gameID"]
	sent, err := gs.updateGame(gameID, next, event)
	switch {
	case errors.Is(err, errGameNotFound):
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	case err != nil:
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(gameModel.PushStateResponse{Success: false, Message: err.Error()})
		return
	}

	state, _ := gs.getGame(gameID)
	json.NewEncoder(w).Encode(gameModel.PushStateResponse{
		Success:   true,
		Message:   "State broadcast",
		Event:     sent,
		Delta:     sent == gameModel.EventGameUpdatedDelta,
		GameState: &state,
	})
}

func (gs *GameServer) handleSubscribe(upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := mux.Vars(r)["gameID"]
		if _, exists := gs.getGame(gameID); !exists {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			gs.logger.Warn("websocket upgrade failed", zap.String("game_id", gameID), zap.Error(err))
			return
		}
		defer conn.Close()

		sub := &subscriber{conn: conn, gameID: gameID}
		if err := gs.subscribe(sub); err != nil {
			gs.logger.Warn("subscribe failed", zap.String("game_id", gameID), zap.Error(err))
			return
		}
		defer gs.unsubscribe(sub)

		for {
			var env gameModel.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if env.Event != gameModel.EventSyncRequest {
				gs.logger.Debug("ignoring client event", zap.String("event", string(env.Event)))
				continue
			}
			if err := gs.resync(sub); err != nil {
				gs.logger.Warn("resync failed", zap.String("game_id", gameID), zap.Error(err))
				return
			}
		}
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

func newRouter(gs *GameServer, allowedOrigins []string) *mux.Router {
	upgrader := &websocket.Upgrader{CheckOrigin: checkOrigin(allowedOrigins)}
	r := mux.NewRouter()
	r.HandleFunc("/api/game/new", gs.handleNewGame).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/game/{gameID}/state", gs.handlePushState).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/game/{gameID}", gs.handleGetGame).Methods("GET")
	r.HandleFunc("/ws/{gameID}", gs.handleSubscribe(upgrader)).Methods("GET")
	return r
}
