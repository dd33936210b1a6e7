package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majeanson/anthropicJoffre-sub005/gameModel"
	"github.com/majeanson/anthropicJoffre-sub005/session"
)

func baseGame() gameModel.GameState {
	return gameModel.GameState{
		ID:    "game-1",
		Phase: gameModel.PhaseBetting,
		Players: []gameModel.Player{
			{ID: "a", Name: "A", TeamID: 1}, {ID: "b", Name: "B", TeamID: 2},
			{ID: "c", Name: "C", TeamID: 1}, {ID: "d", Name: "D", TeamID: 2},
		},
	}
}

func websocketURL(srvURL string) string {
	return "ws" + strings.TrimPrefix(srvURL, "http")
}

// scriptedServer sends a delta before any snapshot, waits for the client's
// sync request, then answers with a snapshot followed by a delta.
func scriptedServer(t *testing.T, syncRequests chan<- gameModel.SyncRequest) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		early := gameModel.NewDelta("game-1", 1)
		early.Phase = gameModel.Set(gameModel.PhaseScoring)
		env, _ := gameModel.NewEnvelope(gameModel.EventGameUpdatedDelta, early)
		if err := conn.WriteJSON(env); err != nil {
			return
		}

		var req gameModel.Envelope
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Event != gameModel.EventSyncRequest {
			t.Errorf("expected sync request, got %q", req.Event)
			return
		}
		var body gameModel.SyncRequest
		_ = json.Unmarshal(req.Data, &body)
		syncRequests <- body

		full, _ := gameModel.NewEnvelope(gameModel.EventGameUpdated, baseGame())
		conn.WriteJSON(full)

		d := gameModel.NewDelta("game-1", 2)
		d.Phase = gameModel.Set(gameModel.PhasePlaying)
		d.PlayerUpdates = gameModel.PlayerUpdates{{Index: 3, Changes: gameModel.PlayerChanges{IsBot: gameModel.Set(true)}}}
		env, _ = gameModel.NewEnvelope(gameModel.EventGameUpdatedDelta, d)
		conn.WriteJSON(env)

		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.ReadMessage()
	}))
}

func TestClientResyncsThenReconciles(t *testing.T) {
	syncRequests := make(chan gameModel.SyncRequest, 1)
	srv := scriptedServer(t, syncRequests)
	t.Cleanup(srv.Close)

	states := make(chan gameModel.GameState, 4)
	mirror := session.New(nil, session.WithOnChange(func(s gameModel.GameState) { states <- s }))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, websocketURL(srv.URL), mirror, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.Run(ctx))

	select {
	case req := <-syncRequests:
		assert.Equal(t, "game-1", req.GameID)
	default:
		t.Fatal("client never asked for a snapshot")
	}

	require.Len(t, states, 2)
	<-states
	final := <-states
	assert.Equal(t, gameModel.PhasePlaying, final.Phase)
	assert.True(t, final.Players[3].IsBot)
	assert.False(t, final.Players[2].IsBot)
	assert.Equal(t, uint64(1), mirror.Stats().IgnoredDeltas)
}

func TestClientRunStopsOnContextCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	c, err := Dial(ctx, websocketURL(srv.URL), session.New(nil), nil)
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() { errs <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", session.New(nil), nil)
	assert.ErrorContains(t, err, "dial")
}
