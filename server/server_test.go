package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/majeanson/anthropicJoffre-sub005/gameModel"
	"github.com/majeanson/anthropicJoffre-sub005/session"
	"github.com/majeanson/anthropicJoffre-sub005/transport"
)

func newTestServer(t *testing.T) (*GameServer, *httptest.Server) {
	gs := NewGameServer(zap.NewNop(), time.Second)
	srv := httptest.NewServer(newRouter(gs, nil))
	t.Cleanup(srv.Close)
	return gs, srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func awaitState(t *testing.T, states <-chan gameModel.GameState) gameModel.GameState {
	t.Helper()
	select {
	case s := <-states:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mirror update")
		return gameModel.GameState{}
	}
}

func TestNewGameDefaultsToLobby(t *testing.T) {
	_, srv := newTestServer(t)

	var resp gameModel.NewGameResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/game/new", nil, &resp))

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.GameState.ID)
	assert.Equal(t, gameModel.PhaseTeamSelection, resp.GameState.Phase)
	assert.Len(t, resp.GameState.Players, 4)

	var got gameModel.GameState
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/game/"+resp.GameState.ID, nil, &got))
	assert.Equal(t, resp.GameState, got)
}

func TestUnknownGame(t *testing.T) {
	_, srv := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/game/missing", nil, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPut, srv.URL+"/api/game/missing/state", gameModel.NewLobby("missing"), nil))
}

func TestPushRejectsInvalidState(t *testing.T) {
	_, srv := newTestServer(t)
	var created gameModel.NewGameResponse
	doJSON(t, http.MethodPost, srv.URL+"/api/game/new", nil, &created)

	bad := created.GameState
	bad.DealerIndex = 9
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPut, srv.URL+"/api/game/"+bad.ID+"/state", bad, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPut, srv.URL+"/api/game/"+bad.ID+"/state?event=bogus", created.GameState, nil))
}

func TestSubscriberMirrorTracksServer(t *testing.T) {
	_, srv := newTestServer(t)
	var created gameModel.NewGameResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/game/new", nil, &created))
	gameID := created.GameState.ID

	states := make(chan gameModel.GameState, 8)
	mirror := session.New(nil, session.WithOnChange(func(s gameModel.GameState) { states <- s }))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + gameID
	client, err := transport.Dial(ctx, wsURL, mirror, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	go client.Run(ctx)

	assert.Equal(t, created.GameState, awaitState(t, states))

	// Seat players and start betting: expressible as a delta.
	next := created.GameState
	next.Players = append([]gameModel.Player(nil), next.Players...)
	for i := range next.Players {
		next.Players[i].ID = string(rune('a' + i))
		next.Players[i].Name = string(rune('A' + i))
		next.Players[i].IsEmpty = false
		next.Players[i].Hand = []gameModel.Card{{Color: gameModel.Blue, Value: i}}
	}
	next.Phase = gameModel.PhaseBetting

	var pushed gameModel.PushStateResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, srv.URL+"/api/game/"+gameID+"/state", next, &pushed))
	assert.True(t, pushed.Delta)
	assert.Equal(t, next, awaitState(t, states))

	// A round ending appends history; announced as a full snapshot event.
	next.Phase = gameModel.PhaseScoring
	next.RoundHistory = append(next.RoundHistory, gameModel.RoundHistory{RoundNumber: 1, BetMade: true})
	next.TeamScores = gameModel.TeamScores{Team1: 8, Team2: 2}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, srv.URL+"/api/game/"+gameID+"/state?event=round_ended", next, &pushed))
	assert.False(t, pushed.Delta)
	assert.Equal(t, next, awaitState(t, states))

	// Rewriting history cannot be a delta; the server falls back to a snapshot.
	next.RoundHistory = []gameModel.RoundHistory{}
	next.RoundNumber = 2
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, srv.URL+"/api/game/"+gameID+"/state", next, &pushed))
	assert.Equal(t, gameModel.EventGameUpdated, pushed.Event)
	assert.Equal(t, next, awaitState(t, states))

	assert.Equal(t, uint64(0), mirror.Stats().IgnoredDeltas)
}

func TestSyncRequestGetsFullSnapshot(t *testing.T) {
	_, srv := newTestServer(t)
	var created gameModel.NewGameResponse
	doJSON(t, http.MethodPost, srv.URL+"/api/game/new", nil, &created)

	states := make(chan gameModel.GameState, 4)
	mirror := session.New(nil, session.WithOnChange(func(s gameModel.GameState) { states <- s }))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	client, err := transport.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/"+created.GameState.ID, mirror, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	go client.Run(ctx)

	awaitState(t, states)
	require.NoError(t, client.RequestSync(created.GameState.ID))
	assert.Equal(t, created.GameState, awaitState(t, states))
	assert.Equal(t, uint64(2), mirror.Stats().Snapshots)
}

func TestReadsAreNotBlockedByBroadcast(t *testing.T) {
	gs, srv := newTestServer(t)
	created, err := gs.createGame(nil)
	require.NoError(t, err)

	g, ok := gs.lookup(created.ID)
	require.True(t, ok)
	// Stands in for a broadcast stuck on a slow subscriber write.
	g.broadcastMu.Lock()
	defer g.broadcastMu.Unlock()

	done := make(chan gameModel.GameState, 1)
	go func() {
		state, _ := gs.getGame(created.ID)
		done <- state
	}()

	select {
	case got := <-done:
		assert.Equal(t, created, got)
	case <-time.After(2 * time.Second):
		t.Fatal("game read blocked behind broadcast")
	}

	var got gameModel.GameState
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/game/"+created.ID, nil, &got))
	assert.Equal(t, created, got)
}
