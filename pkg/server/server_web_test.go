package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/tslocum/tavla"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, s *server, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, r)
	return w
}

func TestHandleListMatches(t *testing.T) {
	s := newTestServer(t)
	alice, _ := connect(t, s, "login alice")
	bob, _ := connect(t, s, "login bob")
	send(s, alice, "create public Open table")
	send(s, bob, "create private pass")

	w := get(t, s, "/matches")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var listings []tavla.GameListing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listings))
	require.Len(t, listings, 1)
	assert.Equal(t, "Open table", listings[0].Name)
	assert.EqualValues(t, 1, listings[0].Players)
}

func TestHandleGame(t *testing.T) {
	s := newTestServer(t, 6, 6, 1, 1)
	startMatch(t, s)

	w := get(t, s, "/game/1")
	require.Equal(t, http.StatusOK, w.Code)
	snapshot, eventType, err := tavla.DecodeSnapshot(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, tavla.EventTypeStart, eventType)
	assert.Equal(t, tavla.White, snapshot.Turn)
	assert.Equal(t, tavla.StatusInProgress, snapshot.Status)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/game/2").Code)
}

func TestHandleMatchAndLeaderboard(t *testing.T) {
	s := newTestServer(t, 6, 6, 1, 1, 1, 2)
	alice, _, _, _ := startMatch(t, s)
	g := s.gameByClient(alice)
	send(s, alice, "endgame")
	send(s, alice, "roll")
	send(s, alice, "move 1/off")
	require.NotEmpty(t, g.recordID)

	w := get(t, s, "/match/"+g.recordID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "_alice_bob.match")
	assert.Equal(t, string(g.replay()), w.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/match/1").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/match/00000000-0000-0000-0000-000000000001").Code)

	w = get(t, s, "/leaderboard")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []leaderboardEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Player)
	assert.Equal(t, 1, entries[0].Games)
	assert.Greater(t, entries[0].Rating, entries[1].Rating)
}
