package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/tslocum/tavla"
	"codeberg.org/tslocum/tavla/pkg/store"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Number of players included in the leaderboard.
const leaderboardSize = 100

type leaderboardEntry struct {
	Player string
	Rating int
	Games  int
}

func (s *server) router() *mux.Router {
	m := mux.NewRouter()
	m.HandleFunc("/match/{id}", s.handleMatch)
	m.HandleFunc("/matches", s.handleListMatches)
	m.HandleFunc("/game/{id:[0-9]+}", s.handleGame)
	m.HandleFunc("/leaderboard", s.handleLeaderboard)
	m.HandleFunc("/", s.handleWebSocket)
	return m
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	const bufferSize = 8
	commands := make(chan []byte, bufferSize)
	events := make(chan []byte, bufferSize)

	address := s.hashIP(r.RemoteAddr)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		address = s.hashIP(forwarded)
	}

	wsClient := newWebSocketClient(r, w, address, commands, events, s.verbose)
	if wsClient == nil {
		return
	}

	now := time.Now().Unix()

	c := &serverClient{
		id:        <-s.newClientIDs,
		language:  defaultLanguage,
		connected: now,
		active:    now,
		commands:  commands,
		Client:    wsClient,
	}
	s.handleClient(c)
}

func (s *server) cachedMatches() []byte {
	s.gamesCacheLock.Lock()
	defer s.gamesCacheLock.Unlock()

	if time.Since(s.gamesCacheTime) < 5*time.Second {
		return s.gamesCache
	}

	s.gamesLock.RLock()
	games := []*tavla.GameListing{}
	for _, g := range s.games {
		listing := g.listing()
		if listing == nil || listing.Password {
			continue
		}
		games = append(games, listing)
	}
	s.gamesLock.RUnlock()

	s.gamesCacheTime = time.Now()
	var err error
	s.gamesCache, err = json.Marshal(games)
	if err != nil {
		log.Panic().Err(err).Msg("failed to marshal match listing")
	}
	return s.gamesCache
}

func (s *server) cachedLeaderboard(ctx context.Context) ([]byte, error) {
	s.leaderboardCacheLock.Lock()
	defer s.leaderboardCacheLock.Unlock()

	if s.leaderboardCache != nil && time.Since(s.leaderboardCacheTime) < time.Minute {
		return s.leaderboardCache, nil
	}

	ratings, err := s.store.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve leaderboard: %w", err)
	}
	entries := lo.Map(ratings, func(r *store.Rating, _ int) leaderboardEntry {
		return leaderboardEntry{
			Player: r.Player,
			Rating: int(r.Rating),
			Games:  r.Games,
		}
	})
	buf, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	s.leaderboardCache = buf
	s.leaderboardCacheTime = time.Now()
	return buf, nil
}

func (s *server) handleMatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid match ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	g, err := s.store.Game(ctx, id)
	if store.IsNotFound(err) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		log.Error().Err(err).Str("replay", id.String()).Msg("failed to retrieve match")
		http.Error(w, "failed to retrieve match", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%d_%s_%s.match"`, g.Ended.Unix(), g.White, g.Black))
	w.Write(g.Replay)
}

func (s *server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.cachedMatches())
}

// handleGame serves the latest snapshot of a match in progress.
func (s *server) handleGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}
	g := s.gameByID(id)
	if g == nil {
		http.NotFound(w, r)
		return
	}
	snapshot := g.cachedSnapshot()
	if snapshot == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snapshot)
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	buf, err := s.cachedLeaderboard(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to serve leaderboard")
		http.Error(w, "failed to retrieve leaderboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}
