package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MemoryStore struct {
	games   map[uuid.UUID]*Game
	ratings map[string]*Rating
	lock    sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:   make(map[uuid.UUID]*Game),
		ratings: make(map[string]*Rating),
	}
}

func (s *MemoryStore) RecordGame(ctx context.Context, g *Game) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	prepareGame(g)
	copied := *g
	copied.Replay = slices.Clone(g.Replay)
	s.games[g.ID] = &copied
	return nil
}

func (s *MemoryStore) Game(ctx context.Context, id uuid.UUID) (*Game, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, &ErrNotFound{}
	}
	copied := *g
	return &copied, nil
}

func (s *MemoryStore) History(ctx context.Context, player string, limit int) ([]*Game, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	games := lo.Filter(lo.Values(s.games), func(g *Game, _ int) bool {
		return g.Player(player)
	})
	slices.SortFunc(games, func(a, b *Game) int {
		return b.Ended.Compare(a.Ended)
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return lo.Map(games, func(g *Game, _ int) *Game {
		copied := *g
		return &copied
	}), nil
}

func (s *MemoryStore) Rating(ctx context.Context, player string) (*Rating, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	r, ok := s.ratings[strings.ToLower(player)]
	if !ok {
		return NewRating(player), nil
	}
	copied := *r
	return &copied, nil
}

func (s *MemoryStore) SetRating(ctx context.Context, r *Rating) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	copied := *r
	s.ratings[strings.ToLower(r.Player)] = &copied
	return nil
}

func (s *MemoryStore) Leaderboard(ctx context.Context, limit int) ([]*Rating, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	ratings := lo.Map(lo.Values(s.ratings), func(r *Rating, _ int) *Rating {
		copied := *r
		return &copied
	})
	slices.SortFunc(ratings, compareRatings)
	if limit > 0 && len(ratings) > limit {
		ratings = ratings[:limit]
	}
	return ratings, nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func compareRatings(a, b *Rating) int {
	switch {
	case a.Rating > b.Rating:
		return -1
	case a.Rating < b.Rating:
		return 1
	default:
		return strings.Compare(a.Player, b.Player)
	}
}
