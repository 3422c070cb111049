package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/tslocum/tavla"
	"github.com/google/uuid"
)

// Rating defaults for players who have not finished a match.
const (
	DefaultDeviation  = 350
	DefaultVolatility = 0.06
)

// Game is a finished game.
type Game struct {
	ID      uuid.UUID
	Started time.Time
	Ended   time.Time
	White   string
	Black   string
	Winner  tavla.Color
	Replay  []byte
}

// Player returns whether the named player took part in the game.
func (g *Game) Player(name string) bool {
	return strings.EqualFold(g.White, name) || strings.EqualFold(g.Black, name)
}

// Rating is a Glicko-2 rating.
type Rating struct {
	Player     string
	Rating     float64
	Deviation  float64
	Volatility float64
	Games      int
}

func NewRating(player string) *Rating {
	return &Rating{
		Player:     player,
		Rating:     tavla.DefaultRating,
		Deviation:  DefaultDeviation,
		Volatility: DefaultVolatility,
	}
}

type ErrNotFound struct {
}

func (e *ErrNotFound) Error() string {
	return "not found"
}

func IsNotFound(err error) bool {
	var notFound *ErrNotFound
	return errors.As(err, &notFound)
}

// Store persists finished games and player ratings.
type Store interface {
	// RecordGame stores a finished game. An ID is assigned when none is set.
	RecordGame(ctx context.Context, g *Game) error
	Game(ctx context.Context, id uuid.UUID) (*Game, error)
	// History returns the most recent games of a player, newest first.
	History(ctx context.Context, player string, limit int) ([]*Game, error)
	// Rating returns the rating of a player. Unknown players receive the
	// default rating.
	Rating(ctx context.Context, player string) (*Rating, error)
	SetRating(ctx context.Context, r *Rating) error
	// Leaderboard returns the highest rated players.
	Leaderboard(ctx context.Context, limit int) ([]*Rating, error)
	Close(ctx context.Context) error
}

// Open opens the store described by the data source. PostgreSQL URLs and
// sqlite:<path> are supported. An empty data source opens an in-memory store.
func Open(ctx context.Context, dataSource string) (Store, error) {
	switch {
	case dataSource == "" || dataSource == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dataSource, "postgres://") || strings.HasPrefix(dataSource, "postgresql://"):
		return NewPostgresStore(ctx, dataSource)
	case strings.HasPrefix(dataSource, "sqlite:"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(dataSource, "sqlite:"))
	default:
		return nil, fmt.Errorf("unsupported data source: %s", dataSource)
	}
}

func prepareGame(g *Game) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Ended.IsZero() {
		g.Ended = time.Now()
	}
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
