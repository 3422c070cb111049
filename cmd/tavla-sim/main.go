package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"codeberg.org/tslocum/tavla"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Games which have not finished after this many steps are considered stuck.
const maxSteps = 10000

type result struct {
	winner tavla.Color
	turns  int
	passes int
}

type stats struct {
	games  int
	wins   [3]int
	turns  int
	passes int
	lock   sync.Mutex
}

func (s *stats) add(r result) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.games++
	s.wins[r.winner]++
	s.turns += r.turns
	s.passes += r.passes
}

func main() {
	games := pflag.IntP("games", "n", 1000, "Number of games to play")
	workers := pflag.IntP("workers", "w", runtime.NumCPU(), "Number of games played concurrently")
	verbose := pflag.BoolP("verbose", "v", false, "Log every finished game")
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *games <= 0 || *workers <= 0 {
		log.Fatal().Msg("games and workers must be positive")
	}

	start := time.Now()
	s := &stats{}
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)
	for i := 0; i < *games; i++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r, err := playGame(i)
			if err != nil {
				return err
			}
			s.add(r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}

	p := message.NewPrinter(language.English)
	p.Printf("Played %d games in %s.\n", s.games, time.Since(start).Round(time.Millisecond))
	p.Printf("White wins: %d (%.1f%%). Black wins: %d (%.1f%%).\n", s.wins[tavla.White], percent(s.wins[tavla.White], s.games), s.wins[tavla.Black], percent(s.wins[tavla.Black], s.games))
	p.Printf("Average turns per game: %.1f. Turns without a legal move: %d.\n", float64(s.turns)/float64(s.games), s.passes)
}

// playGame plays a game between two computer opponents. The board is verified
// after every step.
func playGame(id int) (result, error) {
	game := tavla.NewGame(nil)
	game.Start()
	bots := map[tavla.Color]*tavla.Bot{
		tavla.White: tavla.NewBot(tavla.White, nil),
		tavla.Black: tavla.NewBot(tavla.Black, nil),
	}

	for step := 0; step < maxSteps; step++ {
		turn := game.Turn
		r := bots[turn].Step(game)
		if r == tavla.ResultRejected {
			return result{}, fmt.Errorf("game %d: %s failed to act in state %s", id, turn, game.State())
		}
		if err := game.Board.Verify(); err != nil {
			return result{}, fmt.Errorf("game %d: %w", id, err)
		}
		if r == tavla.ResultWon {
			res := result{
				winner: game.Winner,
				turns:  len(game.History),
			}
			for _, turn := range game.History {
				if turn.Passed {
					res.passes++
				}
			}
			log.Debug().Int("game", id).Str("winner", game.Winner.String()).Int("turns", res.turns).Msg("game finished")
			return res, nil
		}
	}
	return result{}, fmt.Errorf("game %d did not finish after %d steps", id, maxSteps)
}

func percent(n int, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}
