package server

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// publisher publishes board snapshots to NATS so that other services may
// follow matches without connecting as clients.
type publisher struct {
	nc *nats.Conn
}

func newPublisher(url string) (*publisher, error) {
	nc, err := nats.Connect(url, nats.Name("tavla-server"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("connected to NATS")
	return &publisher{
		nc: nc,
	}, nil
}

func gameSubject(gameID int) string {
	return fmt.Sprintf("tavla.game.%d", gameID)
}

// publish sends a snapshot of a game. A nil publisher does nothing.
func (p *publisher) publish(gameID int, snapshot []byte) {
	if p == nil {
		return
	}
	err := p.nc.Publish(gameSubject(gameID), snapshot)
	if err != nil {
		log.Warn().Err(err).Int("game", gameID).Msg("failed to publish snapshot")
	}
}

func (p *publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.nc.Drain()
}
