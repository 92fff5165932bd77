package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/campdraft/go/internal/config"
	"github.com/mcdev12/campdraft/go/internal/draft/engine"
	"github.com/mcdev12/campdraft/go/internal/draft/events"
	"github.com/mcdev12/campdraft/go/internal/draft/gateway"
	"github.com/mcdev12/campdraft/go/internal/draft/outbox"
	"github.com/mcdev12/campdraft/go/internal/draft/outbox/worker"
	"github.com/mcdev12/campdraft/go/internal/draft/rpc"
	"github.com/mcdev12/campdraft/go/internal/models"
)

type Services struct {
	Engine  *engine.Engine
	Draft   *rpc.Service
	Gateway *gateway.Service

	closers []func()
}

// Close releases publishers and pools in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupServices(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Services, error) {
	// Wire up dependency injection chain
	// Event sink → Engine → Connect service, with the gateway reading
	// either in-process events or JetStream depending on the mode.
	s := &Services{}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = cfg.NATS.URL
	gatewayConfig.JetStreamConfig.StreamName = cfg.NATS.StreamName
	gatewayConfig.JetStreamConfig.SubjectFilter = cfg.NATS.SubjectPrefix + ".>"
	gatewayConfig.ConsumeJetStream = cfg.Events.Mode != config.EventsModeLocal

	publisher, err := s.setupPublisher(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	eng := engine.NewEngine(
		engine.WithPublisher(publisher),
		engine.WithMetrics(engine.NewPrometheusMetrics(reg)),
		engine.WithScoringPolicy(engine.ScoringPolicy{CreditCancelled: cfg.Engine.CreditCancelled}),
		engine.WithExpiryWorkers(cfg.Engine.ExpiryWorkers),
		engine.WithPublishTimeout(cfg.Engine.PublishTimeout),
	)
	s.closers = append(s.closers, eng.Shutdown)
	s.Engine = eng

	gw, err := gateway.NewService(ctx, gatewayConfig, eng)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}
	s.Gateway = gw
	if local, ok := publisher.(*localPublisher); ok {
		local.target = gw.Publisher()
	}

	s.Draft = rpc.NewService(eng, rpc.WithDefaultSettings(models.DraftSettings{
		RoundsPerParticipant: cfg.Engine.DefaultRoundsPerParticipant,
		TimePerPickSec:       cfg.Engine.DefaultTimePerPickSec,
	}))

	log.Info().Str("events_mode", string(cfg.Events.Mode)).Msg("services wired")
	return s, nil
}

func (s *Services) setupPublisher(ctx context.Context, cfg *config.Config) (engine.Publisher, error) {
	switch cfg.Events.Mode {
	case config.EventsModeJetStream:
		jsCfg := worker.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.StreamName
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		js, err := worker.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		s.closers = append(s.closers, func() {
			if err := js.Close(); err != nil {
				log.Error().Err(err).Msg("close JetStream publisher")
			}
		})
		return js, nil

	case config.EventsModeOutbox:
		pool, err := setupDatabase(ctx)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		return outbox.NewWriter(pool, cfg.Outbox.NotifyChannel), nil

	default:
		return &localPublisher{}, nil
	}
}

// localPublisher forwards to the in-process gateway once it exists. No
// draft can emit before the server starts, so the nil check only guards
// misuse.
type localPublisher struct {
	target engine.Publisher
}

func (p *localPublisher) Publish(ctx context.Context, env events.Envelope) error {
	if p.target == nil {
		return fmt.Errorf("no in-process gateway for %s", env.EventType)
	}
	return p.target.Publish(ctx, env)
}
