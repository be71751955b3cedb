package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/lightpaxos/internal/config"
	"github.com/KilimcininKorOglu/lightpaxos/internal/logging"
	"github.com/KilimcininKorOglu/lightpaxos/internal/paxos"
	"github.com/KilimcininKorOglu/lightpaxos/internal/store"
	"github.com/KilimcininKorOglu/lightpaxos/internal/transport"
)

// Service wires a handler to the transport and store described by a
// validated configuration.
type Service struct {
	handler   *Handler
	transport transport.Transport
	decisions *store.MemoryStore
	logger    logging.Logger
}

// NewService joins the configured multicast group and builds the handler.
func NewService(cfg *config.Config, listener paxos.Listener, logger logging.Logger) (*Service, error) {
	tr, err := transport.NewMulticast(transport.MulticastConfig{
		Interface:  cfg.Network.Interface,
		Group:      cfg.Network.Group,
		Port:       cfg.Network.Port,
		TTL:        cfg.Network.TTL,
		Loopback:   cfg.Network.Loopback,
		BufferSize: cfg.Network.BufferSize,
	})
	if err != nil {
		return nil, err
	}

	svc, err := NewServiceWithTransport(cfg, tr, listener, logger)
	if err != nil {
		tr.Close()
		return nil, err
	}
	return svc, nil
}

// NewServiceWithTransport builds the handler on an existing transport.
// The service owns tr from then on.
func NewServiceWithTransport(cfg *config.Config, tr transport.Transport, listener paxos.Listener, logger logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	opts := Options{
		Transport:         tr,
		Listener:          listener,
		Logger:            logger,
		AcceptorID:        cfg.Acceptor.ID,
		LearnerID:         cfg.Learner.ID,
		HeartbeatInterval: cfg.Proposer.Heartbeat,
		PhaseTimeout:      cfg.Proposer.PhaseTimeout,
		BufferSize:        cfg.Network.BufferSize,
	}

	if cfg.HasProposer() {
		mode, err := paxos.ParseStartMode(cfg.Proposer.StartMode)
		if err != nil {
			return nil, fmt.Errorf("node: %w", err)
		}
		opts.Proposer = &paxos.ProposerConfig{
			ID:        cfg.Proposer.ID,
			Quorum:    cfg.Quorum,
			StartMode: mode,
		}
	}

	var decisions *store.MemoryStore
	if cfg.HasLearner() {
		decisions = store.NewMemoryStore(cfg.Learner.MaxDecisions)
		opts.Store = decisions
	}

	h, err := NewHandler(opts)
	if err != nil {
		return nil, err
	}

	return &Service{
		handler:   h,
		transport: tr,
		decisions: decisions,
		logger:    logger,
	}, nil
}

// Start starts the handler.
func (s *Service) Start(ctx context.Context) error {
	return s.handler.Start(ctx)
}

// Stop stops the handler and closes the decision store. A service that
// was never started only releases its transport.
func (s *Service) Stop() error {
	err := s.handler.Stop()
	if errors.Is(err, ErrNotStarted) {
		err = s.transport.Close()
	}
	if s.decisions != nil {
		if cerr := s.decisions.Close(); cerr != nil {
			s.logger.Warn("decision store close failed", "error", cerr)
		}
	}
	return err
}

// Wait blocks until the handler has stopped.
func (s *Service) Wait() error {
	return s.handler.Wait()
}

// Propose forwards to the handler.
func (s *Service) Propose(value string) bool {
	return s.handler.Propose(value)
}

// Stats returns the handler counters.
func (s *Service) Stats() Stats {
	return s.handler.Stats()
}

// Decisions returns the learner's store, nil when no learner is configured.
func (s *Service) Decisions() *store.MemoryStore {
	return s.decisions
}

// LocalAddr returns the transport address.
func (s *Service) LocalAddr() string {
	return s.transport.LocalAddr()
}
