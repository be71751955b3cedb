package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/KilimcininKorOglu/lightpaxos/internal/config"
	"github.com/KilimcininKorOglu/lightpaxos/internal/logging"
	"github.com/KilimcininKorOglu/lightpaxos/internal/node"
	"github.com/KilimcininKorOglu/lightpaxos/internal/paxos"
	"github.com/KilimcininKorOglu/lightpaxos/internal/transport"
)

// overrides holds the settings given on the command line. They win over
// the file on every load and the environment wins over them.
type overrides struct {
	logLevel  string
	startMode string
}

func (o overrides) apply(cfg *config.Config) {
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.startMode != "" {
		cfg.Proposer.StartMode = o.startMode
	}
	applyEnvOverrides(cfg)
}

// nodeServer runs one node and applies configuration reloads to it.
type nodeServer struct {
	configFile string
	overrides  overrides
	logger     logging.Logger
	service    *node.Service
	watcher    *config.Watcher

	cfg *config.Config
	mu  sync.Mutex // guards cfg
}

// newNodeServer builds the node described by cfg, which already carries
// ov. A nil transport joins the configured multicast group.
func newNodeServer(cfg *config.Config, configFile string, ov overrides, logger logging.Logger, tr transport.Transport) (*nodeServer, error) {
	s := &nodeServer{
		configFile: configFile,
		overrides:  ov,
		logger:     logger,
		cfg:        cfg,
	}

	var err error
	if tr == nil {
		s.service, err = node.NewService(cfg, newStateLogger(logger), logger)
	} else {
		s.service, err = node.NewServiceWithTransport(cfg, tr, newStateLogger(logger), logger)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newStateLogger reports proposer transitions and decisions at info level.
func newStateLogger(logger logging.Logger) paxos.Listener {
	return paxos.ListenerFuncs{
		StateChange: func(roleID string, state paxos.State) {
			logger.Info("proposer state changed", "proposer", roleID, "state", state.String())
		},
		Consensus: func(decisionID uint64, value string) {
			logger.Info("consensus reached", "decision", decisionID, "leader", value)
		},
	}
}

// enableWatch starts polling the configuration file once run is called.
func (s *nodeServer) enableWatch() error {
	if s.configFile == "" {
		return config.ErrMissingConfigFile
	}
	w, err := config.NewWatcher(config.WatcherConfig{
		FilePath: s.configFile,
		OnChange: func(_, next *config.Config) {
			if err := s.update(next); err != nil {
				s.logger.Warn("config reload rejected", "file", s.configFile, "error", err)
			}
		},
		OnError: func(err error) {
			s.logger.Warn("config reload rejected", "file", s.configFile, "error", err)
		},
	})
	if err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// run starts the node and blocks until ctx is cancelled or the node fails.
func (s *nodeServer) run(ctx context.Context) error {
	if err := s.service.Start(ctx); err != nil {
		return err
	}
	s.logger.Info("node started", "address", s.service.LocalAddr())

	if s.watcher != nil {
		go s.watcher.Run(ctx)
		s.logger.Info("config file watcher started", "file", s.configFile)
	}

	err := s.service.Wait()
	if stopErr := s.service.Stop(); stopErr != nil && !errors.Is(stopErr, node.ErrNotStarted) {
		s.logger.Warn("node stop failed", "error", stopErr)
	}

	stats := s.service.Stats()
	s.logger.Info("node stopped",
		"received", stats.Received, "sent", stats.Sent, "malformed", stats.Malformed)
	return err
}

// reload re-reads the configuration file, as on SIGHUP.
func (s *nodeServer) reload() error {
	if s.configFile == "" {
		return config.ErrMissingConfigFile
	}
	next, err := config.LoadConfig(s.configFile)
	if err != nil {
		return err
	}
	return s.update(next)
}

// update re-applies the overrides to a freshly loaded file and applies
// the result against the running configuration.
func (s *nodeServer) update(next *config.Config) error {
	s.overrides.apply(next)
	if errs := config.ValidateConfig(next); len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.mu.Lock()
	prev := s.cfg
	s.mu.Unlock()
	s.applyConfig(prev, next)
	return nil
}

// applyConfig applies the runtime-changeable settings of newCfg. Only the
// log level changes without a restart.
func (s *nodeServer) applyConfig(oldCfg, newCfg *config.Config) {
	s.mu.Lock()
	s.cfg = newCfg
	s.mu.Unlock()

	if oldCfg.Logging.Level != newCfg.Logging.Level {
		s.logger.SetLevel(logging.ParseLevel(newCfg.Logging.Level))
		s.logger.Info("log level changed", "from", oldCfg.Logging.Level, "to", newCfg.Logging.Level)
	}

	if oldCfg.Network != newCfg.Network ||
		!slices.Equal(oldCfg.Quorum, newCfg.Quorum) ||
		oldCfg.Proposer != newCfg.Proposer ||
		oldCfg.Acceptor != newCfg.Acceptor ||
		oldCfg.Learner != newCfg.Learner {
		s.logger.Warn("configuration change requires a restart to take effect")
	}
}

// serveCmd handles the serve command.
func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	startMode := fs.String("start-mode", "", "Proposer start mode: primary, standby (overrides config)")
	watch := fs.Bool("watch", false, "Reload the log level when the configuration file changes")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printServeUsage(os.Stdout)
		return 0
	}

	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		return 1
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Command-line flags override the file, environment variables override both
	ov := overrides{logLevel: *logLevel, startMode: *startMode}
	ov.apply(cfg)

	if !reportValidation(cfg) {
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	srv, err := newNodeServer(cfg, *configFile, ov, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create node: %v\n", err)
		return 1
	}
	if *watch {
		if err := srv.enableWatch(); err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown and reload
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.run(ctx)
	}()

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				if err := srv.reload(); err != nil {
					logger.Warn("config reload failed", "error", err)
				}
			default:
				logger.Info("received signal, shutting down", "signal", sig.String())
				cancel()
			}

		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "Node error: %v\n", err)
				return 1
			}
			return 0
		}
	}
}
