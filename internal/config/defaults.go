package config

import "time"

// DefaultConfig returns a Config with sensible default values.
// No role is enabled.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Interface:  "0.0.0.0",
			Group:      "239.192.0.1",
			Port:       7400,
			TTL:        1,
			BufferSize: 1024,
			Loopback:   true,
		},
		Quorum: nil,
		Proposer: ProposerConfig{
			StartMode:    "standby",
			Heartbeat:    10 * time.Second,
			PhaseTimeout: 250 * time.Millisecond,
		},
		Learner: LearnerConfig{
			MaxDecisions: 1024,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}
