// Package config provides configuration parsing and validation for lightpaxos nodes.
package config

import "time"

// Config holds the complete node configuration.
type Config struct {
	Network  NetworkConfig  `yaml:"network" json:"network"`
	Quorum   []string       `yaml:"quorum" json:"quorum"`
	Proposer ProposerConfig `yaml:"proposer" json:"proposer"`
	Acceptor AcceptorConfig `yaml:"acceptor" json:"acceptor"`
	Learner  LearnerConfig  `yaml:"learner" json:"learner"`
	Logging  LogConfig      `yaml:"logging" json:"logging"`
}

// NetworkConfig holds the multicast settings shared by the whole group.
type NetworkConfig struct {
	Interface  string `yaml:"interface" json:"interface"`
	Group      string `yaml:"group" json:"group"`
	Port       int    `yaml:"port" json:"port"`
	TTL        int    `yaml:"ttl" json:"ttl"`
	BufferSize int    `yaml:"bufferSize" json:"bufferSize"`
	Loopback   bool   `yaml:"loopback" json:"loopback"`
}

// ProposerConfig configures the proposer role. An empty ID disables it.
type ProposerConfig struct {
	ID           string        `yaml:"id" json:"id,omitempty"`
	StartMode    string        `yaml:"startMode" json:"startMode"`
	Heartbeat    time.Duration `yaml:"heartbeat" json:"heartbeat"`
	PhaseTimeout time.Duration `yaml:"phaseTimeout" json:"phaseTimeout"`
}

// AcceptorConfig configures the acceptor role. An empty ID disables it.
type AcceptorConfig struct {
	ID string `yaml:"id" json:"id,omitempty"`
}

// LearnerConfig configures the learner role. An empty ID disables it.
type LearnerConfig struct {
	ID           string `yaml:"id" json:"id,omitempty"`
	MaxDecisions int    `yaml:"maxDecisions" json:"maxDecisions"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// HasProposer reports whether the proposer role is enabled.
func (c *Config) HasProposer() bool { return c.Proposer.ID != "" }

// HasAcceptor reports whether the acceptor role is enabled.
func (c *Config) HasAcceptor() bool { return c.Acceptor.ID != "" }

// HasLearner reports whether the learner role is enabled.
func (c *Config) HasLearner() bool { return c.Learner.ID != "" }
