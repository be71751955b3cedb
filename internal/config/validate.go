package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KilimcininKorOglu/lightpaxos/internal/paxos"
)

// minHeartbeat is the standby coalescing window of the node handler. A
// heartbeat at or below it would never rearm a standby timer.
const minHeartbeat = 100 * time.Millisecond

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	if !config.HasProposer() && !config.HasAcceptor() && !config.HasLearner() {
		errs = append(errs, ValidationError{
			Field:   "proposer.id",
			Message: "at least one of proposer, acceptor or learner must be configured",
		})
	}

	errs = append(errs, validateNetworkConfig(&config.Network)...)
	errs = append(errs, validateQuorum(config)...)
	errs = append(errs, validateProposerConfig(&config.Proposer)...)

	if config.HasAcceptor() {
		if err := validateIdentifier(config.Acceptor.ID); err != "" {
			errs = append(errs, ValidationError{Field: "acceptor.id", Message: err})
		}
	}

	if config.HasLearner() {
		if err := validateIdentifier(config.Learner.ID); err != "" {
			errs = append(errs, ValidationError{Field: "learner.id", Message: err})
		}
		if config.Learner.MaxDecisions < 0 {
			errs = append(errs, ValidationError{
				Field:   "learner.maxDecisions",
				Message: "must be non-negative",
			})
		}
	}

	errs = append(errs, validateLogConfig(&config.Logging)...)

	return errs
}

// validateNetworkConfig validates network configuration.
func validateNetworkConfig(config *NetworkConfig) []error {
	var errs []error

	group := net.ParseIP(config.Group)
	if group == nil || group.To4() == nil || !group.IsMulticast() {
		errs = append(errs, ValidationError{
			Field:   "network.group",
			Message: "must be an IPv4 multicast address",
		})
	}

	// Interface may be a name or an IPv4 address
	if ip := net.ParseIP(config.Interface); ip != nil && ip.To4() == nil {
		errs = append(errs, ValidationError{
			Field:   "network.interface",
			Message: "must be an interface name or an IPv4 address",
		})
	}

	if config.Port < 1 || config.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "network.port",
			Message: "must be between 1 and 65535",
		})
	}

	if config.TTL < 0 || config.TTL > 255 {
		errs = append(errs, ValidationError{
			Field:   "network.ttl",
			Message: "must be between 0 and 255",
		})
	}

	if config.BufferSize < 64 || config.BufferSize > 65507 {
		errs = append(errs, ValidationError{
			Field:   "network.bufferSize",
			Message: "must be between 64 and 65507",
		})
	}

	return errs
}

// validateQuorum checks the acceptor ids. The quorum is required when a
// proposer is configured.
func validateQuorum(config *Config) []error {
	var errs []error

	if config.HasProposer() && len(config.Quorum) == 0 {
		errs = append(errs, ValidationError{
			Field:   "quorum",
			Message: "at least one acceptor id is required when a proposer is configured",
		})
	}

	seen := make(map[string]bool, len(config.Quorum))
	for i, id := range config.Quorum {
		field := fmt.Sprintf("quorum[%d]", i)
		if id == "" {
			errs = append(errs, ValidationError{Field: field, Message: "must not be empty"})
			continue
		}
		if msg := validateIdentifier(id); msg != "" {
			errs = append(errs, ValidationError{Field: field, Message: msg})
		}
		if seen[id] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate acceptor id %s", id)})
		}
		seen[id] = true
	}

	return errs
}

// validateProposerConfig validates proposer configuration.
func validateProposerConfig(config *ProposerConfig) []error {
	if config.ID == "" {
		return nil
	}

	var errs []error

	if msg := validateIdentifier(config.ID); msg != "" {
		errs = append(errs, ValidationError{Field: "proposer.id", Message: msg})
	}

	if _, err := paxos.ParseStartMode(config.StartMode); err != nil {
		errs = append(errs, ValidationError{
			Field:   "proposer.startMode",
			Message: "must be primary or standby",
		})
	}

	if config.Heartbeat <= minHeartbeat {
		errs = append(errs, ValidationError{
			Field:   "proposer.heartbeat",
			Message: fmt.Sprintf("must be greater than %v", minHeartbeat),
		})
	}

	if config.PhaseTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "proposer.phaseTimeout",
			Message: "must be positive",
		})
	} else if config.PhaseTimeout >= config.Heartbeat {
		errs = append(errs, ValidationError{
			Field:   "proposer.phaseTimeout",
			Message: "must be shorter than the heartbeat",
		})
	}

	return errs
}

// validateIdentifier returns a message when id cannot travel in a protocol field.
func validateIdentifier(id string) string {
	if id == paxos.NoValue {
		return fmt.Sprintf("%q is reserved", paxos.NoValue)
	}
	if !paxos.IsValidIdentifier(id) {
		return "must not contain commas or line breaks"
	}
	return ""
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	// Validate log level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	// Validate log format
	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	// Validate output
	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}
