package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KilimcininKorOglu/lightpaxos/internal/config"
)

// configCmd handles the config command.
func configCmd(args []string) int {
	if len(args) == 0 {
		printConfigUsage(os.Stdout)
		return 0
	}

	// Check for help flags
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "validate":
		return configValidateCmd(args[1:])
	case "init":
		return configInitCmd(args[1:])
	case "show":
		return configShowCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Run 'lightpaxos config help' for usage.")
		return 1
	}
}

// configValidateCmd handles the config validate subcommand.
func configValidateCmd(args []string) int {
	fs := flag.NewFlagSet("config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		fmt.Println("Validate configuration file")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  lightpaxos config validate [options]")
		fmt.Println()
		fmt.Println("Options:")
		fmt.Println("  -config string")
		fmt.Println("        Path to configuration file (required)")
		return 0
	}

	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		return 1
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	if !reportValidation(cfg) {
		return 1
	}

	fmt.Println("Configuration is valid")
	return 0
}

// configInitCmd handles the config init subcommand.
func configInitCmd(args []string) int {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	proposerID := fs.String("proposer", "", "Proposer id")
	acceptorID := fs.String("acceptor", "", "Acceptor id")
	learnerID := fs.String("learner", "", "Learner id")
	quorum := fs.String("quorum", "", "Comma separated acceptor ids")
	startMode := fs.String("start-mode", "", "Proposer start mode: primary, standby")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		fmt.Println("Generate default configuration")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  lightpaxos config init [options]")
		fmt.Println()
		fmt.Println("Options:")
		fmt.Println("  -proposer string    Proposer id")
		fmt.Println("  -acceptor string    Acceptor id")
		fmt.Println("  -learner string     Learner id")
		fmt.Println("  -quorum string      Comma separated acceptor ids")
		fmt.Println("  -start-mode string  Proposer start mode: primary, standby")
		fmt.Println()
		fmt.Println("Outputs the configuration to stdout in YAML format.")
		return 0
	}

	cfg := config.DefaultConfig()
	cfg.Proposer.ID = *proposerID
	cfg.Acceptor.ID = *acceptorID
	cfg.Learner.ID = *learnerID
	if *quorum != "" {
		cfg.Quorum = splitList(*quorum)
	}
	if *startMode != "" {
		cfg.Proposer.StartMode = *startMode
	}

	fmt.Print(marshalConfigToYAML(cfg))
	return 0
}

// configShowCmd handles the config show subcommand.
func configShowCmd(args []string) int {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	format := fs.String("format", "yaml", "Output format (yaml, json)")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		fmt.Println("Show effective configuration")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  lightpaxos config show [options]")
		fmt.Println()
		fmt.Println("Options:")
		fmt.Println("  -config string")
		fmt.Println("        Path to configuration file")
		fmt.Println("  -format string")
		fmt.Println("        Output format: yaml, json (default \"yaml\")")
		return 0
	}

	var cfg *config.Config
	var err error

	if *configFile != "" {
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			return 1
		}
	} else {
		cfg = config.DefaultConfig()
	}

	applyEnvOverrides(cfg)

	switch strings.ToLower(*format) {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal config: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	case "yaml":
		fmt.Print(marshalConfigToYAML(cfg))
	default:
		fmt.Fprintf(os.Stderr, "Unknown format: %s\n", *format)
		return 1
	}

	return 0
}

// reportValidation prints every validation error to stderr and reports
// whether cfg is valid.
func reportValidation(cfg *config.Config) bool {
	errs := config.ValidateConfig(cfg)
	if len(errs) == 0 {
		return true
	}
	fmt.Fprintln(os.Stderr, "Configuration errors:")
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "  - %s\n", e)
	}
	return false
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern LIGHTPAXOS_<SECTION>_<KEY>.
func applyEnvOverrides(cfg *config.Config) {
	// Network overrides
	if v := os.Getenv("LIGHTPAXOS_NETWORK_INTERFACE"); v != "" {
		cfg.Network.Interface = v
	}
	if v := os.Getenv("LIGHTPAXOS_NETWORK_GROUP"); v != "" {
		cfg.Network.Group = v
	}

	// Role overrides
	if v := os.Getenv("LIGHTPAXOS_PROPOSER_ID"); v != "" {
		cfg.Proposer.ID = v
	}
	if v := os.Getenv("LIGHTPAXOS_PROPOSER_START_MODE"); v != "" {
		cfg.Proposer.StartMode = v
	}
	if v := os.Getenv("LIGHTPAXOS_ACCEPTOR_ID"); v != "" {
		cfg.Acceptor.ID = v
	}
	if v := os.Getenv("LIGHTPAXOS_LEARNER_ID"); v != "" {
		cfg.Learner.ID = v
	}

	// Logging overrides
	if v := os.Getenv("LIGHTPAXOS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LIGHTPAXOS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LIGHTPAXOS_LOGGING_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// marshalConfigToYAML converts a Config to the YAML subset LoadConfig reads.
func marshalConfigToYAML(cfg *config.Config) string {
	var sb strings.Builder

	sb.WriteString("# lightpaxos node configuration\n")
	sb.WriteString("# Generated by: lightpaxos config init\n\n")

	sb.WriteString("network:\n")
	sb.WriteString(fmt.Sprintf("  interface: %q\n", cfg.Network.Interface))
	sb.WriteString(fmt.Sprintf("  group: %q\n", cfg.Network.Group))
	sb.WriteString(fmt.Sprintf("  port: %d\n", cfg.Network.Port))
	sb.WriteString(fmt.Sprintf("  ttl: %d\n", cfg.Network.TTL))
	sb.WriteString(fmt.Sprintf("  bufferSize: %d\n", cfg.Network.BufferSize))
	sb.WriteString(fmt.Sprintf("  loopback: %t\n", cfg.Network.Loopback))
	sb.WriteString("\n")

	// Quorum section
	if len(cfg.Quorum) == 0 {
		sb.WriteString("# Acceptor ids the proposer counts votes from\n")
		sb.WriteString("quorum: []\n")
	} else {
		sb.WriteString("quorum:\n")
		for _, id := range cfg.Quorum {
			sb.WriteString(fmt.Sprintf("  - %q\n", id))
		}
	}
	sb.WriteString("\n")

	// Role sections, an empty id disables the role
	sb.WriteString("proposer:\n")
	sb.WriteString(fmt.Sprintf("  id: %q\n", cfg.Proposer.ID))
	sb.WriteString(fmt.Sprintf("  startMode: %q\n", cfg.Proposer.StartMode))
	sb.WriteString(fmt.Sprintf("  heartbeat: %s\n", formatDuration(cfg.Proposer.Heartbeat)))
	sb.WriteString(fmt.Sprintf("  phaseTimeout: %s\n", formatDuration(cfg.Proposer.PhaseTimeout)))
	sb.WriteString("\n")

	sb.WriteString("acceptor:\n")
	sb.WriteString(fmt.Sprintf("  id: %q\n", cfg.Acceptor.ID))
	sb.WriteString("\n")

	sb.WriteString("learner:\n")
	sb.WriteString(fmt.Sprintf("  id: %q\n", cfg.Learner.ID))
	sb.WriteString(fmt.Sprintf("  maxDecisions: %d\n", cfg.Learner.MaxDecisions))
	sb.WriteString("\n")

	sb.WriteString("logging:\n")
	sb.WriteString(fmt.Sprintf("  level: %q\n", cfg.Logging.Level))
	sb.WriteString(fmt.Sprintf("  format: %q\n", cfg.Logging.Format))
	sb.WriteString(fmt.Sprintf("  output: %q\n", cfg.Logging.Output))

	return sb.String()
}

// formatDuration formats a duration for YAML output.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	days := d / (24 * time.Hour)
	if days > 0 && d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", days)
	}

	return d.String()
}
