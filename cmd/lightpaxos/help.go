package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `lightpaxos - Paxos leader election over UDP multicast

Usage:
  lightpaxos <command> [options]

Commands:
  serve       Run a node
  config      Configuration management
  version     Show version information

Use "lightpaxos <command> -h" for more information about a command.
`)
}

// printServeUsage prints the serve command usage.
func printServeUsage(w io.Writer) {
	fmt.Fprint(w, `Run a node

Usage:
  lightpaxos serve [options]

Options:
  -config string
        Path to configuration file (required)
  -log-level string
        Log level: debug, info, warn, error (overrides config)
  -start-mode string
        Proposer start mode: primary, standby (overrides config)
  -watch
        Reload the log level when the configuration file changes
  -h, -help
        Show this help message

Environment Variables:
  LIGHTPAXOS_NETWORK_INTERFACE   Override multicast interface
  LIGHTPAXOS_NETWORK_GROUP       Override multicast group
  LIGHTPAXOS_PROPOSER_ID         Override proposer id
  LIGHTPAXOS_ACCEPTOR_ID         Override acceptor id
  LIGHTPAXOS_LEARNER_ID          Override learner id
  LIGHTPAXOS_LOGGING_LEVEL       Override log level

Signals:
  SIGINT, SIGTERM   Stop the node
  SIGHUP            Reload the log level from the configuration file;
                    flag and environment overrides still apply
`)
}

// printConfigUsage prints the config command usage.
func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  lightpaxos config <subcommand> [options]

Subcommands:
  validate    Validate configuration file
  init        Generate default configuration
  show        Show effective configuration

Use "lightpaxos config <subcommand> -h" for more information.
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  lightpaxos version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
