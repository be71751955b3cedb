// Package config provides configuration parsing and validation for lightpaxos nodes.
//
// # Overview
//
// A node reads one YAML file describing the multicast group, the acceptor
// quorum and the roles it hosts. The package supports:
//
//   - A dependency-free YAML subset (maps, inline arrays, "- item" lists)
//   - ${VAR} and ${VAR:-default} environment substitution
//   - Default values for every setting
//   - Validation returning every problem at once
//   - Polling for file changes
//
// # Loading Configuration
//
//	cfg, err := config.LoadConfig("/etc/lightpaxos/node.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    // report errs
//	}
//
// # Roles
//
// A role is enabled by giving it an id. A node may host any non-empty
// subset of proposer, acceptor and learner. Every node of a group must
// list the same quorum.
//
// # Example Configuration
//
//	network:
//	  interface: 0.0.0.0
//	  group: 239.192.0.1
//	  port: 7400
//	  ttl: 1
//	  bufferSize: 1024
//	  loopback: true
//
//	quorum: [a1, a2, a3]
//
//	proposer:
//	  id: ${NODE_NAME:-p1}
//	  startMode: primary
//	  heartbeat: 10s
//	  phaseTimeout: 250ms
//
//	acceptor:
//	  id: a1
//
//	learner:
//	  id: l1
//	  maxDecisions: 1024
//
//	logging:
//	  level: info
//	  format: text
//	  output: stdout
package config
