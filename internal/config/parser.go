package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parser errors.
var (
	ErrInvalidYAML       = errors.New("invalid YAML format")
	ErrInvalidDuration   = errors.New("invalid duration format")
	ErrInvalidNumber     = errors.New("invalid number format")
	ErrFileNotFound      = errors.New("configuration file not found")
	ErrMissingConfigFile = errors.New("config file path is required")
	ErrMissingOnChange   = errors.New("onChange callback is required")
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// LoadConfig reads a node configuration file. See ParseConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig substitutes environment variables in data, parses it and
// merges the result over DefaultConfig. It does not validate.
func ParseConfig(data []byte) (*Config, error) {
	doc, err := parseDocument(substituteEnvVars(data))
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := applyDocument(doc, config); err != nil {
		return nil, err
	}
	return config, nil
}

// substituteEnvVars expands ${VAR}, or ${VAR:-default} when VAR is unset or empty.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		sub := envVarPattern.FindSubmatch(match)
		if v := os.Getenv(string(sub[1])); v != "" {
			return []byte(v)
		}
		return sub[2]
	})
}

// entry is one "key: value" line with the lines nested under it.
type entry struct {
	key     string
	value   string
	line    int
	indent  int
	items   []string // "- item" lines
	entries []*entry
}

// parseDocument reads the YAML subset node files use: nested mappings,
// scalar lists written inline or as "- item" lines, quoted values and
// trailing comments.
func parseDocument(data []byte) (*entry, error) {
	root := &entry{indent: -1}
	stack := []*entry{root}

	for i, raw := range strings.Split(string(data), "\n") {
		line := i + 1
		text := strings.TrimRight(raw, " \r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := len(text) - len(strings.TrimLeft(text, " "))
		if text[indent] == '\t' {
			return nil, fmt.Errorf("%w: line %d: tab in indentation", ErrInvalidYAML, line)
		}

		if item, ok := strings.CutPrefix(trimmed, "- "); ok {
			// A list may sit at its key's own indentation.
			for len(stack) > 1 && stack[len(stack)-1].indent > indent {
				stack = stack[:len(stack)-1]
			}
			item = strings.TrimSpace(item)
			if !isQuoted(item) && (strings.Contains(item, ": ") || strings.HasSuffix(item, ":")) {
				return nil, fmt.Errorf("%w: line %d: list items must be plain values", ErrInvalidYAML, line)
			}
			parent := stack[len(stack)-1]
			parent.items = append(parent.items, scalar(item))
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: line %d: expected key: value", ErrInvalidYAML, line)
		}

		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		e := &entry{key: key, value: scalar(value), line: line, indent: indent}
		parent := stack[len(stack)-1]
		parent.entries = append(parent.entries, e)
		stack = append(stack, e)
	}
	return root, nil
}

func isQuoted(s string) bool {
	return s != "" && (s[0] == '"' || s[0] == '\'')
}

// scalar drops a trailing comment and the quotes around a value.
func scalar(s string) string {
	s = strings.TrimSpace(s)
	if isQuoted(s) {
		if end := strings.IndexByte(s[1:], s[0]); end >= 0 {
			return s[1 : end+1]
		}
		return s
	}
	if i := strings.Index(s, " #"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

// stringList reads [a, b] inline, "- a" lines, or a single scalar.
func stringList(e *entry) ([]string, error) {
	if !strings.HasPrefix(e.value, "[") {
		if len(e.items) > 0 || e.value == "" {
			return e.items, nil
		}
		return []string{e.value}, nil
	}

	inner, ok := strings.CutSuffix(e.value[1:], "]")
	if !ok {
		return nil, fmt.Errorf("%w: line %d: unterminated list for %s", ErrInvalidYAML, e.line, e.key)
	}
	items := []string{}
	for _, item := range strings.Split(inner, ",") {
		if item = scalar(item); item != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

// applyDocument copies the known sections into config. Unknown keys are ignored.
func applyDocument(doc *entry, config *Config) error {
	for _, section := range doc.entries {
		var err error
		switch section.key {
		case "network":
			err = applyNetworkConfig(section, &config.Network)
		case "quorum":
			config.Quorum, err = stringList(section)
		case "proposer":
			err = applyProposerConfig(section, &config.Proposer)
		case "acceptor":
			setString(section, "id", &config.Acceptor.ID)
		case "learner":
			err = applyLearnerConfig(section, &config.Learner)
		case "logging":
			setString(section, "level", &config.Logging.Level)
			setString(section, "format", &config.Logging.Format)
			setString(section, "output", &config.Logging.Output)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func applyNetworkConfig(section *entry, config *NetworkConfig) error {
	setString(section, "interface", &config.Interface)
	setString(section, "group", &config.Group)
	for _, e := range section.entries {
		var err error
		switch e.key {
		case "port":
			err = setInt(e, "network.port", &config.Port)
		case "ttl":
			err = setInt(e, "network.ttl", &config.TTL)
		case "bufferSize":
			err = setInt(e, "network.bufferSize", &config.BufferSize)
		case "loopback":
			if e.value != "" {
				config.Loopback = parseBool(e.value)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func applyProposerConfig(section *entry, config *ProposerConfig) error {
	setString(section, "id", &config.ID)
	setString(section, "startMode", &config.StartMode)
	for _, e := range section.entries {
		var err error
		switch e.key {
		case "heartbeat":
			err = setDuration(e, "proposer.heartbeat", &config.Heartbeat)
		case "phaseTimeout":
			err = setDuration(e, "proposer.phaseTimeout", &config.PhaseTimeout)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func applyLearnerConfig(section *entry, config *LearnerConfig) error {
	setString(section, "id", &config.ID)
	for _, e := range section.entries {
		if e.key == "maxDecisions" {
			if err := setInt(e, "learner.maxDecisions", &config.MaxDecisions); err != nil {
				return err
			}
		}
	}
	return nil
}

// setString copies the non-empty value of key in section to dst.
func setString(section *entry, key string, dst *string) {
	for _, e := range section.entries {
		if e.key == key && e.value != "" {
			*dst = e.value
		}
	}
}

func setInt(e *entry, field string, dst *int) error {
	if e.value == "" {
		return nil
	}
	val, err := strconv.Atoi(e.value)
	if err != nil {
		return fmt.Errorf("%w: %s: %q (line %d)", ErrInvalidNumber, field, e.value, e.line)
	}
	*dst = val
	return nil
}

func setDuration(e *entry, field string, dst *time.Duration) error {
	if e.value == "" {
		return nil
	}
	d, err := parseDuration(e.value)
	if err != nil {
		return fmt.Errorf("%w: %s: %q (line %d)", err, field, e.value, e.line)
	}
	*dst = d
	return nil
}

// parseDuration accepts time.ParseDuration syntax and whole days such as "2d".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, ErrInvalidDuration
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, ErrInvalidDuration
	}
	return d, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true
	}
	return false
}
