package das2

import (
	"os"
	"strconv"

	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
)

// Options configures PacketReader. Struct tags follow this codebase's
// elastic/go-ucfg configuration convention so Options can be loaded directly
// from a YAML document.
type Options struct {
	// Strict controls two orthogonal checks (SPEC_FULL.md §9): rejecting
	// legacy fixed-tag frames when the detected version is 3.0, and
	// rejecting headers missing required attributes during length
	// derivation.
	Strict bool `config:"strict"`

	// PeekSize bounds the initial non-destructive lookahead used for
	// stream-identity detection. The wire format only ever needs 80 bytes;
	// this is exposed for tests and unusually short streams.
	PeekSize int `config:"peek_size"`
}

// DefaultOptions returns the non-strict, production-safe defaults.
func DefaultOptions() Options {
	return Options{Strict: false, PeekSize: 80}
}

// LoadOptions reads Options from a YAML configuration file.
func LoadOptions(path string) (Options, error) {
	opt := DefaultOptions()
	cfg, err := yaml.NewConfigWithFile(path, ucfg.PathSep("."))
	if err != nil {
		return opt, err
	}
	if err := cfg.Unpack(&opt); err != nil {
		return opt, err
	}
	if opt.PeekSize <= 0 {
		opt.PeekSize = 80
	}
	return opt, nil
}

// OptionsFromEnv builds Options from DAS2_STRICT / DAS2_PEEK_SIZE
// environment variables, falling back to DefaultOptions for anything unset
// or unparsable.
func OptionsFromEnv() Options {
	opt := DefaultOptions()
	opt.Strict = boolFromEnvDefault("DAS2_STRICT", opt.Strict)
	opt.PeekSize = intFromEnvDefault("DAS2_PEEK_SIZE", opt.PeekSize)
	return opt
}

func boolFromEnvDefault(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func intFromEnvDefault(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
