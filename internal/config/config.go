// Package config loads engine defaults the way the teacher's CLI loads
// its own configuration: a Viper singleton, searching project-local,
// XDG, and home-directory locations in order, with DELTA_-prefixed
// environment overrides (spec §6's KOZEN_DELTA_* table, renamed).
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults holds the engine-wide defaults a Request is seeded from
// before CLI flags or explicit call-site overrides apply.
type Defaults struct {
	Path       string
	Extension  string
	Runner     string
	Tracker    string
	Prefix     string
	Tag        string
	Stat       bool
	Key        string // KOZEN_DELTA_KEY equivalent, env DELTA_KEY
	LockWait   time.Duration
}

var v *viper.Viper

// Initialize sets up the Viper singleton. Safe to call more than once;
// later calls re-run discovery (mirrors the teacher's Initialize, which
// is also called once at startup by convention rather than guarded with
// sync.Once, since re-running it is itself idempotent).
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".delta", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(configDir, "delta", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	if !configFileSet {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".delta", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("DELTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("path", ".")
	v.SetDefault("extension", "js")
	v.SetDefault("runner", "mdb")
	v.SetDefault("tracker", "mdb")
	v.SetDefault("prefix", "delta:migration:")
	v.SetDefault("tag", "")
	v.SetDefault("stat", false)
	v.SetDefault("key", "delta:migration:")
	v.SetDefault("lock-wait", "5s")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return nil
}

// Load returns the current Defaults. Initialize must be called first.
func Load() Defaults {
	lockWait, err := time.ParseDuration(v.GetString("lock-wait"))
	if err != nil {
		lockWait = 5 * time.Second
	}
	return Defaults{
		Path:      v.GetString("path"),
		Extension: v.GetString("extension"),
		Runner:    v.GetString("runner"),
		Tracker:   v.GetString("tracker"),
		Prefix:    v.GetString("prefix"),
		Tag:       v.GetString("tag"),
		Stat:      v.GetBool("stat"),
		Key:       v.GetString("key"),
		LockWait:  lockWait,
	}
}

// LoadFile reads Defaults from an explicit YAML or TOML file, bypassing
// the Viper singleton and its discovery search path. The delta CLI does
// not call it; its commands load defaults through Initialize/Load.
// Format is sniffed from the extension; TOML support exists for
// operators migrating configuration from the wider BurntSushi/toml
// ecosystem rather than Viper's native YAML.
func LoadFile(path string) (Defaults, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, err
	}

	var fileDefaults struct {
		Path      string `yaml:"path" toml:"path"`
		Extension string `yaml:"extension" toml:"extension"`
		Runner    string `yaml:"runner" toml:"runner"`
		Tracker   string `yaml:"tracker" toml:"tracker"`
		Prefix    string `yaml:"prefix" toml:"prefix"`
		Tag       string `yaml:"tag" toml:"tag"`
		Stat      bool   `yaml:"stat" toml:"stat"`
		Key       string `yaml:"key" toml:"key"`
		LockWait  string `yaml:"lock-wait" toml:"lock-wait"`
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(raw), &fileDefaults); err != nil {
			return Defaults{}, err
		}
	default:
		if err := yaml.Unmarshal(raw, &fileDefaults); err != nil {
			return Defaults{}, err
		}
	}

	lockWait, err := time.ParseDuration(fileDefaults.LockWait)
	if err != nil {
		lockWait = 5 * time.Second
	}

	return Defaults{
		Path:      fileDefaults.Path,
		Extension: fileDefaults.Extension,
		Runner:    fileDefaults.Runner,
		Tracker:   fileDefaults.Tracker,
		Prefix:    fileDefaults.Prefix,
		Tag:       fileDefaults.Tag,
		Stat:      fileDefaults.Stat,
		Key:       fileDefaults.Key,
		LockWait:  lockWait,
	}, nil
}
