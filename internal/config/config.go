// Package config handles loading the user's tkt configuration file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/amonks/tkt/internal/paths"
)

// Config represents ~/.config/tkt/config.toml.
type Config struct {
	// Environment is the environment file used when neither --environment
	// nor TKT_ENVIRONMENT is given.
	Environment string `toml:"environment"`
	// Jobs bounds concurrent repository binding.
	Jobs int `toml:"jobs"`
	// Editors selects editor kinds to render when --editor is not given.
	// Unset renders every configured kind.
	Editors []string `toml:"editors"`
	Hooks   Hooks    `toml:"hooks"`
}

// Hooks are scripts run in the workspace root after a run that bound
// at least one repository.
type Hooks struct {
	// OnCreate runs after tkt new.
	// Can include a shebang line; defaults to bash if not specified.
	OnCreate string `toml:"on-create"`
	// OnUpdate runs after tkt update.
	OnUpdate string `toml:"on-update"`
}

// DefaultPath returns $XDG_CONFIG_HOME/tkt/config.toml, falling back to
// ~/.config/tkt/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tkt", "config.toml"), nil
	}
	homeDir, err := paths.HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tkt", "config.toml"), nil
}

// Load reads the config file at path. A missing file yields an empty config.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("parse config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if cfg.Jobs < 0 {
		return nil, fmt.Errorf("parse config file %s: jobs must not be negative", path)
	}

	cfg.Environment = strings.TrimSpace(cfg.Environment)
	cfg.Hooks.OnCreate = strings.TrimSpace(cfg.Hooks.OnCreate)
	cfg.Hooks.OnUpdate = strings.TrimSpace(cfg.Hooks.OnUpdate)
	return &cfg, nil
}

// RunScript executes a script in the given directory with env appended to
// the process environment. If the script starts with a shebang (#!), that
// interpreter is used. Otherwise, the script is run with /bin/bash.
func RunScript(ctx context.Context, dir, script string, env []string, stdout, stderr io.Writer) error {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil
	}

	interpreter := "/bin/bash"
	scriptBody := script
	if strings.HasPrefix(script, "#!") {
		line, rest, _ := strings.Cut(script, "\n")
		interpreter = strings.TrimSpace(strings.TrimPrefix(line, "#!"))
		scriptBody = rest
	}

	// Parse interpreter and args (e.g., "/usr/bin/env python3" or "/bin/bash -e")
	parts := strings.Fields(interpreter)
	if len(parts) == 0 {
		return fmt.Errorf("empty interpreter in shebang")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = strings.NewReader(scriptBody)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}
