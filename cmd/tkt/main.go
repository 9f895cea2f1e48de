// Package main implements the tkt CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amonks/tkt/environment"
	"github.com/amonks/tkt/internal/config"
	"github.com/amonks/tkt/internal/logging"
	"github.com/amonks/tkt/internal/paths"
	"github.com/amonks/tkt/internal/state"
	"github.com/spf13/cobra"
)

// environmentVar names the environment file when --environment is absent.
const environmentVar = "TKT_ENVIRONMENT"

var errNoEnvironment = errors.New("no environment file: pass --environment, set " + environmentVar + " or set environment in the config file")

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tkt",
	Short: "Build per-ticket multi-repository workspaces",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch logFormat {
		case "text", "json":
		default:
			return fmt.Errorf("unknown log format %q: use text or json", logFormat)
		}
		logging.Init(logging.LevelForVerbosity(verbosity), logFormat, cmd.ErrOrStderr())

		path, err := paths.ResolveWithDefault(configPath, config.DefaultPath)
		if err != nil {
			return err
		}
		cfg, err := config.Load(paths.ExpandHome(path))
		if err != nil {
			return err
		}
		userConfig = cfg
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath      string
	userConfig      = &config.Config{}
	environmentPath string
	stateDir        string
	logFormat       string
	verbosity       int
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.config/tkt/config.toml)")
	flags.StringVarP(&environmentPath, "environment", "e", "", "environment file (default $"+environmentVar+")")
	flags.StringVar(&stateDir, "state-dir", "", "state directory (default ~/.local/state/tkt)")
	flags.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	flags.CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
}

// resolveEnvironmentPath returns the environment file from the flag, the
// environment variable or the config file, in that order.
func resolveEnvironmentPath() (string, error) {
	path := environmentPath
	if path == "" {
		path = os.Getenv(environmentVar)
	}
	if path == "" {
		path = userConfig.Environment
	}
	if path == "" {
		return "", errNoEnvironment
	}
	return paths.ExpandHome(path), nil
}

func loadEnvironment() (environment.Environment, error) {
	path, err := resolveEnvironmentPath()
	if err != nil {
		return nil, err
	}
	return environment.Load(path)
}

func openStore() (*state.Store, error) {
	dir, err := paths.ResolveWithDefault(stateDir, paths.DefaultStateDir)
	if err != nil {
		return nil, err
	}
	return state.NewStore(dir), nil
}

// resolvePath returns path made absolute against the working directory, or
// the working directory itself when path is empty.
func resolvePath(path string) (string, error) {
	cwd, err := paths.WorkingDir()
	if err != nil {
		return "", err
	}
	if path == "" {
		return cwd, nil
	}
	path = paths.ExpandHome(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	return path, nil
}
