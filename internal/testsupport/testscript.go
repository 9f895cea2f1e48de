package testsupport

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce sync.Once
	tktPath   string
	buildErr  error
)

// BuildTkt builds the tkt binary once and returns its path.
func BuildTkt(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "tkt-bin-")
		if err != nil {
			buildErr = err
			return
		}

		tktPath = filepath.Join(binDir, "tkt")
		cmd := exec.Command("go", "build", "-o", tktPath, "./cmd/tkt")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build tkt: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return tktPath
}

// SetupScriptEnv configures common environment variables for testscript.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("TKT", BuildTkt(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := EnsureHomeDirs(homeDir); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("NO_COLOR", "1")
	env.Setenv("TKT_ENVIRONMENT", "")
	env.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(homeDir, ".gitconfig"))
	env.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	return os.WriteFile(filepath.Join(homeDir, ".gitconfig"), []byte(gitConfig), 0o644)
}

const gitConfig = `[user]
	name = tkt test
	email = tkt@example.com
[init]
	defaultBranch = main
`

// CmdEnvSet stores the trimmed contents of a file in an env var.
func CmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}

	value := strings.TrimSpace(ts.ReadFile(args[1]))
	ts.Setenv(args[0], value)
}

// CmdExpandFile writes DST from SRC with every $VAR expanded, so
// environment files can name paths under $WORK.
func CmdExpandFile(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("expandfile does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: expandfile SRC DST")
	}

	content := os.Expand(ts.ReadFile(args[0]), ts.Getenv)
	dst := ts.MkAbs(args[1])
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		ts.Fatalf("mkdir for %s: %v", args[1], err)
	}
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		ts.Fatalf("write %s: %v", args[1], err)
	}
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", dir)
		}
		dir = parent
	}
}
