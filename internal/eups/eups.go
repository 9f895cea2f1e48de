// Package eups writes metapackage tables and declares them with EUPS.
package eups

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/amonks/tkt/internal/state"
	internalstrings "github.com/amonks/tkt/internal/strings"
	"github.com/amonks/tkt/metapackage"
)

// DefaultShell runs declaration scripts when none is configured.
const DefaultShell = "/bin/bash"

// Options configures a Declarer.
type Options struct {
	// PackageRoot is exported as EUPS_PATH when set.
	PackageRoot string
	// Prelude is shell source run before eups, typically sourcing loadLSST.
	Prelude string
	// Shell interprets the declaration script. A script prelude starting
	// with a shebang overrides it.
	Shell string
	// Declare runs eups declare after writing the table.
	Declare bool
	DryRun  bool
	Logger  *slog.Logger
}

// Declarer writes the table file into the workspace and optionally runs
// eups declare against it.
type Declarer struct {
	opts   Options
	logger *slog.Logger
}

// New returns a Declarer.
func New(opts Options) *Declarer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Declarer{opts: opts, logger: logger}
}

// Declare implements metapackage.Declarer.
func (d *Declarer) Declare(ctx context.Context, desc *metapackage.Descriptor) error {
	path := filepath.Join(desc.Root, desc.TablePath())
	if d.opts.DryRun {
		d.logger.Info("would write table", "path", path)
		return nil
	}
	if err := WriteTable(desc); err != nil {
		return err
	}
	d.logger.Info("wrote table", "path", path)

	if !d.opts.Declare {
		return nil
	}
	script := DeclareScript(d.opts.Prelude, desc)
	d.logger.Debug("declaring", "product", desc.Name, "version", Version(desc))
	if err := d.run(ctx, desc.Root, script); err != nil {
		return fmt.Errorf("eups declare %s: %w", desc.Name, err)
	}
	return nil
}

// WriteTable writes the descriptor's table under its root.
func WriteTable(desc *metapackage.Descriptor) error {
	path := filepath.Join(desc.Root, desc.TablePath())
	if err := state.WriteFileAtomic(path, desc.Table()); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// Version is the EUPS version a ticket metapackage is declared as.
func Version(desc *metapackage.Descriptor) string {
	return "tkt-" + internalstrings.SanitizeRefComponent(strings.ReplaceAll(desc.Ticket, "/", "-"))
}

// DeclareScript returns the shell script that declares desc, replacing any
// existing declaration of the same version.
func DeclareScript(prelude string, desc *metapackage.Descriptor) string {
	var b strings.Builder
	if prelude = strings.TrimSpace(prelude); prelude != "" {
		b.WriteString(prelude)
		b.WriteString("\n")
	}
	version := Version(desc)
	fmt.Fprintf(&b, "eups undeclare %s %s >/dev/null 2>&1 || true\n", shellQuote(desc.Name), shellQuote(version))
	fmt.Fprintf(&b, "eups declare -r %s %s %s\n", shellQuote(desc.Root), shellQuote(desc.Name), shellQuote(version))
	return b.String()
}

func (d *Declarer) run(ctx context.Context, dir, script string) error {
	interpreter := d.opts.Shell
	if interpreter == "" {
		interpreter = DefaultShell
	}
	body := script
	if strings.HasPrefix(script, "#!") {
		lines := strings.SplitN(script, "\n", 2)
		interpreter = strings.TrimSpace(strings.TrimPrefix(lines[0], "#!"))
		body = ""
		if len(lines) > 1 {
			body = lines[1]
		}
	}

	parts := strings.Fields(interpreter)
	if len(parts) == 0 {
		return fmt.Errorf("empty interpreter in shebang")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(body)
	cmd.Env = os.Environ()
	if d.opts.PackageRoot != "" {
		cmd.Env = append(cmd.Env, "EUPS_PATH="+d.opts.PackageRoot)
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(output.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func shellQuote(value string) string {
	if value != "" && strings.IndexFunc(value, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:@+", r))
	}) < 0 {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
