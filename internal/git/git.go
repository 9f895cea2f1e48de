// Package git provides a wrapper around the git CLI tool.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client wraps the git CLI.
type Client struct{}

// ErrAmbiguousRemoteBranch indicates a branch exists on more than one remote.
var ErrAmbiguousRemoteBranch = errors.New("branch found on multiple remotes")

// New creates a new git client.
func New() *Client {
	return &Client{}
}

func command(ctx context.Context, dir string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return cmd
}

func commandOutput(cmd *exec.Cmd, context string) ([]byte, error) {
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s: %w: %s", context, err, bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s: %w", context, err)
	}
	return output, nil
}

func commandOutputString(cmd *exec.Cmd, context string) (string, error) {
	output, err := commandOutput(cmd, context)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

func runCombinedOutput(cmd *exec.Cmd, context string) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", context, err, bytes.TrimSpace(output))
	}
	return nil
}

func splitLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Exists reports whether path holds a git working copy.
func (c *Client) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// Clone clones url into dest. The parent of dest must exist.
func (c *Client) Clone(ctx context.Context, url, dest string) error {
	return runCombinedOutput(command(ctx, filepath.Dir(dest), "clone", "--quiet", url, dest), "git clone")
}

// CurrentBranch returns the checked-out branch, or "" for a detached HEAD.
func (c *Client) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	cmd := command(ctx, repoPath, "symbolic-ref", "--quiet", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", fmt.Errorf("git symbolic-ref: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// HasBranch reports whether a local branch exists.
func (c *Client) HasBranch(ctx context.Context, repoPath, branch string) (bool, error) {
	cmd := command(ctx, repoPath, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("git show-ref: %w", err)
	}
	return true, nil
}

// Remotes returns the configured remote names.
func (c *Client) Remotes(ctx context.Context, repoPath string) ([]string, error) {
	output, err := commandOutputString(command(ctx, repoPath, "remote"), "git remote")
	if err != nil {
		return nil, err
	}
	return splitLines(output), nil
}

// RemotesWithBranch returns the remotes that have a ref for branch.
func (c *Client) RemotesWithBranch(ctx context.Context, repoPath, branch string) ([]string, error) {
	remotes, err := c.Remotes(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	var found []string
	for _, remote := range remotes {
		ref := "refs/remotes/" + remote + "/" + branch
		cmd := command(ctx, repoPath, "show-ref", "--verify", "--quiet", ref)
		if err := cmd.Run(); err == nil {
			found = append(found, remote)
		}
	}
	return found, nil
}

// CreateBranch creates a local branch without checking it out.
//
// When exactly one remote already has the branch, the new local branch tracks
// it. When none does, the branch starts at baseRef. When several do, no
// branch is created and ErrAmbiguousRemoteBranch is returned.
func (c *Client) CreateBranch(ctx context.Context, repoPath, branch, baseRef string) error {
	remotes, err := c.RemotesWithBranch(ctx, repoPath, branch)
	if err != nil {
		return err
	}
	switch len(remotes) {
	case 0:
		return runCombinedOutput(command(ctx, repoPath, "branch", "--no-track", branch, baseRef), "git branch")
	case 1:
		upstream := remotes[0] + "/" + branch
		return runCombinedOutput(command(ctx, repoPath, "branch", "--track", branch, upstream), "git branch")
	default:
		return fmt.Errorf("%w: %s on %s", ErrAmbiguousRemoteBranch, branch, strings.Join(remotes, ", "))
	}
}

// Checkout switches the working copy to branch.
func (c *Client) Checkout(ctx context.Context, repoPath, branch string) error {
	return runCombinedOutput(command(ctx, repoPath, "checkout", "--quiet", branch), "git checkout")
}

// RevParse resolves rev to a commit id.
func (c *Client) RevParse(ctx context.Context, repoPath, rev string) (string, error) {
	return commandOutputString(command(ctx, repoPath, "rev-parse", "--verify", rev+"^{commit}"), "git rev-parse")
}
