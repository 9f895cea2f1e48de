package workspace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRepositories indicates an empty repository request.
	ErrNoRepositories = errors.New("no repositories requested")
	// ErrDuplicateRepository indicates a repository was requested twice.
	ErrDuplicateRepository = errors.New("duplicate repository")
	// ErrBindFailed indicates at least one repository failed to bind.
	ErrBindFailed = errors.New("repositories failed to bind")
	// ErrNoDescription indicates a directory holds no workspace description.
	ErrNoDescription = errors.New("no workspace description")
)

// UnknownRepositoryError lists requested names absent from the environment.
type UnknownRepositoryError struct {
	Names []string
}

func (e *UnknownRepositoryError) Error() string {
	return fmt.Sprintf("unknown repositories: %s", strings.Join(e.Names, ", "))
}

// Step names the part of binding a repository that failed.
type Step string

const (
	StepClone    Step = "clone"
	StepInspect  Step = "inspect"
	StepBranch   Step = "branch"
	StepCheckout Step = "checkout"
)

// RepositoryBindError records why one repository could not be bound.
type RepositoryBindError struct {
	Repository string
	Step       Step
	Err        error
}

func (e *RepositoryBindError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Repository, e.Step, e.Err)
}

func (e *RepositoryBindError) Unwrap() error {
	return e.Err
}
