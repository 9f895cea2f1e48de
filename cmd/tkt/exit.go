package main

import (
	"fmt"

	"github.com/amonks/tkt/ticket"
)

type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e exitError) ExitCode() int {
	return e.code
}

func (e exitError) Unwrap() error {
	return e.err
}

// exitFromResult maps a finished run to the process exit status. The
// summary has already been printed, so a partial run exits quietly.
func exitFromResult(result *ticket.Result) error {
	switch code := result.ExitCode(); code {
	case 0:
		return nil
	case 2:
		return exitError{code: code}
	default:
		return exitError{code: code, err: result.Err}
	}
}
