package cmd

import (
	"errors"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

// Exit codes for quartz CLI
const (
	// ExitSuccess indicates the command completed
	ExitSuccess = 0

	// ExitFailure indicates an error without a more specific code
	ExitFailure = 1

	// ExitNotFound indicates a missing endpoint, scope, history entry or field
	ExitNotFound = 2

	// ExitConfigError indicates a configuration or persistence error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage or input
	ExitUsageError = 64
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errdef.ErrTransport), errors.Is(err, errdef.ErrTooManyRedirects):
		return ExitNetworkError
	case errors.Is(err, errdef.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, errdef.ErrPersistence):
		return ExitConfigError
	case errors.Is(err, errdef.ErrMalformedInput), errors.Is(err, errdef.ErrAlreadyExists), isUsageError(err):
		return ExitUsageError
	}
	return ExitFailure
}

// isUsageError recognizes the argument and flag errors produced by cobra,
// which are plain strings.
func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "accepts ", "requires at least", "requires at most", "invalid argument", "flag needs an argument"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
