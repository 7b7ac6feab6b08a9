package command

import (
	"fmt"
	"strings"

	"github.com/adamavenir/hark/internal/api"
	"github.com/adamavenir/hark/internal/app"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// reportedError marks an error that has already been printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	switch {
	case errors.Is(err, app.ErrNoToken):
	case isUnauthorized(err):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: The API rejected the token. Try: hark config set token <token>")
	case isSchemaError(err):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: The guild cache looks out of date. Delete hark.db in the data directory to rebuild it.")
	}

	return &reportedError{err: err}
}

func isUnauthorized(err error) bool {
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.Status == 401
}

// isSchemaError checks if an error is a SQLite schema mismatch.
func isSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column")
}
