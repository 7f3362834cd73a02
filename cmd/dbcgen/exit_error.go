// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbcgen/dbcgen/internal/batch"
	"github.com/dbcgen/dbcgen/internal/discovery"
	"github.com/dbcgen/dbcgen/internal/issue"
	"github.com/dbcgen/dbcgen/pkg/types"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// classifyBatchError maps a fatal batch condition to its exit code and the
// catalog entry that explains it.
func classifyBatchError(err error) (types.ExitCode, issue.Id) {
	switch {
	case errors.Is(err, context.Canceled):
		return types.ExitInterrupted, 0
	case errors.Is(err, discovery.ErrRootUnreadable):
		return types.ExitNoInput, issue.RootUnreadableId
	case errors.Is(err, batch.ErrOutputDirInvalid):
		return types.ExitCantCreate, issue.OutputDirInvalidId
	case errors.Is(err, batch.ErrIndexRender):
		return types.ExitSoftware, issue.IndexRenderFailedId
	case errors.Is(err, batch.ErrCreateDestination):
		return types.ExitIOErr, issue.DestinationCreateFailedId
	case errors.Is(err, batch.ErrModuleCollision):
		return types.ExitDataErr, issue.ModuleCollisionId
	default:
		return types.ExitFailure, 0
	}
}
