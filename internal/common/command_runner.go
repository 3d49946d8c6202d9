package common

import (
	"context"
	"time"

	"resumectl/internal/errors"
)

// OperationFunc performs one remote call and returns what the command prints.
type OperationFunc[Output any] func(context.Context) (Output, error)

// RunCommand runs operation, logs its duration, and writes the result in the
// configured format.
func RunCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	name string,
	operation OperationFunc[Output],
) error {
	outputHandler := NewOutputHandler(logger)
	if err := outputHandler.Validate(cmdConfig); err != nil {
		return err
	}

	start := time.Now()
	result, err := operation(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Command completed", "command", name, "duration", time.Since(start))

	return outputHandler.HandleOutput(result, cmdConfig)
}
