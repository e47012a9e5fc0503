// Package observability wires structured logging for the service.
package observability

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. Development mode uses the
// console encoder; production emits JSON.
func NewLogger(development bool) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if development {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}
