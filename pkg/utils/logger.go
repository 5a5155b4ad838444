// Package utils holds small helpers shared across packages.
package utils

import "go.uber.org/zap"

// NewLogger builds the process logger: human-readable debug output when
// debug is set, JSON at info level otherwise.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
