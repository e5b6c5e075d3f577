//go:build !linux

package main

import (
	"log/slog"
)

// NewMixer creates a mixer for the current platform
func NewMixer(logger *slog.Logger) (MixerControl, error) {
	return nil, errMixerUnsupported
}
