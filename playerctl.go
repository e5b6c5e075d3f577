package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// artURLLookup asks an external tool for a player's current art URL.
// Some players fill mpris:artUrl only after the track change signal.
type artURLLookup func(ctx context.Context, busName string) (string, error)

// playerctlName converts an MPRIS bus name to the name playerctl expects
func playerctlName(busName string) string {
	return strings.TrimPrefix(busName, mprisPrefix+".")
}

// playerctlArtURL runs `playerctl -p <player> metadata mpris:artUrl`
func playerctlArtURL(ctx context.Context, busName string) (string, error) {
	cmd := exec.CommandContext(ctx, "playerctl", "-p", playerctlName(busName), "metadata", "mpris:artUrl")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("playerctl metadata failed: %w", err)
	}

	artURL := strings.TrimSpace(out.String())
	if artURL == "" {
		return "", errNoArtwork
	}
	return artURL, nil
}
