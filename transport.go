package main

import (
	"context"

	"github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
)

// PlayerTransport is the remote-control surface of one MPRIS player.
// Every call may block on a bus round trip, so the event loop only ever
// invokes it from a tea.Cmd.
type PlayerTransport interface {
	PlayPause(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Raise(ctx context.Context) error
	Quit(ctx context.Context) error
	SetPosition(ctx context.Context, trackID string, micros int64) error
	SetLoopStatus(ctx context.Context, loop LoopStatus) error
	SetShuffle(ctx context.Context, shuffle bool) error

	Position(ctx context.Context) (int64, error)
	CanSeek(ctx context.Context) (bool, error)
	// Properties returns the merged property sets of the root and Player
	// interfaces.
	Properties(ctx context.Context) (map[string]dbus.Variant, error)
}

// BusName is an MPRIS name together with its current owner.
type BusName struct {
	Name  string
	Owner string
}

// Discovery enumerates MPRIS players and reports their comings and goings.
type Discovery interface {
	ListPlayers(ctx context.Context) ([]BusName, error)
	// Watch forwards bus signals as messages until ctx is cancelled.
	Watch(ctx context.Context, send func(tea.Msg)) error
	Player(busName string) PlayerTransport
	Close() error
}

// Messages produced by Discovery.Watch

type nameOwnerChangedMsg struct {
	name     string
	oldOwner string
	newOwner string
}

type propertiesChangedMsg struct {
	owner   string
	iface   string
	changed map[string]dbus.Variant
}

type seekedMsg struct {
	owner  string
	micros int64
}
