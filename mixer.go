package main

import (
	"context"
	"errors"
	"strings"
)

// pulseVolumeNorm is the PulseAudio level for 100%
const pulseVolumeNorm = 65536

var errMixerUnsupported = errors.New("mixer not supported on this platform")

// Stream is one volume-controllable endpoint: the default sink, the default
// source, or an application's playback stream.
type Stream struct {
	Kind        StreamKind
	Index       uint32
	Name        string // sink/source name; empty for app streams
	Description string
	AppName     string
	IconName    string
	Level       float64 // loudest channel, raw mixer units
	Muted       bool
}

// Label returns the display name and icon of an app stream, with the
// usual fixes for apps that report unhelpful names or icons.
func (s Stream) Label() (name, icon string) {
	name, icon = s.AppName, s.IconName
	if name == "" {
		name = s.Description
	}
	if len(name) > 2 {
		name = capitalize(name)
	}

	switch name {
	case "Banshee", "Spotify", "Firefox":
		icon = strings.ToLower(name)
	case "Mpv":
		icon = "mpv"
	case "VBox":
		name, icon = "Virtualbox", "virtualbox"
	default:
		if icon == "audio" || icon == "" {
			icon = "audio-x-generic"
		}
	}
	return wrapText(name, 20), icon
}

// Device is a sink or source that can become the default.
type Device struct {
	Kind        StreamKind
	Name        string
	Description string
	Default     bool
}

// MixerSnapshot is the mixer state at one point in time.
type MixerSnapshot struct {
	Output  *Stream // nil when there is no default sink
	Input   *Stream
	Apps    []Stream
	Sinks   []Device
	Sources []Device
}

// NextDevice returns the device after the current default, wrapping around.
func NextDevice(devices []Device) (Device, bool) {
	if len(devices) == 0 {
		return Device{}, false
	}
	for i, d := range devices {
		if d.Default {
			return devices[(i+1)%len(devices)], true
		}
	}
	return devices[0], true
}

// MixerControl reads and changes system volume.
type MixerControl interface {
	Snapshot(ctx context.Context) (MixerSnapshot, error)
	SetVolume(ctx context.Context, s Stream, level float64) error
	SetMute(ctx context.Context, s Stream, muted bool) error
	SetDefault(ctx context.Context, kind StreamKind, name string) error
	// Subscribe calls notify whenever the mixer state changes, until ctx
	// is cancelled or the event source fails.
	Subscribe(ctx context.Context, notify func()) error
}
