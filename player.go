package main

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2"
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// PlaybackStatus mirrors the MPRIS PlaybackStatus property
type PlaybackStatus int

const (
	StatusStopped PlaybackStatus = iota
	StatusPaused
	StatusPlaying
)

func (s PlaybackStatus) String() string {
	switch s {
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

// ParsePlaybackStatus accepts the MPRIS spelling; anything else is Stopped.
func ParsePlaybackStatus(s string) PlaybackStatus {
	switch s {
	case "Playing":
		return StatusPlaying
	case "Paused":
		return StatusPaused
	default:
		return StatusStopped
	}
}

// LoopStatus mirrors the MPRIS LoopStatus property
type LoopStatus int

const (
	LoopNone LoopStatus = iota
	LoopTrack
	LoopPlaylist
)

func (l LoopStatus) String() string {
	switch l {
	case LoopTrack:
		return "Track"
	case LoopPlaylist:
		return "Playlist"
	default:
		return "None"
	}
}

// Next is the loop mode a toggle moves to: None -> Playlist -> Track -> None.
func (l LoopStatus) Next() LoopStatus {
	switch l {
	case LoopNone:
		return LoopPlaylist
	case LoopPlaylist:
		return LoopTrack
	default:
		return LoopNone
	}
}

func ParseLoopStatus(s string) LoopStatus {
	switch s {
	case "Track":
		return LoopTrack
	case "Playlist":
		return LoopPlaylist
	default:
		return LoopNone
	}
}

// Player is one remote-controllable media player known to the registry.
// The owner may be re-keyed on reconnection; id never changes.
type Player struct {
	id      uint64
	BusName string
	Owner   string

	Identity     string
	DesktopEntry string
	CanRaise     bool
	CanQuit      bool

	Status        PlaybackStatus
	Loop          LoopStatus
	HasLoop       bool // player exposes LoopStatus at all
	Shuffle       bool
	HasShuffle    bool
	Rate          float64
	CanGoNext     bool
	CanGoPrevious bool
	Track         Track
	Art           *artwork // nil when the track has no usable art

	seeker    *seeker
	transport PlayerTransport
	ctx       context.Context
	cancel    context.CancelFunc
}

// ID is the registry serial of the player
func (p *Player) ID() uint64 { return p.id }

// DisplayName prefers the MPRIS Identity, then the bus name suffix.
func (p *Player) DisplayName() string {
	if p.Identity != "" {
		return p.Identity
	}
	name := strings.TrimPrefix(p.BusName, mprisPrefix+".")
	return capitalize(name)
}

// StatusLine is "<name> - <status>", as shown above the controls.
func (p *Player) StatusLine() string {
	return p.DisplayName() + " - " + p.Status.String()
}

// close cancels in-flight requests and timers owned by the player
func (p *Player) close() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.seeker != nil {
		p.seeker.Close()
	}
}

// propertyChanges reports which groups of an applied property batch changed.
type propertyChanges struct {
	status   bool
	metadata bool
	controls bool
	identity bool
	rate     bool
	canSeek  *bool

	desktopEntry bool
}

// applyProperties merges an MPRIS property batch (from GetAll or
// PropertiesChanged) into the player. Unknown keys are ignored.
func (p *Player) applyProperties(props map[string]dbus.Variant) propertyChanges {
	var ch propertyChanges

	for key, v := range props {
		switch key {
		case "Identity":
			if s := variantString(v); s != "" {
				p.Identity = s
				ch.identity = true
			}
		case "DesktopEntry":
			if s := variantString(v); s != "" && s != p.DesktopEntry {
				p.DesktopEntry = s
				ch.desktopEntry = true
			}
		case "CanRaise":
			p.CanRaise, _ = variantBool(v)
		case "CanQuit":
			p.CanQuit, _ = variantBool(v)
		case "PlaybackStatus":
			if s := variantString(v); s != "" {
				p.Status = ParsePlaybackStatus(s)
				ch.status = true
			}
		case "LoopStatus":
			if s := variantString(v); s != "" {
				p.Loop = ParseLoopStatus(s)
				p.HasLoop = true
			}
		case "Shuffle":
			if b, ok := variantBool(v); ok {
				p.Shuffle = b
				p.HasShuffle = true
			}
		case "Rate":
			if f, ok := variantFloat(v); ok {
				p.Rate = f
				ch.rate = true
			}
		case "CanGoNext":
			p.CanGoNext, _ = variantBool(v)
			ch.controls = true
		case "CanGoPrevious":
			p.CanGoPrevious, _ = variantBool(v)
			ch.controls = true
		case "CanSeek":
			if b, ok := variantBool(v); ok {
				ch.canSeek = &b
			}
		case "Metadata":
			if md, ok := v.Value().(map[string]dbus.Variant); ok {
				p.Track = ParseMetadata(md)
				ch.metadata = true
			}
		}
	}
	return ch
}
