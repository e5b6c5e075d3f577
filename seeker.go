package main

import (
	"fmt"
	"math"
	"strings"
)

// Players that advertise CanSeek but never report a usable position.
var playersWithoutSeekSupport = []string{
	"telegram desktop",
	"spotify",
	"totem",
	"xplayer",
	"gnome-mplayer",
	"pithos",
	"smplayer",
}

// resyncTicks is how many one-second ticks are estimated locally before the
// position is queried again.
const resyncTicks = 10

// seekCommand is a side effect requested by the seeker. The event loop runs
// it asynchronously and feeds the reply back in.
type seekCommand interface {
	fmt.Stringer
	seekCommand()
}

type cmdQueryCanSeek struct{}

func (cmdQueryCanSeek) seekCommand()   {}
func (cmdQueryCanSeek) String() string { return "QueryCanSeek()" }

type cmdQueryPosition struct{}

func (cmdQueryPosition) seekCommand()  {}
func (cmdQueryPosition) String() string { return "QueryPosition()" }

// cmdScheduleTick asks for Tick(gen) one second from now
type cmdScheduleTick struct {
	gen uint64
}

func (cmdScheduleTick) seekCommand() {}
func (c cmdScheduleTick) String() string {
	return fmt.Sprintf("ScheduleTick(gen=%d)", c.gen)
}

type cmdSetPosition struct {
	trackID string
	micros  int64
}

func (cmdSetPosition) seekCommand() {}
func (c cmdSetPosition) String() string {
	return fmt.Sprintf("SetPosition(track=%s, us=%d)", c.trackID, c.micros)
}

// seeker tracks the playback position of one player.
//
// Many players only publish Position when asked, so while playing the
// elapsed time is advanced locally once a second and re-synced from the
// player every resyncTicks ticks.
type seeker struct {
	playerName string
	denylisted bool

	status  PlaybackStatus
	canSeek bool

	currentTime float64 // seconds
	length      float64 // seconds
	trackID     string
	wantedSeek  int64 // microseconds, 0 when no seek is pending

	ticker  int
	ticking bool
	gen     uint64 // tick handle; bumping it cancels the running timer
	closed  bool
}

// newSeeker creates a tracker for a player. extraNoSeek extends the
// built-in list of players whose seek support is broken.
func newSeeker(playerName string, extraNoSeek []string) *seeker {
	name := strings.ToLower(playerName)
	s := &seeker{playerName: name}
	s.denylisted = containsFold(playersWithoutSeekSupport, name) || containsFold(extraNoSeek, name)
	return s
}

// Rename updates the player name used for the denylist check, as the
// MPRIS Identity may only arrive after the player was created.
func (s *seeker) Rename(playerName string, extraNoSeek []string) {
	fresh := newSeeker(playerName, extraNoSeek)
	s.playerName = fresh.playerName
	s.denylisted = fresh.denylisted
	if s.denylisted {
		s.canSeek = false
		s.cancelTimer()
	}
}

// Start performs the initial capability check.
func (s *seeker) Start() []seekCommand {
	return s.checkCanSeek()
}

func (s *seeker) Play() []seekCommand {
	s.status = StatusPlaying
	return s.checkCanSeek()
}

func (s *seeker) Pause() []seekCommand {
	s.status = StatusPaused
	return s.updateTimer()
}

func (s *seeker) Stop() []seekCommand {
	s.status = StatusStopped
	return s.updateTimer()
}

// SetStatus routes a PlaybackStatus change to Play, Pause or Stop.
func (s *seeker) SetStatus(status PlaybackStatus) []seekCommand {
	switch status {
	case StatusPlaying:
		return s.Play()
	case StatusPaused:
		return s.Pause()
	default:
		return s.Stop()
	}
}

func (s *seeker) checkCanSeek() []seekCommand {
	if s.closed {
		return nil
	}
	if s.denylisted {
		s.canSeek = false
		s.cancelTimer()
		return nil
	}
	return []seekCommand{cmdQueryCanSeek{}}
}

// CanSeekReported applies the answer to a QueryCanSeek. A failed query
// counts as no seek support. A rate of 0 means unknown (or paused); any
// other rate than 1 hides seeking.
func (s *seeker) CanSeekReported(canSeek bool, rate float64, err error) []seekCommand {
	if s.closed {
		return nil
	}
	if err != nil || s.denylisted {
		canSeek = false
	}
	if canSeek && (rate == 1 || rate == 0) {
		s.canSeek = true
		return s.updateTimer()
	}
	s.canSeek = false
	s.cancelTimer()
	return nil
}

func (s *seeker) cancelTimer() {
	if s.ticking {
		s.gen++
		s.ticking = false
	}
}

func (s *seeker) updateTimer() []seekCommand {
	s.cancelTimer()
	if s.closed {
		return nil
	}

	if s.status == StatusPlaying {
		if !s.canSeek {
			return nil
		}
		s.ticker = 0
		s.ticking = true
		s.gen++
		return []seekCommand{cmdQueryPosition{}, cmdScheduleTick{gen: s.gen}}
	}

	if s.status == StatusStopped {
		s.currentTime = 0
	}
	return nil
}

// Tick is the one-second timer callback. Ticks from a cancelled handle
// are ignored.
func (s *seeker) Tick(gen uint64) []seekCommand {
	if s.closed || !s.ticking || gen != s.gen {
		return nil
	}
	if s.status != StatusPlaying {
		s.ticking = false
		return nil
	}

	var cmds []seekCommand
	if s.ticker < resyncTicks {
		s.setTime(s.currentTime + 1)
		s.ticker++
	} else {
		s.ticker = 0
		cmds = append(cmds, cmdQueryPosition{})
	}
	return append(cmds, cmdScheduleTick{gen: gen})
}

// SetTrack resets the position for a new track.
func (s *seeker) SetTrack(trackID string, length float64) {
	s.trackID = trackID
	s.length = length
	s.currentTime = 0
}

// PositionReported applies a Position query reply (microseconds).
func (s *seeker) PositionReported(micros int64, err error) {
	if err != nil || s.closed {
		return
	}
	if micros < 0 {
		micros = 0
	}
	s.setTime(float64(micros) / 1e6)
}

// Seeked handles the player's Seeked signal. Some players report 0 on
// every seek, so a pending local request wins over a zero; negative
// reports become 0.
func (s *seeker) Seeked(micros int64) {
	switch {
	case micros > 0:
		s.setTime(float64(micros) / 1e6)
	case s.wantedSeek > 0:
		s.setTime(float64(s.wantedSeek) / 1e6)
	default:
		s.setTime(0)
	}
	s.wantedSeek = 0
}

// RequestPosition seeks to value (0..1 of the track length). The track id
// is passed through as-is; the player ignores requests for a stale id.
func (s *seeker) RequestPosition(value float64) []seekCommand {
	if s.closed {
		return nil
	}
	value = math.Max(0, math.Min(1, value))
	micros := int64(math.Round(value * s.length * 1e6))
	s.wantedSeek = micros
	return []seekCommand{cmdSetPosition{trackID: s.trackID, micros: micros}}
}

func (s *seeker) setTime(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if s.length > 0 && seconds > s.length {
		seconds = s.length
	}
	s.currentTime = seconds
}

// Close cancels the timer; later callbacks become no-ops.
func (s *seeker) Close() {
	s.cancelTimer()
	s.closed = true
}

// Value is the slider position, 0 when the length is unknown.
func (s *seeker) Value() float64 {
	if s.length > 0 && s.currentTime > 0 {
		return s.currentTime / s.length
	}
	return 0
}

func (s *seeker) Elapsed() float64   { return s.currentTime }
func (s *seeker) Length() float64    { return s.length }
func (s *seeker) CanSeek() bool      { return s.canSeek }
func (s *seeker) TrackID() string    { return s.trackID }
func (s *seeker) PendingSeek() int64 { return s.wantedSeek }

func containsFold(list []string, name string) bool {
	for _, n := range list {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
