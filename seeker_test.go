package main

import (
	"errors"
	"testing"
)

// playingSeeker returns a seeker that is playing with seek support enabled
func playingSeeker(t *testing.T) (*seeker, uint64) {
	t.Helper()
	s := newSeeker("vlc", nil)
	s.SetTrack("/org/mpris/track/1", 300)

	cmds := s.Play()
	if len(cmds) != 1 {
		t.Fatalf("Play() = %v; want one capability query", cmds)
	}
	if _, ok := cmds[0].(cmdQueryCanSeek); !ok {
		t.Fatalf("Play() = %v; want QueryCanSeek", cmds)
	}

	cmds = s.CanSeekReported(true, 1, nil)
	if len(cmds) != 2 {
		t.Fatalf("CanSeekReported() = %v; want position query and tick", cmds)
	}
	if _, ok := cmds[0].(cmdQueryPosition); !ok {
		t.Fatalf("first command = %v; want QueryPosition", cmds[0])
	}
	tick, ok := cmds[1].(cmdScheduleTick)
	if !ok {
		t.Fatalf("second command = %v; want ScheduleTick", cmds[1])
	}
	return s, tick.gen
}

// TestSeekerSeekedZeroUsesPending checks the broken-player workaround
func TestSeekerSeekedZeroUsesPending(t *testing.T) {
	s := newSeeker("banshee", nil)
	s.wantedSeek = 120000000
	s.Seeked(0)
	assertEqual(t, s.Elapsed(), 120.0, "elapsed")
	assertEqual(t, s.PendingSeek(), int64(0), "pending seek cleared")
}

func TestSeekerSeekedNegative(t *testing.T) {
	s := newSeeker("rhythmbox", nil)
	s.currentTime = 42
	s.Seeked(-5)
	assertEqual(t, s.Elapsed(), 0.0, "elapsed")
}

func TestSeekerSeekedPositiveWins(t *testing.T) {
	s := newSeeker("vlc", nil)
	s.SetTrack("t", 300)
	s.wantedSeek = 120000000
	s.Seeked(30000000)
	assertEqual(t, s.Elapsed(), 30.0, "elapsed")
	assertEqual(t, s.PendingSeek(), int64(0), "pending seek cleared")
}

func TestSeekerRequestPosition(t *testing.T) {
	s := newSeeker("vlc", nil)
	s.SetTrack("/org/mpris/track/7", 200)

	cmds := s.RequestPosition(0.6)
	if len(cmds) != 1 {
		t.Fatalf("RequestPosition() = %v", cmds)
	}
	set, ok := cmds[0].(cmdSetPosition)
	if !ok {
		t.Fatalf("command = %v; want SetPosition", cmds[0])
	}
	assertEqual(t, set.trackID, "/org/mpris/track/7", "track id")
	assertEqual(t, set.micros, int64(120000000), "micros")
	assertEqual(t, s.PendingSeek(), int64(120000000), "pending seek")

	// The player echoes 0; the pending value wins.
	s.Seeked(0)
	assertEqual(t, s.Elapsed(), 120.0, "elapsed after echo")
}

func TestSeekerTickInterpolatesAndResyncs(t *testing.T) {
	s, gen := playingSeeker(t)

	for i := 1; i <= resyncTicks; i++ {
		cmds := s.Tick(gen)
		if len(cmds) != 1 {
			t.Fatalf("tick %d: got %v; want only a reschedule", i, cmds)
		}
		assertEqual(t, s.Elapsed(), float64(i), "elapsed")
	}

	cmds := s.Tick(gen)
	if len(cmds) != 2 {
		t.Fatalf("resync tick: got %v; want query and reschedule", cmds)
	}
	if _, ok := cmds[0].(cmdQueryPosition); !ok {
		t.Errorf("resync tick first command = %v; want QueryPosition", cmds[0])
	}
	assertEqual(t, s.Elapsed(), float64(resyncTicks), "elapsed unchanged on resync")

	s.PositionReported(55000000, nil)
	assertEqual(t, s.Elapsed(), 55.0, "elapsed after position reply")

	// Counter restarts after the resync.
	s.Tick(gen)
	assertEqual(t, s.Elapsed(), 56.0, "elapsed after next tick")
}

func TestSeekerPauseCancelsTimer(t *testing.T) {
	s, gen := playingSeeker(t)
	s.Tick(gen)

	if cmds := s.Pause(); cmds != nil {
		t.Errorf("Pause() = %v; want nothing", cmds)
	}
	if cmds := s.Tick(gen); cmds != nil {
		t.Errorf("stale tick = %v; want nothing", cmds)
	}
	assertEqual(t, s.Elapsed(), 1.0, "elapsed kept on pause")
}

func TestSeekerStopResets(t *testing.T) {
	s, gen := playingSeeker(t)
	s.Tick(gen)
	s.Tick(gen)
	s.Stop()
	assertEqual(t, s.Elapsed(), 0.0, "elapsed after stop")
	if cmds := s.Tick(gen); cmds != nil {
		t.Errorf("tick after stop = %v; want nothing", cmds)
	}
}

func TestSeekerCloseIgnoresCallbacks(t *testing.T) {
	s, gen := playingSeeker(t)
	s.Close()
	if cmds := s.Tick(gen); cmds != nil {
		t.Errorf("tick after close = %v", cmds)
	}
	if cmds := s.Play(); cmds != nil {
		t.Errorf("play after close = %v", cmds)
	}
	s.PositionReported(1000000, nil)
	assertEqual(t, s.Elapsed(), 0.0, "elapsed after close")
}

func TestSeekerDenylist(t *testing.T) {
	tests := []struct {
		name  string
		extra []string
		want  bool
	}{
		{"Spotify", nil, true},
		{"Telegram Desktop", nil, true},
		{"VLC media player", nil, false},
		{"Brave", []string{"brave"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSeeker(tt.name, tt.extra)
			assertEqual(t, s.denylisted, tt.want, "denylisted")
			if tt.want {
				if cmds := s.Play(); cmds != nil {
					t.Errorf("denylisted Play() = %v; want no query", cmds)
				}
				s.CanSeekReported(true, 1, nil)
				assertEqual(t, s.CanSeek(), false, "can seek")
			}
		})
	}
}

func TestSeekerRename(t *testing.T) {
	s, gen := playingSeeker(t)
	s.Rename("Spotify", nil)
	assertEqual(t, s.CanSeek(), false, "can seek after rename")
	if cmds := s.Tick(gen); cmds != nil {
		t.Errorf("tick after rename = %v", cmds)
	}
}

func TestSeekerCapabilityGating(t *testing.T) {
	tests := []struct {
		name string
		can  bool
		rate float64
		err  error
		want bool
	}{
		{"normal rate", true, 1, nil, true},
		{"rate absent", true, 0, nil, true},
		{"double speed", true, 2, nil, false},
		{"half speed", true, 0.5, nil, false},
		{"no seek", false, 1, nil, false},
		{"query failed", true, 1, errors.New("timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSeeker("mpv", nil)
			s.Play()
			cmds := s.CanSeekReported(tt.can, tt.rate, tt.err)
			assertEqual(t, s.CanSeek(), tt.want, "can seek")
			if tt.want && len(cmds) != 2 {
				t.Errorf("expected timer start, got %v", cmds)
			}
			if !tt.want && cmds != nil {
				t.Errorf("expected no commands, got %v", cmds)
			}
		})
	}
}

func TestSeekerValueAndClamp(t *testing.T) {
	s := newSeeker("vlc", nil)
	assertEqual(t, s.Value(), 0.0, "value without track")

	s.SetTrack("t", 100)
	s.PositionReported(25000000, nil)
	assertEqual(t, s.Value(), 0.25, "value")

	s.PositionReported(500000000, nil)
	assertEqual(t, s.Elapsed(), 100.0, "clamped to length")

	s.PositionReported(-1, nil)
	assertEqual(t, s.Elapsed(), 0.0, "negative position")

	s.PositionReported(10000000, errors.New("no reply"))
	assertEqual(t, s.Elapsed(), 0.0, "failed query ignored")
}
