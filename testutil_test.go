package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
)

// generateTestImage creates a simple test image with specified dimensions and colors
// Useful for testing artwork processing functions
func generateTestImage(width, height int, fillColor color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Fill image with the specified color
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}

	return img
}

// generateGradientImage creates a gradient test image for color extraction testing
func generateGradientImage(width, height int, startColor, endColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		ratio := float64(y) / float64(height)
		r := uint8(float64(startColor.R)*(1-ratio) + float64(endColor.R)*ratio)
		g := uint8(float64(startColor.G)*(1-ratio) + float64(endColor.G)*ratio)
		b := uint8(float64(startColor.B)*(1-ratio) + float64(endColor.B)*ratio)

		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}

	return img
}

// assertError is a test helper that checks if an error occurred and fails the test if not
func assertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected error: %s, got nil", msg)
	}
}

// assertNoError is a test helper that fails the test if an error occurred
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// assertEqual is a generic test helper for comparing values
func assertEqual(t *testing.T, got, want interface{}, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

// isValidHexColor checks if a string is a valid hex color (e.g., "#RRGGBB")
func isValidHexColor(color string) bool {
	if len(color) != 7 {
		return false
	}
	if color[0] != '#' {
		return false
	}
	for i := 1; i < 7; i++ {
		c := color[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// fakeTransport records the calls made against one player
type fakeTransport struct {
	mu       sync.Mutex
	calls    []string
	canSeek  bool
	position int64
	props    map[string]dbus.Variant
	err      error
}

func (f *fakeTransport) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeTransport) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTransport) PlayPause(ctx context.Context) error { return f.record("PlayPause") }
func (f *fakeTransport) Stop(ctx context.Context) error      { return f.record("Stop") }
func (f *fakeTransport) Next(ctx context.Context) error      { return f.record("Next") }
func (f *fakeTransport) Previous(ctx context.Context) error  { return f.record("Previous") }
func (f *fakeTransport) Raise(ctx context.Context) error     { return f.record("Raise") }
func (f *fakeTransport) Quit(ctx context.Context) error      { return f.record("Quit") }

func (f *fakeTransport) SetPosition(ctx context.Context, trackID string, micros int64) error {
	return f.record(fmt.Sprintf("SetPosition(%s,%d)", trackID, micros))
}

func (f *fakeTransport) SetLoopStatus(ctx context.Context, loop LoopStatus) error {
	return f.record("SetLoopStatus(" + loop.String() + ")")
}

func (f *fakeTransport) SetShuffle(ctx context.Context, shuffle bool) error {
	return f.record(fmt.Sprintf("SetShuffle(%t)", shuffle))
}

func (f *fakeTransport) Position(ctx context.Context) (int64, error) {
	return f.position, f.record("Position")
}

func (f *fakeTransport) CanSeek(ctx context.Context) (bool, error) {
	return f.canSeek, f.record("CanSeek")
}

func (f *fakeTransport) Properties(ctx context.Context) (map[string]dbus.Variant, error) {
	return f.props, f.record("Properties")
}

// fakeDiscovery hands out one fakeTransport per bus name
type fakeDiscovery struct {
	players    []BusName
	transports map[string]*fakeTransport
}

func newFakeDiscovery(players ...BusName) *fakeDiscovery {
	return &fakeDiscovery{players: players, transports: make(map[string]*fakeTransport)}
}

func (d *fakeDiscovery) ListPlayers(ctx context.Context) ([]BusName, error) {
	return d.players, nil
}

func (d *fakeDiscovery) Watch(ctx context.Context, send func(tea.Msg)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d *fakeDiscovery) Player(busName string) PlayerTransport {
	t, ok := d.transports[busName]
	if !ok {
		t = &fakeTransport{canSeek: true}
		d.transports[busName] = t
	}
	return t
}

func (d *fakeDiscovery) Close() error { return nil }

// fakeMixer serves a fixed snapshot and records changes
type fakeMixer struct {
	mu    sync.Mutex
	snap  MixerSnapshot
	calls []string
	err   error
}

func (f *fakeMixer) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeMixer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeMixer) Snapshot(ctx context.Context) (MixerSnapshot, error) {
	return f.snap, f.record("Snapshot")
}

func (f *fakeMixer) SetVolume(ctx context.Context, s Stream, level float64) error {
	return f.record(fmt.Sprintf("SetVolume(%s,%d,%.0f)", s.Kind, s.Index, level))
}

func (f *fakeMixer) SetMute(ctx context.Context, s Stream, muted bool) error {
	return f.record(fmt.Sprintf("SetMute(%s,%d,%t)", s.Kind, s.Index, muted))
}

func (f *fakeMixer) SetDefault(ctx context.Context, kind StreamKind, name string) error {
	return f.record(fmt.Sprintf("SetDefault(%s,%s)", kind, name))
}

func (f *fakeMixer) Subscribe(ctx context.Context, notify func()) error {
	<-ctx.Done()
	return ctx.Err()
}
