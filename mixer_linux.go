//go:build linux

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// PactlMixer implements MixerControl on top of the pactl CLI, which talks
// to PulseAudio and PipeWire's pulse server alike.
type PactlMixer struct {
	logger *slog.Logger
}

// NewMixer creates a mixer for the current platform
func NewMixer(logger *slog.Logger) (MixerControl, error) {
	if _, err := exec.LookPath("pactl"); err != nil {
		return nil, fmt.Errorf("pactl not found: %w", err)
	}
	return &PactlMixer{logger: logger}, nil
}

type pactlVolume struct {
	Value int64 `json:"value"`
}

type pactlDevice struct {
	Index       uint32                 `json:"index"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Mute        bool                   `json:"mute"`
	Volume      map[string]pactlVolume `json:"volume"`
	Properties  map[string]string      `json:"properties"`
}

type pactlSinkInput struct {
	Index      uint32                 `json:"index"`
	Mute       bool                   `json:"mute"`
	Volume     map[string]pactlVolume `json:"volume"`
	Properties map[string]string      `json:"properties"`
}

// loudest returns the highest channel volume
func loudest(channels map[string]pactlVolume) float64 {
	var max int64
	for _, ch := range channels {
		if ch.Value > max {
			max = ch.Value
		}
	}
	return float64(max)
}

func (m *PactlMixer) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pactl", args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pactl %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

func (m *PactlMixer) list(ctx context.Context, what string, v interface{}) error {
	out, err := m.run(ctx, "--format=json", "list", what)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("failed to parse pactl %s: %w", what, err)
	}
	return nil
}

func (m *PactlMixer) defaultName(ctx context.Context, what string) string {
	out, err := m.run(ctx, "get-default-"+what)
	if err != nil {
		m.logger.Debug("no default device", "kind", what, "error", err)
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Snapshot reads sinks, sources and app streams
func (m *PactlMixer) Snapshot(ctx context.Context) (MixerSnapshot, error) {
	var snap MixerSnapshot

	var sinks, sources []pactlDevice
	var inputs []pactlSinkInput
	if err := m.list(ctx, "sinks", &sinks); err != nil {
		return snap, err
	}
	if err := m.list(ctx, "sources", &sources); err != nil {
		return snap, err
	}
	if err := m.list(ctx, "sink-inputs", &inputs); err != nil {
		return snap, err
	}

	defaultSink := m.defaultName(ctx, "sink")
	defaultSource := m.defaultName(ctx, "source")

	for _, d := range sinks {
		isDefault := d.Name == defaultSink
		snap.Sinks = append(snap.Sinks, Device{Kind: StreamOutput, Name: d.Name, Description: d.Description, Default: isDefault})
		if isDefault {
			snap.Output = deviceStream(StreamOutput, d)
		}
	}
	for _, d := range sources {
		// Monitors mirror a sink and are not microphones.
		if strings.HasSuffix(d.Name, ".monitor") {
			continue
		}
		isDefault := d.Name == defaultSource
		snap.Sources = append(snap.Sources, Device{Kind: StreamInput, Name: d.Name, Description: d.Description, Default: isDefault})
		if isDefault {
			snap.Input = deviceStream(StreamInput, d)
		}
	}
	for _, in := range inputs {
		// Event sounds come and go too quickly to be worth a slider.
		if in.Properties["media.role"] == "event" {
			continue
		}
		snap.Apps = append(snap.Apps, Stream{
			Kind:        StreamApp,
			Index:       in.Index,
			Description: in.Properties["media.name"],
			AppName:     in.Properties["application.name"],
			IconName:    in.Properties["application.icon_name"],
			Level:       loudest(in.Volume),
			Muted:       in.Mute,
		})
	}
	return snap, nil
}

func deviceStream(kind StreamKind, d pactlDevice) *Stream {
	return &Stream{
		Kind:        kind,
		Index:       d.Index,
		Name:        d.Name,
		Description: d.Description,
		IconName:    d.Properties["device.icon_name"],
		Level:       loudest(d.Volume),
		Muted:       d.Mute,
	}
}

// target returns the pactl object type and identifier for a stream
func target(s Stream) (string, string) {
	switch s.Kind {
	case StreamOutput:
		return "sink", s.Name
	case StreamInput:
		return "source", s.Name
	default:
		return "sink-input", strconv.FormatUint(uint64(s.Index), 10)
	}
}

func (m *PactlMixer) SetVolume(ctx context.Context, s Stream, level float64) error {
	if level < 0 {
		level = 0
	}
	what, id := target(s)
	_, err := m.run(ctx, "set-"+what+"-volume", id, strconv.FormatInt(int64(level+0.5), 10))
	return err
}

func (m *PactlMixer) SetMute(ctx context.Context, s Stream, muted bool) error {
	what, id := target(s)
	flag := "0"
	if muted {
		flag = "1"
	}
	_, err := m.run(ctx, "set-"+what+"-mute", id, flag)
	return err
}

func (m *PactlMixer) SetDefault(ctx context.Context, kind StreamKind, name string) error {
	switch kind {
	case StreamOutput:
		_, err := m.run(ctx, "set-default-sink", name)
		return err
	case StreamInput:
		_, err := m.run(ctx, "set-default-source", name)
		return err
	}
	return fmt.Errorf("cannot set default for %s stream", kind)
}

// Subscribe follows `pactl subscribe` and calls notify for every event
// touching sinks, sources, their inputs, or the server defaults.
func (m *PactlMixer) Subscribe(ctx context.Context, notify func()) error {
	cmd := exec.CommandContext(ctx, "pactl", "subscribe")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open pactl subscribe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start pactl subscribe: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if isMixerEvent(scanner.Text()) {
			notify()
		}
	}

	err = cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("pactl subscribe exited: %w", err)
	}
	return errors.New("pactl subscribe exited")
}

// isMixerEvent matches lines like "Event 'change' on sink #52"
func isMixerEvent(line string) bool {
	idx := strings.Index(line, " on ")
	if !strings.HasPrefix(line, "Event ") || idx < 0 {
		return false
	}
	facility := strings.Fields(line[idx+4:])
	if len(facility) == 0 {
		return false
	}
	switch facility[0] {
	case "sink", "source", "sink-input", "server":
		return true
	}
	return false
}
