package main

import (
	"fmt"
	"math"
)

// StreamKind tells the mapper which reference level a slider is scaled against.
type StreamKind int

const (
	StreamOutput StreamKind = iota // default sink, scaled against VolumeConfig.Max
	StreamInput                    // default source
	StreamApp                      // per-application sink input
)

func (k StreamKind) String() string {
	switch k {
	case StreamOutput:
		return "output"
	case StreamInput:
		return "input"
	case StreamApp:
		return "app"
	default:
		return "unknown"
	}
}

// mutedThreshold is the slider position below which a stream counts as silent.
const mutedThreshold = 0.005

// magneticMultiples are the 25% snap points. 1.0 is handled separately.
var magneticMultiples = []float64{0.25, 0.5, 0.75, 1.25}

// VolumeConfig carries everything the volume arithmetic depends on.
// Callers must ensure Max >= Norm > 0.
type VolumeConfig struct {
	Norm       float64 // level considered 100%
	Max        float64 // ceiling for the primary output
	Step       float64 // adjustment step as a fraction of Norm (0.02 = 2%)
	Magnetic   bool    // snap to 100%
	Magnetic25 bool    // also snap to 25%, 50%, 75% and 125%
}

// scale returns the level a slider position of 1 represents for kind.
func (c VolumeConfig) scale(kind StreamKind) float64 {
	if kind == StreamOutput {
		return c.Max
	}
	return c.Norm
}

// snapLevel applies magnetic snapping to an absolute level.
func (c VolumeConfig) snapLevel(volume float64) float64 {
	if !c.Magnetic {
		return volume
	}
	half := c.Norm * c.Step / 2
	if volume != c.Norm && volume > c.Norm-half && volume < c.Norm+half {
		volume = c.Norm
	}
	if c.Magnetic25 {
		for _, i := range magneticMultiples {
			target := i * c.Norm
			if volume != target && volume > target-half && volume < target+half {
				volume = target
			}
		}
	}
	return volume
}

// PositionToVolume converts a slider position into a device level.
func PositionToVolume(position float64, kind StreamKind, cfg VolumeConfig) (volume float64, muted bool) {
	if position < mutedThreshold {
		return 0, true
	}
	volume = cfg.snapLevel(position * cfg.scale(kind))
	if volume <= 0 {
		return 0, true
	}
	return volume, false
}

// VolumeToPosition converts a device level into a slider position and the
// percentage shown to the user (visible, relative to Norm).
//
// For the primary output a level close to a magnetic point is snapped; in
// that case writeBack holds the snapped level and the caller should push it
// to the device so the stored value matches what is displayed.
func VolumeToPosition(volume float64, muted bool, kind StreamKind, cfg VolumeConfig) (position, visible float64, writeBack float64, snapped bool) {
	if muted {
		volume = 0
	}
	visible = volume / cfg.Norm
	if kind != StreamOutput {
		return visible, visible, 0, false
	}
	position = volume / cfg.Max

	if !cfg.Magnetic {
		return position, visible, 0, false
	}

	delta := cfg.Step * cfg.Max / cfg.Norm
	if visible != 1 && visible > 1-delta/2 && visible < 1+delta/2 {
		visible = 1
		snapped = true
	}
	if cfg.Magnetic25 {
		for _, i := range magneticMultiples {
			if visible != i && visible > i-cfg.Step/2 && visible < i+cfg.Step/2 {
				visible = i
				snapped = true
			}
		}
	}
	if snapped {
		position = visible * cfg.Norm / cfg.Max
		writeBack = visible * cfg.Norm
	}
	return position, visible, writeBack, snapped
}

// IconLevel is the coarse loudness bucket used to pick an icon.
type IconLevel int

const (
	IconMuted IconLevel = iota
	IconLow
	IconMedium
	IconHigh
	IconOveramplified
)

func (l IconLevel) String() string {
	switch l {
	case IconMuted:
		return "muted"
	case IconLow:
		return "low"
	case IconMedium:
		return "medium"
	case IconHigh:
		return "high"
	default:
		return "overamplified"
	}
}

// VolumeToIconLevel buckets a slider position.
func VolumeToIconLevel(position float64, cfg VolumeConfig) IconLevel {
	if position < mutedThreshold {
		return IconMuted
	}
	n := math.Floor(300*position) / 100
	switch {
	case n < 1:
		return IconLow
	case n < 2:
		return IconMedium
	case n < 3*(cfg.Norm/cfg.Max):
		return IconHigh
	default:
		return IconOveramplified
	}
}

// IconName renders the freedesktop icon name for a level.
func IconName(level IconLevel, kind StreamKind, micMuted bool) string {
	if kind == StreamInput {
		return "microphone-sensitivity-" + level.String()
	}
	name := "audio-volume-" + level.String()
	if micMuted {
		name += "-with-mic-disabled"
	}
	return name
}

// AdjustByStep moves a slider position one step up (direction > 0) or down.
func AdjustByStep(position float64, direction int, cfg VolumeConfig) float64 {
	delta := cfg.Step / cfg.Max * cfg.Norm
	if direction < 0 {
		return math.Max(0, position-delta)
	}
	return math.Min(1, position+delta)
}

// StepVolume adjusts a raw output level by one step, as a scroll over the
// panel does. Levels under 1 collapse to a muted zero.
func StepVolume(volume float64, direction int, cfg VolumeConfig) (float64, bool) {
	step := cfg.Norm * cfg.Step
	if direction < 0 {
		volume = math.Max(0, volume-step)
		if volume < 1 {
			return 0, true
		}
		return cfg.snapLevel(volume), false
	}
	volume = math.Min(cfg.Max, volume+step)
	return cfg.snapLevel(volume), false
}

// Percent formats a visible value (1.0 = 100%).
func Percent(visible float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(visible*100)))
}
