package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// iconGlyphs maps freedesktop icon names to Nerd Font glyphs
var iconGlyphs = map[string]string{
	"audio-volume-muted":                  "󰝟",
	"audio-volume-low":                    "󰕿",
	"audio-volume-medium":                 "󰖀",
	"audio-volume-high":                   "󰕾",
	"audio-volume-overamplified":          "󱄡",
	"microphone-sensitivity-muted":        "󰍭",
	"microphone-sensitivity-low":          "󰍬",
	"microphone-sensitivity-medium":       "󰍬",
	"microphone-sensitivity-high":         "󰍬",
	"microphone-sensitivity-overamplified": "󰍬",
}

const micDisabledSuffix = "-with-mic-disabled"

// glyph renders an icon name, marking a disabled microphone
func glyph(iconName string) string {
	base := strings.TrimSuffix(iconName, micDisabledSuffix)
	g, ok := iconGlyphs[base]
	if !ok {
		g = "󰎈"
	}
	if base != iconName {
		g += "󰍭"
	}
	return g
}

// accentColor is the configured color, or the cover color in auto mode
func (m model) accentColor(cfg Config) string {
	if cfg.UI.ColorMode == "auto" {
		if p := m.registry.Active(); p != nil && p.Art != nil && p.Art.Color != "" {
			return p.Art.Color
		}
	}
	return m.color
}

func (m model) showingArt(cfg Config) bool {
	p := m.registry.Active()
	return p != nil && p.Art != nil && p.Art.Encoded != "" && m.supportsKitty && m.artEnabled(cfg)
}

// textWidth is the room left for scrolling track text
func (m model) textWidth() int {
	cfg := m.cfg.Get()
	w := cfg.UI.MaxWidth - 10
	if m.showingArt(cfg) {
		w -= cfg.Artwork.Padding
	}
	if w < 10 {
		w = 10
	}
	return w
}

// bar draws a horizontal gauge of width cells filled to fraction
func bar(fraction float64, width int, filled, empty lipgloss.Style) string {
	if width < 1 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	n := int(float64(width) * fraction)
	return filled.Render(strings.Repeat("█", n)) + empty.Render(strings.Repeat("─", width-n))
}

// streamTitle is the label shown above a volume slider
func streamTitle(s Stream) string {
	switch s.Kind {
	case StreamOutput:
		return "Volume"
	case StreamInput:
		return "Microphone"
	default:
		name, _ := s.Label()
		return strings.ReplaceAll(name, "\n", " ")
	}
}

func (m model) View() string {
	cfg := m.cfg.Get()
	vc := cfg.VolumeConfig()

	color := lipgloss.Color(m.accentColor(cfg))
	highlight := lipgloss.NewStyle().Foreground(color)
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	labelStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2)

	inner := cfg.UI.MaxWidth - 6

	// Header: output icon plus the active track, like a panel applet label
	var header strings.Builder
	micMuted := m.snapshot.Input != nil && m.snapshot.Input.Muted
	outIcon := glyph(IconName(IconMuted, StreamOutput, micMuted))
	if out := m.snapshot.Output; out != nil {
		pos, _, _, _ := VolumeToPosition(out.Level, out.Muted, StreamOutput, vc)
		outIcon = glyph(IconName(VolumeToIconLevel(pos, vc), StreamOutput, micMuted))
	}
	header.WriteString(highlight.Render(outIcon + " Sound"))
	if p := m.registry.Active(); p != nil && cfg.Player.ShowTrack && p.Status != StatusStopped {
		header.WriteString("  " + dimStyle.Render(p.Track.PanelText(cfg.Player.TruncateText)))
	}

	// Volume sliders
	var mixer strings.Builder
	switch {
	case m.mixer == nil && m.mixerErr != nil:
		mixer.WriteString(errorStyle.Render("Mixer unavailable: " + m.mixerErr.Error()))
	case m.mixerLoading && len(m.sliders()) == 0:
		mixer.WriteString(mutedStyle.Render("Reading mixer..."))
	default:
		for i, s := range m.sliders() {
			pos, visible, _, _ := VolumeToPosition(s.Level, s.Muted, s.Kind, vc)
			iconCfg := vc
			if s.Kind != StreamOutput {
				iconCfg.Max = vc.Norm
			}
			icon := glyph(IconName(VolumeToIconLevel(pos, iconCfg), s.Kind, false))

			marker := "  "
			title := s.Description
			name := streamTitle(s)
			if i == m.selected {
				marker = highlight.Render("▶ ")
				name = labelStyle.Render(name)
			}
			if s.Kind == StreamApp {
				title = ""
			}
			mixer.WriteString(marker + name)
			if title != "" {
				mixer.WriteString(" " + mutedStyle.Render(truncateGlyphs(title, inner-lipgloss.Width(name)-3)))
			}
			mixer.WriteString("\n")

			percent := Percent(visible)
			if s.Muted {
				percent = "muted"
			}
			barWidth := inner - 14
			mixer.WriteString(fmt.Sprintf("  %s %s %s\n", icon, bar(pos, barWidth, highlight, white), dimStyle.Render(percent)))
		}
		if m.mixerErr != nil {
			mixer.WriteString(errorStyle.Render("Mixer: " + m.mixerErr.Error()))
		}
	}

	// Player section
	var player strings.Builder
	var progressBarContent string
	if cfg.Player.Control {
		p := m.registry.Active()
		switch {
		case m.discovery == nil && m.busErr != nil:
			player.WriteString(errorStyle.Render("Session bus unavailable: " + m.busErr.Error()))
		case p == nil && len(m.launchers) > 0:
			player.WriteString(highlight.Render("󰓃 Launch player") + "\n\n")
			for i, l := range m.launchers {
				if i == m.launchSelected {
					player.WriteString(highlight.Render("▸ "+l.Name) + "\n")
				} else {
					player.WriteString(mutedStyle.Render("  "+l.Name) + "\n")
				}
			}
			player.WriteString("\n" + dimStyle.Render("[/] choose, enter to launch"))
		case p == nil:
			player.WriteString(highlight.Render("󰓃 Now Playing") + "\n\n")
			player.WriteString(mutedStyle.Render("Nothing playing") + "\n")
			player.WriteString(dimStyle.Render("Start a media player to begin"))
		default:
			title := p.StatusLine()
			if n := m.registry.Len(); n > 1 {
				title += mutedStyle.Render(fmt.Sprintf("  [%d players]", n))
			}
			player.WriteString(highlight.Render("󰓃 "+title) + "\n\n")

			maxLen := m.textWidth()
			addLine := func(label, value string) {
				if value != "" {
					player.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(label), scrollText(value, maxLen, m.scrollOffset)))
				}
			}
			addLine("󰎈 ", p.Track.Title)
			addLine("󰠃 ", p.Track.Artist)
			addLine("󰀥 ", p.Track.Album)

			var modes []string
			if p.HasLoop {
				switch p.Loop {
				case LoopTrack:
					modes = append(modes, "󰑘 track")
				case LoopPlaylist:
					modes = append(modes, "󰑖 playlist")
				default:
					modes = append(modes, mutedStyle.Render("󰑗 no loop"))
				}
			}
			if p.HasShuffle {
				if p.Shuffle {
					modes = append(modes, "󰒝 shuffle")
				} else {
					modes = append(modes, mutedStyle.Render("󰒞 in order"))
				}
			}
			if len(modes) > 0 {
				player.WriteString(strings.Join(modes, "  "))
			}

			if s := p.seeker; s != nil && s.Length() > 0 {
				elapsed := formatTime(int64(s.Elapsed()))
				total := formatTime(int64(s.Length()))
				barWidth := inner - lipgloss.Width(elapsed) - lipgloss.Width(total) - 2
				gauge := bar(s.Value(), barWidth, highlight, white)
				if !s.CanSeek() {
					gauge = bar(s.Value(), barWidth, mutedStyle, mutedStyle)
				}
				progressBarContent = fmt.Sprintf("\n%s %s/%s", gauge, highlight.Render(elapsed), highlight.Render(total))
			}
		}
	}

	// Combine artwork and text content
	playerText := player.String()
	var playerSection string
	if m.showingArt(cfg) {
		paddedText := lipgloss.NewStyle().
			PaddingLeft(cfg.Artwork.Padding).
			Render(playerText)
		playerSection = m.registry.Active().Art.Encoded + paddedText
	} else if m.supportsKitty {
		// Remove any image left over from the previous track
		playerSection = kittyDeleteAll + playerText
	} else {
		playerSection = playerText
	}
	if progressBarContent != "" {
		playerSection += progressBarContent
	}

	sections := []string{header.String(), strings.TrimRight(mixer.String(), "\n")}
	if cfg.Player.Control {
		sections = append(sections, playerSection)
	}
	if m.lastError != nil {
		sections = append(sections, errorStyle.Render(truncateGlyphs("Error: "+m.lastError.Error(), inner)))
	}

	contentStr := borderStyle.
		Width(cfg.UI.MaxWidth).
		Render(strings.Join(sections, "\n\n"))

	var helpText string
	if m.showHelp {
		helpText = lipgloss.NewStyle().
			Width(cfg.UI.MaxWidth).
			Align(lipgloss.Center).
			Render(strings.Join([]string{
				"Volume: " + highlight.Render("↑/↓"),
				"Mute: " + highlight.Render("m"),
				"Select: " + highlight.Render("tab"),
				"Output: " + highlight.Render("o"),
				"Input: " + highlight.Render("i"),
				"Play/Pause: " + highlight.Render("p"),
				"Stop: " + highlight.Render("s"),
				"Next: " + highlight.Render("n"),
				"Previous: " + highlight.Render("b"),
				"Seek: " + highlight.Render("←/→"),
				"Loop: " + highlight.Render("l"),
				"Shuffle: " + highlight.Render("z"),
				"Player: " + highlight.Render("[/]"),
				"Raise: " + highlight.Render("r"),
				"Launch: " + highlight.Render("enter"),
				"Close player: " + highlight.Render("Q"),
				"Toggle Art: " + highlight.Render("a"),
				"Quit: " + highlight.Render("q"),
			}, "  "))
	} else {
		helpText = mutedStyle.Render("Press ? for help")
	}

	fullUI := lipgloss.JoinVertical(lipgloss.Center, contentStr, "\n"+helpText)

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		fullUI,
	)
}
