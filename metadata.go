package main

import (
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
	unknownTitle  = "Unknown Title"
)

// Track holds the fields of an MPRIS Metadata dict that the panel uses
type Track struct {
	ID     string
	Length float64 // seconds
	Artist string
	Album  string
	Title  string
	ArtURL string
	URL    string
}

// ParseMetadata decodes an MPRIS Metadata dict. Missing or malformed fields
// fall back to placeholders instead of failing.
func ParseMetadata(md map[string]dbus.Variant) Track {
	track := Track{
		Artist: unknownArtist,
		Album:  unknownAlbum,
		Title:  unknownTitle,
	}

	if v, ok := md["mpris:trackid"]; ok {
		switch id := v.Value().(type) {
		case dbus.ObjectPath:
			track.ID = string(id)
		case string:
			track.ID = id
		}
	}

	if v, ok := md["mpris:length"]; ok {
		if us, ok := variantInt64(v); ok && us > 0 {
			track.Length = float64(us) / 1e6
		}
	}

	if v, ok := md["xesam:artist"]; ok {
		switch a := v.Value().(type) {
		case string:
			// smplayer sends a plain string
			track.Artist = a
		case []string:
			track.Artist = strings.Join(a, ", ")
		}
		if strings.TrimSpace(track.Artist) == "" {
			track.Artist = unknownArtist
		}
	}

	if s := variantString(md["xesam:album"]); s != "" {
		track.Album = s
	}

	if s := variantString(md["xesam:title"]); s != "" {
		track.Title = s
		// Streams often put "Artist - Title" in the title field.
		if track.Artist == unknownArtist && strings.Contains(s, " - ") {
			parts := strings.SplitN(s, " - ", 2)
			track.Artist, track.Title = parts[0], parts[1]
		}
	}

	track.ArtURL = variantString(md["mpris:artUrl"])
	track.URL = variantString(md["xesam:url"])

	return track
}

// HasKnownArtist reports whether the artist is a real value
func (t Track) HasKnownArtist() bool {
	return t.Artist != "" && t.Artist != unknownArtist
}

// PanelText is the short label shown next to the panel icon.
func (t Track) PanelText(maxGlyphs int) string {
	text := t.Title
	if t.HasKnownArtist() {
		text = t.Title + " - " + t.Artist
	}
	return truncateGlyphs(text, maxGlyphs)
}

func variantString(v dbus.Variant) string {
	switch s := v.Value().(type) {
	case string:
		return s
	case dbus.ObjectPath:
		return string(s)
	}
	return ""
}

func variantInt64(v dbus.Variant) (int64, bool) {
	switch n := v.Value().(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint16:
		return int64(n), true
	case byte:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func variantFloat(v dbus.Variant) (float64, bool) {
	switch n := v.Value().(type) {
	case float64:
		return n, true
	}
	if i, ok := variantInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func variantBool(v dbus.Variant) (bool, bool) {
	b, ok := v.Value().(bool)
	return b, ok
}
