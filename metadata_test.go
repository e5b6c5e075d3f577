package main

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestParseMetadata(t *testing.T) {
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpris/MediaPlayer2/Track/3")),
		"mpris:length":  dbus.MakeVariant(int64(245000000)),
		"xesam:artist":  dbus.MakeVariant([]string{"Daft Punk", "Pharrell"}),
		"xesam:album":   dbus.MakeVariant("Random Access Memories"),
		"xesam:title":   dbus.MakeVariant("Get Lucky"),
		"mpris:artUrl":  dbus.MakeVariant("file:///tmp/cover.jpg"),
		"xesam:url":     dbus.MakeVariant("file:///music/get-lucky.flac"),
	}
	track := ParseMetadata(md)

	assertEqual(t, track.ID, "/org/mpris/MediaPlayer2/Track/3", "track id")
	assertEqual(t, track.Length, 245.0, "length")
	assertEqual(t, track.Artist, "Daft Punk, Pharrell", "artist")
	assertEqual(t, track.Album, "Random Access Memories", "album")
	assertEqual(t, track.Title, "Get Lucky", "title")
	assertEqual(t, track.ArtURL, "file:///tmp/cover.jpg", "art url")
	assertEqual(t, track.URL, "file:///music/get-lucky.flac", "url")
}

func TestParseMetadataFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		md         map[string]dbus.Variant
		wantArtist string
		wantTitle  string
		wantLength float64
	}{
		{
			name:       "empty dict",
			md:         map[string]dbus.Variant{},
			wantArtist: unknownArtist,
			wantTitle:  unknownTitle,
		},
		{
			name: "plain string artist",
			md: map[string]dbus.Variant{
				"xesam:artist": dbus.MakeVariant("Boards of Canada"),
			},
			wantArtist: "Boards of Canada",
			wantTitle:  unknownTitle,
		},
		{
			name: "blank artist list",
			md: map[string]dbus.Variant{
				"xesam:artist": dbus.MakeVariant([]string{""}),
			},
			wantArtist: unknownArtist,
			wantTitle:  unknownTitle,
		},
		{
			name: "stream title split",
			md: map[string]dbus.Variant{
				"xesam:title": dbus.MakeVariant("Radiohead - Reckoner - Live"),
			},
			wantArtist: "Radiohead",
			wantTitle:  "Reckoner - Live",
		},
		{
			name: "uint64 length",
			md: map[string]dbus.Variant{
				"mpris:length": dbus.MakeVariant(uint64(90000000)),
			},
			wantArtist: unknownArtist,
			wantTitle:  unknownTitle,
			wantLength: 90,
		},
		{
			name: "wrong length type",
			md: map[string]dbus.Variant{
				"mpris:length": dbus.MakeVariant("long"),
			},
			wantArtist: unknownArtist,
			wantTitle:  unknownTitle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := ParseMetadata(tt.md)
			assertEqual(t, track.Artist, tt.wantArtist, "artist")
			assertEqual(t, track.Title, tt.wantTitle, "title")
			assertEqual(t, track.Album, unknownAlbum, "album")
			assertEqual(t, track.Length, tt.wantLength, "length")
		})
	}
}

func TestTrackPanelText(t *testing.T) {
	track := Track{Title: "Windowlicker", Artist: "Aphex Twin"}
	assertEqual(t, track.PanelText(0), "Windowlicker - Aphex Twin", "full text")
	assertEqual(t, track.PanelText(15), "Windowlicker...", "truncated")

	track.Artist = unknownArtist
	assertEqual(t, track.PanelText(0), "Windowlicker", "title only")
}

func TestPlayerApplyProperties(t *testing.T) {
	p := &Player{BusName: "org.mpris.MediaPlayer2.vlc"}
	assertEqual(t, p.DisplayName(), "Vlc", "name from bus name")

	ch := p.applyProperties(map[string]dbus.Variant{
		"Identity":       dbus.MakeVariant("VLC media player"),
		"PlaybackStatus": dbus.MakeVariant("Playing"),
		"LoopStatus":     dbus.MakeVariant("Playlist"),
		"Shuffle":        dbus.MakeVariant(true),
		"Rate":           dbus.MakeVariant(1.0),
		"CanSeek":        dbus.MakeVariant(false),
		"CanGoNext":      dbus.MakeVariant(true),
		"Metadata": dbus.MakeVariant(map[string]dbus.Variant{
			"xesam:title": dbus.MakeVariant("Intro"),
		}),
		"Volume": dbus.MakeVariant(0.5),
	})

	if !ch.status || !ch.metadata || !ch.identity || !ch.rate || !ch.controls {
		t.Errorf("missing change flags: %+v", ch)
	}
	if ch.canSeek == nil || *ch.canSeek {
		t.Errorf("canSeek change = %v; want false", ch.canSeek)
	}
	assertEqual(t, p.StatusLine(), "VLC media player - Playing", "status line")
	assertEqual(t, p.Loop, LoopPlaylist, "loop")
	assertEqual(t, p.HasLoop, true, "has loop")
	assertEqual(t, p.Shuffle, true, "shuffle")
	assertEqual(t, p.CanGoNext, true, "can go next")
	assertEqual(t, p.Track.Title, "Intro", "title")
}

func TestLoopStatusNext(t *testing.T) {
	assertEqual(t, LoopNone.Next(), LoopPlaylist, "none")
	assertEqual(t, LoopPlaylist.Next(), LoopTrack, "playlist")
	assertEqual(t, LoopTrack.Next(), LoopNone, "track")
	assertEqual(t, ParseLoopStatus("bogus"), LoopNone, "unknown")
	assertEqual(t, ParsePlaybackStatus("Paused"), StatusPaused, "paused")
}
