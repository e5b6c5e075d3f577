package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// knownPlayers remembers the desktop entries of players seen on the bus so
// they can be started again when nothing is running. Entries are kept in
// the order they were first seen.
type knownPlayers struct {
	mu      sync.Mutex
	path    string // empty keeps the list in memory only
	entries []string
}

// knownPlayersFile is the on-disk layout
type knownPlayersFile struct {
	Players []string `yaml:"players"`
}

func defaultKnownPlayersFile() string {
	dir, err := stateDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "players.yaml")
}

// loadKnownPlayers reads the list at path. A missing file is an empty list.
// The returned list is usable even when err is set.
func loadKnownPlayers(path string) (*knownPlayers, error) {
	k := &knownPlayers{path: path}
	if path == "" {
		return k, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return k, nil
	}
	if err != nil {
		return k, fmt.Errorf("failed to read known players: %w", err)
	}
	var file knownPlayersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return k, fmt.Errorf("failed to parse known players %s: %w", path, err)
	}
	for _, e := range file.Players {
		k.add(e)
	}
	return k, nil
}

// Add records entry and reports whether it was not known before
func (k *knownPlayers) Add(entry string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.add(entry)
}

func (k *knownPlayers) add(entry string) bool {
	entry = strings.TrimSpace(entry)
	if entry == "" || slices.Contains(k.entries, entry) {
		return false
	}
	k.entries = append(k.entries, entry)
	return true
}

func (k *knownPlayers) Entries() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return slices.Clone(k.entries)
}

// Save writes the current list. Saves hold the lock for the whole write so
// the last one to finish carries every entry added before it started.
func (k *knownPlayers) Save() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.path == "" {
		return nil
	}

	data, err := yaml.Marshal(knownPlayersFile{Players: k.entries})
	if err != nil {
		return fmt.Errorf("failed to encode known players: %w", err)
	}
	dir := filepath.Dir(k.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".players-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write known players: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write known players: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write known players: %w", err)
	}
	if err := os.Rename(tmp.Name(), k.path); err != nil {
		return fmt.Errorf("failed to write known players: %w", err)
	}
	return nil
}

// launcher is a known player that is installed and can be started
type launcher struct {
	Entry string
	Name  string
}

// desktopLookup resolves a desktop entry id to its display name. ok is
// false when the entry is not installed.
type desktopLookup func(entry string) (name string, ok bool)

// Launchers lists the installed known players
func (k *knownPlayers) Launchers(lookup desktopLookup) []launcher {
	var out []launcher
	for _, e := range k.Entries() {
		if name, ok := lookup(e); ok {
			out = append(out, launcher{Entry: e, Name: name})
		}
	}
	return out
}

// applicationDirs lists the XDG directories holding .desktop files, most
// specific first
func applicationDirs(getenv func(string) string) []string {
	var dirs []string
	dataHome := getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
	}
	dataDirs := getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range filepath.SplitList(dataDirs) {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	return dirs
}

// xdgDesktopName finds entry.desktop in the application directories
func xdgDesktopName(entry string) (string, bool) {
	for _, dir := range applicationDirs(os.Getenv) {
		name, err := desktopName(filepath.Join(dir, entry+".desktop"))
		if err != nil {
			continue
		}
		if name == "" {
			name = entry
		}
		return name, true
	}
	return "", false
}

// desktopName reads the untranslated Name key of the [Desktop Entry] group
func desktopName(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	inEntry := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "["):
			inEntry = line == "[Desktop Entry]"
		case inEntry && strings.HasPrefix(line, "Name="):
			return strings.TrimSpace(strings.TrimPrefix(line, "Name=")), nil
		}
	}
	return "", sc.Err()
}

// gtkLaunch starts a desktop entry without waiting for it
func gtkLaunch(entry string) error {
	cmd := exec.Command("gtk-launch", entry)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", entry, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
