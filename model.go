package main

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
)

// busCallTimeout bounds every request to a player
const busCallTimeout = 3 * time.Second

// seekStepSeconds is how far left/right moves the playback position
const seekStepSeconds = 10

// model is the Bubble Tea model and the only place where player, seek and
// mixer state is mutated.
type model struct {
	ctx           context.Context
	cfg           *SafeConfig
	configChanges <-chan struct{}
	logger        *slog.Logger

	discovery Discovery // nil when the session bus is unavailable
	busErr    error
	registry  *Registry

	mixer         MixerControl // nil when no mixer is available
	mixerErr      error
	snapshot      MixerSnapshot
	mixerLoading  bool
	mixerDirty    bool
	selected      int // index into sliders()
	lastWriteBack float64

	httpClient    *http.Client
	artLookup     artURLLookup
	supportsKitty bool

	// Launching players that are not running
	known          *knownPlayers
	lookupDesktop  desktopLookup
	launch         func(entry string) error
	launchers      []launcher
	launchSelected int

	color     string
	width     int
	height    int
	lastError error

	// Text scrolling state
	scrollOffset int
	scrollPause  int
	scrollTick   int

	showHelp  bool
	artHidden bool // toggled with the a key, kept apart from the config file
}

// UI refresh tick
type tickMsg time.Time

// Periodic check for players that publish art late
type artPollMsg time.Time

type playersListedMsg struct {
	players []BusName
	err     error
}

type playerPropsMsg struct {
	id    uint64
	props map[string]dbus.Variant
	err   error
}

type canSeekMsg struct {
	id      uint64
	canSeek bool
	err     error
}

type positionMsg struct {
	id     uint64
	micros int64
	err    error
}

type seekTickMsg struct {
	id  uint64
	gen uint64
}

type transportDoneMsg struct {
	id     uint64
	action string
	err    error
}

type artworkMsg struct {
	id  uint64
	url string
	art *artwork
	err error
}

type artURLMsg struct {
	id      uint64
	trackID string
	url     string
	err     error
}

type mixerSnapshotMsg struct {
	snap MixerSnapshot
	err  error
}

// mixerChangedMsg is sent by the mixer subscription
type mixerChangedMsg struct{}

type mixerDoneMsg struct {
	action string
	err    error
}

type launchersMsg struct {
	launchers []launcher
}

type knownPlayersSavedMsg struct {
	err error
}

type launchDoneMsg struct {
	entry string
	err   error
}

// newModel builds the panel. discovery and mixer may be nil when their
// backends failed to start; busErr and mixerErr say why.
func newModel(ctx context.Context, cfg *SafeConfig, changes <-chan struct{}, logger *slog.Logger,
	discovery Discovery, busErr error, mixer MixerControl, mixerErr error) model {
	c := cfg.Get()
	return model{
		ctx:           ctx,
		cfg:           cfg,
		configChanges: changes,
		logger:        logger,
		discovery:     discovery,
		busErr:        busErr,
		registry:      NewRegistry(),
		mixer:         mixer,
		mixerErr:      mixerErr,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		artLookup:     playerctlArtURL,
		known:         &knownPlayers{},
		lookupDesktop: xdgDesktopName,
		launch:        gtkLaunch,
		mixerLoading:  mixer != nil,
		color:         c.UI.Color,
		scrollPause:   30,
	}
}

// Schedule next UI refresh tick
func tickCmd(cfg Config) tea.Cmd {
	return tea.Tick(time.Duration(cfg.Timing.UIRefreshMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func artPollCmd(cfg Config) tea.Cmd {
	return tea.Tick(time.Duration(cfg.Timing.ArtPollMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return artPollMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	cfg := m.cfg.Get()
	cmds := []tea.Cmd{tickCmd(cfg), artPollCmd(cfg), m.refreshLaunchers()}
	if m.configChanges != nil {
		cmds = append(cmds, watchConfigCmd(m.configChanges))
	}
	if m.discovery != nil {
		cmds = append(cmds, m.listPlayers())
	}
	if m.mixer != nil {
		cmds = append(cmds, m.refreshMixer())
	}
	return tea.Batch(cmds...)
}

func (m model) listPlayers() tea.Cmd {
	d := m.discovery
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, busCallTimeout)
		defer cancel()
		players, err := d.ListPlayers(ctx)
		return playersListedMsg{players: players, err: err}
	}
}

// playerCall runs fn against a player's transport off the event loop.
func playerCall(p *Player, fn func(ctx context.Context, t PlayerTransport) tea.Msg) tea.Cmd {
	parent, transport := p.ctx, p.transport
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, busCallTimeout)
		defer cancel()
		return fn(ctx, transport)
	}
}

func (m model) fetchProperties(p *Player) tea.Cmd {
	id := p.id
	return playerCall(p, func(ctx context.Context, t PlayerTransport) tea.Msg {
		props, err := t.Properties(ctx)
		return playerPropsMsg{id: id, props: props, err: err}
	})
}

// transportAction runs a fire-and-forget player command. fn takes the
// transport first so method expressions like PlayerTransport.Next fit.
func (m model) transportAction(p *Player, action string, fn func(t PlayerTransport, ctx context.Context) error) tea.Cmd {
	id := p.id
	return playerCall(p, func(ctx context.Context, t PlayerTransport) tea.Msg {
		return transportDoneMsg{id: id, action: action, err: fn(t, ctx)}
	})
}

// runSeekCommands turns the seeker's requested side effects into commands
func (m model) runSeekCommands(p *Player, cmds []seekCommand) tea.Cmd {
	if len(cmds) == 0 || p.transport == nil {
		return nil
	}
	id := p.id
	var batch []tea.Cmd
	for _, c := range cmds {
		switch c := c.(type) {
		case cmdQueryCanSeek:
			batch = append(batch, playerCall(p, func(ctx context.Context, t PlayerTransport) tea.Msg {
				can, err := t.CanSeek(ctx)
				return canSeekMsg{id: id, canSeek: can, err: err}
			}))
		case cmdQueryPosition:
			batch = append(batch, playerCall(p, func(ctx context.Context, t PlayerTransport) tea.Msg {
				micros, err := t.Position(ctx)
				return positionMsg{id: id, micros: micros, err: err}
			}))
		case cmdScheduleTick:
			gen := c.gen
			batch = append(batch, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return seekTickMsg{id: id, gen: gen}
			}))
		case cmdSetPosition:
			trackID, micros := c.trackID, c.micros
			batch = append(batch, m.transportAction(p, "seek", func(t PlayerTransport, ctx context.Context) error {
				return t.SetPosition(ctx, trackID, micros)
			}))
		}
	}
	return tea.Batch(batch...)
}

// addPlayer wires a freshly registered player to its transport
func (m model) addPlayer(p *Player) tea.Cmd {
	cfg := m.cfg.Get()
	p.ctx, p.cancel = context.WithCancel(m.ctx)
	p.transport = m.discovery.Player(p.BusName)
	p.seeker = newSeeker(p.DisplayName(), cfg.Player.NoSeek)
	m.logger.Info("player appeared", "name", p.BusName, "owner", p.Owner)
	return tea.Batch(m.fetchProperties(p), m.runSeekCommands(p, p.seeker.Start()))
}

func (m *model) removePlayer(p *Player) {
	m.logger.Info("player vanished", "name", p.BusName, "owner", p.Owner)
	p.close()
}

// applyNameChange reacts to a registry change. A player upgraded to its
// instance name is rebound so calls keep reaching it once the master name
// is released.
func (m *model) applyNameChange(change NameOwnerChange) tea.Cmd {
	switch {
	case change.Removed != nil:
		m.removePlayer(change.Removed)
	case change.Renamed != nil:
		p := change.Renamed
		p.transport = m.discovery.Player(p.BusName)
		m.logger.Debug("player renamed", "name", p.BusName, "owner", p.Owner)
	case change.Added != nil:
		return m.addPlayer(change.Added)
	}
	return nil
}

// applyPlayerProperties merges a property batch and reacts to what changed
func (m *model) applyPlayerProperties(p *Player, props map[string]dbus.Variant) tea.Cmd {
	cfg := m.cfg.Get()
	prevArt := p.Track.ArtURL
	prevTrack := p.Track.ID
	ch := p.applyProperties(props)

	var cmds []seekCommand
	if ch.identity {
		p.seeker.Rename(p.DisplayName(), cfg.Player.NoSeek)
	}
	if ch.metadata && (p.Track.ID != prevTrack || p.Track.Length != p.seeker.Length()) {
		p.seeker.SetTrack(p.Track.ID, p.Track.Length)
		cmds = append(cmds, p.seeker.Start()...)
		if p == m.registry.Active() {
			m.resetScroll()
		}
	}
	if ch.status {
		cmds = append(cmds, p.seeker.SetStatus(p.Status)...)
	}
	if ch.rate && !ch.metadata && !ch.status {
		cmds = append(cmds, p.seeker.Start()...)
	}
	if ch.canSeek != nil {
		cmds = append(cmds, p.seeker.CanSeekReported(*ch.canSeek, p.Rate, nil)...)
	}

	batch := []tea.Cmd{m.runSeekCommands(p, cmds)}
	if ch.desktopEntry && m.known.Add(p.DesktopEntry) {
		m.logger.Info("new player recorded", "entry", p.DesktopEntry)
		batch = append(batch, m.saveKnownPlayers(), m.refreshLaunchers())
	}
	if ch.metadata && p.Track.ArtURL != prevArt {
		p.Art = nil
		batch = append(batch, m.loadArt(p))
	}
	return tea.Batch(batch...)
}

// artEnabled reports whether artwork is on in the config and not hidden
func (m model) artEnabled(cfg Config) bool {
	return cfg.Artwork.Enabled && !m.artHidden
}

func (m model) loadArt(p *Player) tea.Cmd {
	cfg := m.cfg.Get()
	artURL := p.Track.ArtURL
	if artURL == "" || !m.artEnabled(cfg) {
		return nil
	}
	id := p.id
	ctx := p.ctx
	client := m.httpClient
	opts := artworkOptions{
		WidthPixels:  cfg.Artwork.WidthPixels,
		WidthColumns: cfg.Artwork.WidthColumns,
		ExtractColor: cfg.UI.ColorMode == "auto",
	}
	return func() tea.Msg {
		art, err := loadArtwork(ctx, client, artURL, opts)
		return artworkMsg{id: id, url: artURL, art: art, err: err}
	}
}

func (m *model) resetScroll() {
	m.scrollOffset = 0
	m.scrollPause = 30
	m.scrollTick = 0
}

func (m model) refreshMixer() tea.Cmd {
	mixer := m.mixer
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, busCallTimeout)
		defer cancel()
		snap, err := mixer.Snapshot(ctx)
		return mixerSnapshotMsg{snap: snap, err: err}
	}
}

func (m model) mixerAction(action string, fn func(ctx context.Context, mixer MixerControl) error) tea.Cmd {
	mixer := m.mixer
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, busCallTimeout)
		defer cancel()
		return mixerDoneMsg{action: action, err: fn(ctx, mixer)}
	}
}

// sliders lists the volume controls in display order
func (m model) sliders() []Stream {
	var out []Stream
	if m.snapshot.Output != nil {
		out = append(out, *m.snapshot.Output)
	}
	if m.snapshot.Input != nil {
		out = append(out, *m.snapshot.Input)
	}
	return append(out, m.snapshot.Apps...)
}

// selectedStream returns the stream the volume keys act on
func (m model) selectedStream() (Stream, bool) {
	s := m.sliders()
	if len(s) == 0 {
		return Stream{}, false
	}
	idx := m.selected
	if idx < 0 || idx >= len(s) {
		idx = 0
	}
	return s[idx], true
}

// stepStream computes the level and mute state one step away from s
func stepStream(s Stream, direction int, vc VolumeConfig) (float64, bool) {
	level := s.Level
	if s.Muted {
		level = 0
	}
	if s.Kind == StreamOutput {
		return StepVolume(level, direction, vc)
	}
	// Other streams are scaled against 100%.
	vc.Max = vc.Norm
	pos, _, _, _ := VolumeToPosition(level, false, s.Kind, vc)
	return PositionToVolume(AdjustByStep(pos, direction, vc), s.Kind, vc)
}

// updateStream replaces the local copy of s in the snapshot. Streams are
// replaced, not written through, as snapshots may be shared.
func (m *model) updateStream(s Stream) {
	switch s.Kind {
	case StreamOutput:
		if m.snapshot.Output != nil {
			m.snapshot.Output = &s
		}
	case StreamInput:
		if m.snapshot.Input != nil {
			m.snapshot.Input = &s
		}
	default:
		apps := make([]Stream, len(m.snapshot.Apps))
		for i, a := range m.snapshot.Apps {
			if a.Index == s.Index {
				a = s
			}
			apps[i] = a
		}
		m.snapshot.Apps = apps
	}
}

func (m *model) changeVolume(direction int) tea.Cmd {
	s, ok := m.selectedStream()
	if !ok || m.mixer == nil {
		return nil
	}
	level, muted := stepStream(s, direction, m.cfg.Get().VolumeConfig())
	wasMuted := s.Muted
	s.Level, s.Muted = level, muted
	m.updateStream(s)

	return m.mixerAction("volume", func(ctx context.Context, mixer MixerControl) error {
		if err := mixer.SetVolume(ctx, s, level); err != nil {
			return err
		}
		if muted != wasMuted {
			return mixer.SetMute(ctx, s, muted)
		}
		return nil
	})
}

func (m *model) toggleMute(s Stream) tea.Cmd {
	if m.mixer == nil {
		return nil
	}
	s.Muted = !s.Muted
	m.updateStream(s)
	return m.mixerAction("mute", func(ctx context.Context, mixer MixerControl) error {
		return mixer.SetMute(ctx, s, s.Muted)
	})
}

func (m *model) cycleDevice(kind StreamKind) tea.Cmd {
	if m.mixer == nil {
		return nil
	}
	devices := m.snapshot.Sinks
	if kind == StreamInput {
		devices = m.snapshot.Sources
	}
	next, ok := NextDevice(devices)
	if !ok || next.Default {
		return nil
	}
	return m.mixerAction("default", func(ctx context.Context, mixer MixerControl) error {
		return mixer.SetDefault(ctx, kind, next.Name)
	})
}

// applySnapshot stores fresh mixer state and pushes magnetic snaps back
func (m *model) applySnapshot(snap MixerSnapshot) tea.Cmd {
	m.snapshot = snap
	if n := len(m.sliders()); m.selected >= n {
		m.selected = 0
	}
	if snap.Output == nil || m.mixer == nil {
		return nil
	}
	out := *snap.Output
	_, _, writeBack, snapped := VolumeToPosition(out.Level, out.Muted, StreamOutput, m.cfg.Get().VolumeConfig())
	if !snapped || out.Muted || math.Abs(writeBack-out.Level) < 1 {
		m.lastWriteBack = 0
		return nil
	}
	if writeBack == m.lastWriteBack {
		// Already pushed once; the mixer did not take it.
		return nil
	}
	m.lastWriteBack = writeBack
	m.logger.Debug("snapping output volume", "from", out.Level, "to", writeBack)
	return m.mixerAction("snap", func(ctx context.Context, mixer MixerControl) error {
		return mixer.SetVolume(ctx, out, writeBack)
	})
}

// seekBy moves the active player's position by delta seconds
func (m *model) seekBy(p *Player, delta float64) tea.Cmd {
	s := p.seeker
	if !s.CanSeek() || s.Length() <= 0 {
		return nil
	}
	return m.runSeekCommands(p, s.RequestPosition((s.Elapsed()+delta)/s.Length()))
}

func (m model) raise(p *Player) tea.Cmd {
	// Spotify ignores Raise; starting it again focuses the running instance.
	if strings.EqualFold(p.DisplayName(), "spotify") {
		id := p.id
		return func() tea.Msg {
			return transportDoneMsg{id: id, action: "raise", err: exec.Command("spotify").Start()}
		}
	}
	if !p.CanRaise {
		return nil
	}
	return m.transportAction(p, "raise", func(t PlayerTransport, ctx context.Context) error {
		return t.Raise(ctx)
	})
}

// refreshLaunchers resolves the known players off the event loop
func (m model) refreshLaunchers() tea.Cmd {
	known, lookup := m.known, m.lookupDesktop
	if known == nil || lookup == nil {
		return nil
	}
	return func() tea.Msg {
		return launchersMsg{launchers: known.Launchers(lookup)}
	}
}

func (m model) saveKnownPlayers() tea.Cmd {
	known := m.known
	return func() tea.Msg {
		return knownPlayersSavedMsg{err: known.Save()}
	}
}

// launcherKey handles the launch list shown while no player is running
func (m *model) launcherKey(key string) (tea.Cmd, bool) {
	n := len(m.launchers)
	if m.registry.Len() > 0 || n == 0 || !m.cfg.Get().Player.Control {
		return nil, false
	}
	switch key {
	case "]":
		m.launchSelected = (m.launchSelected + 1) % n
		return nil, true
	case "[":
		m.launchSelected = (m.launchSelected - 1 + n) % n
		return nil, true
	case "enter":
		if m.launch == nil {
			return nil, true
		}
		l := m.launchers[m.launchSelected%n]
		launch := m.launch
		return func() tea.Msg {
			return launchDoneMsg{entry: l.Entry, err: launch(l.Entry)}
		}, true
	}
	return nil, false
}

// playerKey handles keys that act on the active player
func (m *model) playerKey(key string) (tea.Cmd, bool) {
	p := m.registry.Active()
	if p == nil || p.transport == nil || !m.cfg.Get().Player.Control {
		return nil, false
	}
	switch key {
	case "p", " ":
		return m.transportAction(p, "play-pause", PlayerTransport.PlayPause), true
	case "s":
		return m.transportAction(p, "stop", PlayerTransport.Stop), true
	case "n":
		return m.transportAction(p, "next", PlayerTransport.Next), true
	case "b":
		return m.transportAction(p, "previous", PlayerTransport.Previous), true
	case "l":
		if !p.HasLoop {
			return nil, true
		}
		next := p.Loop.Next()
		return m.transportAction(p, "loop", func(t PlayerTransport, ctx context.Context) error {
			return t.SetLoopStatus(ctx, next)
		}), true
	case "z":
		if !p.HasShuffle {
			return nil, true
		}
		shuffle := !p.Shuffle
		return m.transportAction(p, "shuffle", func(t PlayerTransport, ctx context.Context) error {
			return t.SetShuffle(ctx, shuffle)
		}), true
	case "left":
		return m.seekBy(p, -seekStepSeconds), true
	case "right":
		return m.seekBy(p, seekStepSeconds), true
	case "r":
		return m.raise(p), true
	case "Q":
		if !p.CanQuit {
			return nil, true
		}
		return m.transportAction(p, "quit", PlayerTransport.Quit), true
	}
	return nil, false
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case configReloadMsg:
		cfg := m.cfg.Get()
		if cfg.UI.ColorMode == "manual" {
			m.color = cfg.UI.Color
		}
		var cmds []tea.Cmd
		for _, p := range m.registry.Players() {
			p.seeker.Rename(p.DisplayName(), cfg.Player.NoSeek)
			if !m.artEnabled(cfg) {
				p.Art = nil
			} else if p.Art == nil {
				cmds = append(cmds, m.loadArt(p))
			}
		}
		m.logger.Info("config reloaded")
		return m, tea.Batch(append(cmds, watchConfigCmd(m.configChanges))...)

	case tickMsg:
		m.advanceScroll()
		return m, tickCmd(m.cfg.Get())

	case artPollMsg:
		cfg := m.cfg.Get()
		cmds := []tea.Cmd{artPollCmd(cfg)}
		if p := m.registry.Active(); p != nil && m.artEnabled(cfg) && p.Track.ArtURL == "" && p.Track.URL != "" && m.artLookup != nil {
			id, trackID, busName, ctx, lookup := p.id, p.Track.ID, p.BusName, p.ctx, m.artLookup
			cmds = append(cmds, func() tea.Msg {
				ctx, cancel := context.WithTimeout(ctx, busCallTimeout)
				defer cancel()
				u, err := lookup(ctx, busName)
				return artURLMsg{id: id, trackID: trackID, url: u, err: err}
			})
		}
		return m, tea.Batch(cmds...)

	case playersListedMsg:
		if msg.err != nil {
			m.busErr = msg.err
			m.logger.Error("listing players failed", "error", msg.err)
			return m, nil
		}
		var cmds []tea.Cmd
		for _, bn := range msg.players {
			cmds = append(cmds, m.applyNameChange(m.registry.HandleNameOwnerChanged(bn.Name, "", bn.Owner)))
		}
		return m, tea.Batch(cmds...)

	case nameOwnerChangedMsg:
		return m, m.applyNameChange(m.registry.HandleNameOwnerChanged(msg.name, msg.oldOwner, msg.newOwner))

	case playerPropsMsg:
		p := m.registry.ByID(msg.id)
		if p == nil {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Debug("fetching player properties failed", "player", p.BusName, "error", msg.err)
			return m, nil
		}
		return m, m.applyPlayerProperties(p, msg.props)

	case propertiesChangedMsg:
		p := m.registry.Get(msg.owner)
		if p == nil {
			return m, nil
		}
		return m, m.applyPlayerProperties(p, msg.changed)

	case seekedMsg:
		if p := m.registry.Get(msg.owner); p != nil {
			p.seeker.Seeked(msg.micros)
		}

	case canSeekMsg:
		p := m.registry.ByID(msg.id)
		if p == nil {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Debug("CanSeek query failed", "player", p.BusName, "error", msg.err)
		}
		return m, m.runSeekCommands(p, p.seeker.CanSeekReported(msg.canSeek, p.Rate, msg.err))

	case positionMsg:
		if p := m.registry.ByID(msg.id); p != nil {
			if msg.err != nil {
				m.logger.Debug("Position query failed", "player", p.BusName, "error", msg.err)
			}
			p.seeker.PositionReported(msg.micros, msg.err)
		}

	case seekTickMsg:
		if p := m.registry.ByID(msg.id); p != nil {
			return m, m.runSeekCommands(p, p.seeker.Tick(msg.gen))
		}

	case transportDoneMsg:
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				return m, nil
			}
			m.logger.Warn("player command failed", "action", msg.action, "error", msg.err)
			m.lastError = msg.err
		} else {
			m.lastError = nil
		}

	case artworkMsg:
		p := m.registry.ByID(msg.id)
		if p == nil || p.Track.ArtURL != msg.url {
			return m, nil
		}
		if msg.err != nil {
			if !errors.Is(msg.err, errNoArtwork) {
				m.logger.Debug("artwork failed", "url", msg.url, "error", msg.err)
			}
			p.Art = nil
			return m, nil
		}
		p.Art = msg.art

	case artURLMsg:
		p := m.registry.ByID(msg.id)
		if p == nil || msg.err != nil || msg.url == "" {
			return m, nil
		}
		if p.Track.ID == msg.trackID && p.Track.ArtURL == "" {
			p.Track.ArtURL = msg.url
			return m, m.loadArt(p)
		}

	case mixerChangedMsg:
		if m.mixer == nil {
			return m, nil
		}
		if m.mixerLoading {
			m.mixerDirty = true
			return m, nil
		}
		m.mixerLoading = true
		return m, m.refreshMixer()

	case mixerSnapshotMsg:
		m.mixerLoading = false
		var cmds []tea.Cmd
		if msg.err != nil {
			m.mixerErr = msg.err
			m.logger.Warn("reading mixer failed", "error", msg.err)
		} else {
			m.mixerErr = nil
			cmds = append(cmds, m.applySnapshot(msg.snap))
		}
		if m.mixerDirty {
			m.mixerDirty = false
			m.mixerLoading = true
			cmds = append(cmds, m.refreshMixer())
		}
		return m, tea.Batch(cmds...)

	case launchersMsg:
		m.launchers = msg.launchers
		if m.launchSelected >= len(m.launchers) {
			m.launchSelected = 0
		}

	case knownPlayersSavedMsg:
		if msg.err != nil {
			m.logger.Warn("saving known players failed", "error", msg.err)
		}

	case launchDoneMsg:
		if msg.err != nil {
			m.logger.Warn("launching player failed", "entry", msg.entry, "error", msg.err)
			m.lastError = msg.err
		} else {
			m.logger.Info("launched player", "entry", msg.entry)
			m.lastError = nil
		}

	case mixerDoneMsg:
		if msg.err != nil {
			m.logger.Warn("mixer command failed", "action", msg.action, "error", msg.err)
			m.lastError = msg.err
		}
		return m.Update(mixerChangedMsg{})
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	case "up", "k", "+":
		return m, m.changeVolume(1)
	case "down", "j", "-":
		return m, m.changeVolume(-1)
	case "m":
		if s, ok := m.selectedStream(); ok {
			return m, m.toggleMute(s)
		}
		return m, nil
	case "tab":
		if n := len(m.sliders()); n > 0 {
			m.selected = (m.selected + 1) % n
		}
		return m, nil
	case "shift+tab":
		if n := len(m.sliders()); n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}
		return m, nil
	}

	if cmd, ok := m.launcherKey(key); ok {
		return m, cmd
	}

	switch key {
	case "o":
		return m, m.cycleDevice(StreamOutput)
	case "i":
		return m, m.cycleDevice(StreamInput)
	case "]":
		if m.registry.SwitchRelative(1) {
			m.resetScroll()
		}
		return m, nil
	case "[":
		if m.registry.SwitchRelative(-1) {
			m.resetScroll()
		}
		return m, nil
	case "a":
		m.artHidden = !m.artHidden
		var cmds []tea.Cmd
		for _, p := range m.registry.Players() {
			if m.artHidden {
				p.Art = nil
			} else {
				cmds = append(cmds, m.loadArt(p))
			}
		}
		return m, tea.Batch(cmds...)
	}

	if cmd, ok := m.playerKey(key); ok {
		return m, cmd
	}
	return m, nil
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	cfg := m.cfg.Get()
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m, m.changeVolume(1)
	case tea.MouseButtonWheelDown:
		return m, m.changeVolume(-1)
	case tea.MouseButtonMiddle:
		if m.snapshot.Output != nil {
			return m, m.toggleMute(*m.snapshot.Output)
		}
	case tea.MouseButtonWheelRight, tea.MouseButtonWheelLeft:
		if !cfg.Player.HorizontalScroll {
			return m, nil
		}
		key := "n"
		if msg.Button == tea.MouseButtonWheelLeft {
			key = "b"
		}
		cmd, _ := m.playerKey(key)
		return m, cmd
	}
	return m, nil
}

// advanceScroll moves the scrolling title one step every third tick and
// pauses at the loop point.
func (m *model) advanceScroll() {
	m.scrollTick++
	if m.scrollPause > 0 {
		m.scrollPause--
		return
	}
	if m.scrollTick%3 != 0 {
		return
	}
	m.scrollOffset++

	p := m.registry.Active()
	if p == nil {
		return
	}
	longest := 0
	for _, s := range []string{p.Track.Title, p.Track.Artist, p.Track.Album} {
		if l := len([]rune(s)); l > longest {
			longest = l
		}
	}
	if longest > m.textWidth() && m.scrollOffset >= longest+len([]rune(scrollSeparator)) {
		m.scrollOffset = 0
		m.scrollPause = 30
	}
}
