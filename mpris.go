package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	"golang.org/x/sync/errgroup"
)

const (
	dbusPropsIface = "org.freedesktop.DBus.Properties"
	dbusIface      = "org.freedesktop.DBus"
)

// MprisBus implements Discovery on the D-Bus session bus
type MprisBus struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewMprisBus connects to the session bus
func NewMprisBus(logger *slog.Logger) (*MprisBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MprisBus{conn: conn, logger: logger}, nil
}

func isMprisName(name string) bool {
	return strings.HasPrefix(name, mprisPrefix+".")
}

// ListPlayers returns every MPRIS name currently on the bus with its owner.
func (b *MprisBus) ListPlayers(ctx context.Context) ([]BusName, error) {
	var names []string
	if err := b.conn.BusObject().CallWithContext(ctx, dbusIface+".ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("ListNames failed: %w", err)
	}

	var (
		mu      sync.Mutex
		players []BusName
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		if !isMprisName(name) {
			continue
		}
		name := name
		g.Go(func() error {
			var owner string
			err := b.conn.BusObject().CallWithContext(gctx, dbusIface+".GetNameOwner", 0, name).Store(&owner)
			if err != nil {
				// The name may have gone away between the two calls.
				b.logger.Debug("GetNameOwner failed", "name", name, "error", err)
				return nil
			}
			mu.Lock()
			players = append(players, BusName{Name: name, Owner: owner})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return players, nil
}

// Watch subscribes to MPRIS-related signals and forwards them until ctx ends.
func (b *MprisBus) Watch(ctx context.Context, send func(tea.Msg)) error {
	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface(dbusIface),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg0Namespace(mprisPrefix),
		},
		{
			dbus.WithMatchObjectPath(mprisPath),
			dbus.WithMatchInterface(dbusPropsIface),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		{
			dbus.WithMatchObjectPath(mprisPath),
			dbus.WithMatchInterface(mprisPlayerIface),
			dbus.WithMatchMember("Seeked"),
		},
	}
	for _, m := range matches {
		if err := b.conn.AddMatchSignalContext(ctx, m...); err != nil {
			return fmt.Errorf("failed to add signal match: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, 32)
	b.conn.Signal(signals)
	defer b.conn.RemoveSignal(signals)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if msg := b.translate(sig); msg != nil {
				send(msg)
			}
		}
	}
}

// translate turns a raw signal into a panel message, nil for anything else.
func (b *MprisBus) translate(sig *dbus.Signal) tea.Msg {
	switch sig.Name {
	case dbusIface + ".NameOwnerChanged":
		if len(sig.Body) != 3 {
			return nil
		}
		name, _ := sig.Body[0].(string)
		oldOwner, _ := sig.Body[1].(string)
		newOwner, _ := sig.Body[2].(string)
		if !isMprisName(name) {
			return nil
		}
		return nameOwnerChangedMsg{name: name, oldOwner: oldOwner, newOwner: newOwner}

	case dbusPropsIface + ".PropertiesChanged":
		if sig.Path != mprisPath || len(sig.Body) < 2 {
			return nil
		}
		iface, _ := sig.Body[0].(string)
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok || !strings.HasPrefix(iface, mprisPrefix) {
			return nil
		}
		return propertiesChangedMsg{owner: sig.Sender, iface: iface, changed: changed}

	case mprisPlayerIface + ".Seeked":
		if len(sig.Body) != 1 {
			return nil
		}
		micros, ok := sig.Body[0].(int64)
		if !ok {
			b.logger.Debug("unexpected Seeked payload", "sender", sig.Sender, "body", sig.Body)
			return nil
		}
		return seekedMsg{owner: sig.Sender, micros: micros}
	}
	return nil
}

// Player returns a transport for the named player
func (b *MprisBus) Player(busName string) PlayerTransport {
	return &mprisPlayer{obj: b.conn.Object(busName, mprisPath)}
}

func (b *MprisBus) Close() error {
	return b.conn.Close()
}

// mprisPlayer implements PlayerTransport over one bus object
type mprisPlayer struct {
	obj dbus.BusObject
}

func (p *mprisPlayer) call(ctx context.Context, method string, args ...interface{}) error {
	if err := p.obj.CallWithContext(ctx, method, 0, args...).Err; err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	return nil
}

func (p *mprisPlayer) PlayPause(ctx context.Context) error {
	return p.call(ctx, mprisPlayerIface+".PlayPause")
}

func (p *mprisPlayer) Stop(ctx context.Context) error {
	return p.call(ctx, mprisPlayerIface+".Stop")
}

func (p *mprisPlayer) Next(ctx context.Context) error {
	return p.call(ctx, mprisPlayerIface+".Next")
}

func (p *mprisPlayer) Previous(ctx context.Context) error {
	return p.call(ctx, mprisPlayerIface+".Previous")
}

func (p *mprisPlayer) Raise(ctx context.Context) error {
	return p.call(ctx, mprisPrefix+".Raise")
}

func (p *mprisPlayer) Quit(ctx context.Context) error {
	return p.call(ctx, mprisPrefix+".Quit")
}

func (p *mprisPlayer) SetPosition(ctx context.Context, trackID string, micros int64) error {
	return p.call(ctx, mprisPlayerIface+".SetPosition", dbus.ObjectPath(trackID), micros)
}

func (p *mprisPlayer) setProperty(ctx context.Context, name string, value interface{}) error {
	return p.call(ctx, dbusPropsIface+".Set", mprisPlayerIface, name, dbus.MakeVariant(value))
}

func (p *mprisPlayer) SetLoopStatus(ctx context.Context, loop LoopStatus) error {
	return p.setProperty(ctx, "LoopStatus", loop.String())
}

func (p *mprisPlayer) SetShuffle(ctx context.Context, shuffle bool) error {
	return p.setProperty(ctx, "Shuffle", shuffle)
}

func (p *mprisPlayer) getProperty(ctx context.Context, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := p.obj.CallWithContext(ctx, dbusPropsIface+".Get", 0, mprisPlayerIface, name).Store(&v)
	if err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to get %s: %w", name, err)
	}
	return v, nil
}

func (p *mprisPlayer) Position(ctx context.Context) (int64, error) {
	v, err := p.getProperty(ctx, "Position")
	if err != nil {
		return 0, err
	}
	micros, ok := variantInt64(v)
	if !ok {
		return 0, fmt.Errorf("unexpected Position type %s", v.Signature())
	}
	return micros, nil
}

func (p *mprisPlayer) CanSeek(ctx context.Context) (bool, error) {
	v, err := p.getProperty(ctx, "CanSeek")
	if err != nil {
		return false, err
	}
	b, ok := variantBool(v)
	if !ok {
		return false, fmt.Errorf("unexpected CanSeek type %s", v.Signature())
	}
	return b, nil
}

func (p *mprisPlayer) Properties(ctx context.Context) (map[string]dbus.Variant, error) {
	merged := make(map[string]dbus.Variant)
	for _, iface := range []string{mprisPrefix, mprisPlayerIface} {
		var props map[string]dbus.Variant
		if err := p.obj.CallWithContext(ctx, dbusPropsIface+".GetAll", 0, iface).Store(&props); err != nil {
			return nil, fmt.Errorf("GetAll %s failed: %w", iface, err)
		}
		for k, v := range props {
			merged[k] = v
		}
	}
	return merged, nil
}
