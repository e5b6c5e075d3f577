package main

import (
	"regexp"
	"strings"
)

var vlcInstanceName = regexp.MustCompile(`^org\.mpris\.MediaPlayer2\.vlc-\d+$`)

// IsInstance reports whether busName is a per-instance MPRIS name,
// org.mpris.MediaPlayer2.name.instanceN, or VLC's name-N spelling.
func IsInstance(busName string) bool {
	return len(strings.Split(busName, ".")) > 4 || vlcInstanceName.MatchString(busName)
}

// Registry tracks the MPRIS players on the bus, keyed by owner token.
//
// It is only touched from the event loop, so it carries no lock. Every
// operation on an unknown owner is a no-op because discovery signals can
// arrive in any order relative to each other and to in-flight queries.
type Registry struct {
	players map[string]*Player
	order   []*Player // display order, oldest first
	active  string
	nextID  uint64
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[string]*Player)}
}

// NameAppeared handles a bus name gaining an owner. It returns the player
// when a new one was created.
func (r *Registry) NameAppeared(name, owner string) *Player {
	return r.appear(name, owner).Added
}

func (r *Registry) appear(name, owner string) NameOwnerChange {
	if owner == "" {
		return NameOwnerChange{}
	}
	if existing, ok := r.players[owner]; ok {
		// have     adding    action
		// master   instance  upgrade to instance
		// instance master    duplicate, keep first
		if IsInstance(name) && !IsInstance(existing.BusName) {
			existing.BusName = name
			return NameOwnerChange{Renamed: existing}
		}
		return NameOwnerChange{}
	}

	r.nextID++
	p := &Player{id: r.nextID, BusName: name, Owner: owner}
	r.players[owner] = p
	r.order = append(r.order, p)
	if r.active == "" {
		r.active = owner
	}
	return NameOwnerChange{Added: p}
}

// NameVanished handles a bus name losing its owner and returns the removed
// player so the caller can release its resources.
func (r *Registry) NameVanished(name, owner string) *Player {
	p, ok := r.players[owner]
	if !ok || p.BusName != name {
		return nil
	}
	delete(r.players, owner)
	r.removeFromOrder(owner)

	if r.active == owner {
		r.active = ""
		if len(r.order) > 0 {
			r.active = r.order[0].Owner
		}
	}
	return p
}

// OwnerChanged re-keys a player whose bus name moved to a new owner.
func (r *Registry) OwnerChanged(name, oldOwner, newOwner string) {
	p, ok := r.players[oldOwner]
	if !ok || p.BusName != name || newOwner == "" || oldOwner == newOwner {
		return
	}
	if _, taken := r.players[newOwner]; taken {
		return
	}
	delete(r.players, oldOwner)
	p.Owner = newOwner
	r.players[newOwner] = p
	if r.active == oldOwner {
		r.active = newOwner
	}
}

// NameOwnerChange is the outcome of HandleNameOwnerChanged
type NameOwnerChange struct {
	Added   *Player
	Removed *Player
	Renamed *Player // existing player now known by its instance name
}

// HandleNameOwnerChanged dispatches a NameOwnerChanged signal.
func (r *Registry) HandleNameOwnerChanged(name, oldOwner, newOwner string) NameOwnerChange {
	switch {
	case newOwner != "" && oldOwner == "":
		return r.appear(name, newOwner)
	case oldOwner != "" && newOwner == "":
		return NameOwnerChange{Removed: r.NameVanished(name, oldOwner)}
	default:
		r.OwnerChanged(name, oldOwner, newOwner)
		return NameOwnerChange{}
	}
}

// SwitchActive makes owner the active player. If owner is gone the stale
// display entry is dropped instead.
func (r *Registry) SwitchActive(owner string) bool {
	if _, ok := r.players[owner]; ok {
		r.active = owner
		return true
	}
	r.removeFromOrder(owner)
	return false
}

// SwitchRelative moves the active player delta places along the display list.
func (r *Registry) SwitchRelative(delta int) bool {
	n := len(r.order)
	if n == 0 {
		return false
	}
	idx := 0
	for i, p := range r.order {
		if p.Owner == r.active {
			idx = i
			break
		}
	}
	idx = ((idx+delta)%n + n) % n
	return r.SwitchActive(r.order[idx].Owner)
}

func (r *Registry) removeFromOrder(owner string) {
	for i, p := range r.order {
		if p.Owner == owner {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Active returns the active player or nil
func (r *Registry) Active() *Player {
	if r.active == "" {
		return nil
	}
	return r.players[r.active]
}

// ActiveOwner returns the active owner token, "" when there is none
func (r *Registry) ActiveOwner() string { return r.active }

// Get looks a player up by owner token
func (r *Registry) Get(owner string) *Player { return r.players[owner] }

// ByID looks a player up by serial; replies to async requests use this so
// an owner change in between does not orphan them.
func (r *Registry) ByID(id uint64) *Player {
	for _, p := range r.order {
		if p.id == id {
			return p
		}
	}
	return nil
}

// Players returns the players in display order
func (r *Registry) Players() []*Player {
	out := make([]*Player, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.players) }
