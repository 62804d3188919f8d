package hostsim

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"fireshow/internal/eventbus"
	"fireshow/internal/geom"
	"fireshow/internal/host"
)

// Event payloads published on the bus.
type (
	MarkerEvent struct {
		ID    uint64    `json:"id"`
		At    geom.Vec3 `json:"at"`
		Color string    `json:"color,omitempty"`
	}
	FireworkEvent struct {
		Prefab string    `json:"prefab"`
		At     geom.Vec3 `json:"at"`
	}
	LootEvent struct {
		Item string    `json:"item"`
		Qty  int       `json:"qty"`
		At   geom.Vec3 `json:"at"`
	}
)

// Stats counts entity activity since start.
type Stats struct {
	MarkersActive int    `json:"markers_active"`
	MarkersTotal  uint64 `json:"markers_total"`
	Fired         uint64 `json:"fired"`
	Drops         uint64 `json:"drops"`
	DroppedItems  uint64 `json:"dropped_items"`
}

// Entities implements the host spawn primitives and reports them on a bus.
type Entities struct {
	bus eventbus.Bus

	seq atomic.Uint64

	mu      sync.Mutex
	markers map[uint64]*marker
	stats   Stats
}

func NewEntities(bus eventbus.Bus) *Entities {
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Entities{bus: bus, markers: map[uint64]*marker{}}
}

func (e *Entities) CreateMarker(at geom.Vec3, style host.MarkerStyle) (host.Marker, error) {
	if !at.Valid() {
		return nil, fmt.Errorf("create marker: invalid position %s", at)
	}
	m := &marker{owner: e, id: e.seq.Add(1), at: at}
	e.mu.Lock()
	e.markers[m.id] = m
	e.stats.MarkersTotal++
	e.mu.Unlock()
	e.bus.Publish(eventbus.Event{Type: eventbus.MarkerCreated, Data: MarkerEvent{ID: m.id, At: at, Color: style.Color}})
	return m, nil
}

func (e *Entities) SpawnEffect(prefab string, at geom.Vec3) (host.Effect, error) {
	if strings.TrimSpace(prefab) == "" {
		return nil, errors.New("spawn effect: empty prefab")
	}
	if !at.Valid() {
		return nil, fmt.Errorf("spawn effect: invalid position %s", at)
	}
	return &effect{owner: e, prefab: prefab, at: at}, nil
}

func (e *Entities) DropItem(item string, qty int, at, velocity geom.Vec3) error {
	if strings.TrimSpace(item) == "" {
		return errors.New("drop item: empty item")
	}
	if qty <= 0 {
		return fmt.Errorf("drop item %s: quantity %d", item, qty)
	}
	if !at.Valid() || !velocity.Valid() {
		return fmt.Errorf("drop item %s: invalid position", item)
	}
	e.mu.Lock()
	e.stats.Drops++
	e.stats.DroppedItems += uint64(qty)
	e.mu.Unlock()
	e.bus.Publish(eventbus.Event{Type: eventbus.LootDropped, Data: LootEvent{Item: item, Qty: qty, At: at}})
	return nil
}

func (e *Entities) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.MarkersActive = len(e.markers)
	return s
}

type marker struct {
	owner *Entities
	id    uint64
	at    geom.Vec3
	gone  atomic.Bool
}

func (m *marker) Destroyed() bool { return m.gone.Load() }

func (m *marker) Destroy() {
	if m.gone.Swap(true) {
		return
	}
	m.owner.mu.Lock()
	delete(m.owner.markers, m.id)
	m.owner.mu.Unlock()
	m.owner.bus.Publish(eventbus.Event{Type: eventbus.MarkerRemoved, Data: MarkerEvent{ID: m.id, At: m.at}})
}

type effect struct {
	owner  *Entities
	prefab string
	at     geom.Vec3
	fired  bool
}

func (f *effect) Fire() {
	if f.owner == nil || f.fired {
		return
	}
	f.fired = true
	f.owner.mu.Lock()
	f.owner.stats.Fired++
	f.owner.mu.Unlock()
	f.owner.bus.Publish(eventbus.Event{Type: eventbus.FireworkFired, Data: FireworkEvent{Prefab: f.prefab, At: f.at}})
}

func (f *effect) Release() { f.owner = nil }

// Sim is a complete in-process host.
type Sim struct {
	*Loop
	*World
	*Entities
}

var _ host.Host = (*Sim)(nil)

// NewSim wires a loop, a world driven by the loop clock and entity
// primitives publishing to bus.
func NewSim(loop *Loop, world *World, bus eventbus.Bus) *Sim {
	return &Sim{Loop: loop, World: world, Entities: NewEntities(bus)}
}
