// Package host defines what the show core needs from the game server that
// embeds it. Every callback the host invokes (timers, posted work) runs on
// the host's single simulation thread, one at a time.
package host

import (
	"time"

	"fireshow/internal/geom"
)

// Monument is a named point of interest. RawName is the host's prefab path.
type Monument struct {
	Position    geom.Vec3
	DisplayName string
	RawName     string
}

// Player is an online player snapshot.
type Player struct {
	ID       string
	Name     string
	Position geom.Vec3
	Forward  geom.Vec3
	IsAdmin  bool
}

// World is the read-only view of terrain, roster and clock.
type World interface {
	// HeightAt returns the terrain height under (x, z).
	HeightAt(x, z float64) float64
	// IsWater reports whether p is submerged.
	IsWater(p geom.Vec3) bool
	// MapSize is the edge length of the square map centered on the origin.
	MapSize() float64
	Monuments() []Monument
	Players() []Player
	// TimeOfDay is the in-game hour as a fraction in [0, 24).
	TimeOfDay() float64
	// GridRef names the map grid cell containing p (e.g. "G12").
	GridRef(p geom.Vec3) string
}

// MarkerStyle describes a radius map marker.
type MarkerStyle struct {
	Color  string // hex RGB, e.g. "#25D976"
	Alpha  float64
	Radius float64
	Saved  bool
}

// Marker is a live map marker. Destroy is idempotent.
type Marker interface {
	Destroyed() bool
	Destroy()
}

// Effect is a spawned visual effect entity.
type Effect interface {
	Fire()
	// Release drops the entity handle; the host keeps playing the effect.
	Release()
}

// Entities are the spawn primitives.
type Entities interface {
	CreateMarker(at geom.Vec3, style MarkerStyle) (Marker, error)
	SpawnEffect(prefab string, at geom.Vec3) (Effect, error)
	// DropItem materializes qty of item at a point with an initial velocity.
	DropItem(item string, qty int, at, velocity geom.Vec3) error
}

// Timer is a pending one-shot callback. Destroy prevents it from firing if it
// has not fired yet; it is safe to call more than once.
type Timer interface {
	Destroy()
}

// Timers is the host's future-delay primitive.
type Timers interface {
	// Once runs fn after d on the simulation thread. It may be called from
	// inside a callback.
	Once(d time.Duration, fn func()) Timer
	// Now is the monotonic host time since start.
	Now() time.Duration
}

// Host bundles all capabilities.
type Host interface {
	World
	Entities
	Timers
}
