// Package show executes fireworks shows against a host: one marker, a
// batch of timed firings and a loot roll per firing.
package show

import (
	"time"

	"fireshow/internal/geom"
	"fireshow/internal/host"
)

// Type labels a show in logs and events.
type Type string

const (
	Automatic Type = "AutomaticShow"
	TimeBased Type = "TimeBasedShow"
	Local     Type = "Local Show"
	Random    Type = "Random Show"
	Scheduled Type = "ScheduledShow"
)

// Request is one show invocation.
type Request struct {
	ID        string    `json:"id"`
	Center    geom.Vec3 `json:"center"`
	Count     int       `json:"count"`
	Type      Type      `json:"type"`
	PlaceName string    `json:"place_name,omitempty"`
}

// Firing is one planned sub-event, Delay after the show starts.
type Firing struct {
	Delay  time.Duration
	Index  int
	IsLast bool
}

const (
	// LootDelay is the time between a firing and its loot roll.
	LootDelay = 2500 * time.Millisecond
	// MarkerLinger is how long the marker outlives the last firing.
	MarkerLinger = 15 * time.Second
	// LootDropHeight is how far above the firework loot materializes.
	LootDropHeight = 200.0
)

// Palette is the set of firework prefabs a firing picks from.
var Palette = []string{
	"assets/prefabs/deployable/fireworks/mortarchampagne.prefab",
	"assets/prefabs/deployable/fireworks/mortargreen.prefab",
	"assets/prefabs/deployable/fireworks/mortarblue.prefab",
	"assets/prefabs/deployable/fireworks/mortarviolet.prefab",
	"assets/prefabs/deployable/fireworks/mortarred.prefab",
}

// MarkerStyle is the translucent green radius marker placed on the map.
var MarkerStyle = host.MarkerStyle{Color: "#25D976", Alpha: 0.3, Radius: 0.5, Saved: false}

// BuildFirings plans count firings. Staggered plans accumulate a gap drawn
// from [0.1s, 1.5s) per firing, so delays never decrease with index.
// Otherwise each delay is drawn independently from [0s, 2s).
func BuildFirings(count int, staggered bool, rng geom.Rand) []Firing {
	if count <= 0 {
		return nil
	}
	out := make([]Firing, count)
	var cum float64
	for i := range out {
		var sec float64
		if staggered {
			cum += geom.RangeFloat(rng, 0.1, 1.5)
			sec = cum
		} else {
			sec = geom.RangeFloat(rng, 0, 2)
		}
		out[i] = Firing{
			Delay:  seconds(sec),
			Index:  i,
			IsLast: i == count-1,
		}
	}
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
