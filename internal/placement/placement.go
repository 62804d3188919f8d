// Package placement picks the center point of a show.
//
// Resolution follows a fallback chain that always terminates:
// random player, then whitelisted monument, then land search, then anywhere
// on the map.
package placement

import (
	"strings"

	"fireshow/internal/config"
	"fireshow/internal/geom"
	"fireshow/internal/host"
	logx "fireshow/pkg/logx"
)

const (
	// landAttempts bounds the land search before degrading to the map center.
	landAttempts = 40
	// landExtent is the sampled square half-width as a fraction of map size.
	landExtent = 0.48
	// probeLift raises water probes off the surface being tested.
	probeLift = 0.25
)

// Resolver resolves show centers against a world. It is not safe for
// concurrent use; call it from the host thread.
type Resolver struct {
	world host.World
	rng   geom.Rand
	log   logx.Logger

	monuments []host.Monument
	whitelist map[string]struct{}
}

func NewResolver(world host.World, rng geom.Rand, log logx.Logger) *Resolver {
	return &Resolver{world: world, rng: rng, log: log}
}

// CacheMonuments snapshots the world's monuments, keeping those above sea
// level whose short name is whitelisted. It returns the cached count.
func (r *Resolver) CacheMonuments(whitelist map[string]struct{}) int {
	r.whitelist = whitelist
	r.monuments = r.monuments[:0]
	for _, m := range r.world.Monuments() {
		if m.Position.Y <= 0 {
			continue
		}
		short := config.MonumentShortName(m.RawName)
		if short == "" {
			continue
		}
		if _, ok := whitelist[short]; !ok {
			continue
		}
		r.monuments = append(r.monuments, m)
	}
	if len(r.monuments) == 0 {
		r.log.Warn("no monuments found on this map")
	}
	r.log.Info("monuments cached", logx.Int("count", len(r.monuments)))
	return len(r.monuments)
}

// EnsureMonuments re-caches only when the whitelist differs from the one
// the cache was built with.
func (r *Resolver) EnsureMonuments(whitelist map[string]struct{}) {
	if r.whitelist != nil && sameSet(r.whitelist, whitelist) {
		return
	}
	r.CacheMonuments(whitelist)
}

func (r *Resolver) Monuments() []host.Monument {
	return append([]host.Monument(nil), r.monuments...)
}

// MonumentName is the human name used in logs and replies.
func MonumentName(m host.Monument) string {
	if s := strings.TrimSpace(m.DisplayName); s != "" {
		return s
	}
	if s := strings.TrimSpace(m.RawName); s != "" {
		return s
	}
	return "Unknown"
}

// Resolve returns a show center and, when the center is a monument, its
// name. It never fails.
func (r *Resolver) Resolve(cfg *config.Show) (geom.Vec3, string) {
	if cfg.SpawnAtRandomPlayersMapLocation {
		if p, ok := r.nearPlayer(cfg); ok {
			return p, ""
		}
	}
	return r.mapPosition(cfg)
}

func (r *Resolver) nearPlayer(cfg *config.Show) (geom.Vec3, bool) {
	players := r.world.Players()
	if len(players) == 0 {
		return geom.Vec3{}, false
	}
	pl := players[r.rng.Intn(len(players))]
	if !pl.Position.Valid() {
		r.log.Debug("player position invalid; using map placement", logx.String("player", pl.Name))
		return geom.Vec3{}, false
	}
	p := geom.UniformPointInDisk(r.rng, pl.Position, cfg.PlayerSelectionRadius)
	p.Y = r.world.HeightAt(p.X, p.Z) + cfg.HeightOffset
	return p, true
}

func (r *Resolver) mapPosition(cfg *config.Show) (geom.Vec3, string) {
	if cfg.OnlySpawnAtMonuments {
		if m, ok := r.randomMonument(); ok {
			if cfg.OnlySpawnOnLand && r.world.IsWater(m.Position.Add(geom.Vec3{Y: probeLift})) {
				r.log.Debug("monument is in water; falling back to land", logx.String("monument", MonumentName(m)))
			} else {
				p := m.Position
				p.Y += cfg.HeightOffset
				return p, MonumentName(m)
			}
		}
	}

	if cfg.OnlySpawnOnLand {
		p, ok := r.landPoint()
		if ok {
			p.Y += cfg.HeightOffset
		}
		return p, ""
	}

	size := r.world.MapSize()
	x := r.rng.Float64()*size - size/2
	z := r.rng.Float64()*size - size/2
	return geom.Vec3{X: x, Y: r.world.HeightAt(x, z) + cfg.HeightOffset, Z: z}, ""
}

// landPoint samples up to landAttempts points and returns the first one whose
// surface is dry. When every sample is wet it returns the map center at
// terrain height and false.
func (r *Resolver) landPoint() (geom.Vec3, bool) {
	extent := r.world.MapSize() * landExtent
	for i := 0; i < landAttempts; i++ {
		x := geom.RangeFloat(r.rng, -extent, extent)
		z := geom.RangeFloat(r.rng, -extent, extent)
		h := r.world.HeightAt(x, z)
		if !r.world.IsWater(geom.Vec3{X: x, Y: h + probeLift, Z: z}) {
			return geom.Vec3{X: x, Y: h, Z: z}, true
		}
	}
	r.log.Debug("land search exhausted; using map center", logx.Int("attempts", landAttempts))
	return geom.Vec3{Y: r.world.HeightAt(0, 0)}, false
}

func (r *Resolver) randomMonument() (host.Monument, bool) {
	if len(r.monuments) == 0 {
		return host.Monument{}, false
	}
	return r.monuments[r.rng.Intn(len(r.monuments))], true
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
