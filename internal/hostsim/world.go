package hostsim

import (
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"fireshow/internal/config"
	"fireshow/internal/geom"
	"fireshow/internal/host"
)

const (
	seaLevel = 0.0
	// gridCell is the edge length of one map grid cell.
	gridCell = 146.28571
	// islandRadius is the coast distance as a fraction of the half extent.
	islandRadius = 0.82
)

// World is a procedural island: land near the middle, sea towards the edges,
// with a seeded ripple on top so the coast is not a perfect circle.
type World struct {
	size      float64
	dayLength time.Duration
	startHour float64
	clock     func() time.Duration

	phaseX, phaseZ float64

	mu        sync.RWMutex
	monuments []host.Monument
	players   []host.Player
}

// NewWorld builds the world from cfg. clock supplies host time for the day
// cycle.
func NewWorld(cfg config.WorldConfig, clock func() time.Duration) *World {
	size := cfg.MapSize
	if size <= 0 {
		size = config.DefaultMapSize
	}
	dayLength, _ := config.ParseDurationOrDefault("world.day_length", cfg.DayLength, config.DefaultDayLength)

	rng := rand.New(rand.NewSource(cfg.Seed))
	w := &World{
		size:      size,
		dayLength: dayLength,
		startHour: cfg.StartHour,
		clock:     clock,
		phaseX:    rng.Float64() * 2 * math.Pi,
		phaseZ:    rng.Float64() * 2 * math.Pi,
	}

	if len(cfg.Monuments) > 0 {
		for _, m := range cfg.Monuments {
			w.monuments = append(w.monuments, host.Monument{
				Position:    geom.Vec3{X: m.X, Y: w.HeightAt(m.X, m.Z), Z: m.Z},
				DisplayName: m.Display,
				RawName:     m.Prefab,
			})
		}
	} else {
		w.monuments = w.generateMonuments(rng)
	}

	players := make([]host.Player, 0, len(cfg.Players))
	for _, p := range cfg.Players {
		players = append(players, host.Player{
			ID:       p.ID,
			Name:     p.Name,
			Position: geom.Vec3{X: p.X, Y: w.HeightAt(p.X, p.Z), Z: p.Z},
			Forward:  geom.Vec3{Z: 1},
			IsAdmin:  p.Admin,
		})
	}
	w.players = players
	return w
}

func (w *World) half() float64 { return w.size / 2 }

// HeightAt peaks at ~60 in the middle and falls below sea level past the
// coast.
func (w *World) HeightAt(x, z float64) float64 {
	half := w.half()
	d := math.Hypot(x, z) / (islandRadius * half)
	base := 60 * (1 - d*d)
	ripple := 6 * math.Sin(x/97+w.phaseX) * math.Cos(z/113+w.phaseZ)
	return base + ripple
}

func (w *World) IsWater(p geom.Vec3) bool {
	return p.Y < seaLevel && w.HeightAt(p.X, p.Z) < seaLevel
}

func (w *World) MapSize() float64 { return w.size }

func (w *World) Monuments() []host.Monument {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]host.Monument(nil), w.monuments...)
}

func (w *World) Players() []host.Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]host.Player(nil), w.players...)
}

// SetPlayers replaces the online roster.
func (w *World) SetPlayers(players []host.Player) {
	w.mu.Lock()
	w.players = append([]host.Player(nil), players...)
	w.mu.Unlock()
}

// TimeOfDay advances 24 in-game hours per day length of host time.
func (w *World) TimeOfDay() float64 {
	var now time.Duration
	if w.clock != nil {
		now = w.clock()
	}
	tod := w.startHour
	if w.dayLength > 0 {
		tod += float64(now) / float64(w.dayLength) * 24
	}
	tod = math.Mod(tod, 24)
	if tod < 0 {
		tod += 24
	}
	return tod
}

// GridRef names the grid cell: letter columns from the west edge, numbered
// rows from the north edge.
func (w *World) GridRef(p geom.Vec3) string {
	half := w.half()
	col := int(math.Floor((p.X + half) / gridCell))
	row := int(math.Floor((half - p.Z) / gridCell))
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	return columnName(col) + strconv.Itoa(row)
}

// columnName maps 0->A, 25->Z, 26->AA.
func columnName(n int) string {
	name := ""
	for n >= 0 {
		name = string(rune('A'+n%26)) + name
		n = n/26 - 1
	}
	return name
}

// generateMonuments scatters a handful of well-known monuments on land.
func (w *World) generateMonuments(rng *rand.Rand) []host.Monument {
	names := []struct{ short, display string }{
		{"airfield_1", "Airfield"},
		{"harbor_1", "Harbor"},
		{"launch_site_1", "Launch Site"},
		{"powerplant_1", "Power Plant"},
		{"lighthouse", "Lighthouse"},
		{"bandit_town", "Bandit Camp"},
		{"compound", "Outpost"},
		{"supermarket_1", "Abandoned Supermarket"},
	}
	reach := 0.55 * w.half()
	out := make([]host.Monument, 0, len(names))
	for _, n := range names {
		x := (rng.Float64()*2 - 1) * reach
		z := (rng.Float64()*2 - 1) * reach
		out = append(out, host.Monument{
			Position:    geom.Vec3{X: x, Y: w.HeightAt(x, z), Z: z},
			DisplayName: n.display,
			RawName:     "assets/bundled/prefabs/autospawn/monument/" + n.short + ".prefab",
		})
	}
	return out
}
