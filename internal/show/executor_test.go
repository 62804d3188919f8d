package show

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"fireshow/internal/config"
	"fireshow/internal/geom"
	"fireshow/internal/host"
	"fireshow/internal/hostsim"
	logx "fireshow/pkg/logx"
)

type drop struct {
	item string
	qty  int
	at   geom.Vec3
	vel  geom.Vec3
}

type fakeMarker struct{ destroyed int }

func (m *fakeMarker) Destroyed() bool { return m.destroyed > 0 }
func (m *fakeMarker) Destroy()        { m.destroyed++ }

type fakeEffect struct {
	h      *fakeHost
	prefab string
	at     geom.Vec3
}

func (f *fakeEffect) Fire()    { f.h.fired = append(f.h.fired, f.at) }
func (f *fakeEffect) Release() { f.h.released++ }

// fakeHost is flat terrain at height 5 on top of a virtual-time loop.
type fakeHost struct {
	*hostsim.Loop

	markers  []*fakeMarker
	spawns   int
	fired    []geom.Vec3
	released int
	drops    []drop
	prefabs  []string

	spawnHook func(n int) error
}

func newFakeHost() *fakeHost {
	return &fakeHost{Loop: hostsim.NewLoop(logx.Nop())}
}

func (h *fakeHost) HeightAt(x, z float64) float64 { return 5 }
func (h *fakeHost) IsWater(geom.Vec3) bool        { return false }
func (h *fakeHost) MapSize() float64              { return 4000 }
func (h *fakeHost) Monuments() []host.Monument    { return nil }
func (h *fakeHost) Players() []host.Player        { return nil }
func (h *fakeHost) TimeOfDay() float64            { return 19 + 50.0/60 }
func (h *fakeHost) GridRef(p geom.Vec3) string    { return "G12" }

func (h *fakeHost) CreateMarker(at geom.Vec3, style host.MarkerStyle) (host.Marker, error) {
	m := &fakeMarker{}
	h.markers = append(h.markers, m)
	return m, nil
}

func (h *fakeHost) SpawnEffect(prefab string, at geom.Vec3) (host.Effect, error) {
	n := h.spawns
	h.spawns++
	if h.spawnHook != nil {
		if err := h.spawnHook(n); err != nil {
			return nil, err
		}
	}
	h.prefabs = append(h.prefabs, prefab)
	return &fakeEffect{h: h, prefab: prefab, at: at}, nil
}

func (h *fakeHost) DropItem(item string, qty int, at, velocity geom.Vec3) error {
	h.drops = append(h.drops, drop{item: item, qty: qty, at: at, vel: velocity})
	return nil
}

func newExecutor(h host.Host, cfg *config.Show, log logx.Logger) *Executor {
	return NewExecutor(h, config.NewShowHolder(cfg), geom.NewLockedRand(5), log, nil)
}

func TestRunNonPositiveCountIsNoop(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -3} {
		h := newFakeHost()
		var buf bytes.Buffer
		ex := newExecutor(h, config.DefaultShow(), logx.NewJSON(&buf, "trace"))
		if plan := ex.Run(Request{Count: n, Type: Local}); plan != nil {
			t.Fatalf("count %d: plan=%v", n, plan)
		}
		if h.Pending() != 0 || len(h.markers) != 0 {
			t.Fatalf("count %d: side effects pending=%d markers=%d", n, h.Pending(), len(h.markers))
		}
		if buf.Len() != 0 {
			t.Fatalf("count %d: unexpected log %s", n, buf.String())
		}
	}
}

func TestBuildFiringsStaggered(t *testing.T) {
	t.Parallel()

	rng := geom.NewLockedRand(3)
	for trial := 0; trial < 50; trial++ {
		plan := BuildFirings(5, true, rng)
		if len(plan) != 5 || !plan[4].IsLast || plan[3].IsLast {
			t.Fatalf("bad plan %v", plan)
		}
		prev := time.Duration(0)
		for i, f := range plan {
			gap := f.Delay - prev
			if f.Index != i || gap < 100*time.Millisecond-time.Microsecond || gap > 1500*time.Millisecond {
				t.Fatalf("firing %d gap %v out of range", i, gap)
			}
			if f.Delay < prev {
				t.Fatalf("staggered delays decreased: %v", plan)
			}
			prev = f.Delay
		}
	}
}

func TestBuildFiringsIndependent(t *testing.T) {
	t.Parallel()

	rng := geom.NewLockedRand(3)
	decreased := false
	for trial := 0; trial < 50; trial++ {
		plan := BuildFirings(5, false, rng)
		for i, f := range plan {
			if f.Delay < 0 || f.Delay >= 2*time.Second {
				t.Fatalf("independent delay %v out of range", f.Delay)
			}
			if i > 0 && f.Delay < plan[i-1].Delay {
				decreased = true
			}
		}
	}
	if !decreased {
		t.Fatalf("independent mode should not be ordered")
	}
	if BuildFirings(0, true, rng) != nil {
		t.Fatalf("empty plan expected")
	}
}

func TestRunFullShow(t *testing.T) {
	t.Parallel()

	h := newFakeHost()
	cfg := config.DefaultShow()
	cfg.LootDropChance = 100
	cfg.LootDropItems = map[string]config.LootEntry{"gunpowder": {Min: 3, Max: 3}}
	ex := newExecutor(h, cfg, logx.Nop())

	center := geom.Vec3{X: 100, Y: 5, Z: -40}
	plan := ex.Run(Request{ID: "s1", Center: center, Count: 6, Type: Local})
	if len(plan) != 6 || len(h.markers) != 1 {
		t.Fatalf("plan=%d markers=%d", len(plan), len(h.markers))
	}
	last := plan[len(plan)-1].Delay

	h.Advance(last + MarkerLinger - 100*time.Millisecond)
	if len(h.fired) != 6 || h.released != 6 {
		t.Fatalf("fired=%d released=%d", len(h.fired), h.released)
	}
	if h.markers[0].Destroyed() {
		t.Fatalf("marker destroyed before linger elapsed")
	}
	h.Advance(200 * time.Millisecond)
	if h.markers[0].destroyed != 1 {
		t.Fatalf("marker destroyed %d times", h.markers[0].destroyed)
	}

	if len(h.drops) != 6 {
		t.Fatalf("drops=%d want 6", len(h.drops))
	}
	for i, d := range h.drops {
		if d.item != "gunpowder" || d.qty != 3 {
			t.Fatalf("drop %d = %+v", i, d)
		}
		if d.vel != (geom.Vec3{}) {
			t.Fatalf("drop velocity %v", d.vel)
		}
		if d.at.Y != 5+cfg.HeightOffset+LootDropHeight {
			t.Fatalf("drop height %v", d.at.Y)
		}
	}
	for _, p := range h.fired {
		if math.Hypot(p.X-center.X, p.Z-center.Z) > cfg.SpreadRadius+1e-9 {
			t.Fatalf("firework %v outside spread radius", p)
		}
		if p.Y != 5+cfg.HeightOffset {
			t.Fatalf("firework height %v", p.Y)
		}
	}
	for _, pf := range h.prefabs {
		found := false
		for _, want := range Palette {
			found = found || pf == want
		}
		if !found {
			t.Fatalf("prefab %q not in palette", pf)
		}
	}
	if h.Pending() != 0 {
		t.Fatalf("timers left: %d", h.Pending())
	}
}

func TestRunLootDisabled(t *testing.T) {
	t.Parallel()

	h := newFakeHost()
	cfg := config.DefaultShow()
	cfg.EnableLootDrops = false
	cfg.LootDropChance = 100
	ex := newExecutor(h, cfg, logx.Nop())
	ex.Run(Request{Count: 4, Type: Random})
	h.Advance(time.Minute)
	if len(h.drops) != 0 {
		t.Fatalf("drops=%d", len(h.drops))
	}

	h2 := newFakeHost()
	cfg2 := config.DefaultShow()
	cfg2.LootDropChance = 0
	newExecutor(h2, cfg2, logx.Nop()).Run(Request{Count: 4, Type: Random})
	h2.Advance(time.Minute)
	if len(h2.drops) != 0 {
		t.Fatalf("chance 0 dropped %d", len(h2.drops))
	}
}

func TestRunFiringFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	h := newFakeHost()
	h.spawnHook = func(n int) error {
		switch n {
		case 0:
			panic("entity system exploded")
		case 2:
			return errors.New("prefab missing")
		}
		return nil
	}
	cfg := config.DefaultShow()
	cfg.EnableStaggeredFireMode = true
	var buf bytes.Buffer
	ex := newExecutor(h, cfg, logx.NewJSON(&buf, "debug"))
	ex.Run(Request{Count: 5, Type: Automatic})
	h.Advance(time.Minute)

	if len(h.fired) != 3 {
		t.Fatalf("fired=%d want 3", len(h.fired))
	}
	if h.markers[0].destroyed != 1 {
		t.Fatalf("marker lifecycle broken by failures")
	}
	logs := buf.String()
	if !strings.Contains(logs, `"index":0`) || !strings.Contains(logs, "firing panic") {
		t.Fatalf("panic not logged with index: %s", logs)
	}
	if !strings.Contains(logs, "firework spawn failed") {
		t.Fatalf("spawn error not logged: %s", logs)
	}
}

func TestRunLastFiringFailureStillCleansMarker(t *testing.T) {
	t.Parallel()

	h := newFakeHost()
	h.spawnHook = func(n int) error { return errors.New("nope") }
	ex := newExecutor(h, config.DefaultShow(), logx.Nop())
	ex.Run(Request{Count: 2, Type: Local})
	h.Advance(time.Minute)
	if h.markers[0].destroyed != 1 {
		t.Fatalf("marker not cleaned up")
	}
}

func TestRunMarkersDisabled(t *testing.T) {
	t.Parallel()

	h := newFakeHost()
	cfg := config.DefaultShow()
	cfg.EnableMapMarkers = false
	newExecutor(h, cfg, logx.Nop()).Run(Request{Count: 2, Type: Local})
	h.Advance(time.Minute)
	if len(h.markers) != 0 {
		t.Fatalf("marker created while disabled")
	}
}

func TestLaunchLogLine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		req      Request
		wantTime bool
		location string
	}{
		{Request{Count: 1, Type: TimeBased, PlaceName: "Airfield"}, true, "Monument(Airfield)"},
		{Request{Count: 1, Type: Automatic, Center: geom.Vec3{X: 1, Y: 2, Z: 3}}, false, "Location(1.00, 2.00, 3.00)"},
	}
	for _, tc := range cases {
		h := newFakeHost()
		var buf bytes.Buffer
		newExecutor(h, config.DefaultShow(), logx.NewJSON(&buf, "info")).Run(tc.req)

		line := strings.SplitN(buf.String(), "\n", 2)[0]
		var got map[string]any
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("log line not json: %q", line)
		}
		if got["type"] != string(tc.req.Type) || got["grid"] != "G12" || got["location"] != tc.location || got["count"] != float64(1) {
			t.Fatalf("log fields %v", got)
		}
		if n := strings.Count(line, `"time":`); n != 1 {
			t.Fatalf("time keys=%d in %q", n, line)
		}
		hour, has := got["hour"]
		if has != tc.wantTime {
			t.Fatalf("hour field presence=%v for %s", has, tc.req.Type)
		}
		if tc.wantTime && hour != "[19.50]" {
			t.Fatalf("hour=%v", hour)
		}
	}
}
