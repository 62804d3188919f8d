package hostsim

import (
	"math"
	"testing"
	"time"

	"fireshow/internal/config"
	"fireshow/internal/eventbus"
	"fireshow/internal/geom"
	"fireshow/internal/host"
	logx "fireshow/pkg/logx"
)

func TestWorldTerrain(t *testing.T) {
	t.Parallel()

	w := NewWorld(config.WorldConfig{Seed: 1, MapSize: 4000}, nil)
	center := geom.Vec3{Y: w.HeightAt(0, 0) + 0.25}
	if w.IsWater(center) {
		t.Fatalf("map center should be land")
	}
	edge := geom.Vec3{X: 1990, Z: 1990}
	edge.Y = w.HeightAt(edge.X, edge.Z) + 0.25
	if !w.IsWater(edge) {
		t.Fatalf("map corner should be sea, height=%v", w.HeightAt(edge.X, edge.Z))
	}
	if len(w.Monuments()) == 0 {
		t.Fatalf("expected generated monuments")
	}
}

func TestGridRef(t *testing.T) {
	t.Parallel()

	w := NewWorld(config.WorldConfig{MapSize: 4000}, nil)
	cases := []struct {
		p    geom.Vec3
		want string
	}{
		{geom.Vec3{X: -2000, Z: 2000}, "A0"},
		{geom.Vec3{X: -2000 + gridCell*2 + 1, Z: 2000 - gridCell*3 - 1}, "C3"},
		{geom.Vec3{X: -2000 + gridCell*26 + 1, Z: 0}, "AA13"},
	}
	for _, tc := range cases {
		if got := w.GridRef(tc.p); got != tc.want {
			t.Fatalf("GridRef(%s)=%s want %s", tc.p, got, tc.want)
		}
	}
}

func TestTimeOfDay(t *testing.T) {
	t.Parallel()

	now := time.Duration(0)
	w := NewWorld(config.WorldConfig{StartHour: 18, DayLength: "24m"}, func() time.Duration { return now })
	if got := w.TimeOfDay(); got != 18 {
		t.Fatalf("start tod=%v", got)
	}
	now = 3 * time.Minute
	if got := w.TimeOfDay(); math.Abs(got-21) > 1e-9 {
		t.Fatalf("tod after 3m=%v", got)
	}
	now = 8 * time.Minute
	if got := w.TimeOfDay(); math.Abs(got-2) > 1e-9 {
		t.Fatalf("tod should wrap, got %v", got)
	}
}

func TestEntities(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()
	sim := NewSim(NewLoop(logx.Nop()), NewWorld(config.WorldConfig{}, nil), bus)

	m, err := sim.CreateMarker(geom.Vec3{}, host.MarkerStyle{Color: "#25D976"})
	if err != nil {
		t.Fatal(err)
	}
	fx, err := sim.SpawnEffect("assets/prefabs/deployable/fireworks/mortarred.prefab", geom.Vec3{Y: 30})
	if err != nil {
		t.Fatal(err)
	}
	fx.Fire()
	fx.Release()
	fx.Fire()
	if err := sim.DropItem("cloth", 4, geom.Vec3{Y: 230}, geom.Vec3{}); err != nil {
		t.Fatal(err)
	}
	if err := sim.DropItem("cloth", 0, geom.Vec3{}, geom.Vec3{}); err == nil {
		t.Fatalf("zero quantity should fail")
	}
	m.Destroy()
	m.Destroy()
	if !m.Destroyed() {
		t.Fatalf("marker should be destroyed")
	}

	st := sim.Stats()
	if st.Fired != 1 || st.Drops != 1 || st.DroppedItems != 4 || st.MarkersActive != 0 || st.MarkersTotal != 1 {
		t.Fatalf("stats=%+v", st)
	}
	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	want := []string{eventbus.MarkerCreated, eventbus.FireworkFired, eventbus.LootDropped, eventbus.MarkerRemoved}
	if len(types) != len(want) {
		t.Fatalf("events=%v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events=%v", types)
		}
	}
	if _, err := sim.SpawnEffect("", geom.Vec3{}); err == nil {
		t.Fatalf("empty prefab should fail")
	}
}
