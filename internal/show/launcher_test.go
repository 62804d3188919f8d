package show

import (
	"testing"
	"time"

	"fireshow/internal/config"
	"fireshow/internal/geom"
	"fireshow/internal/placement"
	logx "fireshow/pkg/logx"
)

func TestLauncher(t *testing.T) {
	t.Parallel()

	h := newFakeHost()
	cfg := config.DefaultShow()
	cfg.OnlySpawnOnLand = false
	holder := config.NewShowHolder(cfg)
	rng := geom.NewLockedRand(9)
	ex := NewExecutor(h, holder, rng, logx.Nop(), nil)
	l := NewLauncher(ex, placement.NewResolver(h, rng, logx.Nop()), holder)

	if _, ok := l.Launch(Automatic, 0); ok {
		t.Fatalf("zero count launched")
	}
	req, ok := l.Launch(Automatic, 3)
	if !ok || req.ID == "" || req.Count != 3 || req.Type != Automatic {
		t.Fatalf("req=%+v ok=%v", req, ok)
	}
	if req.Center.Y != 5+cfg.HeightOffset {
		t.Fatalf("center not resolved: %v", req.Center)
	}

	at := geom.Vec3{X: 1, Y: 2, Z: 3}
	req2, _ := l.LaunchAt(Local, at, "", 2)
	if req2.Center != at || req2.ID == req.ID {
		t.Fatalf("LaunchAt req=%+v", req2)
	}
	last, total := l.Last()
	if last.ID != req2.ID || total != 2 {
		t.Fatalf("Last=%v total=%d", last.ID, total)
	}

	h.Advance(time.Minute)
	if len(h.fired) != 5 {
		t.Fatalf("fired=%d want 5", len(h.fired))
	}
}
