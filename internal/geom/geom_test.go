package geom

import (
	"math"
	"math/rand"
	"testing"
)

func TestUniformPointInDiskAreaUniform(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	const (
		n      = 20000
		bins   = 10
		radius = 30.0
	)
	center := Vec3{X: 100, Y: 42, Z: -50}
	var counts [bins]int
	for i := 0; i < n; i++ {
		p := UniformPointInDisk(rng, center, radius)
		if p.Y != center.Y {
			t.Fatalf("Y changed: %v", p.Y)
		}
		dx, dz := p.X-center.X, p.Z-center.Z
		d2 := (dx*dx + dz*dz) / (radius * radius)
		if d2 > 1+1e-9 {
			t.Fatalf("sample outside disk: %v", d2)
		}
		b := int(d2 * bins)
		if b == bins {
			b--
		}
		counts[b]++
	}
	// squared distance must be uniform on [0, r^2]
	want := float64(n) / bins
	for i, c := range counts {
		if math.Abs(float64(c)-want) > want*0.12 {
			t.Fatalf("bin %d has %d samples, want about %.0f (counts=%v)", i, c, want, counts)
		}
	}
}

func TestUniformPointInDiskZeroRadius(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))
	c := Vec3{X: 1, Y: 2, Z: 3}
	if got := UniformPointInDisk(rng, c, 0); got != c {
		t.Fatalf("got %v, want %v", got, c)
	}
}

func TestPercentRollBounds(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 5000; i++ {
		if PercentRoll(rng, 0) {
			t.Fatal("chance 0 must never succeed")
		}
		if !PercentRoll(rng, 100) {
			t.Fatal("chance 100 must always succeed")
		}
		if PercentRoll(rng, -5) {
			t.Fatal("negative chance must never succeed")
		}
		if !PercentRoll(rng, 250) {
			t.Fatal("chance above 100 must always succeed")
		}
	}
}

func TestPercentRollRate(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(11))
	hits := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if PercentRoll(rng, 25) {
			hits++
		}
	}
	if rate := float64(hits) / n; rate < 0.23 || rate > 0.27 {
		t.Fatalf("hit rate %.3f, want ~0.25", rate)
	}
}

func TestRangeDraws(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(5))
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := RangeInt(rng, 3, 6)
		if v < 3 || v > 6 {
			t.Fatalf("RangeInt out of bounds: %d", v)
		}
		seen[v] = true
		f := RangeFloat(rng, 0.1, 1.5)
		if f < 0.1 || f >= 1.5 {
			t.Fatalf("RangeFloat out of bounds: %v", f)
		}
	}
	if len(seen) != 4 {
		t.Fatalf("RangeInt should reach both ends inclusive, saw %v", seen)
	}
	if RangeInt(rng, 3, 3) != 3 || RangeInt(rng, 9, 2) != 9 {
		t.Fatal("degenerate ranges must return min")
	}
	if RangeFloat(rng, 10, 10) != 10 {
		t.Fatal("degenerate float range must return min")
	}
}

func TestVec3Valid(t *testing.T) {
	t.Parallel()
	if !(Vec3{1, 2, 3}).Valid() {
		t.Fatal("finite vector reported invalid")
	}
	if (Vec3{math.NaN(), 0, 0}).Valid() || (Vec3{0, math.Inf(1), 0}).Valid() {
		t.Fatal("non-finite vector reported valid")
	}
}

func TestLockedRandSatisfiesRand(t *testing.T) {
	t.Parallel()
	var r Rand = NewLockedRand(1)
	if v := r.Intn(10); v < 0 || v >= 10 {
		t.Fatalf("Intn out of range: %d", v)
	}
}
