// Package geom holds the small random-geometry helpers shared by placement
// and show execution: uniform disk sampling, percentage dice and range draws.
package geom

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Vec3 is a world-space point. Y is the vertical axis.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }
func (v Vec3) String() string       { return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z) }

// Valid reports whether every component is finite.
func (v Vec3) Valid() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Rand is the randomness source used across the core. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// LockedRand is a Rand safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

// UniformPointInDisk samples a point uniformly over the horizontal disk of the
// given radius around center. The radial coordinate folds the sum of two
// uniforms (a triangular distribution on [0,1]), which has density 2r. Y is
// copied from center.
func UniformPointInDisk(r Rand, center Vec3, radius float64) Vec3 {
	theta := 2 * math.Pi * r.Float64()
	s := r.Float64() + r.Float64()
	rr := s
	if s > 1 {
		rr = 2 - s
	}
	d := rr * radius
	return Vec3{
		X: center.X + d*math.Cos(theta),
		Y: center.Y,
		Z: center.Z + d*math.Sin(theta),
	}
}

// PercentRoll draws an integer in [0,100) and reports whether it is strictly
// below chance. chance <= 0 never succeeds, chance >= 100 always does.
func PercentRoll(r Rand, chance float64) bool {
	return float64(r.Intn(100)) < chance
}

// RangeFloat draws uniformly from [min, max). It returns min when max <= min.
func RangeFloat(r Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.Float64()*(max-min)
}

// RangeInt draws uniformly from [min, max] inclusive. It returns min when max <= min.
func RangeInt(r Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}
