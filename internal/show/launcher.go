package show

import (
	"github.com/google/uuid"

	"fireshow/internal/config"
	"fireshow/internal/geom"
	"fireshow/internal/placement"
)

// Launcher resolves a center (when the caller has none) and runs the show.
// Like Executor it must be used from the host thread.
type Launcher struct {
	exec     *Executor
	resolver *placement.Resolver
	cfg      *config.ShowHolder

	last  Request
	total int
}

func NewLauncher(exec *Executor, resolver *placement.Resolver, cfg *config.ShowHolder) *Launcher {
	return &Launcher{exec: exec, resolver: resolver, cfg: cfg}
}

// Launch runs a show of count firings at a freshly resolved center.
func (l *Launcher) Launch(kind Type, count int) (Request, bool) {
	if count <= 0 {
		return Request{}, false
	}
	center, place := l.Resolve()
	return l.LaunchAt(kind, center, place, count)
}

// Resolve picks a center the way automatic shows do.
func (l *Launcher) Resolve() (geom.Vec3, string) { return l.resolver.Resolve(l.cfg.Get()) }

// LaunchAt runs a show at an explicit center.
func (l *Launcher) LaunchAt(kind Type, center geom.Vec3, place string, count int) (Request, bool) {
	if count <= 0 {
		return Request{}, false
	}
	req := Request{
		ID:        uuid.NewString(),
		Center:    center,
		Count:     count,
		Type:      kind,
		PlaceName: place,
	}
	l.exec.Run(req)
	l.last = req
	l.total++
	return req, true
}

// Last returns the most recent show and the number launched so far.
func (l *Launcher) Last() (Request, int) { return l.last, l.total }
