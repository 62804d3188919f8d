package show

import (
	"fmt"

	"fireshow/internal/config"
	"fireshow/internal/daytime"
	"fireshow/internal/eventbus"
	"fireshow/internal/geom"
	"fireshow/internal/host"
	logx "fireshow/pkg/logx"
)

// Executor runs shows. All methods must be called on the host thread.
type Executor struct {
	host host.Host
	cfg  *config.ShowHolder
	rng  geom.Rand
	log  logx.Logger
	bus  eventbus.Bus
}

func NewExecutor(h host.Host, cfg *config.ShowHolder, rng geom.Rand, log logx.Logger, bus eventbus.Bus) *Executor {
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Executor{host: h, cfg: cfg, rng: rng, log: log, bus: bus}
}

// run is the state one show shares across its firings.
type run struct {
	req    Request
	cfg    *config.Show
	loot   []config.LootEntry
	marker host.Marker
	log    logx.Logger
}

// Run starts req and returns immediately; firings happen on host timers.
// A non-positive count does nothing. It returns the planned firings.
func (e *Executor) Run(req Request) []Firing {
	if req.Count <= 0 {
		return nil
	}
	cfg := e.cfg.Get()
	r := &run{
		req:  req,
		cfg:  cfg,
		loot: cfg.LootEntries(),
		log:  e.log.With(logx.String("show_id", req.ID)),
	}

	e.logLaunch(r)

	if cfg.EnableMapMarkers {
		m, err := e.host.CreateMarker(req.Center, MarkerStyle)
		if err != nil {
			r.log.Warn("map marker create failed", logx.Err(err))
		} else {
			r.marker = m
		}
	}

	plan := BuildFirings(req.Count, cfg.EnableStaggeredFireMode, e.rng)
	for _, f := range plan {
		e.host.Once(f.Delay, func() { e.fire(r, f) })
	}
	e.bus.Publish(eventbus.Event{Type: eventbus.ShowLaunched, Data: req})
	return plan
}

func (e *Executor) logLaunch(r *run) {
	fields := []logx.Field{
		logx.String("type", string(r.req.Type)),
		logx.String("grid", e.host.GridRef(r.req.Center)),
		logx.String("location", Location(r.req)),
		logx.Int("count", r.req.Count),
	}
	if r.req.Type == TimeBased {
		fields = append(fields, logx.String("hour", fmt.Sprintf("[%.2f]", daytime.DecimalHour(e.host.TimeOfDay()))))
	}
	r.log.Info("show launched", fields...)
}

// Location renders the place of a show: Monument(name) or Location(x, y, z).
func Location(req Request) string {
	if req.PlaceName != "" {
		return "Monument(" + req.PlaceName + ")"
	}
	return "Location" + req.Center.String()
}

// fire runs one firing. Failures are logged with the firing index and never
// affect other firings or the marker lifecycle.
func (e *Executor) fire(r *run, f Firing) {
	defer e.recoverFiring(r, f.Index, "firework")

	if f.IsLast && r.marker != nil {
		m := r.marker
		e.host.Once(MarkerLinger, func() {
			defer e.recoverFiring(r, f.Index, "marker cleanup")
			if !m.Destroyed() {
				m.Destroy()
			}
		})
	}

	pos := geom.UniformPointInDisk(e.rng, r.req.Center, r.cfg.SpreadRadius)
	pos.Y = e.host.HeightAt(pos.X, pos.Z) + r.cfg.HeightOffset
	prefab := Palette[e.rng.Intn(len(Palette))]

	fx, err := e.host.SpawnEffect(prefab, pos)
	if err != nil {
		r.log.Warn("firework spawn failed", logx.Int("index", f.Index), logx.Err(err))
		return
	}
	fx.Fire()
	fx.Release()

	e.host.Once(LootDelay, func() { e.dropLoot(r, f.Index, pos) })
}

func (e *Executor) dropLoot(r *run, index int, pos geom.Vec3) {
	defer e.recoverFiring(r, index, "loot drop")

	if !r.cfg.EnableLootDrops || len(r.loot) == 0 {
		return
	}
	if !geom.PercentRoll(e.rng, r.cfg.LootDropChance) {
		return
	}
	entry := r.loot[e.rng.Intn(len(r.loot))]
	qty := geom.RangeInt(e.rng, entry.Min, entry.Max)
	at := pos.Add(geom.Vec3{Y: LootDropHeight})
	if err := e.host.DropItem(entry.Name, qty, at, geom.Vec3{}); err != nil {
		r.log.Warn("loot drop failed", logx.Int("index", index), logx.String("item", entry.Name), logx.Err(err))
		return
	}
	r.log.Debug("loot dropped", logx.Int("index", index), logx.String("item", entry.Name), logx.Int("qty", qty))
}

func (e *Executor) recoverFiring(r *run, index int, stage string) {
	if rec := recover(); rec != nil {
		r.log.Error("firing panic",
			logx.String("stage", stage),
			logx.Int("index", index),
			logx.Any("panic", rec),
		)
	}
}
