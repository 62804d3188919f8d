// Package schedule decides when shows happen.
//
// Two sub-schedulers re-arm themselves on host timers: "automatic" fires on
// a jittered interval and "timed" polls a time-of-day window. Cron specs add
// wall-clock scheduled shows on top. Every callback runs on the host thread.
package schedule

import (
	"fmt"
	"runtime/debug"
	"time"

	"fireshow/internal/config"
	"fireshow/internal/daytime"
	"fireshow/internal/eventbus"
	"fireshow/internal/geom"
	"fireshow/internal/host"
	"fireshow/internal/show"
	logx "fireshow/pkg/logx"
)

// Launcher starts a show of count firings at a resolved center.
type Launcher interface {
	Launch(kind show.Type, count int) (show.Request, bool)
}

type Options struct {
	Timers   host.Timers
	World    host.World
	Launcher Launcher
	Config   *config.ShowHolder
	Rand     geom.Rand
	Log      logx.Logger
	Bus      eventbus.Bus
	// Clock is the wall clock cron specs are evaluated against.
	Clock func() time.Time
}

// State of one sub-scheduler.
type State string

const (
	Idle  State = "idle"
	Armed State = "armed"
)

// Status is a point-in-time view of a sub-scheduler.
type Status struct {
	Name     string        `json:"name"`
	State    State         `json:"state"`
	NextIn   time.Duration `json:"next_in"`
	Ticks    uint64        `json:"ticks"`
	Launched uint64        `json:"launched"`
}

// ArmedEvent is published every time a sub-scheduler arms.
type ArmedEvent struct {
	Name  string        `json:"name"`
	Delay time.Duration `json:"delay"`
}

// Scheduler owns the re-arming timers. It is not safe for concurrent use.
type Scheduler struct {
	opt Options

	// gen invalidates callbacks armed before the last Restart or Stop.
	gen uint64

	auto  *sub
	timed *sub
	crons []*cronSub
}

func New(opt Options) *Scheduler {
	if opt.Bus == nil {
		opt.Bus = eventbus.Nop()
	}
	if opt.Clock == nil {
		opt.Clock = time.Now
	}
	return &Scheduler{
		opt:   opt,
		auto:  &sub{name: "automatic"},
		timed: &sub{name: "timed"},
	}
}

type sub struct {
	name     string
	timer    host.Timer
	armedAt  time.Duration
	delay    time.Duration
	ticks    uint64
	launched uint64
}

func (s *sub) disarm() {
	if s.timer != nil {
		s.timer.Destroy()
		s.timer = nil
	}
}

func (s *sub) status(now time.Duration) Status {
	st := Status{Name: s.name, State: Idle, Ticks: s.ticks, Launched: s.launched}
	if s.timer != nil {
		st.State = Armed
		st.NextIn = s.armedAt + s.delay - now
		if st.NextIn < 0 {
			st.NextIn = 0
		}
	}
	return st
}

func (sc *Scheduler) arm(s *sub, delay time.Duration, fn func()) {
	s.disarm()
	s.armedAt = sc.opt.Timers.Now()
	s.delay = delay
	s.timer = sc.opt.Timers.Once(delay, fn)
	sc.opt.Bus.Publish(eventbus.Event{Type: eventbus.SchedulerArmed, Data: ArmedEvent{Name: s.name, Delay: delay}})
}

// Restart drops every timer and starts each sub-scheduler that is enabled
// and has valid bounds under the current configuration.
func (sc *Scheduler) Restart() {
	sc.Stop()
	gen := sc.gen
	cfg := sc.opt.Config.Get()
	log := sc.opt.Log

	started := 0
	if cfg.AutomaticShowsEnabled {
		if cfg.AutomaticShowsIntervalMinSeconds <= 0 || cfg.AutomaticShowsIntervalMaxSeconds <= 0 {
			log.Warn("invalid automatic intervals; automatic scheduler not started",
				logx.Float64("min_s", cfg.AutomaticShowsIntervalMinSeconds),
				logx.Float64("max_s", cfg.AutomaticShowsIntervalMaxSeconds),
			)
		} else {
			warnReversed(log, "automatic", cfg.AutomaticShowsIntervalMinSeconds, cfg.AutomaticShowsIntervalMaxSeconds)
			log.Info("starting automatic scheduler")
			sc.armAuto(gen, cfg)
			started++
		}
	}

	if cfg.TimeBasedShowsEnabled {
		if cfg.TimedShowIntervalMinSeconds <= 0 || cfg.TimedShowIntervalMaxSeconds <= 0 {
			log.Warn("invalid timed intervals; time-based scheduler not started",
				logx.Float64("min_s", cfg.TimedShowIntervalMinSeconds),
				logx.Float64("max_s", cfg.TimedShowIntervalMaxSeconds),
			)
		} else {
			warnReversed(log, "timed", cfg.TimedShowIntervalMinSeconds, cfg.TimedShowIntervalMaxSeconds)
			log.Info("starting time-based scheduler",
				logx.Float64("start", cfg.TimeBasedStartHour),
				logx.Float64("end", cfg.TimeBasedShowEndHour),
			)
			// The window is checked right away, then on every re-arm.
			sc.arm(sc.timed, 0, func() { sc.timedTick(gen) })
			started++
		}
	}

	if cfg.ScheduledShowsEnabled {
		started += sc.startCrons(gen, cfg)
	}

	if started == 0 {
		log.Info("no schedulers enabled")
	}
}

// Stop destroys the top-level timers. Firings already armed by running
// shows are not tracked and still complete.
func (sc *Scheduler) Stop() {
	sc.gen++
	sc.auto.disarm()
	sc.timed.disarm()
	for _, c := range sc.crons {
		c.disarm()
	}
	sc.crons = nil
}

// Snapshot reports every sub-scheduler, automatic and timed first.
func (sc *Scheduler) Snapshot() []Status {
	now := sc.opt.Timers.Now()
	out := []Status{sc.auto.status(now), sc.timed.status(now)}
	for _, c := range sc.crons {
		out = append(out, c.status(now))
	}
	return out
}

func warnReversed(log logx.Logger, name string, minS, maxS float64) {
	if minS > maxS {
		log.Warn("interval bounds reversed; swapping",
			logx.String("scheduler", name),
			logx.Float64("min_s", minS),
			logx.Float64("max_s", maxS),
		)
	}
}

// intervalDelay draws a delay in [minS, maxS) seconds. Reversed bounds are swapped.
func intervalDelay(rng geom.Rand, minS, maxS float64) time.Duration {
	if minS > maxS {
		minS, maxS = maxS, minS
	}
	return time.Duration(geom.RangeFloat(rng, minS, maxS) * float64(time.Second))
}

func (sc *Scheduler) armAuto(gen uint64, cfg *config.Show) {
	d := intervalDelay(sc.opt.Rand, cfg.AutomaticShowsIntervalMinSeconds, cfg.AutomaticShowsIntervalMaxSeconds)
	sc.arm(sc.auto, d, func() { sc.autoTick(gen) })
}

// rearm runs after a tick body, including one that panicked.
func (sc *Scheduler) rearm(gen uint64, name string, fn func(cfg *config.Show)) {
	if r := recover(); r != nil {
		sc.opt.Log.Error("scheduler tick panic",
			logx.String("sub", name),
			logx.Any("panic", r),
			logx.String("stack", string(debug.Stack())),
		)
	}
	if gen != sc.gen {
		return
	}
	fn(sc.opt.Config.Get())
}

func (sc *Scheduler) autoTick(gen uint64) {
	if gen != sc.gen {
		return
	}
	sc.auto.timer = nil
	sc.auto.ticks++
	defer sc.rearm(gen, sc.auto.name, func(cfg *config.Show) { sc.armAuto(gen, cfg) })

	cfg := sc.opt.Config.Get()
	if cfg.OnlyWhenPlayersOnline && len(sc.opt.World.Players()) == 0 {
		sc.opt.Log.Info("no players online, skipping automatic show")
		return
	}
	if !geom.PercentRoll(sc.opt.Rand, float64(cfg.AutomaticShowsDiceRollChancePercent)) {
		sc.opt.Log.Debug("automatic dice roll lost", logx.Int("chance", cfg.AutomaticShowsDiceRollChancePercent))
		return
	}
	count := geom.RangeInt(sc.opt.Rand, cfg.AutomaticShowsFireworksMin, cfg.AutomaticShowsFireworksMax)
	if _, ok := sc.opt.Launcher.Launch(show.Automatic, count); ok {
		sc.auto.launched++
	}
}

func (sc *Scheduler) timedTick(gen uint64) {
	if gen != sc.gen {
		return
	}
	sc.timed.timer = nil
	sc.timed.ticks++
	defer sc.rearm(gen, sc.timed.name, func(cfg *config.Show) {
		d := intervalDelay(sc.opt.Rand, cfg.TimedShowIntervalMinSeconds, cfg.TimedShowIntervalMaxSeconds)
		sc.arm(sc.timed, d, func() { sc.timedTick(gen) })
	})

	cfg := sc.opt.Config.Get()
	now := daytime.DecimalHour(sc.opt.World.TimeOfDay())
	if !daytime.InWindow(now, cfg.TimeBasedStartHour, cfg.TimeBasedShowEndHour) {
		sc.opt.Log.Trace("outside show window", logx.String("now", fmt.Sprintf("%.2f", now)))
		return
	}
	if !geom.PercentRoll(sc.opt.Rand, float64(cfg.TimeBasedShowsDiceRollChancePercent)) {
		return
	}
	count := geom.RangeInt(sc.opt.Rand, cfg.TimeBasedShowsFireworksMin, cfg.TimeBasedShowsFireworksMax)
	if _, ok := sc.opt.Launcher.Launch(show.TimeBased, count); ok {
		sc.timed.launched++
	}
}
