// Package app wires the show core to the simulated host, the operator
// transports and the config files, and owns the process lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fireshow/internal/command"
	"fireshow/internal/config"
	"fireshow/internal/eventbus"
	"fireshow/internal/geom"
	"fireshow/internal/hostsim"
	"fireshow/internal/placement"
	rtsup "fireshow/internal/runtime/supervisor"
	"fireshow/internal/schedule"
	"fireshow/internal/show"
	"fireshow/internal/storage"
	kit "fireshow/internal/transport"
	"fireshow/internal/transport/console"
	"fireshow/internal/transport/telegram"
	logx "fireshow/pkg/logx"
)

// Options overrides process-level plumbing, mostly for tests.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
}

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	loop     *hostsim.Loop
	sim      *hostsim.Sim
	resolver *placement.Resolver
	launcher *show.Launcher
	sched    *schedule.Scheduler
	shows    *showConfig

	cmdm     *command.Manager
	tg       *telegram.Adapter
	adapters []kit.Adapter

	updates chan kit.Update
}

func New(cfgPath string, opt Options) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if opt.Stdin == nil {
		opt.Stdin = os.Stdin
	}
	if opt.Stdout == nil {
		opt.Stdout = os.Stdout
	}

	var (
		tg     *telegram.Adapter
		sender logx.Sender
	)
	if cfg.Telegram.Enabled {
		pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
		tg, err = telegram.New(telegram.Config{Token: cfg.Telegram.Token, PollTimeout: pollTimeout}, bootLog)
		if err != nil {
			return nil, err
		}
		sender = tg
	}

	// Set the operator target before enabling the sink so Apply never
	// forwards to an empty chat.
	logCfg := mapLogConfig(cfg)
	enabledOperator := logCfg.Operator.Enabled
	logCfg.Operator.Enabled = false
	logSvc, root := logx.New(logCfg, sender)
	logSvc.SetOperatorTarget(operatorTarget(cfg))
	logCfg.Operator.Enabled = enabledOperator
	logSvc.Apply(logCfg)
	log := root.With(logx.String("comp", "app"))
	if tg != nil {
		tg.SetLogger(root.With(logx.String("comp", "telegram")))
	}

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	bus := eventbus.New()
	loop := hostsim.NewLoop(root.With(logx.String("comp", "host")))
	world := hostsim.NewWorld(cfg.World, loop.Now)
	sim := hostsim.NewSim(loop, world, bus)

	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := geom.NewLockedRand(seed)

	showStore := config.NewShowStore(cfg.Show.Path, root.With(logx.String("comp", "show.config")))
	holder := config.NewShowHolder(showStore.Load())
	resolver := placement.NewResolver(world, rng, root.With(logx.String("comp", "placement")))
	exec := show.NewExecutor(sim, holder, rng, root.With(logx.String("comp", "show")), bus)
	launcher := show.NewLauncher(exec, resolver, holder)
	sched := schedule.New(schedule.Options{
		Timers:   loop,
		World:    world,
		Launcher: launcher,
		Config:   holder,
		Rand:     rng,
		Log:      root.With(logx.String("comp", "scheduler")),
		Bus:      bus,
	})
	shows := &showConfig{store: showStore, holder: holder, resolver: resolver, log: root.With(logx.String("comp", "show.config"))}

	cmdm := command.NewManager(command.Deps{
		Loop:      loop,
		World:     world,
		Shows:     launcher,
		Scheduler: sched,
		Config:    shows,
		Rand:      rng,
		Store:     store,
		Limiter:   command.NewLimiter(cfg.Commands.RatePerSec, cfg.Commands.Burst),
	}, root.With(logx.String("comp", "commands")))
	cmdm.SetOwners(cfg.Telegram.OwnerUserIDs)

	var adapters []kit.Adapter
	if tg != nil {
		adapters = append(adapters, tg)
	}
	if cfg.Console.Enabled {
		adapters = append(adapters, console.New(opt.Stdin, opt.Stdout, root.With(logx.String("comp", "console"))))
	}
	for _, ad := range adapters {
		cmdm.Attach(ad)
	}

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		loop:     loop,
		sim:      sim,
		resolver: resolver,
		launcher: launcher,
		sched:    sched,
		shows:    shows,
		cmdm:     cmdm,
		tg:       tg,
		adapters: adapters,
		updates:  make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error seen by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Commands exposes the command manager (console tooling, tests).
func (a *App) Commands() *command.Manager { return a.cmdm }

// Host exposes the simulated host.
func (a *App) Host() *hostsim.Sim { return a.sim }

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if cfg.Telegram.Enabled && a.tg == nil {
			return fmt.Errorf("telegram.enabled requires a restart")
		}
		return nil
	})

	// Map load: cache monuments, then arm the schedulers.
	a.loop.Post(func() {
		cfg := a.shows.Get()
		a.resolver.CacheMonuments(cfg.Whitelist())
		a.sched.Restart()
	})
	a.sup.Go("host.loop", a.loop.Run)
	select {
	case <-a.loop.Started():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("host loop did not start")
	}

	for _, ad := range a.adapters {
		if err := ad.Start(a.sup.Context(), a.updates); err != nil {
			return fmt.Errorf("%s: %w", ad.Name(), err)
		}
	}
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})
	if a.tg != nil {
		a.sup.Go0("telegram.menu", func(c context.Context) {
			if err := a.tg.SetMenu(menuFromRegistry(a.cmdm.Registry())); err != nil {
				a.log.Warn("telegram menu update failed", logx.Err(err))
			}
		})
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("at", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(last, next)
				last = next
			}
		}
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch, time.Second, 30*time.Second)

	if a.cfgm.Get().Show.Watch {
		a.sup.GoRestart("show.watch", func(c context.Context) error {
			return a.shows.store.Watch(c, func() {
				a.loop.Post(func() {
					a.shows.Reload()
					a.sched.Restart()
					a.log.Info("show config reloaded from disk")
				})
			})
		}, time.Second, 30*time.Second)
	}

	a.log.Info("app started",
		logx.Int("adapters", len(a.adapters)),
		logx.String("show_config", a.shows.store.Path()),
	)
	return nil
}

// applyConfig hot-applies the parts of the process config that can change
// while running.
func (a *App) applyConfig(prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range config.RestartRequired(sections) {
		a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
	}

	a.logs.SetOperatorTarget(operatorTarget(next))
	a.logs.Apply(mapLogConfig(next))
	a.cmdm.SetOwners(next.Telegram.OwnerUserIDs)
	a.cmdm.SetLimiter(command.NewLimiter(next.Commands.RatePerSec, next.Commands.Burst))

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func menuFromRegistry(r *command.Registry) []telegram.MenuCommand {
	cmds := r.Commands()
	out := make([]telegram.MenuCommand, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, telegram.MenuCommand{Command: c.Name, Description: c.Description})
	}
	return out
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max <= 0 {
			a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// Disarm schedulers while the loop still runs; in-flight show firings
	// are not tracked and finish on their own.
	step("scheduler", 2*time.Second, func(c context.Context) error {
		return a.loop.Do(c, a.sched.Stop)
	})
	for _, ad := range a.adapters {
		step("adapter."+ad.Name(), 3*time.Second, ad.Stop)
	}

	a.sup.Cancel()
	step("supervisor", 3*time.Second, a.sup.Wait)
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	stats := a.sim.Stats()
	a.log.Info("stopped",
		logx.Uint64("fired", stats.Fired),
		logx.Uint64("loot_drops", stats.Drops),
		logx.Uint64("events_dropped", a.bus.Dropped()),
	)
	return a.logs.Close()
}
