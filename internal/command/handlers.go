package command

import (
	"context"
	"fmt"
	"strings"

	"fireshow/internal/config"
	"fireshow/internal/geom"
	"fireshow/internal/show"
	logx "fireshow/pkg/logx"
)

// forwardOffset is how far in front of the actor fs places the show.
const forwardOffset = 5

func (m *Manager) builtins() *Registry {
	r := NewRegistry()
	r.Add(Command{
		Name:        "fs",
		Description: "launch a local show in front of you or at coordinates",
		Usage:       "/fs [count] | /fs x y z [count]",
		Access:      AccessAdmin,
		Limited:     true,
		Audited:     true,
		Handle:      m.cmdFireworkShow,
	})
	r.Add(Command{
		Name:        "fsrand",
		Description: "launch a show using automatic placement, at your feet, or at coordinates",
		Usage:       "/fsrand | /fsrand local | /fsrand x y z",
		Access:      AccessAdmin,
		Limited:     true,
		Audited:     true,
		Handle:      m.cmdRandomShow,
	})
	r.Add(Command{
		Name:        "fstoggle",
		Description: "enable or disable automatic shows",
		Usage:       "/fstoggle",
		Access:      AccessAdmin,
		Audited:     true,
		Handle:      m.cmdToggle,
	})
	r.Add(Command{
		Name:        "rf.reload",
		Aliases:     []string{"fsreload"},
		Description: "reload the show configuration and restart the schedulers",
		Usage:       "/rf.reload",
		Access:      AccessAdmin,
		Audited:     true,
		Handle:      m.cmdReload,
	})
	r.Add(Command{
		Name:        "fsstatus",
		Description: "scheduler state, time of day and last show",
		Usage:       "/fsstatus",
		Access:      AccessEveryone,
		Handle:      m.cmdStatus,
	})
	r.Add(Command{
		Name:        "fsaudit",
		Description: "recent operator actions",
		Usage:       "/fsaudit [n]",
		Access:      AccessAdmin,
		Handle:      m.cmdAudit,
	})
	r.Add(Command{
		Name:        "help",
		Aliases:     []string{"h", "start"},
		Description: "list commands",
		Usage:       "/help [command]",
		Access:      AccessEveryone,
		Handle:      m.cmdHelp,
	})
	return r
}

// onLoop runs fn on the host thread and surfaces its error.
func (m *Manager) onLoop(ctx context.Context, fn func() error) error {
	var err error
	if derr := m.deps.Loop.Do(ctx, func() { err = fn() }); derr != nil {
		return derr
	}
	return err
}

func (m *Manager) ack(req *Request, msg string, fields ...logx.Field) {
	base := []logx.Field{logx.String("actor", req.Actor.Name), logx.String("source", req.Actor.Source)}
	m.log.Info(msg, append(base, fields...)...)
}

func (m *Manager) cmdFireworkShow(ctx context.Context, req *Request) error {
	return m.onLoop(ctx, func() error {
		cfg := m.deps.Config.Get()
		count := cfg.AutomaticShowsFireworksMax

		var (
			center geom.Vec3
			place  string
		)
		if at, ok := parseCoords(req.Args); ok {
			center = at
			if len(req.Args) >= 4 {
				count = parseCount(req.Args[3], count)
			}
		} else {
			if len(req.Args) >= 1 {
				count = parseCount(req.Args[0], count)
			}
			if p := req.Actor.Position; p != nil {
				center = p.Add(req.Actor.Forward.Scale(forwardOffset))
			} else {
				center, place = m.deps.Shows.Resolve()
			}
		}

		sr, ok := m.deps.Shows.LaunchAt(show.Local, center, place, count)
		if !ok {
			req.Reply(msgPrefix + "nothing to launch, the firework count is not positive.")
			return ErrUsage
		}
		req.Target = sr.ID
		m.ack(req, "manual show launched", logx.String("show_id", sr.ID), logx.Int("count", count), logx.String("center", center.String()))
		req.Reply(fmt.Sprintf("%slaunched %d fireworks at %s.", msgPrefix, count, center))
		return nil
	})
}

func (m *Manager) cmdRandomShow(ctx context.Context, req *Request) error {
	return m.onLoop(ctx, func() error {
		var (
			center geom.Vec3
			place  string
			reply  string
		)
		kind := show.Random
		args := req.Args
		switch {
		case len(args) == 0:
			center, place = m.deps.Shows.Resolve()
			reply = fmt.Sprintf("%slaunched random show at %s.", msgPrefix, center)
		case strings.EqualFold(args[0], "local"):
			if req.Actor.Position == nil {
				req.Reply(msgPrefix + "local shows need an in-game position.")
				return ErrUsage
			}
			center = *req.Actor.Position
			kind = show.Local
			reply = fmt.Sprintf("%slaunched local show at %s.", msgPrefix, center)
		case len(args) >= 3:
			at, ok := parseCoords(args)
			if !ok {
				req.Reply("Invalid coordinates. Usage: /fsrand x y z")
				return ErrUsage
			}
			center = at
			reply = fmt.Sprintf("%slaunched show at %s.", msgPrefix, center)
		default:
			req.Reply("Usage: /fsrand | /fsrand local | /fsrand x y z")
			return ErrUsage
		}

		cfg := m.deps.Config.Get()
		count := geom.RangeInt(m.deps.Rand, cfg.TimeBasedShowsFireworksMin, cfg.TimeBasedShowsFireworksMax)
		sr, ok := m.deps.Shows.LaunchAt(kind, center, place, count)
		if !ok {
			req.Reply(msgPrefix + "nothing to launch, the firework count is not positive.")
			return ErrUsage
		}
		req.Target = sr.ID
		m.ack(req, "manual show launched", logx.String("show_id", sr.ID), logx.String("type", string(kind)), logx.Int("count", count), logx.String("center", center.String()))
		req.Reply(reply)
		return nil
	})
}

func (m *Manager) cmdToggle(ctx context.Context, req *Request) error {
	return m.onLoop(ctx, func() error {
		cfg, err := m.deps.Config.Update(func(c *config.Show) {
			c.AutomaticShowsEnabled = !c.AutomaticShowsEnabled
		})
		if err != nil {
			m.log.Warn("show config not persisted", logx.Err(err))
		}
		m.deps.Scheduler.Restart()

		state := "DISABLED"
		if cfg.AutomaticShowsEnabled {
			state = "ENABLED"
		}
		req.Target = state
		m.ack(req, "automatic shows toggled", logx.Bool("enabled", cfg.AutomaticShowsEnabled))
		req.Reply(msgPrefix + "automatic shows are now " + state + ".")
		return nil
	})
}

func (m *Manager) cmdReload(ctx context.Context, req *Request) error {
	return m.onLoop(ctx, func() error {
		m.deps.Config.Reload()
		m.deps.Scheduler.Restart()
		m.ack(req, "show config reloaded")
		req.Reply(msgPrefix + "config reloaded.")
		return nil
	})
}
