package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fireshow/internal/daytime"
	"fireshow/internal/schedule"
	"fireshow/internal/show"
	"fireshow/internal/storage"
)

const (
	defaultAuditN = 10
	maxAuditN     = 50
)

func (m *Manager) cmdStatus(ctx context.Context, req *Request) error {
	return m.onLoop(ctx, func() error {
		cfg := m.deps.Config.Get()
		var b strings.Builder
		b.WriteString("rFireworkShow status\n")

		for _, st := range m.deps.Scheduler.Snapshot() {
			fmt.Fprintf(&b, "- %s: %s", st.Name, formatState(st))
			if st.Ticks > 0 {
				fmt.Fprintf(&b, " (ticks %d, shows %d)", st.Ticks, st.Launched)
			}
			b.WriteByte('\n')
		}

		enabled := "disabled"
		if cfg.AutomaticShowsEnabled {
			enabled = "enabled"
		}
		fmt.Fprintf(&b, "automatic shows: %s\n", enabled)

		now := daytime.DecimalHour(m.deps.World.TimeOfDay())
		in := daytime.InWindow(now, cfg.TimeBasedStartHour, cfg.TimeBasedShowEndHour)
		fmt.Fprintf(&b, "time of day: %05.2f (window %05.2f-%05.2f, inside: %t)\n",
			now, cfg.TimeBasedStartHour, cfg.TimeBasedShowEndHour, in)
		fmt.Fprintf(&b, "players online: %d\n", len(m.deps.World.Players()))

		last, total := m.deps.Shows.Last()
		if total == 0 {
			b.WriteString("shows launched: 0")
		} else {
			fmt.Fprintf(&b, "shows launched: %d, last: %s %s (%d fireworks)",
				total, last.Type, show.Location(last), last.Count)
		}
		req.Reply(b.String())
		return nil
	})
}

func formatState(st schedule.Status) string {
	if st.State != schedule.Armed {
		return string(st.State)
	}
	return "armed, next in " + st.NextIn.Round(time.Second).String()
}

func (m *Manager) cmdAudit(ctx context.Context, req *Request) error {
	if m.deps.Store == nil {
		req.Reply(msgPrefix + "audit storage is disabled.")
		return nil
	}
	n := defaultAuditN
	if len(req.Args) > 0 {
		v, err := strconv.Atoi(req.Args[0])
		if err != nil || v < 1 {
			req.Reply("Usage: /fsaudit [n]")
			return ErrUsage
		}
		n = min(v, maxAuditN)
	}
	entries, err := m.deps.Store.RecentAudit(ctx, n)
	if errors.Is(err, storage.ErrDisabled) {
		req.Reply(msgPrefix + "audit storage is disabled.")
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		req.Reply(msgPrefix + "no operator actions recorded yet.")
		return nil
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := "ok"
		if !e.OK {
			status = "failed"
			if e.Error != "" {
				status += ": " + e.Error
			}
		}
		fmt.Fprintf(&b, "%s %s/%s %s", e.At.Local().Format("2006-01-02 15:04:05"), e.Source, e.ActorName, e.Action)
		if e.Detail != "" {
			b.WriteString(" " + e.Detail)
		}
		b.WriteString(" [" + status + "]")
	}
	req.Reply(b.String())
	return nil
}

func (m *Manager) cmdHelp(ctx context.Context, req *Request) error {
	if len(req.Args) > 0 {
		c, ok := m.reg.Lookup(commandWord(req.Args[0]))
		if !ok {
			req.Reply("unknown command. try /help")
			return nil
		}
		text := c.Usage + "\n" + c.Description
		if len(c.Aliases) > 0 {
			text += "\naliases: " + strings.Join(c.Aliases, ", ")
		}
		if c.Access == AccessAdmin {
			text += "\nadmin only"
		}
		req.Reply(text)
		return nil
	}
	var b strings.Builder
	b.WriteString("commands:")
	for _, c := range m.reg.Commands() {
		if c.Access == AccessAdmin && !req.Actor.IsAdmin {
			continue
		}
		fmt.Fprintf(&b, "\n%s - %s", c.Usage, c.Description)
	}
	req.Reply(b.String())
	return nil
}
