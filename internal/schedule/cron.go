package schedule

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"fireshow/internal/config"
	"fireshow/internal/geom"
	"fireshow/internal/show"
	logx "fireshow/pkg/logx"
)

// cronParser accepts standard 5-field specs and descriptors such as
// "@daily" or "@every 90m".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type cronSub struct {
	sub
	spec     string
	schedule cron.Schedule
	loc      *time.Location
}

// ValidateCron reports the first invalid cron spec or timezone.
func ValidateCron(specs []string, tz string) error {
	if _, err := loadLocation(tz); err != nil {
		return err
	}
	for _, s := range specs {
		if _, err := cronParser.Parse(strings.TrimSpace(s)); err != nil {
			return err
		}
	}
	return nil
}

func loadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func (sc *Scheduler) startCrons(gen uint64, cfg *config.Show) int {
	loc, err := loadLocation(cfg.ScheduledShowTimezone)
	if err != nil {
		sc.opt.Log.Warn("invalid scheduled show timezone; using local time",
			logx.String("tz", cfg.ScheduledShowTimezone),
			logx.Err(err),
		)
		loc = time.Local
	}

	started := 0
	for _, spec := range cfg.ScheduledShowCron {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		schedule, err := cronParser.Parse(spec)
		if err != nil {
			sc.opt.Log.Warn("invalid scheduled show spec; skipped", logx.String("spec", spec), logx.Err(err))
			continue
		}
		c := &cronSub{sub: sub{name: "cron " + spec}, spec: spec, schedule: schedule, loc: loc}
		sc.crons = append(sc.crons, c)
		sc.armCron(gen, c)
		started++
	}
	if started > 0 {
		sc.opt.Log.Info("starting scheduled shows", logx.Int("specs", started), logx.String("tz", loc.String()))
	}
	return started
}

func (sc *Scheduler) armCron(gen uint64, c *cronSub) {
	now := sc.opt.Clock().In(c.loc)
	next := c.schedule.Next(now)
	if next.IsZero() {
		sc.opt.Log.Warn("scheduled show spec never fires", logx.String("spec", c.spec))
		return
	}
	sc.arm(&c.sub, next.Sub(now), func() { sc.cronTick(gen, c) })
}

func (sc *Scheduler) cronTick(gen uint64, c *cronSub) {
	if gen != sc.gen {
		return
	}
	c.timer = nil
	c.ticks++
	defer sc.rearm(gen, c.name, func(*config.Show) { sc.armCron(gen, c) })

	cfg := sc.opt.Config.Get()
	if cfg.OnlyWhenPlayersOnline && len(sc.opt.World.Players()) == 0 {
		sc.opt.Log.Info("no players online, skipping scheduled show", logx.String("spec", c.spec))
		return
	}
	count := geom.RangeInt(sc.opt.Rand, cfg.AutomaticShowsFireworksMin, cfg.AutomaticShowsFireworksMax)
	if _, ok := sc.opt.Launcher.Launch(show.Scheduled, count); ok {
		c.launched++
	}
}
