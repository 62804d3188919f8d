package app

import (
	"fireshow/internal/config"
	"fireshow/internal/placement"
	logx "fireshow/pkg/logx"
)

// showConfig ties the persisted show Configuration to the live snapshot and
// the monument cache. Methods must run on the host loop.
type showConfig struct {
	store    *config.ShowStore
	holder   *config.ShowHolder
	resolver *placement.Resolver
	log      logx.Logger
}

func (s *showConfig) Get() *config.Show { return s.holder.Get() }

func (s *showConfig) Reload() *config.Show {
	cfg := s.store.Load()
	s.apply(cfg)
	return cfg
}

// Update always makes the change current; the error only reports a failed
// write to disk.
func (s *showConfig) Update(fn func(*config.Show)) (*config.Show, error) {
	next := s.holder.Get().Clone()
	fn(next)
	s.apply(next)
	return next, s.store.Save(next)
}

func (s *showConfig) apply(cfg *config.Show) {
	s.holder.Set(cfg)
	s.resolver.EnsureMonuments(cfg.Whitelist())
	s.log.Debug("show config applied",
		logx.Bool("automatic", cfg.AutomaticShowsEnabled),
		logx.Bool("time_based", cfg.TimeBasedShowsEnabled),
		logx.Bool("scheduled", cfg.ScheduledShowsEnabled),
	)
}
