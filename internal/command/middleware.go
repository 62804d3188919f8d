package command

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fireshow/internal/storage"
	logx "fireshow/pkg/logx"
)

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i] != nil {
			h = m[i](h)
		}
	}
	return h
}

func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if req != nil && !req.Logger.IsZero() {
						logger = req.Logger
					}
					logger.Error("panic recovered",
						logx.Any("panic", r),
						logx.Stack(string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			logger := log
			if !req.Logger.IsZero() {
				logger = req.Logger
			}
			err := next(ctx, req)

			fields := []logx.Field{
				logx.String("source", req.Actor.Source),
				logx.String("actor", req.Actor.ID),
				logx.String("cmd", req.Command),
				logx.Duration("dur", time.Since(start)),
			}
			switch {
			case err == nil:
				logger.Debug("request ok", fields...)
			case errors.Is(err, ErrPermission), errors.Is(err, ErrRateLimited), errors.Is(err, ErrUsage):
				logger.Info("request rejected", append(fields, logx.Err(err))...)
			default:
				logger.Warn("request failed", append(fields, logx.Err(err))...)
			}
			return err
		}
	}
}

// MWAccess rejects non-admin actors for admin commands.
func MWAccess(access Access) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if access == AccessAdmin && !req.Actor.IsAdmin {
				req.Reply(msgNoPermission)
				return ErrPermission
			}
			return next(ctx, req)
		}
	}
}

// MWAudit appends an audit entry once the handler returns. Store failures are
// logged and never fail the command.
func MWAudit(store storage.Store, log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			if store == nil {
				return err
			}
			e := storage.AuditEntry{
				At:        start.UTC(),
				ActorID:   req.Actor.ID,
				ActorName: req.Actor.Name,
				Source:    req.Actor.Source,
				Action:    req.Command,
				Target:    req.Target,
				Detail:    strings.Join(req.Args, " "),
				OK:        err == nil,
				TookMS:    time.Since(start).Milliseconds(),
			}
			if err != nil {
				e.Error = err.Error()
			}
			actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if aerr := store.AppendAudit(actx, e); aerr != nil && !errors.Is(aerr, storage.ErrDisabled) {
				log.Warn("audit append failed", logx.String("cmd", req.Command), logx.Err(aerr))
			}
			return err
		}
	}
}

// Limiter hands out a token bucket per actor.
type Limiter struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	actors map[string]*rate.Limiter
}

// NewLimiter returns nil (no limiting) when perSec <= 0.
func NewLimiter(perSec float64, burst int) *Limiter {
	if perSec <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limit: rate.Limit(perSec), burst: burst, actors: map[string]*rate.Limiter{}}
}

func (l *Limiter) Allow(actor string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.actors[actor]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.actors[actor] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func MWRateLimit(l *Limiter) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if !l.Allow(req.Actor.Source + ":" + req.Actor.ID) {
				req.Reply(msgPrefix + "slow down, try again in a moment.")
				return ErrRateLimited
			}
			return next(ctx, req)
		}
	}
}
