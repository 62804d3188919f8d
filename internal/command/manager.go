package command

import (
	"context"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fireshow/internal/config"
	"fireshow/internal/geom"
	"fireshow/internal/host"
	"fireshow/internal/schedule"
	"fireshow/internal/show"
	"fireshow/internal/storage"
	kit "fireshow/internal/transport"
	logx "fireshow/pkg/logx"
)

// Loop runs fn on the host thread and waits for it.
type Loop interface {
	Do(ctx context.Context, fn func()) error
}

// Shows starts shows. Calls happen on the host thread.
type Shows interface {
	Launch(kind show.Type, count int) (show.Request, bool)
	LaunchAt(kind show.Type, center geom.Vec3, place string, count int) (show.Request, bool)
	Resolve() (geom.Vec3, string)
	Last() (show.Request, int)
}

// Scheduler is the restartable show scheduler.
type Scheduler interface {
	Restart()
	Snapshot() []schedule.Status
}

// ShowConfig is the live show configuration.
type ShowConfig interface {
	Get() *config.Show
	// Reload re-reads the persisted configuration and makes it current.
	Reload() *config.Show
	// Update applies fn to a copy, persists it and makes it current.
	Update(fn func(*config.Show)) (*config.Show, error)
}

type Deps struct {
	Loop      Loop
	World     host.World
	Shows     Shows
	Scheduler Scheduler
	Config    ShowConfig
	Rand      geom.Rand
	Store     storage.Store
	Limiter   *Limiter
}

type Manager struct {
	deps Deps
	log  logx.Logger
	reg  *Registry

	mu       sync.RWMutex
	owners   map[int64]struct{}
	adapters map[string]kit.Adapter
}

func NewManager(deps Deps, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &Manager{
		deps:     deps,
		log:      log,
		owners:   map[int64]struct{}{},
		adapters: map[string]kit.Adapter{},
	}
	m.reg = m.builtins()
	return m
}

func (m *Manager) Registry() *Registry { return m.reg }

// SetOwners replaces the telegram user ids treated as admins.
func (m *Manager) SetOwners(ids []int64) {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	m.mu.Lock()
	m.owners = set
	m.mu.Unlock()
}

// SetLimiter swaps the show rate limiter (nil disables it).
func (m *Manager) SetLimiter(l *Limiter) {
	m.mu.Lock()
	m.deps.Limiter = l
	m.mu.Unlock()
}

func (m *Manager) limiter() *Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deps.Limiter
}

func (m *Manager) isOwner(id int64) bool {
	m.mu.RLock()
	_, ok := m.owners[id]
	m.mu.RUnlock()
	return ok
}

// Execute runs one command line for actor and returns the reply text.
// Lines that are not a known command get a hint.
func (m *Manager) Execute(ctx context.Context, actor Actor, line string) string {
	parts := tokenize(line)
	if len(parts) == 0 {
		return ""
	}
	word := commandWord(parts[0])
	cmd, ok := m.reg.Lookup(word)
	if !ok {
		return "unknown command. try /help"
	}

	rid := uuid.NewString()[:8]
	req := &Request{
		Actor:   actor,
		Command: cmd.Name,
		Args:    parts[1:],
		ReqID:   rid,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.String("source", actor.Source),
			logx.String("actor", actor.ID),
			logx.String("cmd", cmd.Name),
		),
	}

	mws := []Middleware{
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
	}
	if cmd.Audited {
		mws = append(mws, MWAudit(m.deps.Store, m.log))
	}
	mws = append(mws, MWAccess(cmd.Access))
	if cmd.Limited {
		mws = append(mws, MWRateLimit(m.limiter()))
	}

	if err := Chain(cmd.Handle, mws...)(ctx, req); err != nil && !req.replied() {
		req.Reply(msgPrefix + "command failed: " + err.Error())
	}
	return req.Output()
}

// Attach registers an adapter so replies can be routed back to it.
func (m *Manager) Attach(a kit.Adapter) {
	m.mu.Lock()
	m.adapters[a.Name()] = a
	m.mu.Unlock()
}

func (m *Manager) adapter(name string) kit.Adapter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adapters[name]
}

// actorFor maps an inbound update to an actor. The server console is
// always admin; chat users are admin when listed as owners.
func (m *Manager) actorFor(up kit.Update) Actor {
	msg := up.Message
	switch up.Source {
	case "console":
		return Actor{ID: "console", Name: "server console", IsAdmin: true, Source: up.Source}
	default:
		name := msg.FromUsername
		if name == "" {
			name = strconv.FormatInt(msg.FromID, 10)
		}
		return Actor{
			ID:      strconv.FormatInt(msg.FromID, 10),
			Name:    name,
			IsAdmin: m.isOwner(msg.FromID),
			Source:  up.Source,
		}
	}
}

// DispatchLoop executes updates until ctx is done or updates is closed.
func (m *Manager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	m.log.Info("command dispatcher started")
	defer m.log.Info("command dispatcher stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.dispatch(ctx, up)
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, up kit.Update) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in dispatcher", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()
	if up.Message == nil {
		return
	}
	text := strings.TrimSpace(up.Message.Text)
	// Chat transports only treat slash-prefixed lines as commands.
	if up.Source != "console" && !strings.HasPrefix(text, "/") {
		return
	}
	reply := m.Execute(ctx, m.actorFor(up), text)
	if reply == "" {
		return
	}
	a := m.adapter(up.Source)
	if a == nil {
		m.log.Warn("no adapter for reply", logx.String("source", up.Source))
		return
	}
	to := kit.ChatTarget{ChatID: up.Message.ChatID, ThreadID: up.Message.ThreadID}
	if _, err := a.SendText(ctx, to, reply, &kit.SendOptions{DisablePreview: true}); err != nil {
		m.log.Warn("reply failed", logx.String("source", up.Source), logx.Err(err))
	}
}
