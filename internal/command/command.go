// Package command implements the operator commands that drive shows by hand:
// fs, fsrand, fstoggle, rf.reload plus status, audit and help.
//
// Commands arrive from transports (telegram, console) as text lines. Every
// handler that touches the world or the scheduler runs on the host loop.
package command

import (
	"context"
	"errors"
	"strings"

	"fireshow/internal/geom"
	logx "fireshow/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessAdmin
)

var (
	ErrPermission  = errors.New("permission denied")
	ErrRateLimited = errors.New("rate limited")
	ErrUsage       = errors.New("bad usage")
)

const (
	msgNoPermission = "You do not have permission to use that command."
	msgPrefix       = "rFireworkShow: "
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access

	// Limited commands launch shows and share the per-actor rate limit.
	Limited bool
	// Audited commands record an audit entry, successful or not.
	Audited bool

	Handle HandlerFunc
}

// Actor is whoever issued a command. Position is nil for operators without
// an in-world body (chat, server console).
type Actor struct {
	ID       string
	Name     string
	IsAdmin  bool
	Source   string
	Position *geom.Vec3
	Forward  geom.Vec3
}

type Request struct {
	Actor   Actor
	Command string
	Args    []string
	ReqID   string
	Logger  logx.Logger

	// Target is filled by handlers for the audit trail.
	Target string

	replies []string
}

func (r *Request) Reply(text string) { r.replies = append(r.replies, text) }

// Output joins every reply written so far.
func (r *Request) Output() string { return strings.Join(r.replies, "\n") }

func (r *Request) replied() bool { return len(r.replies) > 0 }

// Registry maps names and aliases to commands.
type Registry struct {
	byName map[string]*Command
	order  []*Command
}

func NewRegistry() *Registry { return &Registry{byName: map[string]*Command{}} }

// Add registers c under its name and aliases. Later entries win.
func (r *Registry) Add(c Command) {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	if name == "" || c.Handle == nil {
		return
	}
	c.Name = name
	cc := &c
	r.order = append(r.order, cc)
	r.byName[name] = cc
	for _, a := range c.Aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || strings.Contains(a, " ") {
			continue
		}
		r.byName[a] = cc
	}
}

func (r *Registry) Lookup(word string) (*Command, bool) {
	c, ok := r.byName[strings.ToLower(word)]
	return c, ok
}

// Commands lists registered commands in registration order.
func (r *Registry) Commands() []*Command { return append([]*Command(nil), r.order...) }
