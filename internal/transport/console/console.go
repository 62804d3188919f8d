// Package console reads operator commands from the server console (stdin)
// and prints replies. Console input is trusted as admin.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	kit "fireshow/internal/transport"
	logx "fireshow/pkg/logx"
)

const Source = "console"

type Adapter struct {
	in  io.Reader
	log logx.Logger

	mu  sync.Mutex
	out io.Writer
	seq int
}

var _ kit.Adapter = (*Adapter)(nil)

func New(in io.Reader, out io.Writer, log logx.Logger) *Adapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{in: in, out: out, log: log}
}

func (a *Adapter) Name() string { return Source }

// Start reads lines until EOF or ctx is done. The read itself cannot be
// interrupted; a pending line is dropped after cancellation.
func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			a.log.Warn("console read failed", logx.Err(err))
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					a.log.Debug("console input closed")
					return
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				a.mu.Lock()
				a.seq++
				id := a.seq
				a.mu.Unlock()
				select {
				case out <- kit.Update{Source: Source, Message: &kit.Message{ID: id, Text: line}}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error { return nil }

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := fmt.Fprintln(a.out, text); err != nil {
		return kit.MessageRef{}, err
	}
	return kit.MessageRef{MessageID: a.seq}, nil
}
