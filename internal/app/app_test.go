package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fireshow/internal/command"
	"fireshow/internal/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeConfig(t *testing.T, dir string, consoleEnabled bool) string {
	t.Helper()
	console := "false"
	if consoleEnabled {
		console = "true"
	}
	body := `{
  "logging": { "level": "error", "console": false, "file": { "enabled": true, "path": "` + filepath.ToSlash(filepath.Join(dir, "app.log")) + `" } },
  "console": { "enabled": ` + console + ` },
  "storage": { "driver": "file", "path": "` + filepath.ToSlash(filepath.Join(dir, "fireshow.db")) + `" },
  "world": { "seed": 3, "day_length": "24h", "start_hour": 20 },
  "show": { "path": "` + filepath.ToSlash(filepath.Join(dir, "show.json")) + `" }
}`
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAppRunsManualShowAndAudits(t *testing.T) {
	dir := t.TempDir()
	a, err := New(writeConfig(t, dir, false), Options{Stdin: strings.NewReader(""), Stdout: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	op := command.Actor{ID: "console", Name: "server console", IsAdmin: true, Source: "console"}
	reply := a.Commands().Execute(ctx, op, "fs 3 4 5 2")
	if reply != "rFireworkShow: launched 2 fireworks at (3.00, 4.00, 5.00)." {
		t.Fatalf("reply=%q", reply)
	}
	if got := a.Commands().Execute(ctx, op, "fstoggle"); !strings.Contains(got, "ENABLED") {
		t.Fatalf("toggle=%q", got)
	}

	// Missing show config is created with defaults, then the toggle persists.
	b, err := os.ReadFile(filepath.Join(dir, "show.json"))
	if err != nil {
		t.Fatalf("show config not written: %v", err)
	}
	if !strings.Contains(string(b), `"AutomaticShowsEnabled": true`) {
		t.Fatalf("toggle not persisted:\n%s", b)
	}

	audit := a.Commands().Execute(ctx, op, "fsaudit")
	if !strings.Contains(audit, "fstoggle [ok]") || !strings.Contains(audit, "fs 3 4 5 2 [ok]") {
		t.Fatalf("audit=%q", audit)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopAppStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := a.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
}

func TestAppConsoleTransport(t *testing.T) {
	dir := t.TempDir()
	out := &syncBuffer{}
	a, err := New(writeConfig(t, dir, true), Options{Stdin: strings.NewReader("fsstatus\n"), Stdout: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "rFireworkShow status") {
		if time.Now().After(deadline) {
			t.Fatalf("no status reply, out=%q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	// The time-based scheduler arms at start with default config.
	if !strings.Contains(out.String(), "- timed: armed") {
		t.Fatalf("status=%q", out.String())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopAppStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"world": {"start_hour": 30}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path, Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOperatorTarget(t *testing.T) {
	t.Parallel()

	cases := map[string][2]int64{
		"":         {0, 0},
		"-100123":  {-100123, 0},
		"-100:7":   {-100, 7},
		"nonsense": {0, 0},
	}
	for raw, want := range cases {
		cfg := &config.Config{Telegram: config.TelegramConfig{GroupLog: raw}}
		got := operatorTarget(cfg)
		if got.ChatID != want[0] || int64(got.ThreadID) != want[1] {
			t.Fatalf("%q: got %+v", raw, got)
		}
	}
}
