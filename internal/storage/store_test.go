package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "fireshow/pkg/logx"
)

func openBoth(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}
	for driver, path := range map[string]string{
		"file":   filepath.Join(dir, "fireshow.json"),
		"sqlite": filepath.Join(dir, "fireshow.db"),
	} {
		st, err := Open(Config{Driver: driver, Path: path, BusyTimeout: time.Second}, logx.Nop())
		if err != nil {
			t.Fatalf("open %s: %v", driver, err)
		}
		t.Cleanup(func() { _ = st.Close() })
		out[driver] = st
	}
	return out
}

func TestAuditRecentNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for driver, st := range openBoth(t) {
		base := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
		for i := 0; i < 7; i++ {
			e := AuditEntry{
				At:      base.Add(time.Duration(i) * time.Minute),
				ActorID: "42",
				Source:  "console",
				Action:  "fs",
				Detail:  string(rune('a' + i)),
				OK:      i%2 == 0,
			}
			if err := st.AppendAudit(ctx, e); err != nil {
				t.Fatalf("%s append: %v", driver, err)
			}
		}

		got, err := st.RecentAudit(ctx, 3)
		if err != nil {
			t.Fatalf("%s recent: %v", driver, err)
		}
		if len(got) != 3 || got[0].Detail != "g" || got[1].Detail != "f" || got[2].Detail != "e" {
			t.Fatalf("%s recent=%+v", driver, got)
		}
		if !got[0].OK || got[1].OK {
			t.Fatalf("%s ok flags lost", driver)
		}
		if !got[0].At.Equal(base.Add(6 * time.Minute)) {
			t.Fatalf("%s time round trip: %v", driver, got[0].At)
		}

		all, _ := st.RecentAudit(ctx, 100)
		if len(all) != 7 || all[6].Detail != "a" {
			t.Fatalf("%s all=%d", driver, len(all))
		}
		if none, _ := st.RecentAudit(ctx, 0); len(none) != 0 {
			t.Fatalf("%s n=0 returned entries", driver)
		}
	}
}

func TestFileStoreSkipsCorruptLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "x.json")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := context.Background()
	_ = st.AppendAudit(ctx, AuditEntry{ActorID: "1", Action: "fstoggle"})

	f, err := os.OpenFile(filepath.Join(dir, "x.audit.jsonl"), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("{torn\n")
	_ = f.Close()

	_ = st.AppendAudit(ctx, AuditEntry{ActorID: "1", Action: "rf.reload"})
	got, err := st.RecentAudit(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Action != "rf.reload" {
		t.Fatalf("got=%+v", got)
	}
}

func TestOpenDisabledAndUnknown(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{}, logx.Nop())
	if st != nil || err != nil {
		t.Fatalf("disabled: %v %v", st, err)
	}
	if _, err := Open(Config{Driver: "etcd", Path: "x"}, logx.Nop()); err == nil {
		t.Fatalf("unknown driver accepted")
	}
	if err := (Disabled{}).AppendAudit(context.Background(), AuditEntry{}); err != ErrDisabled {
		t.Fatalf("Disabled.AppendAudit=%v", err)
	}
}
