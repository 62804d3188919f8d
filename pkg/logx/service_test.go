package logx

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatOperatorLine(t *testing.T) {
	t.Parallel()
	line := `{"level":"warn","time":"x","message":"scheduler misconfigured","sub":"automatic","caller":"a.go:1"}`
	got := formatOperatorLine([]byte(line))
	want := "[WARN] scheduler misconfigured\n- caller=a.go:1\n- sub=automatic"
	if got != want {
		t.Fatalf("formatOperatorLine = %q, want %q", got, want)
	}
}

func TestFormatOperatorLineNotJSON(t *testing.T) {
	t.Parallel()
	if got := formatOperatorLine([]byte("  plain text \n")); got != "plain text" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewJSON(&buf, "debug").With(String("comp", "show"))
	log.Info("show launched", Int("count", 5), Bool("marker", true))

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if m["comp"] != "show" || m["count"] != float64(5) || m["marker"] != true {
		t.Fatalf("unexpected fields: %v", m)
	}
	if c, _ := m["caller"].(string); !strings.HasPrefix(c, "service_test.go:") {
		t.Fatalf("caller = %q", c)
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewJSON(&buf, "warn")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}
	if !log.Enabled(LevelError) || log.Enabled(LevelDebug) {
		t.Fatal("Enabled() disagrees with configured level")
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	l.Error("nothing happens")
	Nop().With(String("a", "b")).Warn("nothing")
}
