package command

import (
	"math"
	"strconv"
	"strings"

	"fireshow/internal/geom"
)

// tokenize splits a command line into tokens, honoring quotes and
// backslash escapes:
//
//	/fs 10 "quoted arg"
func tokenize(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out   []string
		buf   strings.Builder
		inQ   bool
		qChar byte
		esc   bool
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if esc {
			buf.WriteByte(ch)
			esc = false
			continue
		}
		if ch == '\\' {
			esc = true
			continue
		}
		if inQ {
			if ch == qChar {
				inQ = false
				continue
			}
			buf.WriteByte(ch)
			continue
		}
		switch ch {
		case '"', '\'':
			inQ = true
			qChar = ch
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			buf.WriteByte(ch)
		}
	}
	flush()
	return out
}

// commandWord strips the leading slash and a telegram "@botname" suffix.
func commandWord(tok string) string {
	w := strings.TrimPrefix(tok, "/")
	if i := strings.IndexByte(w, '@'); i >= 0 {
		w = w[:i]
	}
	return strings.ToLower(w)
}

// maxFireworks caps a count typed into a command. Each firework arms a
// host timer.
const maxFireworks = 500

// parseCount returns a positive count clamped to maxFireworks, or def.
func parseCount(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return min(n, maxFireworks)
}

func parseCoords(args []string) (geom.Vec3, bool) {
	if len(args) < 3 {
		return geom.Vec3{}, false
	}
	var c [3]float64
	for i := range c {
		f, err := strconv.ParseFloat(strings.TrimSpace(args[i]), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return geom.Vec3{}, false
		}
		c[i] = f
	}
	return geom.Vec3{X: c[0], Y: c[1], Z: c[2]}, true
}
