package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	logx "fireshow/pkg/logx"
)

// ShowStore reads and writes the show Configuration file (JSON, or YAML by
// extension).
type ShowStore struct {
	path string
	log  logx.Logger
	mu   sync.Mutex

	// lastHash is the content hash last read or written, so Watch ignores
	// the event caused by our own Save.
	lastHash atomic.Uint64
}

func NewShowStore(path string, log logx.Logger) *ShowStore {
	return &ShowStore{path: path, log: log}
}

func (s *ShowStore) Path() string { return s.path }

// Load never fails: a missing or corrupt file is replaced by the defaults,
// which are written back. Fields absent from the file keep their defaults.
func (s *ShowStore) Load() *Show {
	cfg, err := s.read()
	if err != nil {
		s.log.Warn("Configuration was corrupt or missing - creating default configuration.",
			logx.String("path", s.path),
			logx.Err(err),
		)
		cfg = DefaultShow()
		if err := s.Save(cfg); err != nil {
			s.log.Warn("show config save failed", logx.String("path", s.path), logx.Err(err))
		}
		return cfg
	}
	if cfg.Normalize() {
		s.log.Warn("show config loot ranges repaired", logx.String("path", s.path))
	}
	return cfg
}

func (s *ShowStore) read() (*Show, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	s.lastHash.Store(hashBytes(b))
	return decodeShow(s.path, b)
}

func decodeShow(path string, b []byte) (*Show, error) {
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(jb)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("config null")
	}

	cfg := DefaultShow()
	// The reward table is replaced, not merged, when the file names one.
	cfg.LootDropItems = nil
	if err := json.Unmarshal(trimmed, cfg); err != nil {
		return nil, err
	}
	if cfg.LootDropItems == nil {
		cfg.LootDropItems = defaultLoot()
	}
	return cfg, nil
}

// Save writes cfg atomically (temp file + rename).
func (s *ShowStore) Save(cfg *Show) error {
	if cfg == nil {
		return fmt.Errorf("%w: show config is nil", ErrInvalid)
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if isYAML(s.path) {
		if b, err = jsonToYAML(b); err != nil {
			return err
		}
	} else {
		b = append(b, '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	s.lastHash.Store(hashBytes(b))
	return nil
}

// Watch calls onChange after the file content changes on disk. It blocks
// until ctx is done.
func (s *ShowStore) Watch(ctx context.Context, onChange func()) error {
	return watchFile(ctx, s.path, s.log, func() {
		b, err := os.ReadFile(s.path)
		if err == nil && hashBytes(b) == s.lastHash.Load() {
			s.log.Debug("show config unchanged; skipping reload", logx.String("path", s.path))
			return
		}
		onChange()
	})
}

// ShowHolder publishes the active Configuration snapshot. Readers get an
// immutable value; reload swaps it wholesale.
type ShowHolder struct {
	p atomic.Pointer[Show]
}

func NewShowHolder(cfg *Show) *ShowHolder {
	h := &ShowHolder{}
	h.Set(cfg)
	return h
}

// Get returns the current snapshot. Callers must not mutate it.
func (h *ShowHolder) Get() *Show {
	if cfg := h.p.Load(); cfg != nil {
		return cfg
	}
	return DefaultShow()
}

func (h *ShowHolder) Set(cfg *Show) {
	if cfg == nil {
		cfg = DefaultShow()
	}
	h.p.Store(cfg)
}
