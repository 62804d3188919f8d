package storage

import (
	"context"
	"errors"
	"strings"

	logx "fireshow/pkg/logx"
)

// Store is the persistence API used by the command layer.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// RecentAudit returns up to n entries, newest first.
	RecentAudit(ctx context.Context, n int) ([]AuditEntry, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

// Disabled is a Store that rejects every call with ErrDisabled.
type Disabled struct{}

func (Disabled) AppendAudit(context.Context, AuditEntry) error { return ErrDisabled }
func (Disabled) RecentAudit(context.Context, int) ([]AuditEntry, error) {
	return nil, ErrDisabled
}
func (Disabled) Close() error { return nil }
