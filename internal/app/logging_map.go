package app

import (
	"strconv"
	"strings"

	"fireshow/internal/config"
	kit "fireshow/internal/transport"
	logx "fireshow/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Operator: logx.OperatorConfig{
			Enabled:    cfg.Logging.Telegram.Enabled && cfg.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// operatorTarget parses telegram.group_log as "chat_id" or "chat_id:thread_id".
// A blank or invalid value yields the zero target, which mutes the sink.
func operatorTarget(cfg *config.Config) kit.ChatTarget {
	raw := strings.TrimSpace(cfg.Telegram.GroupLog)
	if raw == "" {
		return kit.ChatTarget{}
	}
	chat, thread, _ := strings.Cut(raw, ":")
	chatID, err := strconv.ParseInt(strings.TrimSpace(chat), 10, 64)
	if err != nil {
		return kit.ChatTarget{}
	}
	to := kit.ChatTarget{ChatID: chatID}
	if thread != "" {
		if tid, err := strconv.Atoi(strings.TrimSpace(thread)); err == nil {
			to.ThreadID = tid
		}
	}
	return to
}
