package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.klb.dev/lanclip/internal/clip"
)

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	for _, env := range []string{
		"LANCLIP_SOURCE",
		"CONTAINER_NAME",
		"COMPOSE_SERVICE",
		"SERVICE_NAME",
	} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}

// openBackend returns the system clipboard when local is set and one is
// available, and an in-memory clipboard otherwise. With the in-memory
// clipboard the process is a pure relay.
func openBackend(local bool, interval time.Duration) clip.Backend {
	if local {
		b, err := clip.NewSystem(interval)
		if err == nil {
			slog.Info("clipboard backend", "name", b.Name(), "poll_interval", interval)
			return b
		}
		slog.Warn("system clipboard unavailable, relaying only", "err", err)
	}
	b := clip.NewMemory()
	slog.Info("clipboard backend", "name", b.Name())
	return b
}

func fmtAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Local().Format("15:04:05")
}
