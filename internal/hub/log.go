package hub

import (
	"context"
	"log/slog"

	"go.klb.dev/lanclip/internal/message"
)

const previewLen = 120

// LogMessage logs a clipboard message at INFO (type, size, fan-out) and, at
// DEBUG, a text preview of up to 120 bytes.
func LogMessage(event string, m *message.Message, followers, delivered int) {
	slog.Info(event,
		"type", m.Type,
		"size_bytes", len(m.Body),
		"followers", followers,
		"delivered", delivered,
	)

	if m.Type != message.TypeText || !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	preview := string(m.Body)
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "…"
	}
	slog.Debug("clipboard text", "preview", preview)
}
