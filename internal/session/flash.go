package session

import (
	"context"
	"encoding/json"
)

// Flash levels, matching the alert classes in the templates.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "danger"
)

const flashKey = "flashes"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AddFlash queues a message for the next page.
func AddFlash(ctx context.Context, m Manager, level, message string) {
	flashes := decode(m.GetString(ctx, flashKey))
	flashes = append(flashes, Flash{Level: level, Message: message})
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	m.Put(ctx, flashKey, string(raw))
}

// PopFlashes returns and clears the queued messages.
func PopFlashes(ctx context.Context, m Manager) []Flash {
	return decode(m.PopString(ctx, flashKey))
}

func decode(raw string) []Flash {
	if raw == "" {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return nil
	}
	return flashes
}
