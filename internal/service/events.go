package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/forgeflow/forgeflow/internal/port/broadcast"
	"github.com/forgeflow/forgeflow/internal/port/messagequeue"
)

// publish marshals payload and sends it on the queue subject. Events are
// advisory fan-out after a committed write: failures are logged, never
// returned to the caller. A nil queue disables publishing.
func publish(ctx context.Context, queue messagequeue.Queue, subject string, payload any) {
	if queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event payload", "subject", subject, "error", err)
		return
	}
	if err := queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish event", "subject", subject, "error", err)
	}
}

// broadcastEvent forwards a typed event to the hub. A nil hub disables
// broadcasting (stdio mode runs without a WebSocket surface).
func broadcastEvent(ctx context.Context, hub broadcast.Broadcaster, eventType string, payload any) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(ctx, eventType, payload)
}
