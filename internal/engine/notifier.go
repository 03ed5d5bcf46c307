package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"empires-server/internal/process"

	"github.com/redis/go-redis/v9"
)

// Notifier hears about advances and about processes discarded during resolution.
type Notifier interface {
	Advanced(ctx context.Context, report Report)
	ProcessFailed(ctx context.Context, failure process.Failure)
}

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) Advanced(ctx context.Context, report Report) {
	if report.ToTick == report.FromTick && report.ResolvedCount == 0 && report.FailedCount == 0 {
		return
	}
	n.logger.Info("World advanced",
		"from_tick", report.FromTick,
		"to_tick", report.ToTick,
		"resolved", report.ResolvedCount,
		"failed", report.FailedCount,
		"moved", report.Moved)
}

func (n *LogNotifier) ProcessFailed(ctx context.Context, f process.Failure) {
	n.logger.Warn("Process discarded",
		"process_id", f.ProcessID,
		"handler_id", f.HandlerID,
		"tick", f.Tick,
		"reason", f.Reason,
		"message", f.Message)
}

// Event is the message published on the events channel.
type Event struct {
	Type    string           `json:"type"`
	Report  *Report          `json:"report,omitempty"`
	Failure *process.Failure `json:"failure,omitempty"`
}

const (
	EventAdvanced      = "world_advanced"
	EventProcessFailed = "process_failed"
)

// RedisNotifier publishes events to a pub/sub channel so other services can tell
// requesters their build was discarded.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisNotifier(client *redis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logger.With("component", "redis_notifier", "channel", channel),
	}
}

func (n *RedisNotifier) Advanced(ctx context.Context, report Report) {
	n.publish(ctx, Event{Type: EventAdvanced, Report: &report})
}

func (n *RedisNotifier) ProcessFailed(ctx context.Context, f process.Failure) {
	n.publish(ctx, Event{Type: EventProcessFailed, Failure: &f})
}

func (n *RedisNotifier) publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		n.logger.Error("Failed to encode event", "type", e.Type, "error", err)
		return
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Error("Failed to publish event", "type", e.Type, "error", err)
	}
}

// MultiNotifier fans out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Advanced(ctx context.Context, report Report) {
	for _, n := range m {
		n.Advanced(ctx, report)
	}
}

func (m MultiNotifier) ProcessFailed(ctx context.Context, f process.Failure) {
	for _, n := range m {
		n.ProcessFailed(ctx, f)
	}
}
