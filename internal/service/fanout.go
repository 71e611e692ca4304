package service

import (
	"context"
	"log/slog"

	"nodeback/internal/featureflags"
	"nodeback/internal/middleware"
	"nodeback/internal/models"
	"nodeback/internal/observability"
	"nodeback/internal/repository"
)

// Fanout writes notifications alongside the write that caused them and
// pushes them to live clients once that write has committed.
type Fanout struct {
	live  LivePublisher
	flags *featureflags.Manager
}

// NewFanout returns a Fanout. live may be nil, in which case nothing is pushed.
func NewFanout(live LivePublisher, flags *featureflags.Manager) *Fanout {
	return &Fanout{live: live, flags: flags}
}

// Emit persists notes inside a savepoint of tx. Notifications addressed to
// their own sender are dropped. A failure rolls back only the savepoint and
// is logged; the caller's transaction carries on. The returned slice holds
// the rows that were written, for Push after commit.
func (f *Fanout) Emit(ctx context.Context, tx *repository.Repositories, notes ...*models.Notification) []*models.Notification {
	out := make([]*models.Notification, 0, len(notes))
	for _, n := range notes {
		if n == nil || (n.FromUserID != nil && *n.FromUserID == n.ToUserID) {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}

	kind := string(out[0].Type)
	err := tx.Savepoint(ctx, func(sp *repository.Repositories) error {
		return sp.Notifications.CreateBatch(ctx, out)
	})
	if err != nil {
		observability.FanoutFailures.WithLabelValues(kind).Inc()
		middleware.Logger.WarnContext(ctx, "notification fan-out failed",
			slog.String("type", kind),
			slog.Int("recipients", len(out)),
			slog.String("error", err.Error()),
		)
		for _, n := range out {
			n.ID = 0
		}
		return nil
	}

	for _, n := range out {
		observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	}
	return out
}

// Push delivers committed notifications to their recipients' live channels.
func (f *Fanout) Push(ctx context.Context, notes []*models.Notification) {
	if f == nil || f.live == nil {
		return
	}
	for _, n := range notes {
		if !f.flags.Enabled(featureflags.LivePush, n.ToUserID) {
			continue
		}
		if err := f.live.PublishNotification(ctx, n); err != nil {
			observability.LivePushes.WithLabelValues("notification", "error").Inc()
			middleware.Logger.WarnContext(ctx, "live notification push failed",
				slog.Uint64("to_user_id", uint64(n.ToUserID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		observability.LivePushes.WithLabelValues("notification", "ok").Inc()
	}
}

// PushLogout tells every live session of userID to sign out.
func (f *Fanout) PushLogout(ctx context.Context, userID uint) {
	if f == nil || f.live == nil {
		return
	}
	if err := f.live.PublishLogout(ctx, userID); err != nil {
		observability.LivePushes.WithLabelValues("logout_user", "error").Inc()
		middleware.Logger.WarnContext(ctx, "logout push failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.LivePushes.WithLabelValues("logout_user", "ok").Inc()
}
