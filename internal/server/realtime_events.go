package server

import (
	"context"
	"log/slog"
	"time"

	"nodeback/internal/middleware"
)

// handleUserOnline records the first live connection of a user.
func (s *Server) handleUserOnline(userID uint) {
	s.setOnline(userID, true)
}

// handleUserOffline fires once the user's last connection has been gone for
// the hub's grace period.
func (s *Server) handleUserOffline(userID uint) {
	s.setOnline(userID, false)
}

func (s *Server) setOnline(userID uint, online bool) {
	ctx, cancel := presenceContext()
	defer cancel()
	if err := s.userService.SetOnline(ctx, userID, online); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to record presence",
			slog.Uint64("user_id", uint64(userID)),
			slog.Bool("online", online),
			slog.String("error", err.Error()),
		)
	}
}

// presenceContext bounds presence writes that run outside any request.
func presenceContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
