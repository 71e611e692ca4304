package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags handles GET /admin/feature-flags. It shows the configured
// values and how they evaluate for the calling staff member, which is how a
// percentage rollout of live_push is checked in production.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
