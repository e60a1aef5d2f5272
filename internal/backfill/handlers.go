package backfill

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes exposes each job under /admin/backfill. Jobs run
// synchronously with their own deadline, detached from the request context,
// so a dropped connection does not abort a half-finished run.
func RegisterRoutes(r fiber.Router, runner *Runner, timeout time.Duration, authMiddleware, moderatorMiddleware fiber.Handler) {
	jobs := map[string]func(context.Context) (Report, error){
		"geohash":     runner.Geohash,
		"coordinates": runner.Coordinates,
		"ranking":     runner.Ranking,
		"ratings":     runner.Ratings,
		"duplicates":  runner.DuplicateLinks,
	}

	for name, job := range jobs {
		job := job
		r.Post("/"+name, authMiddleware, moderatorMiddleware, func(c *fiber.Ctx) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			report, err := job(ctx)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
			return c.JSON(report)
		})
	}
}
