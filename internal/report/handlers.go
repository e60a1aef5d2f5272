package report

import (
	"errors"

	"backend-spotfinder/internal/audit"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, moderatorMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Report
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.ReporterID, _ = c.Locals("user_id").(string)
		req.ReporterName, _ = c.Locals("user_name").(string)
		created, err := svc.Create(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/", authMiddleware, moderatorMiddleware, func(c *fiber.Ctx) error {
		reports, err := svc.ListByStatus(c.Context(), c.Query("status"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(reports)
	})

	r.Put("/:id/status", authMiddleware, moderatorMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil || body.Status == "" {
			return fiber.NewError(fiber.StatusBadRequest, "status required")
		}
		userID, _ := c.Locals("user_id").(string)
		userName, _ := c.Locals("user_name").(string)
		updated, err := svc.UpdateStatus(c.Context(), c.Params("id"), body.Status, audit.Actor{UserID: userID, UserName: userName})
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "report not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(updated)
	})
}
