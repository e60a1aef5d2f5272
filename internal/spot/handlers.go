package spot

import (
	"errors"
	"strconv"

	"backend-spotfinder/internal/audit"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, auditSvc *audit.Service, authMiddleware, moderatorMiddleware fiber.Handler) {
	// Static paths first so they are not swallowed by /:id.
	r.Get("/nearby", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}
		radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
		if radius <= 0 {
			radius = 5
		}
		spots, err := svc.Nearby(c.Context(), lat, lng, radius)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(spots)
	})

	r.Get("/top", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit"))
		spots, err := svc.TopRanked(c.Context(), limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(spots)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Spot
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		actor := actorFromCtx(c)
		req.CreatedBy = actor.UserID
		req.CreatedByName = actor.UserName
		req.SpotSource = ""
		sp, err := svc.CreateSpot(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(sp)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		sp, raw, err := svc.CachedSpot(c.Context(), c.Params("id"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "spot not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if raw != nil {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(raw)
		}
		return c.JSON(sp)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req Spot
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sp, err := svc.UpdateSpot(c.Context(), c.Params("id"), req, actorFromCtx(c))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "spot not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sp)
	})

	r.Delete("/:id", authMiddleware, moderatorMiddleware, func(c *fiber.Ctx) error {
		err := svc.DeleteSpot(c.Context(), c.Params("id"), actorFromCtx(c))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "spot not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/ratings", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Value int `json:"value"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		actor := actorFromCtx(c)
		summary, err := svc.Rate(c.Context(), c.Params("id"), actor.UserID, body.Value)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(summary)
	})

	r.Get("/:id/duplicates", func(c *fiber.Ctx) error {
		spots, err := svc.DuplicatesOf(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(spots)
	})

	r.Post("/:id/duplicate-of", authMiddleware, moderatorMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			OriginalID string       `json:"original_id"`
			Options    MergeOptions `json:"options"`
		}
		if err := c.BodyParser(&body); err != nil || body.OriginalID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "original_id required")
		}
		err := svc.MarkAsDuplicate(c.Context(), c.Params("id"), body.OriginalID, body.Options, actorFromCtx(c))
		switch {
		case errors.Is(err, ErrOriginalNotFound), errors.Is(err, ErrDuplicateNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrSelfReference), errors.Is(err, ErrChainNotAllowed), errors.Is(err, ErrOriginalMustBeNative):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/hide", authMiddleware, moderatorMiddleware, setHiddenHandler(svc, true))
	r.Post("/:id/unhide", authMiddleware, moderatorMiddleware, setHiddenHandler(svc, false))

	r.Get("/:id/audit", authMiddleware, moderatorMiddleware, func(c *fiber.Ctx) error {
		entries, err := auditSvc.EntriesForSpot(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	})
}

func setHiddenHandler(svc *Service, hidden bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := svc.SetHidden(c.Context(), c.Params("id"), hidden, actorFromCtx(c))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "spot not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func actorFromCtx(c *fiber.Ctx) audit.Actor {
	userID, _ := c.Locals("user_id").(string)
	userName, _ := c.Locals("user_name").(string)
	return audit.Actor{UserID: userID, UserName: userName}
}
