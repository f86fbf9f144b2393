package activity

import (
	"errors"

	"github.com/ninouGx/run-sous-bpm/internal/strava"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		activities, err := svc.List(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(activities)
	})

	r.Post("/sync", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			AccessToken string `json:"access_token"`
			After       int64  `json:"after"`
			Before      int64  `json:"before"`
			PerPage     int    `json:"per_page"`
		}
		if err := c.BodyParser(&req); err != nil || req.AccessToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "access_token required")
		}

		userID, _ := c.Locals("user_id").(string)
		result, err := svc.Sync(c.Context(), userID, req.AccessToken, strava.ActivitiesParams{
			After:   req.After,
			Before:  req.Before,
			PerPage: req.PerPage,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(result)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		act, err := svc.Get(c.Context(), c.Params("id"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if userID, _ := c.Locals("user_id").(string); act.UserID != userID {
			return fiber.NewError(fiber.StatusForbidden, "activity does not belong to the user")
		}
		return c.JSON(act)
	})

	r.Get("/:id/streams", authMiddleware, func(c *fiber.Ctx) error {
		act, err := svc.Get(c.Context(), c.Params("id"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if userID, _ := c.Locals("user_id").(string); act.UserID != userID {
			return fiber.NewError(fiber.StatusForbidden, "activity does not belong to the user")
		}

		points, err := svc.Streams(c.Context(), act.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(points)
	})
}
