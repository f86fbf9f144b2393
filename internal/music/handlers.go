package music

import (
	"errors"
	"strconv"
	"time"

	"github.com/ninouGx/run-sous-bpm/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

// RegisterActivityRoutes mounts the music views of an activity under the
// activities group.
func RegisterActivityRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/:id/segments", authMiddleware, func(c *fiber.Ctx) error {
		simplify := c.QueryBool("simplify", true)

		var tolerance *float64
		if raw := c.Query("tolerance"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "tolerance must be a number")
			}
			tolerance = &v
		}

		userID, _ := c.Locals("user_id").(string)
		resp, err := svc.ActivitySegments(c.Context(), userID, c.Params("id"), simplify, tolerance)
		if err != nil {
			return segmentsError(err)
		}
		return c.JSON(resp)
	})

	r.Get("/:id/music", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		tracks, err := svc.ActivityMusic(c.Context(), userID, c.Params("id"))
		if err != nil {
			return segmentsError(err)
		}
		return c.JSON(tracks)
	})
}

// RegisterRoutes mounts the standalone listening-history endpoints.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/lastfm/range", authMiddleware, func(c *fiber.Ctx) error {
		from, err := unixQuery(c, "from")
		if err != nil {
			return err
		}
		to, err := unixQuery(c, "to")
		if err != nil {
			return err
		}

		userID, _ := c.Locals("user_id").(string)
		tracks, err := svc.ListensInRange(c.Context(), userID, from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(tracks)
	})

	r.Post("/lastfm/sync", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		}
		if err := c.BodyParser(&req); err != nil || req.From == 0 || req.To == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "from and to required")
		}

		userID, _ := c.Locals("user_id").(string)
		username, err := svc.LastfmUsername(c.Context(), userID)
		if errors.Is(err, ErrNoLastfmUsername) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		inserted, err := svc.SyncListens(c.Context(), userID, username,
			time.Unix(req.From, 0).UTC(), time.Unix(req.To, 0).UTC())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(fiber.Map{"inserted": inserted})
	})
}

func segmentsError(err error) error {
	var epsErr geo.InvalidEpsilonError
	switch {
	case errors.Is(err, ErrActivityNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotActivityOwner):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoLastfmUsername):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &epsErr):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, geo.ErrNoGpsCoordinates):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func unixQuery(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, name+" required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, name+" must be a unix timestamp")
	}
	return time.Unix(v, 0).UTC(), nil
}
