package annotation

import (
	"errors"

	"backend-recordpath/internal/tracking"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Patch("/:id", authMiddleware, func(c *fiber.Ctx) error {
		deviceID, err := device(c)
		if err != nil {
			return err
		}
		var req tracking.Annotation
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Title == nil && req.Notes == nil {
			return fiber.NewError(fiber.StatusBadRequest, "title or notes required")
		}
		info, err := svc.UpdateJourney(c.Context(), deviceID, c.Params("id"), req)
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(info)
	})

	r.Post("/:id/photos", authMiddleware, func(c *fiber.Ctx) error {
		deviceID, err := device(c)
		if err != nil {
			return err
		}
		var req PhotoRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		photo, err := svc.AddPhoto(c.Context(), deviceID, c.Params("id"), req)
		if err != nil {
			return serviceError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(photo)
	})
}

func device(c *fiber.Ctx) (string, error) {
	deviceID, _ := c.Locals("device_id").(string)
	if deviceID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "device_id required")
	}
	return deviceID, nil
}

func serviceError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidPhoto):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
