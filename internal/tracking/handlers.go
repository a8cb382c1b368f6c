package tracking

import (
	"bytes"
	"encoding/json"
	"errors"

	"backend-recordpath/internal/location"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	Title string `json:"title"`
}

type permissionRequest struct {
	Status string `json:"status"`
}

type snapshotResponse struct {
	State      State                     `json:"state"`
	Permission location.PermissionStatus `json:"permission"`
	Journey    *Journey                  `json:"journey,omitempty"`
	Summary    *Summary                  `json:"summary,omitempty"`
}

func RegisterRoutes(r fiber.Router, reg *Registry, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		s, err := session(c, reg)
		if err != nil {
			return err
		}
		var req startRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		journey, err := s.Engine.Start(req.Title)
		if err != nil {
			return engineError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(journey)
	})

	r.Post("/pause", authMiddleware, func(c *fiber.Ctx) error {
		s, err := existing(c, reg, "pause")
		if err != nil {
			return err
		}
		if err := s.Engine.Pause(); err != nil {
			return engineError(err)
		}
		return c.JSON(fiber.Map{"state": s.Engine.State()})
	})

	r.Post("/resume", authMiddleware, func(c *fiber.Ctx) error {
		s, err := existing(c, reg, "resume")
		if err != nil {
			return err
		}
		if err := s.Engine.Resume(); err != nil {
			return engineError(err)
		}
		return c.JSON(fiber.Map{"state": s.Engine.State()})
	})

	r.Post("/stop", authMiddleware, func(c *fiber.Ctx) error {
		s, err := existing(c, reg, "stop")
		if err != nil {
			return err
		}
		journey, err := s.Engine.Stop()
		if err != nil {
			return engineError(err)
		}
		summary := journey.Summary()
		return c.JSON(fiber.Map{"journey": journey, "summary": summary})
	})

	r.Post("/samples", authMiddleware, func(c *fiber.Ctx) error {
		deviceID, err := device(c)
		if err != nil {
			return err
		}
		samples, err := decodeSamples(c.Body())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		s, ok := reg.Lookup(deviceID)
		if !ok {
			// nothing is recording, so nothing would be queued
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"received": len(samples), "queued": 0})
		}
		queued := 0
		for _, sample := range samples {
			ok, err := s.Feed.Push(sample)
			if err != nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
			if ok {
				queued++
			}
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"received": len(samples), "queued": queued})
	})

	r.Put("/permission", authMiddleware, func(c *fiber.Ctx) error {
		s, err := session(c, reg)
		if err != nil {
			return err
		}
		var req permissionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		status, err := location.ParsePermission(req.Status)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := s.Feed.SetPermission(status); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"permission": status})
	})

	r.Get("/snapshot", authMiddleware, func(c *fiber.Ctx) error {
		deviceID, err := device(c)
		if err != nil {
			return err
		}
		s, ok := reg.Lookup(deviceID)
		if !ok {
			return c.JSON(snapshotResponse{State: StateIdle, Permission: location.PermissionNotDetermined})
		}
		resp := snapshotResponse{State: s.Engine.State(), Permission: s.Engine.Permission()}
		if journey, ok := s.Engine.Snapshot(); ok {
			summary := journey.Summary()
			resp.Journey = &journey
			resp.Summary = &summary
		}
		return c.JSON(resp)
	})
}

func device(c *fiber.Ctx) (string, error) {
	deviceID, _ := c.Locals("device_id").(string)
	if deviceID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "device_id required")
	}
	return deviceID, nil
}

// session returns the device's session, creating it. Only start and
// permission changes create sessions.
func session(c *fiber.Ctx, reg *Registry) (*Session, error) {
	deviceID, err := device(c)
	if err != nil {
		return nil, err
	}
	return reg.Session(deviceID), nil
}

// existing returns the device's session; a device without one is idle.
func existing(c *fiber.Ctx, reg *Registry, op string) (*Session, error) {
	deviceID, err := device(c)
	if err != nil {
		return nil, err
	}
	s, ok := reg.Lookup(deviceID)
	if !ok {
		return nil, engineError(&TransitionError{Op: op, From: StateIdle})
	}
	return s, nil
}

func engineError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidStateTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrPermissionRequired):
		return fiber.NewError(fiber.StatusPreconditionRequired, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

// decodeSamples accepts either one sample object or an array of them.
func decodeSamples(body []byte) ([]location.Sample, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if body[0] == '[' {
		var samples []location.Sample
		if err := json.Unmarshal(body, &samples); err != nil {
			return nil, err
		}
		return samples, nil
	}
	var sample location.Sample
	if err := json.Unmarshal(body, &sample); err != nil {
		return nil, err
	}
	return []location.Sample{sample}, nil
}
