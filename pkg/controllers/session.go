package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voxlive/voxlive-server/pkg/models"
)

// SessionController holds dependencies for session lifecycle handlers.
type SessionController struct {
	SessionModel *models.SessionModel
}

// NewSessionController creates a new SessionController.
func NewSessionController(sm *models.SessionModel) *SessionController {
	return &SessionController{
		SessionModel: sm,
	}
}

// HandleCreateSession provisions a session and returns the ingest token.
func (sc *SessionController) HandleCreateSession(c *fiber.Ctx) error {
	req := new(models.CreateSessionReq)
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.SessionId == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "session_id required",
		})
	}

	res, err := sc.SessionModel.CreateSession(c.UserContext(), req)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":       true,
		"msg":          "success",
		"session_info": res.SessionInfo,
		"token":        res.Token,
	})
}

// HandleEndSession stops a running session.
func (sc *SessionController) HandleEndSession(c *fiber.Ctx) error {
	req := new(models.SessionEndReq)
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.SessionId == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "session_id required",
		})
	}

	status, msg := sc.SessionModel.EndSession(c.UserContext(), req)
	return c.JSON(fiber.Map{
		"status": status,
		"msg":    msg,
	})
}

// HandleIsSessionActive reports whether a session is currently live.
func (sc *SessionController) HandleIsSessionActive(c *fiber.Ctx) error {
	req := new(models.IsSessionActiveReq)
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.SessionId == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "session_id required",
		})
	}

	res := sc.SessionModel.IsSessionActive(c.UserContext(), req)
	return c.JSON(fiber.Map{
		"status":    res.Status,
		"msg":       res.Msg,
		"is_active": res.IsActive,
	})
}

// HandleGetActiveSessionInfo returns the live info of one session.
func (sc *SessionController) HandleGetActiveSessionInfo(c *fiber.Ctx) error {
	req := new(models.IsSessionActiveReq)
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	status, msg, info := sc.SessionModel.GetActiveSessionInfo(c.UserContext(), req.SessionId)
	return c.JSON(fiber.Map{
		"status":       status,
		"msg":          msg,
		"session_info": info,
	})
}

// HandleGetActiveSessionsList returns every live session.
func (sc *SessionController) HandleGetActiveSessionsList(c *fiber.Ctx) error {
	status, msg, sessions := sc.SessionModel.GetActiveSessionsList(c.UserContext())
	return c.JSON(fiber.Map{
		"status":   status,
		"msg":      msg,
		"sessions": sessions,
	})
}

// HandleFetchPastSessions lists ended sessions with pagination.
func (sc *SessionController) HandleFetchPastSessions(c *fiber.Ctx) error {
	req := new(models.FetchPastSessionsReq)
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	result, err := sc.SessionModel.FetchPastSessions(req)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if result.TotalSessions == 0 {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "no sessions found",
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"result": result,
	})
}
