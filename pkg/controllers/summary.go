package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voxlive/voxlive-server/pkg/models"
)

// SummaryController holds dependencies for summarization handlers.
type SummaryController struct {
	SummaryModel *models.SummaryModel
}

// NewSummaryController creates a new SummaryController.
func NewSummaryController(sm *models.SummaryModel) *SummaryController {
	return &SummaryController{
		SummaryModel: sm,
	}
}

// HandleCreateSummaryJob submits the session transcript to the
// summarization provider.
func (sc *SummaryController) HandleCreateSummaryJob(c *fiber.Ctx) error {
	req := new(models.CreateSummaryJobReq)
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.SessionId == "" {
		req.SessionId = c.Locals("sessionId").(string)
	}

	job, err := sc.SummaryModel.CreateSummaryJob(c.UserContext(), req)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"job":    job,
	})
}

// HandleGetSummaryJobStatus polls a pending summary job.
func (sc *SummaryController) HandleGetSummaryJobStatus(c *fiber.Ctx) error {
	req := new(struct {
		JobId string `json:"job_id"`
	})
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.JobId == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "job_id required",
		})
	}

	job, err := sc.SummaryModel.GetSummaryJobStatus(c.UserContext(), req.JobId)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"job":    job,
	})
}
