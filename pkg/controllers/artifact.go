package controllers

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/voxlive/voxlive-server/pkg/models"
)

// ArtifactController holds the dependencies for artifact-related handlers.
type ArtifactController struct {
	ArtifactModel *models.ArtifactModel
}

// NewArtifactController creates a new ArtifactController.
func NewArtifactController(am *models.ArtifactModel) *ArtifactController {
	return &ArtifactController{
		ArtifactModel: am,
	}
}

// HandleFetchArtifacts fetches a paginated list of artifacts.
func (ac *ArtifactController) HandleFetchArtifacts(c *fiber.Ctx) error {
	req := new(models.FetchArtifactsReq)
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	result, err := ac.ArtifactModel.FetchArtifacts(req)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if result.TotalArtifacts == 0 {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "no artifacts found",
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"result": result,
	})
}

// HandleGetArtifactInfo returns one artifact with its session.
func (ac *ArtifactController) HandleGetArtifactInfo(c *fiber.Ctx) error {
	req := new(struct {
		ArtifactId string `json:"artifact_id"`
	})
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.ArtifactId == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "artifact_id required",
		})
	}

	res, err := ac.ArtifactModel.GetArtifactDetails(req.ArtifactId)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":       true,
		"msg":          "success",
		"artifact":     res.Artifact,
		"session_info": res.SessionInfo,
	})
}

// HandleDeleteArtifact removes an artifact file and row.
func (ac *ArtifactController) HandleDeleteArtifact(c *fiber.Ctx) error {
	req := new(struct {
		ArtifactId string `json:"artifact_id"`
	})
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.ArtifactId == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "artifact_id required",
		})
	}

	if err := ac.ArtifactModel.DeleteArtifact(req.ArtifactId); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
	})
}

// HandleGetArtifactDownloadToken generates a short-lived download token.
func (ac *ArtifactController) HandleGetArtifactDownloadToken(c *fiber.Ctx) error {
	req := new(struct {
		ArtifactId string `json:"artifact_id"`
	})
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.ArtifactId == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "artifact_id required",
		})
	}

	token, err := ac.ArtifactModel.GetArtifactDownloadToken(req.ArtifactId)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"token":  token,
	})
}

// HandleDownloadArtifact serves an artifact file in exchange for a token.
// This route is public, the token is the whole authorization.
func (ac *ArtifactController) HandleDownloadArtifact(c *fiber.Ctx) error {
	token := c.Params("token")
	if len(token) == 0 {
		return c.Status(fiber.StatusUnauthorized).SendString("token required or invalid url")
	}

	file, err := ac.ArtifactModel.VerifyArtifactDownloadToken(token)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	c.Attachment(filepath.Base(file))
	return c.SendFile(file, false)
}
