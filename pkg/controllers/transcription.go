package controllers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/models"
)

// TranscriptionController holds dependencies for transcript handlers.
type TranscriptionController struct {
	TranscriptionModel *models.TranscriptionModel
}

// NewTranscriptionController creates a new TranscriptionController.
func NewTranscriptionController(tm *models.TranscriptionModel) *TranscriptionController {
	return &TranscriptionController{
		TranscriptionModel: tm,
	}
}

// HandleFetchTranscriptChunks returns the stored transcript of the
// token's session in speaking order.
func (tc *TranscriptionController) HandleFetchTranscriptChunks(c *fiber.Ctx) error {
	sessionId := c.Locals("sessionId").(string)

	result, err := tc.TranscriptionModel.FetchTranscriptChunks(&models.FetchTranscriptChunksReq{
		SessionId: sessionId,
	})
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"result": result,
	})
}

// HandleGetLastTranscription pops the newest final transcription. The slot
// clears on read, a repeat call returns empty until the next result.
func (tc *TranscriptionController) HandleGetLastTranscription(c *fiber.Ctx) error {
	sessionId := c.Locals("sessionId").(string)

	text, err := tc.TranscriptionModel.GetLastTranscription(c.UserContext(), sessionId)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"text":   text,
	})
}

// HandleGetSupportedLanguages lists what the service's provider accepts.
func (tc *TranscriptionController) HandleGetSupportedLanguages(c *fiber.Ctx) error {
	serviceName := c.Query("service_name")
	if serviceName == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "service_name required",
		})
	}

	langs, err := tc.TranscriptionModel.GetSupportedLanguages(serviceName)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    true,
		"msg":       "success",
		"languages": langs,
	})
}

// HandleTranscribeFile accepts a mono WAV upload and runs it through the
// service's provider in one pass.
func (tc *TranscriptionController) HandleTranscribeFile(c *fiber.Ctx) error {
	serviceName := c.FormValue("service_name")
	if serviceName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": false,
			"msg":    "service_name required",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if fileHeader.Size > config.MaxUploadedWavFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": false,
			"msg":    fmt.Sprintf("file is too large, maximum allowed is %d bytes", config.MaxUploadedWavFileSize),
		})
	}

	// check the real content type, not the extension
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	mtype, err := mimetype.DetectReader(file)
	_ = file.Close()
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if !mtype.Is("audio/wav") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": false,
			"msg":    fmt.Sprintf("expected a WAV file, got %s", mtype.String()),
		})
	}

	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("vxl-upload-%s.wav", uuid.NewString()))
	if err := c.SaveFile(fileHeader, tmpFile); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	defer os.Remove(tmpFile)

	result, err := tc.TranscriptionModel.TranscribeFile(c.UserContext(), &models.TranscribeFileReq{
		ServiceName: serviceName,
		Language:    c.FormValue("language"),
		FilePath:    tmpFile,
		FileSize:    fileHeader.Size,
	})
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"result": result,
	})
}
