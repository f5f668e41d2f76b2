package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voxlive/voxlive-server/pkg/models"
)

// AssetController exposes the model-asset preflight.
type AssetController struct {
	AssetModel *models.AssetModel
}

// NewAssetController creates a new AssetController.
func NewAssetController(am *models.AssetModel) *AssetController {
	return &AssetController{
		AssetModel: am,
	}
}

// HandleGetAssetsStatus reports the manifest resolution and what is
// actually on disk.
func (ac *AssetController) HandleGetAssetsStatus(c *fiber.Ctx) error {
	result, err := ac.AssetModel.GetAssetsStatus()
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

// HandleSyncAssets downloads whatever the manifest needs and is missing.
// The call blocks until the sync finishes.
func (ac *AssetController) HandleSyncAssets(c *fiber.Ctx) error {
	result, err := ac.AssetModel.SyncAssets(c.UserContext())
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
