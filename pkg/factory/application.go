package factory

import (
	"context"

	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/controllers"
	"github.com/voxlive/voxlive-server/pkg/models"
	sttservice "github.com/voxlive/voxlive-server/pkg/services/stt"
)

// ApplicationControllers holds all the controllers.
type ApplicationControllers struct {
	AuthController          *controllers.AuthController
	SessionController       *controllers.SessionController
	IngestController        *controllers.IngestController
	TranscriptionController *controllers.TranscriptionController
	ArtifactController      *controllers.ArtifactController
	AssetController         *controllers.AssetController
	SummaryController       *controllers.SummaryController
}

// Application is the root struct holding all dependencies.
type Application struct {
	Controllers  *ApplicationControllers
	AppConfig    *config.AppConfig
	Ctx          context.Context
	sttService   *sttservice.SttService
	janitorModel *models.JanitorModel
	assetModel   *models.AssetModel
}

func (a *Application) Boot() {
	// the agent task subscription must be live before the first session
	// create request lands, otherwise its start broadcast is lost
	a.sttService.SubscribeToTaskRequests()

	a.janitorModel.StartJanitor()
	go a.assetModel.SyncOnBoot(a.Ctx)
}

func (a *Application) Shutdown() {
	a.sttService.Shutdown()
	a.janitorModel.Shutdown()
}
