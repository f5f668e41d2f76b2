//go:build wireinject
// +build wireinject

package factory

import (
	"context"

	"github.com/google/wire"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/controllers"
	"github.com/voxlive/voxlive-server/pkg/models"
	dbservice "github.com/voxlive/voxlive-server/pkg/services/db"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	sttservice "github.com/voxlive/voxlive-server/pkg/services/stt"
)

// build the dependency set for services
var serviceSet = wire.NewSet(
	dbservice.New,
	redisservice.New,
	natsservice.New,
	sttservice.New,
)

// build the dependency set for models
var modelSet = wire.NewSet(
	models.NewAuthModel,
	models.NewSessionModel,
	models.NewArtifactModel,
	models.NewTranscriptionModel,
	models.NewSummaryModel,
	models.NewAssetModel,
	models.NewJanitorModel,
)

// build the dependency set for controllers
var controllerSet = wire.NewSet(
	controllers.NewAuthController,
	controllers.NewSessionController,
	controllers.NewIngestController,
	controllers.NewTranscriptionController,
	controllers.NewArtifactController,
	controllers.NewAssetController,
	controllers.NewSummaryController,
)

// NewAppFactory is the injector function that wire will implement.
func NewAppFactory(ctx context.Context, appConfig *config.AppConfig) (*Application, error) {
	wire.Build(
		serviceSet,
		modelSet,
		controllerSet,
		// Provide the whole AppConfig, and also specific fields needed by constructors.
		wire.FieldsOf(new(*config.AppConfig), "DB", "RDS", "Logger"),

		wire.Struct(new(ApplicationControllers), "*"),
		wire.Struct(new(Application), "*"),
	)
	return nil, nil // This return value is ignored.
}
