package models

import (
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
)

type AuthModel struct {
	app    *config.AppConfig
	rs     *redisservice.RedisService
	logger *logrus.Entry
}

func NewAuthModel(app *config.AppConfig, rs *redisservice.RedisService, logger *logrus.Logger) *AuthModel {
	if app == nil {
		app = config.GetConfig()
	}
	if rs == nil {
		rs = redisservice.New(app.RDS, logger)
	}

	return &AuthModel{
		app:    app,
		rs:     rs,
		logger: logger.WithField("model", "auth"),
	}
}
