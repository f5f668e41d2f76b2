package natsservice

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
)

const (
	Prefix = "vxl-"
)

type NatsService struct {
	ctx    context.Context
	app    *config.AppConfig
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

func New(app *config.AppConfig, logger *logrus.Logger) *NatsService {
	if app == nil {
		app = config.GetConfig()
	}

	return &NatsService{
		ctx:    context.Background(),
		app:    app,
		nc:     app.NatsConn,
		js:     app.JetStream,
		logger: logger.WithField("service", "nats"),
	}
}
