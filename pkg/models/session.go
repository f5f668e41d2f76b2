package models

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	"github.com/voxlive/voxlive-server/pkg/helpers"
	dbservice "github.com/voxlive/voxlive-server/pkg/services/db"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	sttservice "github.com/voxlive/voxlive-server/pkg/services/stt"
)

type SessionModel struct {
	ctx             context.Context
	app             *config.AppConfig
	ds              *dbservice.DatabaseService
	rs              *redisservice.RedisService
	natsService     *natsservice.NatsService
	sttService      *sttservice.SttService
	authModel       *AuthModel
	artifactModel   *ArtifactModel
	webhookNotifier *helpers.WebhookNotifier
	logger          *logrus.Entry
}

func NewSessionModel(ctx context.Context, app *config.AppConfig, ds *dbservice.DatabaseService, rs *redisservice.RedisService, natsService *natsservice.NatsService, sttService *sttservice.SttService, logger *logrus.Logger) *SessionModel {
	if app == nil {
		app = config.GetConfig()
	}
	if ds == nil {
		ds = dbservice.New(app.DB, logger)
	}
	if rs == nil {
		rs = redisservice.New(app.RDS, logger)
	}
	if natsService == nil {
		natsService = natsservice.New(app, logger)
	}

	return &SessionModel{
		ctx:             ctx,
		app:             app,
		ds:              ds,
		rs:              rs,
		natsService:     natsService,
		sttService:      sttService,
		authModel:       NewAuthModel(app, rs, logger),
		artifactModel:   NewArtifactModel(app, ds, rs, natsService, logger),
		webhookNotifier: helpers.GetWebhookNotifier(app, logger),
		logger:          logger.WithField("model", "session"),
	}
}

type CreateSessionReq struct {
	SessionId   string          `json:"session_id"`
	Title       string          `json:"title"`
	ServiceName string          `json:"service_name"`
	UserId      string          `json:"user_id"`
	UserName    string          `json:"user_name"`
	WebhookUrl  string          `json:"webhook_url"`
	Options     json.RawMessage `json:"options,omitempty"`
}

type CreateSessionRes struct {
	SessionInfo *ActiveSessionInfo `json:"session_info"`
	Token       string             `json:"token"`
}

// ActiveSessionInfo is the wire shape of a live session.
type ActiveSessionInfo struct {
	SessionId    string `json:"session_id"`
	Sid          string `json:"sid"`
	Title        string `json:"title"`
	ServiceName  string `json:"service_name"`
	Provider     string `json:"provider"`
	Lang         string `json:"lang,omitempty"`
	IsRunning    int    `json:"is_running"`
	Status       string `json:"status,omitempty"`
	CreationTime int64  `json:"creation_time"`
	WebhookUrl   string `json:"webhook_url,omitempty"`
}

func (m *SessionModel) activeSessionInfoFromDb(info *dbmodels.SessionInfo, status string) *ActiveSessionInfo {
	return &ActiveSessionInfo{
		SessionId:    info.SessionId,
		Sid:          info.Sid,
		Title:        info.Title,
		ServiceName:  info.ServiceName,
		Provider:     info.Provider,
		Lang:         info.Lang,
		IsRunning:    info.IsRunning,
		Status:       status,
		CreationTime: info.CreationTime,
		WebhookUrl:   info.WebhookUrl,
	}
}
