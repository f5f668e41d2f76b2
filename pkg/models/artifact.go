package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	"github.com/voxlive/voxlive-server/pkg/helpers"
	dbservice "github.com/voxlive/voxlive-server/pkg/services/db"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
)

type ArtifactModel struct {
	app             *config.AppConfig
	ds              *dbservice.DatabaseService
	rs              *redisservice.RedisService
	natsService     *natsservice.NatsService
	webhookNotifier *helpers.WebhookNotifier
	logger          *logrus.Entry
}

func NewArtifactModel(app *config.AppConfig, ds *dbservice.DatabaseService, rs *redisservice.RedisService, natsService *natsservice.NatsService, logger *logrus.Logger) *ArtifactModel {
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

	return &ArtifactModel{
		app:             app,
		ds:              ds,
		rs:              rs,
		natsService:     natsService,
		webhookNotifier: helpers.GetWebhookNotifier(app, logger),
		logger:          logger.WithField("model", "artifact"),
	}
}

// artifactFilePath prepares the on-disk location for a new artifact file.
// Files live under <store>/<sessionId>/; the DB keeps the relative part
// only so the store can be moved.
func (m *ArtifactModel) artifactFilePath(sessionInfo *dbmodels.SessionInfo, artifactType dbmodels.ArtifactType, ext string) (string, string, error) {
	dir := filepath.Join(*m.app.Session.ArtifactsStorePath, sessionInfo.SessionId)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", "", err
	}

	name := fmt.Sprintf("%s-%d.%s", strings.ToLower(string(artifactType)), time.Now().UnixMilli(), ext)
	return filepath.Join(dir, name), filepath.Join(sessionInfo.SessionId, name), nil
}

// saveArtifact records the artifact row and announces it over webhook.
func (m *ArtifactModel) saveArtifact(sessionInfo *dbmodels.SessionInfo, artifactType dbmodels.ArtifactType, relPath string, size int64, metadata map[string]interface{}) (*dbmodels.SessionArtifact, error) {
	meta := ""
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		meta = string(raw)
	}

	artifact := &dbmodels.SessionArtifact{
		ArtifactId:     uuid.NewString(),
		SessionTableID: sessionInfo.ID,
		SessionId:      sessionInfo.SessionId,
		Type:           artifactType,
		FilePath:       relPath,
		FileSize:       size,
		Metadata:       meta,
	}
	if _, err := m.ds.CreateSessionArtifact(artifact); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"sessionId":  sessionInfo.SessionId,
		"artifactId": artifact.ArtifactId,
		"type":       artifactType.ToString(),
	}).Infoln("artifact stored")

	go m.sendArtifactCreatedWebhook(sessionInfo, artifact)
	return artifact, nil
}

func (m *ArtifactModel) sendArtifactCreatedWebhook(sessionInfo *dbmodels.SessionInfo, artifact *dbmodels.SessionArtifact) {
	if m.webhookNotifier == nil {
		return
	}

	e := &helpers.SessionNotifyEvent{
		Event: config.WebhookEventArtifactCreated,
		Session: &helpers.NotifySessionInfo{
			SessionId: sessionInfo.SessionId,
			Sid:       sessionInfo.Sid,
		},
		Artifact: &helpers.NotifyArtifactInfo{
			ArtifactId: artifact.ArtifactId,
			Type:       artifact.Type.ToString(),
			FilePath:   artifact.FilePath,
			FileSize:   artifact.FileSize,
		},
	}
	// artifacts usually appear after the session queue is gone, so this
	// delivery gets its own one-shot notifier
	m.webhookNotifier.ForceToPutInQueue(e)
}
