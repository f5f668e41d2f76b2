package models

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	"github.com/voxlive/voxlive-server/pkg/helpers"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
)

type SessionEndReq struct {
	SessionId string `json:"session_id"`
}

// EndSession stops every agent of the session and marks it ended. The
// heavier cleanup work (artifacts, webhooks, state expiry) continues in
// the background.
func (m *SessionModel) EndSession(ctx context.Context, r *SessionEndReq) (bool, string) {
	log := m.logger.WithField("sessionId", r.SessionId)

	sessionDbInfo, err := m.ds.GetSessionInfoBySessionId(r.SessionId, 1)
	if err != nil {
		return false, err.Error()
	}
	if sessionDbInfo == nil || sessionDbInfo.ID == 0 {
		return false, config.RequestedSessionNotExist
	}

	status, err := m.rs.GetSessionStatus(ctx, r.SessionId)
	if err != nil {
		log.WithError(err).Warnln("could not read session state, continuing with cleanup")
	}
	if status == redisservice.SessionStatusEnded {
		return false, config.SessionAlreadyEnded
	}

	// tell every node to drop its agents for this session
	if err := m.sttService.EndSessionTasks(r.SessionId); err != nil {
		log.WithError(err).Errorln("failed to broadcast session end task")
	}

	if err := m.rs.UpdateSessionStatus(ctx, r.SessionId, redisservice.SessionStatusEnded); err != nil {
		log.WithError(err).Errorln("error updating session status")
	}

	go m.OnAfterSessionEnded(m.ctx, sessionDbInfo)

	return true, "success"
}

// OnAfterSessionEnded finalizes an ended session: flips the DB row, turns
// the transcript bucket and the usage hash into artifacts, fires the
// session_ended webhook and schedules the state for expiry. The janitor
// calls this too when it reaps a session, so every step tolerates partial
// prior cleanup.
func (m *SessionModel) OnAfterSessionEnded(ctx context.Context, sessionDbInfo *dbmodels.SessionInfo) {
	log := m.logger.WithFields(logrus.Fields{
		"sessionId": sessionDbInfo.SessionId,
		"sid":       sessionDbInfo.Sid,
		"method":    "OnAfterSessionEnded",
	})
	log.Infoln("session cleanup started")

	// give in-flight transcriptions a moment to land in the bucket
	time.Sleep(config.WaitBeforeTriggerOnAfterSessionEnded)

	sessionId := sessionDbInfo.SessionId

	if _, err := m.ds.UpdateSessionStatus(&dbmodels.SessionInfo{
		SessionId: sessionId,
		IsRunning: 0,
	}); err != nil {
		log.WithError(err).Errorln("db error updating session status")
	}

	if _, err := m.artifactModel.CreateTranscriptArtifact(ctx, sessionDbInfo); err != nil {
		log.WithError(err).Errorln("error creating transcript artifact")
	}
	if _, err := m.artifactModel.CreateUsageArtifact(ctx, sessionDbInfo); err != nil {
		log.WithError(err).Errorln("error creating usage report artifact")
	}

	// the chunks are on disk now, the bucket can go
	m.natsService.DeleteTranscriptBucket(sessionId)

	if err := m.rs.DeleteTranscriptionConnections(ctx, sessionId); err != nil {
		log.WithError(err).Errorln("error deleting transcription connection counter")
	}

	m.sendSessionEndedWebhook(sessionDbInfo)

	// the state hash stays readable for late status checks, then expires
	if err := m.rs.ScheduleSessionCleanup(ctx, sessionId, *m.app.Session.TranscriptChunkTTL); err != nil {
		log.WithError(err).Errorln("error scheduling session state cleanup")
	}

	log.Infoln("session cleanup completed")
}

func (m *SessionModel) sendSessionEndedWebhook(info *dbmodels.SessionInfo) {
	n := m.webhookNotifier
	if n == nil {
		return
	}

	e := &helpers.SessionNotifyEvent{
		Event: config.WebhookEventSessionEnded,
		Session: &helpers.NotifySessionInfo{
			SessionId: info.SessionId,
			Sid:       info.Sid,
		},
	}
	if err := n.SendWebhookEvent(e); err != nil {
		m.logger.WithError(err).Errorln("failed to send session_ended webhook")
	}

	// deregistration waits for queued deliveries, run it aside
	go func() {
		if err := n.DeleteWebhook(info.SessionId); err != nil {
			m.logger.WithError(err).Errorln("failed to clean up webhook registration")
		}
	}()
}
