package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	"github.com/voxlive/voxlive-server/pkg/helpers"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	sttservice "github.com/voxlive/voxlive-server/pkg/services/stt"
)

// CreateSession provisions a new transcription session: a DB row, the Redis
// state hash and a broadcast task that boots the recognizing agent. It
// returns the session info together with a token the client uses to open
// the ingest socket. Creating an id that is already live returns the
// running session with a fresh token instead of an error.
func (m *SessionModel) CreateSession(ctx context.Context, r *CreateSessionReq) (*CreateSessionRes, error) {
	if r.SessionId == "" {
		return nil, errors.New("session_id is required")
	}
	if r.UserId == "" {
		r.UserId = config.IngestUserIdPrefix + uuid.NewString()
	}

	log := m.logger.WithFields(logrus.Fields{
		"sessionId": r.SessionId,
		"userId":    r.UserId,
	})

	// one creation at a time for the same id
	lock := m.rs.NewLock("sessionCreation:"+r.SessionId, 20*time.Second)
	acquired, err := lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, errors.New("this session is being created by another request")
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Unlock(unlockCtx); err != nil {
			log.WithError(err).Errorln("error releasing session creation lock")
		}
	}()

	// the requested service must resolve to a provider account before we
	// touch any state
	_, svcConf, err := m.app.Speech.GetProviderAccountForService(r.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ServiceNotConfigured, err)
	}

	opts := new(sttservice.StartOptions)
	if len(r.Options) > 0 {
		if err := json.Unmarshal(r.Options, opts); err != nil {
			return nil, fmt.Errorf("invalid options: %w", err)
		}
	}
	if opts.UserName == "" {
		opts.UserName = r.UserName
	}
	lang := opts.Language
	if lang == "" {
		if l, ok := svcConf.Options["language"].(string); ok {
			lang = l
		}
	}

	sessionDbInfo, err := m.ds.GetSessionInfoBySessionId(r.SessionId, 1)
	if err != nil {
		return nil, err
	}

	if sessionDbInfo != nil && sessionDbInfo.ID > 0 {
		status, err := m.rs.GetSessionStatus(ctx, r.SessionId)
		if err != nil {
			return nil, err
		}
		if status != "" && status != redisservice.SessionStatusEnded {
			// already live, just hand out a fresh token
			log.Infoln("session already active, returning existing info")
			token, err := m.authModel.GenerateSessionToken(&SessionClaims{
				SessionId: r.SessionId,
				UserId:    r.UserId,
			})
			if err != nil {
				return nil, err
			}
			return &CreateSessionRes{
				SessionInfo: m.activeSessionInfoFromDb(sessionDbInfo, status),
				Token:       token,
			}, nil
		}
		// DB says running but the state store disagrees. Reuse the row
		// with a fresh sid.
		log.Warnln("found a stale session row, reusing it")
	}

	sid := uuid.NewString()
	if sessionDbInfo == nil {
		sessionDbInfo = &dbmodels.SessionInfo{
			SessionId:    r.SessionId,
			CreationTime: time.Now().Unix(),
		}
	} else {
		sessionDbInfo.CreationTime = time.Now().Unix()
	}
	sessionDbInfo.Sid = sid
	sessionDbInfo.Title = r.Title
	sessionDbInfo.ServiceName = r.ServiceName
	sessionDbInfo.Provider = svcConf.Provider
	sessionDbInfo.Lang = lang
	sessionDbInfo.WebhookUrl = r.WebhookUrl
	sessionDbInfo.IsRunning = 1

	if _, err := m.ds.InsertOrUpdateSessionInfo(sessionDbInfo); err != nil {
		return nil, err
	}

	if err := m.rs.CreateSessionState(ctx, r.SessionId, sid, r.ServiceName, svcConf.Provider, lang); err != nil {
		return nil, err
	}

	// boot the agent so the session is listening before the first frame
	optionBytes, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	if err := m.sttService.ActivateAgentTask(r.ServiceName, r.SessionId, r.UserId, optionBytes); err != nil {
		log.WithError(err).Errorln("failed to publish agent start task")
	}

	info := m.activeSessionInfoFromDb(sessionDbInfo, redisservice.SessionStatusCreated)
	go m.sendSessionCreatedWebhook(info)

	token, err := m.authModel.GenerateSessionToken(&SessionClaims{
		SessionId: r.SessionId,
		UserId:    r.UserId,
	})
	if err != nil {
		return nil, err
	}

	log.Infoln("session created with sid:", sid)
	return &CreateSessionRes{
		SessionInfo: info,
		Token:       token,
	}, nil
}

func (m *SessionModel) sendSessionCreatedWebhook(info *ActiveSessionInfo) {
	n := m.webhookNotifier
	if n == nil {
		return
	}
	n.RegisterWebhook(info.SessionId, info.Sid)

	e := &helpers.SessionNotifyEvent{
		Event: config.WebhookEventSessionStarted,
		Session: &helpers.NotifySessionInfo{
			SessionId: info.SessionId,
			Sid:       info.Sid,
		},
	}
	if err := n.SendWebhookEvent(e); err != nil {
		m.logger.WithError(err).Errorln("failed to send session_started webhook")
	}
}
