package sttservice

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/audio"
	"github.com/voxlive/voxlive-server/pkg/config"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
)

// SessionAgent is the per-session worker the elected leader runs. It owns
// the transcription pipeline and receives audio either directly from a
// local ingest socket or relayed over the frames subject.
type SessionAgent struct {
	ctx    context.Context
	cancel context.CancelFunc
	conf   *config.AppConfig
	logger *logrus.Entry

	sessionId   string
	serviceName string

	redisService *redisservice.RedisService
	natsService  *natsservice.NatsService

	task      *TranscriptionTask
	framesSub *nats.Subscription

	lock sync.RWMutex
	// speaker is the user whose task is currently active, nil while the
	// session has nobody transcribing. Frames are dropped in that state.
	speaker *activeSpeaker
}

type activeSpeaker struct {
	userId string
	name   string
}

// newSessionAgent builds the agent and its single transcription task. The
// first start task's options configure the provider stream.
func newSessionAgent(ctx context.Context, conf *config.AppConfig, serviceConfig *config.ServiceConfig, providerAccount *config.ProviderAccount, redisService *redisservice.RedisService, natsService *natsservice.NatsService, logger *logrus.Entry, sessionId, serviceName string, options []byte) (*SessionAgent, error) {
	ctx, cancel := context.WithCancel(ctx)
	log := logger.WithFields(logrus.Fields{"session": sessionId, "service": serviceName})

	task, err := newTask(ctx, conf, serviceName, serviceConfig, providerAccount, redisService, natsService, log, sessionId, options)
	if err != nil {
		cancel()
		return nil, err
	}

	agent := &SessionAgent{
		ctx:          ctx,
		cancel:       cancel,
		conf:         conf,
		logger:       log,
		sessionId:    sessionId,
		serviceName:  serviceName,
		redisService: redisService,
		natsService:  natsService,
		task:         task,
	}
	task.onStopKeyword = agent.handleStopKeyword

	// Audio from ingest sockets on other nodes arrives over NATS.
	sub, err := natsService.SubscribeFrames(sessionId, agent.FeedPCM)
	if err != nil {
		task.Close()
		cancel()
		return nil, err
	}
	agent.framesSub = sub

	return agent, nil
}

// ActivateTaskForUser makes the user the session's active speaker. A second
// activation for the same user is a no-op; a different user takes over and
// the previous usage window is closed.
func (a *SessionAgent) ActivateTaskForUser(userId string, options []byte) error {
	opts := new(StartOptions)
	if len(options) > 0 {
		if err := json.Unmarshal(options, opts); err != nil {
			return err
		}
	}
	name := opts.UserName
	if name == "" {
		name = userId
	}

	a.lock.Lock()
	if a.speaker != nil {
		if a.speaker.userId == userId {
			a.lock.Unlock()
			a.logger.Infof("task is already active for user %s", userId)
			return nil
		}
		prev := a.speaker.userId
		a.speaker = &activeSpeaker{userId: userId, name: name}
		a.lock.Unlock()

		a.logger.Infof("speaker changed from %s to %s", prev, userId)
		if _, err := a.redisService.TranscriptionUserLeft(a.ctx, a.sessionId, prev); err != nil {
			a.logger.WithError(err).Errorln("failed to close previous usage window")
		}
	} else {
		a.speaker = &activeSpeaker{userId: userId, name: name}
		a.lock.Unlock()
	}

	if err := a.redisService.TranscriptionUserJoined(a.ctx, a.sessionId, userId); err != nil {
		a.logger.WithError(err).Errorln("failed to open usage window")
	}
	if err := a.redisService.UpdateSessionStatus(a.ctx, a.sessionId, redisservice.SessionStatusActive); err != nil {
		a.logger.WithError(err).Errorln("failed to update session status")
	}

	a.task.SetSpeaker(userId, name)
	a.task.ApplyOptions(opts)

	a.logger.Infof("activated task for user %s", userId)
	return nil
}

// EndTaskForUser stops transcribing for the user. The agent itself stays
// alive so another start can reuse the warm provider stream.
func (a *SessionAgent) EndTaskForUser(userId string) {
	a.lock.Lock()
	if a.speaker == nil || a.speaker.userId != userId {
		a.lock.Unlock()
		return
	}
	a.speaker = nil
	a.lock.Unlock()

	// Transcribe whatever was still buffering before the window closes.
	a.task.Flush()

	usage, err := a.redisService.TranscriptionUserLeft(a.ctx, a.sessionId, userId)
	if err != nil {
		a.logger.WithError(err).Errorln("failed to close usage window")
	}
	a.logger.WithField("userId", userId).Infof("stopped transcription task, used %d seconds", usage)
}

// FeedPCM hands one raw PCM16LE frame to the pipeline. Frames arriving
// while no task is active are dropped.
func (a *SessionAgent) FeedPCM(data []byte) {
	a.lock.RLock()
	active := a.speaker != nil
	a.lock.RUnlock()

	if !active {
		return
	}

	a.task.Feed(audio.BytesToPCM16(data))
}

// Calibrate routes the next stretch of incoming audio into threshold
// calibration instead of phrase detection.
func (a *SessionAgent) Calibrate() {
	a.task.StartCalibration()
	a.logger.Infoln("recalibrating energy threshold from ambient noise")
}

// handleStopKeyword broadcasts the end task so every node, this one
// included, winds the user's task down through the normal path.
func (a *SessionAgent) handleStopKeyword() {
	a.lock.RLock()
	speaker := a.speaker
	a.lock.RUnlock()

	if speaker == nil {
		return
	}

	payload := &TaskPayload{
		Task:        TaskEnd,
		ServiceName: a.serviceName,
		SessionId:   a.sessionId,
		UserId:      speaker.userId,
	}
	p, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := a.conf.NatsConn.Publish(a.conf.NatsInfo.Subjects.AgentTask, p); err != nil {
		a.logger.WithError(err).Errorln("failed to publish end task after stop keyword")
	}
}

// Shutdown gracefully closes the agent.
func (a *SessionAgent) Shutdown() {
	a.logger.Infoln("shutting down session agent")

	if a.framesSub != nil {
		_ = a.framesSub.Unsubscribe()
	}

	a.lock.Lock()
	speaker := a.speaker
	a.speaker = nil
	a.lock.Unlock()

	if speaker != nil {
		if _, err := a.redisService.TranscriptionUserLeft(a.ctx, a.sessionId, speaker.userId); err != nil {
			a.logger.WithError(err).Errorln("failed to close usage window")
		}
	}

	a.task.Close()
	a.cancel()
}
