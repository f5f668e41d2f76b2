package models

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	dbservice "github.com/voxlive/voxlive-server/pkg/services/db"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	sttservice "github.com/voxlive/voxlive-server/pkg/services/stt"
)

// JanitorModel runs the periodic housekeeping: sessions past their maximum
// duration, DB rows whose state vanished, pending summary jobs and artifact
// retention. Only one instance in the cluster works at a time, chosen
// through a Redis leader lock.
type JanitorModel struct {
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc

	app           *config.AppConfig
	ds            *dbservice.DatabaseService
	rs            *redisservice.RedisService
	natsService   *natsservice.NatsService
	sttService    *sttservice.SttService
	sessionModel  *SessionModel
	artifactModel *ArtifactModel
	logger        *logrus.Entry

	leaderLockVal string
	leaderLockTTL time.Duration
	leaderRenewal time.Duration
}

func NewJanitorModel(app *config.AppConfig, ds *dbservice.DatabaseService, rs *redisservice.RedisService, natsService *natsservice.NatsService, sttService *sttservice.SttService, logger *logrus.Logger) *JanitorModel {
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

	ctx, cancel := context.WithCancel(context.Background())
	return &JanitorModel{
		ctx:           ctx,
		cancel:        cancel,
		app:           app,
		ds:            ds,
		rs:            rs,
		natsService:   natsService,
		sttService:    sttService,
		sessionModel:  NewSessionModel(ctx, app, ds, rs, natsService, sttService, logger),
		artifactModel: NewArtifactModel(app, ds, rs, natsService, logger),
		logger:        logger.WithField("model", "janitor"),
		leaderLockTTL: time.Minute * 1,
		leaderRenewal: time.Second * 30,
	}
}

// StartJanitor joins the leader election and keeps trying for the rest of
// the process lifetime. Call Shutdown to stop.
func (m *JanitorModel) StartJanitor() {
	m.logger.Infoln("starting janitor")
	go m.startLeaderElection()
}

func (m *JanitorModel) startLeaderElection() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		acquired, lockVal, err := m.rs.AcquireJanitorLeaderLock(m.ctx, m.leaderLockTTL)
		if err != nil {
			m.logger.WithError(err).Errorln("error acquiring janitor leader lock")
		} else if acquired {
			m.mu.Lock()
			m.leaderLockVal = lockVal
			m.mu.Unlock()

			m.logger.Infoln("janitor leadership acquired")
			m.runJanitorTasks()
			m.logger.Infoln("janitor leadership lost")

			m.mu.Lock()
			m.leaderLockVal = ""
			m.mu.Unlock()
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.leaderRenewal):
		}
	}
}

// runJanitorTasks drives the task schedule while we hold leadership. It
// returns as soon as the renewal fails, handing leadership back to the
// election loop.
func (m *JanitorModel) runJanitorTasks() {
	renewalTicker := time.NewTicker(m.leaderRenewal)
	defer renewalTicker.Stop()

	taskTicker := time.NewTicker(5 * time.Second)
	defer taskTicker.Stop()

	// stagger the heavier checks so they never pile onto one tick
	nextSessionCheck := time.Now().Add(time.Minute * 1)
	nextSummaryCheck := time.Now().Add(time.Minute * 2)
	nextRetentionCheck := time.Now().Add(time.Minute * 5)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-renewalTicker.C:
			m.mu.RLock()
			lockVal := m.leaderLockVal
			m.mu.RUnlock()

			renewed, err := m.rs.RenewJanitorLeadershipLock(m.ctx, lockVal, m.leaderLockTTL)
			if err != nil {
				m.logger.WithError(err).Errorln("error renewing janitor leader lock")
				return
			}
			if !renewed {
				return
			}
		case <-taskTicker.C:
			m.checkSessionMaxDuration()

			if time.Now().After(nextSessionCheck) {
				m.activeSessionChecker()
				nextSessionCheck = time.Now().Add(time.Minute * 5)
			}
			if time.Now().After(nextSummaryCheck) {
				m.checkPendingSummaryJobs()
				nextSummaryCheck = time.Now().Add(time.Minute * 1)
			}
			if time.Now().After(nextRetentionCheck) {
				m.checkArtifactRetention()
				nextRetentionCheck = time.Now().Add(time.Hour * 1)
			}
		}
	}
}

// Shutdown releases leadership (when held) and stops the janitor.
func (m *JanitorModel) Shutdown() {
	m.mu.RLock()
	lockVal := m.leaderLockVal
	m.mu.RUnlock()

	if lockVal != "" {
		m.rs.ReleaseJanitorLeadershipLock(m.ctx, lockVal)
	}
	m.cancel()
}
