package models

import (
	"time"

	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
)

// checkSessionMaxDuration ends sessions that ran past the configured
// maximum duration. Disabled when no limit is set.
func (m *JanitorModel) checkSessionMaxDuration() {
	if m.app.Session.MaxDuration == nil || *m.app.Session.MaxDuration <= 0 {
		return
	}

	sessions, err := m.ds.GetActiveSessionsInfo()
	if err != nil {
		m.logger.WithError(err).Errorln("error fetching active sessions")
		return
	}

	maxSeconds := int64(m.app.Session.MaxDuration.Seconds())
	now := time.Now().Unix()

	for i := range sessions {
		s := &sessions[i]
		if s.CreationTime == 0 || now-s.CreationTime <= maxSeconds {
			continue
		}

		m.logger.Infoln("session", s.SessionId, "passed the maximum duration, ending it")
		ok, msg := m.sessionModel.EndSession(m.ctx, &SessionEndReq{SessionId: s.SessionId})
		if !ok {
			m.logger.Errorln("failed to end session", s.SessionId, ":", msg)
		}
	}
}

// activeSessionChecker reconciles running DB rows with the state store.
// A row whose state vanished without a proper end (crash, expired keys)
// is flipped to ended and any agents left on this node are dropped.
func (m *JanitorModel) activeSessionChecker() {
	task := "activeSessionChecker"
	if m.rs.IsJanitorTaskLock(task) {
		return
	}
	m.rs.LockJanitorTask(task, time.Minute*10)
	defer m.rs.UnlockJanitorTask(task)

	sessions, err := m.ds.GetActiveSessionsInfo()
	if err != nil {
		m.logger.WithError(err).Errorln("error fetching active sessions")
		return
	}
	if len(sessions) == 0 {
		return
	}

	for i := range sessions {
		s := &sessions[i]
		if s.Sid == "" {
			// creation may still be in flight
			continue
		}

		status, err := m.rs.GetSessionStatus(m.ctx, s.SessionId)
		if err != nil {
			continue
		}

		if status == "" || status == redisservice.SessionStatusEnded {
			m.logger.Warnln("session", s.SessionId, "is running in DB but not in the state store, cleaning up")
			if _, err := m.ds.UpdateSessionStatus(&dbmodels.SessionInfo{
				ID:        s.ID,
				IsRunning: 0,
			}); err != nil {
				m.logger.WithError(err).Errorln("error updating session status")
			}
			m.sttService.RemoveAgentsForSession(s.SessionId)
		}
	}
}
