package models

import (
	"context"

	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
)

type IsSessionActiveReq struct {
	SessionId string `json:"session_id"`
}

type IsSessionActiveRes struct {
	Status   bool   `json:"status"`
	Msg      string `json:"msg"`
	IsActive bool   `json:"is_active"`
}

// IsSessionActive reports whether a session is live. When the DB row says
// running but the state store has no entry anymore, the row is repaired on
// the spot.
func (m *SessionModel) IsSessionActive(ctx context.Context, r *IsSessionActiveReq) *IsSessionActiveRes {
	res := &IsSessionActiveRes{
		Status: true,
		Msg:    "session is not active",
	}

	sessionDbInfo, err := m.ds.GetSessionInfoBySessionId(r.SessionId, 1)
	if err != nil {
		res.Status = false
		res.Msg = err.Error()
		return res
	}
	if sessionDbInfo == nil || sessionDbInfo.ID == 0 {
		return res
	}

	status, err := m.rs.GetSessionStatus(ctx, r.SessionId)
	if err != nil {
		res.Status = false
		res.Msg = err.Error()
		return res
	}

	switch status {
	case redisservice.SessionStatusCreated, redisservice.SessionStatusActive:
		res.IsActive = true
		res.Msg = "session is active"
	case "":
		// state store lost the session, fix the DB row
		_, err := m.ds.UpdateSessionStatus(&dbmodels.SessionInfo{
			SessionId: r.SessionId,
			IsRunning: 0,
		})
		if err != nil {
			m.logger.WithError(err).Errorln("error updating session status")
		}
	}

	return res
}

// GetActiveSessionInfo returns the live info of a single session.
func (m *SessionModel) GetActiveSessionInfo(ctx context.Context, sessionId string) (bool, string, *ActiveSessionInfo) {
	sessionDbInfo, err := m.ds.GetSessionInfoBySessionId(sessionId, 1)
	if err != nil {
		return false, err.Error(), nil
	}
	if sessionDbInfo == nil || sessionDbInfo.ID == 0 {
		return false, config.RequestedSessionNotExist, nil
	}

	status, err := m.rs.GetSessionStatus(ctx, sessionId)
	if err != nil {
		return false, err.Error(), nil
	}
	if status == "" || status == redisservice.SessionStatusEnded {
		return false, config.RequestedSessionNotExist, nil
	}

	return true, "success", m.activeSessionInfoFromDb(sessionDbInfo, status)
}

// GetActiveSessionsList returns every session that is live in both the DB
// and the state store.
func (m *SessionModel) GetActiveSessionsList(ctx context.Context) (bool, string, []*ActiveSessionInfo) {
	sessions, err := m.ds.GetActiveSessionsInfo()
	if err != nil {
		return false, err.Error(), nil
	}
	if len(sessions) == 0 {
		return false, "no active session found", nil
	}

	var list []*ActiveSessionInfo
	for i := range sessions {
		status, err := m.rs.GetSessionStatus(ctx, sessions[i].SessionId)
		if err != nil || status == "" || status == redisservice.SessionStatusEnded {
			continue
		}
		list = append(list, m.activeSessionInfoFromDb(&sessions[i], status))
	}
	if len(list) == 0 {
		return false, "no active session found", nil
	}

	return true, "success", list
}

type FetchPastSessionsReq struct {
	SessionIds []string `json:"session_ids"`
	From       uint64   `json:"from"`
	Limit      uint64   `json:"limit"`
	OrderBy    string   `json:"order_by"`
}

type PastSessionInfo struct {
	SessionId   string `json:"session_id"`
	Sid         string `json:"sid"`
	Title       string `json:"title"`
	ServiceName string `json:"service_name"`
	Provider    string `json:"provider"`
	Lang        string `json:"lang,omitempty"`
	Created     string `json:"created"`
	Ended       string `json:"ended"`
}

type FetchPastSessionsResult struct {
	TotalSessions int64              `json:"total_sessions"`
	From          uint64             `json:"from"`
	Limit         uint64             `json:"limit"`
	OrderBy       string             `json:"order_by"`
	SessionsList  []*PastSessionInfo `json:"sessions_list"`
}

// FetchPastSessions lists ended sessions, paginated and optionally
// filtered by session ids.
func (m *SessionModel) FetchPastSessions(r *FetchPastSessionsReq) (*FetchPastSessionsResult, error) {
	if r.Limit == 0 {
		r.Limit = 20
	}
	if r.OrderBy == "" {
		r.OrderBy = "DESC"
	}

	sessions, total, err := m.ds.GetPastSessions(r.SessionIds, r.From, r.Limit, &r.OrderBy)
	if err != nil {
		return nil, err
	}

	list := make([]*PastSessionInfo, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		list = append(list, &PastSessionInfo{
			SessionId:   s.SessionId,
			Sid:         s.Sid,
			Title:       s.Title,
			ServiceName: s.ServiceName,
			Provider:    s.Provider,
			Lang:        s.Lang,
			Created:     s.Created.Format("2006-01-02 15:04:05"),
			Ended:       s.Ended.Format("2006-01-02 15:04:05"),
		})
	}

	return &FetchPastSessionsResult{
		TotalSessions: total,
		From:          r.From,
		Limit:         r.Limit,
		OrderBy:       r.OrderBy,
		SessionsList:  list,
	}, nil
}
