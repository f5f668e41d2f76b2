package dbservice

import (
	"errors"

	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	"gorm.io/gorm"
)

func (s *DatabaseService) GetSessionInfoBySessionId(sessionId string, isRunning int) (*dbmodels.SessionInfo, error) {
	info := new(dbmodels.SessionInfo)
	cond := &dbmodels.SessionInfo{
		SessionId: sessionId,
		IsRunning: isRunning,
	}

	result := s.db.Where(cond).Take(info)
	switch {
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		return nil, nil
	case result.Error != nil:
		return nil, result.Error
	}

	return info, nil
}

func (s *DatabaseService) GetSessionInfoBySid(sId string, isRunning *int) (*dbmodels.SessionInfo, error) {
	info := new(dbmodels.SessionInfo)
	cond := &dbmodels.SessionInfo{}
	if isRunning != nil {
		cond.IsRunning = *isRunning
	}

	result := s.db.Where("sid = ?", sId).Where(cond).Take(info)
	switch {
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		return nil, nil
	case result.Error != nil:
		return nil, result.Error
	}

	return info, nil
}

func (s *DatabaseService) GetSessionInfoByTableId(tableId uint64) (*dbmodels.SessionInfo, error) {
	info := new(dbmodels.SessionInfo)
	cond := &dbmodels.SessionInfo{
		ID: tableId,
	}

	result := s.db.Where(cond).Take(info)
	switch {
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		return nil, nil
	case result.Error != nil:
		return nil, result.Error
	}

	return info, nil
}

func (s *DatabaseService) GetActiveSessionsInfo() ([]dbmodels.SessionInfo, error) {
	var sessions []dbmodels.SessionInfo
	cond := &dbmodels.SessionInfo{
		IsRunning: 1,
	}

	result := s.db.Where(cond).Find(&sessions)
	switch {
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		return nil, nil
	case result.Error != nil:
		return nil, result.Error
	}

	return sessions, nil
}

func (s *DatabaseService) GetPastSessions(sessionIds []string, offset, limit uint64, direction *string) ([]dbmodels.SessionInfo, int64, error) {
	var sessionsInfo []dbmodels.SessionInfo
	var total int64
	cond := &dbmodels.SessionInfo{
		IsRunning: 0,
	}

	d := s.db.Model(&dbmodels.SessionInfo{}).Where(cond)
	if len(sessionIds) > 0 {
		d.Where("session_id IN ?", sessionIds)
	}

	if err := d.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit == 0 {
		limit = 20
	}
	orderBy := "DESC"
	if direction != nil && *direction == "ASC" {
		orderBy = "ASC"
	}

	result := d.Offset(int(offset)).Limit(int(limit)).Order("id " + orderBy).Find(&sessionsInfo)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, 0, result.Error
	}

	return sessionsInfo, total, nil
}
