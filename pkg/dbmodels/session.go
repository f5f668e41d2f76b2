package dbmodels

import (
	"time"

	"github.com/voxlive/voxlive-server/pkg/config"
)

type SessionInfo struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SessionId    string    `gorm:"column:session_id;NOT NULL;index"`
	Sid          string    `gorm:"column:sid;NOT NULL;uniqueIndex"`
	Title        string    `gorm:"column:title;NOT NULL"`
	ServiceName  string    `gorm:"column:service_name;NOT NULL"`
	Provider     string    `gorm:"column:provider;NOT NULL"`
	Lang         string    `gorm:"column:lang;NOT NULL"`
	IsRunning    int       `gorm:"column:is_running;default:0;NOT NULL"`
	WebhookUrl   string    `gorm:"column:webhook_url;NOT NULL"`
	CreationTime int64     `gorm:"column:creation_time;default:0;NOT NULL"`
	Created      time.Time `gorm:"column:created;default:CURRENT_TIMESTAMP;NOT NULL"`
	Ended        time.Time `gorm:"column:ended;default:0000-00-00 00:00:00;NOT NULL"`
	Modified     time.Time `gorm:"column:modified;default:0000-00-00 00:00:00;NOT NULL"`
}

func (m *SessionInfo) TableName() string {
	return config.FormatDBTable("session_info")
}
