package dbmodels

import (
	"time"

	"github.com/voxlive/voxlive-server/pkg/config"
)

// ArtifactType names the kind of file an artifact row points at. The values
// are stored as plain strings so they stay readable in the database.
type ArtifactType string

const (
	ArtifactTranscript  ArtifactType = "TRANSCRIPT_VTT"
	ArtifactUsageReport ArtifactType = "USAGE_REPORT"
	ArtifactSummary     ArtifactType = "SUMMARY"
)

func (t ArtifactType) ToString() string {
	return string(t)
}

type SessionArtifact struct {
	ID             uint64       `gorm:"primarykey"`
	ArtifactId     string       `gorm:"column:artifact_id;not null;uniqueIndex"`
	SessionTableID uint64       `gorm:"column:session_table_id;not null;index"`
	SessionId      string       `gorm:"column:session_id;not null;index"`
	Type           ArtifactType `gorm:"column:type;not null;index"`
	FilePath       string       `gorm:"column:file_path;not null"`
	FileSize       int64        `gorm:"column:file_size;default:0;not null"`
	Metadata       string       `gorm:"column:metadata;type:json"`
	Created        time.Time    `gorm:"column:created;not null;autoCreateTime"`
}

func (t *SessionArtifact) TableName() string {
	return config.FormatDBTable("session_artifacts")
}
