package models

import (
	"context"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
)

// usageReport is the JSON body of a usage artifact.
type usageReport struct {
	SessionId          string `json:"session_id"`
	Sid                string `json:"sid"`
	ServiceName        string `json:"service_name"`
	Provider           string `json:"provider"`
	TotalSpeechSeconds int64  `json:"total_speech_seconds"`
	GeneratedAt        string `json:"generated_at"`
}

// CreateUsageArtifact snapshots the session's usage accounting into a JSON
// report. Reading the total also drops the hash, so this runs exactly once
// per session.
func (m *ArtifactModel) CreateUsageArtifact(ctx context.Context, sessionInfo *dbmodels.SessionInfo) (*dbmodels.SessionArtifact, error) {
	total, err := m.rs.GetTranscriptionUsage(ctx, sessionInfo.SessionId, true)
	if err != nil {
		return nil, err
	}

	report := &usageReport{
		SessionId:          sessionInfo.SessionId,
		Sid:                sessionInfo.Sid,
		ServiceName:        sessionInfo.ServiceName,
		Provider:           sessionInfo.Provider,
		TotalSpeechSeconds: total,
		GeneratedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}

	file, relPath, err := m.artifactFilePath(sessionInfo, dbmodels.ArtifactUsageReport, "json")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return nil, err
	}

	return m.saveArtifact(sessionInfo, dbmodels.ArtifactUsageReport, relPath, int64(len(data)), map[string]interface{}{
		"total_speech_seconds": total,
	})
}
