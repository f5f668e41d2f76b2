package models

import (
	"fmt"
	"os"

	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// CreateSummaryArtifact stores the text a completed summarization job
// produced. The janitor calls this when the provider reports success; the
// session is long ended by then, so the lookup ignores the running state.
func (m *ArtifactModel) CreateSummaryArtifact(job *redisservice.PendingSummaryJob, res *speech.SummaryJobResult) (*dbmodels.SessionArtifact, error) {
	sessionInfo, err := m.ds.GetSessionInfoBySessionId(job.SessionId, 0)
	if err != nil {
		return nil, err
	}
	if sessionInfo == nil || sessionInfo.ID == 0 {
		return nil, fmt.Errorf("no session found with id: %s", job.SessionId)
	}

	file, relPath, err := m.artifactFilePath(sessionInfo, dbmodels.ArtifactSummary, "md")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(file, []byte(res.Summary), 0644); err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"job_id": job.JobId,
		"model":  job.Model,
	}
	if res.TotalTokens > 0 {
		metadata["prompt_tokens"] = res.PromptTokens
		metadata["completion_tokens"] = res.CompletionTokens
		metadata["total_tokens"] = res.TotalTokens
	}

	return m.saveArtifact(sessionInfo, dbmodels.ArtifactSummary, relPath, int64(len(res.Summary)), metadata)
}
