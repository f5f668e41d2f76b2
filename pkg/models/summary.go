package models

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	dbservice "github.com/voxlive/voxlive-server/pkg/services/db"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	sttservice "github.com/voxlive/voxlive-server/pkg/services/stt"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

type SummaryModel struct {
	app        *config.AppConfig
	ds         *dbservice.DatabaseService
	rs         *redisservice.RedisService
	sttService *sttservice.SttService
	logger     *logrus.Entry
}

func NewSummaryModel(app *config.AppConfig, ds *dbservice.DatabaseService, rs *redisservice.RedisService, sttService *sttservice.SttService, logger *logrus.Logger) *SummaryModel {
	if app == nil {
		app = config.GetConfig()
	}
	if ds == nil {
		ds = dbservice.New(app.DB, logger)
	}
	if rs == nil {
		rs = redisservice.New(app.RDS, logger)
	}

	return &SummaryModel{
		app:        app,
		ds:         ds,
		rs:         rs,
		sttService: sttService,
		logger:     logger.WithField("model", "summary"),
	}
}

type CreateSummaryJobReq struct {
	SessionId   string `json:"session_id"`
	ServiceName string `json:"service_name"`
	UserPrompt  string `json:"user_prompt,omitempty"`
}

type SummaryJobInfo struct {
	JobId     string `json:"job_id"`
	SessionId string `json:"session_id"`
	Model     string `json:"model,omitempty"`
	Status    string `json:"status"`
	Summary   string `json:"summary,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CreateSummaryJob submits the session's transcript to the summarization
// provider as a batch job. The janitor polls the job and stores the result
// as an artifact once it completes.
func (m *SummaryModel) CreateSummaryJob(ctx context.Context, r *CreateSummaryJobReq) (*SummaryJobInfo, error) {
	if r.SessionId == "" {
		return nil, errors.New("session_id is required")
	}
	if r.ServiceName == "" {
		r.ServiceName = string(speech.ServiceSummarizing)
	}

	// a summary needs a finished transcript on disk
	t := dbmodels.ArtifactTranscript
	artifacts, _, err := m.ds.GetArtifacts([]string{r.SessionId}, &t, 0, 1, nil)
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no transcript artifact found for session: %s", r.SessionId)
	}

	transcriptPath := filepath.Join(*m.app.Session.ArtifactsStorePath, artifacts[0].FilePath)
	job, err := m.sttService.SubmitSummaryJob(ctx, r.SessionId, r.ServiceName, transcriptPath, r.UserPrompt)
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"sessionId": r.SessionId,
		"jobId":     job.JobId,
	}).Infoln("summary job submitted")

	return &SummaryJobInfo{
		JobId:     job.JobId,
		SessionId: job.SessionId,
		Model:     job.Model,
		Status:    string(speech.SummaryJobRunning),
	}, nil
}

// GetSummaryJobStatus asks the provider about a pending job. Jobs the
// janitor already harvested are not pending anymore; their output lives as
// a SUMMARY artifact of the session.
func (m *SummaryModel) GetSummaryJobStatus(ctx context.Context, jobId string) (*SummaryJobInfo, error) {
	jobs, err := m.rs.GetPendingSummaryJobs(ctx)
	if err != nil {
		return nil, err
	}

	for _, job := range jobs {
		if job.JobId != jobId {
			continue
		}

		res, err := m.sttService.CheckSummaryJob(ctx, job.ServiceName, jobId)
		if err != nil {
			return nil, err
		}

		info := &SummaryJobInfo{
			JobId:     jobId,
			SessionId: job.SessionId,
			Model:     job.Model,
			Status:    string(res.Status),
		}
		switch res.Status {
		case speech.SummaryJobCompleted:
			info.Summary = res.Summary
		case speech.SummaryJobFailed:
			info.Error = res.Error
		}
		return info, nil
	}

	return nil, fmt.Errorf("no pending summary job with id: %s, finished jobs are stored as artifacts", jobId)
}
