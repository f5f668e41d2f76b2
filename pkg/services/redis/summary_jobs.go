package redisservice

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
)

const pendingSummaryJobsKey = Prefix + "pendingSummaryJobs"

// PendingSummaryJob tracks a batch summarization job that was submitted
// to a provider and is awaiting completion. The janitor polls these.
type PendingSummaryJob struct {
	SessionId   string `json:"session_id"`
	JobId       string `json:"job_id"`
	FileName    string `json:"file_name"`
	Model       string `json:"model"`
	ServiceName string `json:"service_name"`
	CreatedAt   int64  `json:"created_at"`
}

func (s *RedisService) AddPendingSummaryJob(ctx context.Context, job *PendingSummaryJob) error {
	if job.CreatedAt == 0 {
		job.CreatedAt = time.Now().Unix()
	}
	marshal, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return s.rc.HSet(ctx, pendingSummaryJobsKey, job.JobId, marshal).Err()
}

func (s *RedisService) GetPendingSummaryJobs(ctx context.Context) ([]*PendingSummaryJob, error) {
	entries, err := s.rc.HGetAll(ctx, pendingSummaryJobsKey).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*PendingSummaryJob, 0, len(entries))
	for jobId, raw := range entries {
		job := new(PendingSummaryJob)
		if err := json.Unmarshal([]byte(raw), job); err != nil {
			// unreadable entries would be retried forever, drop them
			s.logger.WithError(err).Warnf("removing unreadable summary job entry %s", jobId)
			s.rc.HDel(ctx, pendingSummaryJobsKey, jobId)
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (s *RedisService) RemovePendingSummaryJob(ctx context.Context, jobId string) error {
	return s.rc.HDel(ctx, pendingSummaryJobsKey, jobId).Err()
}
