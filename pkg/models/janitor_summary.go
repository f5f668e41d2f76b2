package models

import (
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// checkPendingSummaryJobs polls the provider for every submitted summary
// job, stores finished ones as artifacts and drops them from the pending
// set. Failed jobs are cleaned up too; a job whose artifact write fails
// stays pending for the next round.
func (m *JanitorModel) checkPendingSummaryJobs() {
	jobs, err := m.rs.GetPendingSummaryJobs(m.ctx)
	if err != nil {
		m.logger.WithError(err).Errorln("error fetching pending summary jobs")
		return
	}
	if len(jobs) == 0 {
		return
	}

	log := m.logger.WithField("task", "summaryJobChecker")
	log.Infof("checking %d pending summary jobs", len(jobs))

	providers := make(map[string]speech.SummaryProvider)

	for _, job := range jobs {
		provider, ok := providers[job.ServiceName]
		if !ok {
			var err error
			provider, err = m.sttService.SummaryProviderForService(m.ctx, job.ServiceName)
			if err != nil {
				log.WithError(err).Errorf("failed to create provider for job %s", job.JobId)
				continue
			}
			providers[job.ServiceName] = provider
		}

		res, err := provider.CheckSummaryJob(m.ctx, job.JobId)
		if err != nil {
			log.WithError(err).Errorf("failed to check status of job %s", job.JobId)
			continue
		}

		cleanup := func() {
			if job.FileName != "" {
				if err := provider.DeleteSummaryFile(m.ctx, job.FileName); err != nil {
					log.WithError(err).Errorf("failed to delete provider file %s of job %s", job.FileName, job.JobId)
				}
			}
			if err := m.rs.RemovePendingSummaryJob(m.ctx, job.JobId); err != nil {
				log.WithError(err).Errorf("failed to remove job %s from the pending set", job.JobId)
			}
		}

		switch res.Status {
		case speech.SummaryJobCompleted:
			log.Infof("summary job %s completed", job.JobId)
			if _, err := m.artifactModel.CreateSummaryArtifact(job, res); err != nil {
				log.WithError(err).Errorf("failed to store the summary of job %s, will retry", job.JobId)
				continue
			}
			cleanup()
		case speech.SummaryJobFailed:
			log.Errorf("summary job %s failed: %s", job.JobId, res.Error)
			cleanup()
		case speech.SummaryJobRunning:
			// still working
		default:
			log.Warnf("unknown status '%s' for summary job %s", res.Status, job.JobId)
		}
	}
}
