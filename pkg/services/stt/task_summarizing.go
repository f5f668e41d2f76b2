package sttservice

import (
	"context"
	"fmt"

	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// defaultSummaryModel is used when the summarizing service does not pin a
// model in its options.
const defaultSummaryModel = "gemini-2.5-flash"

// SubmitSummaryJob uploads a transcript and starts an asynchronous batch
// summary job on the configured service. The job is parked in the pending
// set for the janitor to poll.
func (s *SttService) SubmitSummaryJob(ctx context.Context, sessionId, serviceName, transcriptPath, userPrompt string) (*redisservice.PendingSummaryJob, error) {
	account, serviceConfig, err := s.conf.Speech.GetProviderAccountForService(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider account for service '%s': %w", serviceName, err)
	}

	provider, err := NewSummaryProvider(ctx, serviceConfig.Provider, account, serviceConfig, s.logger)
	if err != nil {
		return nil, err
	}

	model := defaultSummaryModel
	if v, ok := serviceConfig.Options["model"].(string); ok && v != "" {
		model = v
	}

	jobId, fileName, err := provider.CreateSummaryJob(ctx, transcriptPath, model, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary job: %w", err)
	}

	job := &redisservice.PendingSummaryJob{
		SessionId:   sessionId,
		JobId:       jobId,
		FileName:    fileName,
		Model:       model,
		ServiceName: serviceName,
	}
	if err := s.redisService.AddPendingSummaryJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.WithField("session", sessionId).Infof("submitted summary job %s", jobId)
	return job, nil
}

// SummaryProviderForService resolves the provider behind a summarizing
// service, mainly so the janitor can poll and clean up pending jobs.
func (s *SttService) SummaryProviderForService(ctx context.Context, serviceName string) (speech.SummaryProvider, error) {
	account, serviceConfig, err := s.conf.Speech.GetProviderAccountForService(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider account for service '%s': %w", serviceName, err)
	}

	return NewSummaryProvider(ctx, serviceConfig.Provider, account, serviceConfig, s.logger)
}

// CheckSummaryJob polls the state of one pending job.
func (s *SttService) CheckSummaryJob(ctx context.Context, serviceName, jobId string) (*speech.SummaryJobResult, error) {
	provider, err := s.SummaryProviderForService(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return provider.CheckSummaryJob(ctx, jobId)
}
