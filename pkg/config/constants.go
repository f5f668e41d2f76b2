package config

import "time"

const (
	IngestUserIdPrefix       = "ingest_"
	AgentUserIdPrefix        = "vxl_agent-"
	MaxUploadedWavFileSize   = int64(50 * 1000000) // limit to 50MB
	MaxIngestFrameSize       = 64 * 1024
	DefaultTranscribeTimeout = 2 * time.Minute

	// all the time.Sleep() values
	WaitBeforeTriggerOnAfterSessionEnded     = 5 * time.Second
	WaitBetweenTranscribeJobs                = 250 * time.Millisecond
	MaxDurationWaitBeforeCleanSessionWebhook = 1 * time.Minute

	DefaultWebhookQueueSize = 200

	// webhook event names
	WebhookEventSessionStarted  = "session_started"
	WebhookEventSessionEnded    = "session_ended"
	WebhookEventArtifactCreated = "artifact_created"
)
