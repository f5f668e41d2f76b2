package models

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
)

// CreateTranscriptArtifact renders every chunk of the session's transcript
// bucket into a WebVTT document and stores it as an artifact. It returns
// (nil, nil) when the session produced no transcription at all.
func (m *ArtifactModel) CreateTranscriptArtifact(ctx context.Context, sessionInfo *dbmodels.SessionInfo) (*dbmodels.SessionArtifact, error) {
	chunks, err := m.natsService.GetTranscriptChunks(sessionInfo.SessionId)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		// nothing was said
		return nil, nil
	}

	doc := buildVTTDocument(sessionInfo, chunks)

	file, relPath, err := m.artifactFilePath(sessionInfo, dbmodels.ArtifactTranscript, "vtt")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(file, []byte(doc), 0644); err != nil {
		return nil, err
	}

	return m.saveArtifact(sessionInfo, dbmodels.ArtifactTranscript, relPath, int64(len(doc)), map[string]interface{}{
		"format": "vtt",
		"cues":   len(chunks),
	})
}

// buildVTTDocument writes the chunks as WebVTT cues with voice spans. The
// chunks arrive ordered by their bucket key, so the cue numbering follows
// speaking order.
func buildVTTDocument(sessionInfo *dbmodels.SessionInfo, chunks []*natsservice.TranscriptChunk) string {
	var b strings.Builder

	b.WriteString("WEBVTT\n\n")
	b.WriteString(fmt.Sprintf("NOTE session: %s sid: %s generated: %s\n\n",
		sessionInfo.SessionId, sessionInfo.Sid, time.Now().UTC().Format(time.RFC3339)))

	cue := 0
	for _, chunk := range chunks {
		text := strings.TrimSpace(chunk.Text)
		if text == "" || chunk.IsPartial {
			continue
		}
		cue++

		b.WriteString(fmt.Sprintf("%d\n", cue))
		b.WriteString(fmt.Sprintf("%s --> %s\n", formatVTTTimestamp(chunk.Start), formatVTTTimestamp(chunk.End)))

		speaker := chunk.Name
		if speaker == "" {
			speaker = chunk.UserId
		}
		if speaker != "" {
			b.WriteString(fmt.Sprintf("<v %s>%s\n\n", speaker, text))
		} else {
			b.WriteString(text + "\n\n")
		}
	}

	return b.String()
}

// formatVTTTimestamp renders a millisecond offset as HH:MM:SS.mmm.
func formatVTTTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}

	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
