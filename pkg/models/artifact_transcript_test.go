package models

import (
	"strings"
	"testing"

	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
)

func TestFormatVTTTimestamp(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00.000"},
		{1234, "00:00:01.234"},
		{61000, "00:01:01.000"},
		{3661789, "01:01:01.789"},
		{-5, "00:00:00.000"},
	}

	for _, tt := range tests {
		if got := formatVTTTimestamp(tt.ms); got != tt.want {
			t.Errorf("formatVTTTimestamp(%d) = %s, want %s", tt.ms, got, tt.want)
		}
	}
}

func TestBuildVTTDocument(t *testing.T) {
	sessionInfo := &dbmodels.SessionInfo{
		SessionId: "demo-session",
		Sid:       "sid-001",
	}
	chunks := []*natsservice.TranscriptChunk{
		{UserId: "u1", Name: "Alice", Text: "hello there", Start: 0, End: 1500},
		{UserId: "u2", Name: "Bob", Text: "   ", Start: 1500, End: 1900},
		{UserId: "u2", Name: "Bob", Text: "partial words", Start: 2000, End: 2400, IsPartial: true},
		{UserId: "u2", Name: "Bob", Text: "hi back", Start: 2000, End: 2600},
		{UserId: "u3", Text: "no display name", Start: 3000, End: 3800},
	}

	doc := buildVTTDocument(sessionInfo, chunks)

	if !strings.HasPrefix(doc, "WEBVTT\n\n") {
		t.Error("document must start with the WEBVTT header")
	}
	if !strings.Contains(doc, "NOTE session: demo-session sid: sid-001") {
		t.Error("missing the NOTE metadata line")
	}

	if !strings.Contains(doc, "1\n00:00:00.000 --> 00:00:01.500\n<v Alice>hello there\n\n") {
		t.Error("first cue is wrong:\n" + doc)
	}
	if !strings.Contains(doc, "2\n00:00:02.000 --> 00:00:02.600\n<v Bob>hi back\n\n") {
		t.Error("second cue is wrong:\n" + doc)
	}
	// falls back to the user id when no display name is known
	if !strings.Contains(doc, "3\n00:00:03.000 --> 00:00:03.800\n<v u3>no display name\n\n") {
		t.Error("third cue is wrong:\n" + doc)
	}

	// blank and partial chunks produce no cues
	if got := strings.Count(doc, " --> "); got != 3 {
		t.Errorf("expected 3 cues, got %d:\n%s", got, doc)
	}
}
