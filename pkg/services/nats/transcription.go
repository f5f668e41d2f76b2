package natsservice

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go/jetstream"
)

const transcriptBucket = Prefix + "transcript_chunks-%s"

// TranscriptChunk is one transcribed phrase of a session as stored in the
// per-session KV bucket and broadcast on the live result subject. Start and
// End are offsets from the beginning of the ingest stream in milliseconds.
type TranscriptChunk struct {
	SessionId string `json:"session_id"`
	UserId    string `json:"user_id"`
	Name      string `json:"name"`
	Lang      string `json:"lang,omitempty"`
	Text      string `json:"text"`
	Start     int64  `json:"start_ms"`
	End       int64  `json:"end_ms"`
	IsPartial bool   `json:"is_partial"`
}

// AddTranscriptChunk appends a finalized chunk to the session's KV bucket.
// Keys are UnixNano timestamps so a plain numeric sort restores order.
func (s *NatsService) AddTranscriptChunk(chunk *TranscriptChunk) error {
	ttl := time.Hour * 6
	if s.app.Session.TranscriptChunkTTL != nil {
		ttl = *s.app.Session.TranscriptChunkTTL
	}

	kv, err := s.js.CreateOrUpdateKeyValue(s.ctx, jetstream.KeyValueConfig{
		Replicas: s.app.NatsInfo.NumReplicas,
		Bucket:   fmt.Sprintf(transcriptBucket, chunk.SessionId),
		TTL:      ttl,
	})
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(chunk)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%d", time.Now().UnixNano())
	_, err = kv.Put(s.ctx, key, jsonData)
	return err
}

// GetTranscriptChunks returns every stored chunk of a session in the order
// it was spoken. A session without a bucket simply has no chunks yet.
func (s *NatsService) GetTranscriptChunks(sessionId string) ([]*TranscriptChunk, error) {
	kv, err := s.js.KeyValue(s.ctx, fmt.Sprintf(transcriptBucket, sessionId))
	if err != nil {
		if errors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, nil
		}
		return nil, err
	}

	lister, err := kv.ListKeys(s.ctx)
	if err != nil {
		return nil, err
	}

	var keys []string
	for k := range lister.Keys() {
		keys = append(keys, k)
	}
	SortChunkKeys(keys)

	chunks := make([]*TranscriptChunk, 0, len(keys))
	for _, k := range keys {
		entry, err := kv.Get(s.ctx, k)
		if err != nil || entry == nil {
			continue
		}
		chunk := new(TranscriptChunk)
		if err := json.Unmarshal(entry.Value(), chunk); err != nil {
			s.logger.WithError(err).Warnf("skipping unreadable transcript chunk %s of session %s", k, sessionId)
			continue
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// DeleteTranscriptBucket removes the whole KV bucket of a session, normally
// after its chunks were folded into the transcript artifact.
func (s *NatsService) DeleteTranscriptBucket(sessionId string) {
	_ = s.js.DeleteKeyValue(s.ctx, fmt.Sprintf(transcriptBucket, sessionId))
}

// SortChunkKeys orders UnixNano string keys numerically in place. Keys that
// do not parse sort last, keeping their relative order.
func SortChunkKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		if errA != nil || errB != nil {
			return errB != nil && errA == nil
		}
		return a < b
	})
}
