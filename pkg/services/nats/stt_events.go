package natsservice

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

const framesSubjectPrefix = Prefix + "stt-frames"

// LiveResultSubject is where partial and final transcriptions of a session
// are broadcast for anyone listening, ingest sockets included.
func (s *NatsService) LiveResultSubject(sessionId string) string {
	return fmt.Sprintf("%s.%s", s.app.NatsInfo.Subjects.LiveResult, sessionId)
}

func (s *NatsService) FramesSubject(sessionId string) string {
	return fmt.Sprintf("%s.%s", framesSubjectPrefix, sessionId)
}

func (s *NatsService) PublishLiveResult(chunk *TranscriptChunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return s.nc.Publish(s.LiveResultSubject(chunk.SessionId), payload)
}

func (s *NatsService) SubscribeLiveResults(sessionId string, cb func(*TranscriptChunk)) (*nats.Subscription, error) {
	return s.nc.Subscribe(s.LiveResultSubject(sessionId), func(msg *nats.Msg) {
		chunk := new(TranscriptChunk)
		if err := json.Unmarshal(msg.Data, chunk); err != nil {
			s.logger.WithError(err).Errorln("invalid live result payload")
			return
		}
		cb(chunk)
	})
}

// PublishFrame relays one raw PCM frame to the node running the session's
// agent. Used when the ingest socket landed on a non-leader node.
func (s *NatsService) PublishFrame(sessionId string, pcm []byte) error {
	return s.nc.Publish(s.FramesSubject(sessionId), pcm)
}

func (s *NatsService) SubscribeFrames(sessionId string, cb func([]byte)) (*nats.Subscription, error) {
	return s.nc.Subscribe(s.FramesSubject(sessionId), func(msg *nats.Msg) {
		cb(msg.Data)
	})
}
