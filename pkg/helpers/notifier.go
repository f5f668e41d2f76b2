package helpers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// SessionNotifyEvent is the JSON body of every webhook delivery.
type SessionNotifyEvent struct {
	Event    string              `json:"event"`
	Session  *NotifySessionInfo  `json:"session"`
	Artifact *NotifyArtifactInfo `json:"artifact,omitempty"`
}

type NotifySessionInfo struct {
	SessionId string `json:"session_id"`
	Sid       string `json:"sid,omitempty"`
}

type NotifyArtifactInfo struct {
	ArtifactId string `json:"artifact_id"`
	Type       string `json:"type"`
	FilePath   string `json:"file_path,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
}

// Notifier delivers webhook events for one session through a single worker,
// so events reach the receiver in the order they happened. Deliveries are
// signed the same way incoming API requests are verified.
type Notifier struct {
	pool      *workerpool.WorkerPool
	client    *http.Client
	queueSize int
	debug     bool
	logger    *logrus.Logger
}

func NewNotifier(queueSize int, debug bool, logger *logrus.Logger) *Notifier {
	return &Notifier{
		pool: workerpool.New(1),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		queueSize: queueSize,
		debug:     debug,
		logger:    logger,
	}
}

// AddInNotifyQueue queues one event for delivery to each url. Events over
// the queue size are dropped so a dead receiver cannot grow memory forever.
func (n *Notifier) AddInNotifyQueue(event *SessionNotifyEvent, apiKey, secret string, urls []string) {
	if n.pool.WaitingQueueSize() >= n.queueSize {
		n.logger.Warnf("webhook queue full, dropping event %s", event.Event)
		return
	}

	n.pool.Submit(func() {
		n.sendPostRequest(event, apiKey, secret, urls)
	})
}

func (n *Notifier) sendPostRequest(event *SessionNotifyEvent, apiKey, secret string, urls []string) {
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.WithError(err).Errorln("failed to marshal webhook event")
		return
	}

	signature := CalculateSignature(secret, body)

	for _, url := range urls {
		if err := n.post(url, apiKey, signature, body); err != nil {
			n.logger.WithError(err).Errorf("failed to deliver %s webhook to %s", event.Event, url)
		} else if n.debug {
			n.logger.Debugf("delivered %s webhook to %s", event.Event, url)
		}
	}
}

func (n *Notifier) post(url, apiKey, signature string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-KEY", apiKey)
	req.Header.Set("HASH-SIGNATURE", signature)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("receiver answered %s", resp.Status)
	}

	return nil
}

// Kill stops the worker immediately, abandoning queued events.
func (n *Notifier) Kill() {
	n.pool.Stop()
}

// StopGracefully waits until every queued event was delivered.
func (n *Notifier) StopGracefully() {
	n.pool.StopWait()
}

// CalculateSignature returns the hex HMAC-SHA256 of the body. The same
// value travels in the HASH-SIGNATURE header of API requests and webhook
// deliveries.
func CalculateSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
