package helpers

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2/log"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	dbservice "github.com/voxlive/voxlive-server/pkg/services/db"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
)

type WebhookNotifier struct {
	ds                   *dbservice.DatabaseService
	app                  *config.AppConfig
	natsService          *natsservice.NatsService
	isEnabled            bool
	enabledForPerSession bool
	defaultUrl           string
	// notifiers will hold a queue for each session, local to this server instance
	notifiers map[string]*Notifier
	// mu will protect access to the notifiers map
	mu     sync.Mutex
	logger *logrus.Entry
}

type webhookRedisFields struct {
	Urls            []string `json:"urls"`
	PerformDeleting bool     `json:"perform_deleting"`
}

func newWebhookNotifier(app *config.AppConfig, logger *logrus.Logger) *WebhookNotifier {
	w := &WebhookNotifier{
		app:                  app,
		ds:                   dbservice.New(app.DB, logger),
		natsService:          natsservice.New(app, logger),
		isEnabled:            app.Client.WebhookConf.Enable,
		enabledForPerSession: app.Client.WebhookConf.EnableForPerSession,
		defaultUrl:           app.Client.WebhookConf.Url,
		notifiers:            make(map[string]*Notifier),
		logger:               logger.WithField("helper", "webhookNotifier"),
	}

	// Subscribe to the cleanup broadcast channel for clustered environments.
	w.subscribeToCleanup()

	return w
}

// subscribeToCleanup listens for cleanup messages broadcast to all servers.
func (w *WebhookNotifier) subscribeToCleanup() {
	_, err := w.app.NatsConn.Subscribe(w.app.NatsInfo.Subjects.WebhookCleanup, func(m *nats.Msg) {
		sessionId := string(m.Data)
		log.Infof("received cleanup signal for session: %s", sessionId)
		w.cleanupNotifier(sessionId)
	})
	if err != nil {
		log.Errorf("failed to subscribe to webhook cleanup subject: %v", err)
	}
}

// getOrCreateNotifier returns a dedicated notifier for a given session.
// If one doesn't exist, it creates and stores it.
func (w *WebhookNotifier) getOrCreateNotifier(sessionId string) *Notifier {
	w.mu.Lock()
	defer w.mu.Unlock()

	if notifier, ok := w.notifiers[sessionId]; ok {
		return notifier
	}

	// Create a new notifier for this session
	notifier := NewNotifier(config.DefaultWebhookQueueSize, w.app.Client.Debug, w.logger.Logger)
	w.notifiers[sessionId] = notifier
	log.Infof("created new webhook queue for session: %s", sessionId)

	return notifier
}

// cleanupNotifier stops the worker and removes the notifier for a session from the local map.
func (w *WebhookNotifier) cleanupNotifier(sessionId string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if notifier, ok := w.notifiers[sessionId]; ok {
		notifier.Kill() // This will call Stop() on the worker pool.
		delete(w.notifiers, sessionId)
		log.Infof("cleaned up webhook queue for session: %s", sessionId)
	}
}

func (w *WebhookNotifier) RegisterWebhook(sessionId, sid string) {
	if !w.isEnabled || sessionId == "" {
		return
	}

	var urls []string
	if w.defaultUrl != "" {
		urls = append(urls, w.defaultUrl)
	}

	if w.enabledForPerSession {
		sessionInfo, _ := w.ds.GetSessionInfoBySid(sid, nil)
		if sessionInfo != nil && sessionInfo.WebhookUrl != "" {
			urls = append(urls, sessionInfo.WebhookUrl)
		}
	}

	if len(urls) < 1 {
		return
	}

	d := &webhookRedisFields{
		Urls:            urls,
		PerformDeleting: false,
	}

	err := w.saveData(sessionId, d)
	if err != nil {
		w.logger.WithError(err).Errorln("failed to save webhook data")
	}
}

func (w *WebhookNotifier) DeleteWebhook(sessionId string) error {
	// we'll wait long time before delete WebhookQueued
	// to make sure that we've completed everything else
	time.Sleep(config.MaxDurationWaitBeforeCleanSessionWebhook)

	d, err := w.getData(sessionId)
	if err != nil {
		return err
	}
	if d == nil {
		// this session does not have any webhook url
		return nil
	}

	if !d.PerformDeleting {
		// this mean may be a new session has been started for the same id
		return nil
	}

	// Broadcast a cleanup message to all servers in the cluster.
	// Only the server running the worker for this session will act on it.
	err = w.app.NatsConn.Publish(w.app.NatsInfo.Subjects.WebhookCleanup, []byte(sessionId))
	if err != nil {
		log.Errorf("failed to publish webhook cleanup for session %s: %v", sessionId, err)
	}

	return w.natsService.DeleteWebhookData(sessionId)
}

func (w *WebhookNotifier) SendWebhookEvent(event *SessionNotifyEvent) error {
	if !w.isEnabled || event.Session == nil || event.Session.SessionId == "" {
		return nil
	}
	sessionId := event.Session.SessionId

	d, err := w.getData(sessionId)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}

	// it may happen that the session was created again before we delete the queue
	// in DeleteWebhook
	// if we delete then no further events will sendPostRequest even the session is active,
	// so here we'll reset the deleted status
	if event.Event == config.WebhookEventSessionStarted && d.PerformDeleting {
		d.PerformDeleting = false
		err := w.saveData(sessionId, d)
		if err != nil {
			// we'll just log
			w.logger.WithError(err).Errorln("failed to save webhook data")
		}
	} else if event.Event == config.WebhookEventSessionEnded && !d.PerformDeleting {
		// if we got session_ended then we'll set for deleting
		d.PerformDeleting = true
		err := w.saveData(sessionId, d)
		if err != nil {
			// we'll just log
			w.logger.WithError(err).Errorln("failed to save webhook data")
		}
	}

	// Use the dedicated notifier for this session
	notifier := w.getOrCreateNotifier(sessionId)
	notifier.AddInNotifyQueue(event, w.app.Client.ApiKey, w.app.Client.Secret, d.Urls)
	return nil
}

// ForceToPutInQueue sends a webhook event synchronously without using the session's queue.
// This method should be used for one-shot events outside the normal session lifecycle.
// It directly queries the database for webhook URLs.
func (w *WebhookNotifier) ForceToPutInQueue(event *SessionNotifyEvent) {
	if !w.isEnabled {
		return
	}
	if event.Session == nil || event.Session.Sid == "" || event.Session.SessionId == "" {
		w.logger.Errorln("empty session info for", event.Event)
		return
	}

	var urls []string
	if w.defaultUrl != "" {
		urls = append(urls, w.defaultUrl)
	}

	if w.enabledForPerSession {
		sessionInfo, _ := w.ds.GetSessionInfoBySid(event.Session.Sid, nil)
		if sessionInfo != nil && sessionInfo.WebhookUrl != "" {
			urls = append(urls, sessionInfo.WebhookUrl)
		}
	}

	if len(urls) < 1 {
		return
	}

	notifier := NewNotifier(config.DefaultWebhookQueueSize, w.app.Client.Debug, w.logger.Logger)
	defer notifier.StopGracefully()
	notifier.AddInNotifyQueue(event, w.app.Client.ApiKey, w.app.Client.Secret, urls)
}

func (w *WebhookNotifier) saveData(sessionId string, d *webhookRedisFields) error {
	marshal, err := json.Marshal(d)
	if err != nil {
		return err
	}

	// we'll simply override any existing value & put new
	err = w.natsService.AddWebhookData(sessionId, marshal)
	if err != nil {
		return err
	}

	return nil
}

func (w *WebhookNotifier) getData(sessionId string) (*webhookRedisFields, error) {
	data, err := w.natsService.GetWebhookData(sessionId)
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, nil
	}

	d := new(webhookRedisFields)
	err = json.Unmarshal(data, d)
	if err != nil {
		return nil, err
	}

	return d, nil
}

var webhookNotifier *WebhookNotifier

func GetWebhookNotifier(app *config.AppConfig, logger *logrus.Logger) *WebhookNotifier {
	if webhookNotifier != nil {
		return webhookNotifier
	}
	webhookNotifier = newWebhookNotifier(app, logger)

	return webhookNotifier
}
