package controllers

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/models"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	sttservice "github.com/voxlive/voxlive-server/pkg/services/stt"
)

// IngestController owns the WebSocket endpoint that takes PCM frames in
// and pushes live transcription results back out.
type IngestController struct {
	app         *config.AppConfig
	rs          *redisservice.RedisService
	natsService *natsservice.NatsService
	sttService  *sttservice.SttService
	authModel   *models.AuthModel
	logger      *logrus.Entry
}

// NewIngestController creates a new IngestController.
func NewIngestController(app *config.AppConfig, rs *redisservice.RedisService, natsService *natsservice.NatsService, sttService *sttservice.SttService, authModel *models.AuthModel, logger *logrus.Logger) *IngestController {
	return &IngestController{
		app:         app,
		rs:          rs,
		natsService: natsService,
		sttService:  sttService,
		authModel:   authModel,
		logger:      logger.WithField("controller", "ingest"),
	}
}

// HandleWebSocketUpgrade only lets real upgrade requests through.
func (ic *IngestController) HandleWebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleIngest returns the socket handler for /ws/ingest.
func (ic *IngestController) HandleIngest() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ic.serveIngest(conn)
	})
}

func (ic *IngestController) serveIngest(conn *websocket.Conn) {
	ctx := context.Background()

	closeWith := func(msg string) {
		_ = conn.WriteJSON(fiber.Map{"status": false, "msg": msg})
		_ = conn.Close()
	}

	sessionId := conn.Query("session_id")
	token := conn.Query("token")
	if sessionId == "" || token == "" {
		closeWith("both session_id and token are required")
		return
	}

	claims, err := ic.authModel.VerifyAccessToken(token, 0)
	if err != nil {
		closeWith(config.InvalidToken)
		return
	}
	if claims.SessionId != sessionId {
		closeWith("token was not issued for this session")
		return
	}

	state, err := ic.rs.GetSessionState(ctx, sessionId)
	if err != nil {
		closeWith(err.Error())
		return
	}
	if len(state) == 0 {
		closeWith(config.RequestedSessionNotExist)
		return
	}
	if state["status"] == redisservice.SessionStatusEnded {
		closeWith(config.SessionAlreadyEnded)
		return
	}
	serviceName := state["service"]

	log := ic.logger.WithFields(logrus.Fields{
		"sessionId": sessionId,
		"userId":    claims.UserId,
	})

	count, err := ic.rs.IncrementTranscriptionConnections(ctx, sessionId)
	if err != nil {
		closeWith(err.Error())
		return
	}
	if count == 1 && state["status"] == redisservice.SessionStatusCreated {
		// first speaker connected, the session is properly live now
		if err := ic.rs.UpdateSessionStatus(ctx, sessionId, redisservice.SessionStatusActive); err != nil {
			log.WithError(err).Errorln("error updating session status")
		}
	}
	if err := ic.rs.TranscriptionUserJoined(ctx, sessionId, claims.UserId); err != nil {
		log.WithError(err).Errorln("error opening usage window")
	}

	// push live results back over the socket; the writer is not safe for
	// concurrent use
	var writeMu sync.Mutex
	sub, err := ic.natsService.SubscribeLiveResults(sessionId, func(chunk *natsservice.TranscriptChunk) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(chunk); err != nil {
			log.WithError(err).Warnln("failed to push live result")
		}
	})
	if err != nil {
		log.WithError(err).Errorln("failed to subscribe to live results")
	}

	defer func() {
		if sub != nil {
			_ = sub.Unsubscribe()
		}
		if _, err := ic.rs.DecrementTranscriptionConnections(ctx, sessionId); err != nil {
			log.WithError(err).Errorln("error decrementing connection counter")
		}
		if _, err := ic.rs.TranscriptionUserLeft(ctx, sessionId, claims.UserId); err != nil {
			log.WithError(err).Errorln("error closing usage window")
		}
		log.Infoln("ingest connection closed")
	}()

	log.Infoln("ingest connection opened")

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			if len(msg) == 0 || len(msg) > config.MaxIngestFrameSize {
				continue
			}
			// feed the local agent when this node hosts it, relay otherwise
			if agent, ok := ic.sttService.GetAgent(sessionId, serviceName); ok {
				agent.FeedPCM(msg)
			} else if err := ic.natsService.PublishFrame(sessionId, msg); err != nil {
				log.WithError(err).Errorln("failed to relay audio frame")
			}
		case websocket.TextMessage:
			ic.handleControlMessage(log, sessionId, serviceName, claims.UserId, msg)
		}
	}
}

type ingestControlMsg struct {
	Action string `json:"action"`
}

func (ic *IngestController) handleControlMessage(log *logrus.Entry, sessionId, serviceName, userId string, msg []byte) {
	ctrl := new(ingestControlMsg)
	if err := json.Unmarshal(msg, ctrl); err != nil {
		log.WithError(err).Warnln("invalid control message")
		return
	}

	switch ctrl.Action {
	case "calibrate":
		// calibration happens where the recognizer lives
		if agent, ok := ic.sttService.GetAgent(sessionId, serviceName); ok {
			agent.Calibrate()
		}
	case "stop":
		if err := ic.sttService.EndTask(serviceName, sessionId, userId); err != nil {
			log.WithError(err).Errorln("failed to publish end task")
		}
	default:
		log.Warnln("unknown control action:", ctrl.Action)
	}
}
