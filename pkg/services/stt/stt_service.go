package sttservice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

const (
	TaskStart           = "start"
	TaskEnd             = "end"
	TaskEndSessionTasks = "endSessionTasks"

	// agentLockTTL is how long a node keeps session leadership without
	// renewing. Supervisors refresh at half this interval.
	agentLockTTL = 30 * time.Second
)

// TaskPayload is the broadcast sent on the agent task subject. Every node
// sees every payload; leader election decides who acts on a start.
type TaskPayload struct {
	Task        string `json:"task"` // "start", "end" or "endSessionTasks"
	ServiceName string `json:"service_name"`
	SessionId   string `json:"session_id"`
	UserId      string `json:"user_id"`
	Options     []byte `json:"options,omitempty"`
}

// StartOptions is the decoded Options of a start task.
type StartOptions struct {
	UserName      string `json:"user_name,omitempty"`
	Language      string `json:"language,omitempty"`
	ModelSize     string `json:"model_size,omitempty"`
	BeamSize      int    `json:"beam_size,omitempty"`
	VADFilter     bool   `json:"vad_filter,omitempty"`
	InitialPrompt string `json:"initial_prompt,omitempty"`
}

type SttService struct {
	ctx           context.Context
	conf          *config.AppConfig
	logger        *logrus.Entry
	lock          sync.RWMutex
	sessionAgents map[string]*SessionAgent // Maps a unique key (sessionId_serviceName) to a dedicated agent
	redisService  *redisservice.RedisService
	natsService   *natsservice.NatsService
	sub           *nats.Subscription
}

func New(ctx context.Context, conf *config.AppConfig, logger *logrus.Logger, redisService *redisservice.RedisService, natsService *natsservice.NatsService) *SttService {
	return &SttService{
		ctx:           ctx,
		conf:          conf,
		logger:        logger.WithField("service", "stt"),
		sessionAgents: make(map[string]*SessionAgent),
		redisService:  redisService,
		natsService:   natsService,
	}
}

// SubscribeToTaskRequests is the central handler for all incoming tasks.
func (s *SttService) SubscribeToTaskRequests() {
	sub, err := s.conf.NatsConn.Subscribe(s.conf.NatsInfo.Subjects.AgentTask, func(msg *nats.Msg) {
		var payload TaskPayload
		err := json.Unmarshal(msg.Data, &payload)
		if err != nil {
			s.logger.WithError(err).Error("failed to unmarshal agent task payload")
			return
		}

		s.logger.Infof("received task '%s' for service '%s' in session '%s'", payload.Task, payload.ServiceName, payload.SessionId)
		s.handleIncomingTask(&payload)
	})
	if err != nil {
		s.logger.WithError(err).Fatalln("failed to subscribe to NATS for agent tasks")
	}
	s.logger.Infof("successfully connected with %s subject", sub.Subject)
	s.sub = sub
}

// handleIncomingTask is the core logic that runs on every server.
func (s *SttService) handleIncomingTask(payload *TaskPayload) {
	switch payload.Task {
	case TaskEnd:
		s.endLocalAgentTask(payload.ServiceName, payload.SessionId, payload.UserId)
	case TaskEndSessionTasks:
		s.RemoveAgentsForSession(payload.SessionId)
	case TaskStart:
		lockKey := getAgentKey(payload.SessionId, payload.ServiceName)
		lock := s.redisService.NewLock(lockKey, agentLockTTL)

		isLeader, err := lock.TryLock(s.ctx)
		if err != nil {
			s.logger.WithError(err).Error("failed leader election attempt")
			return
		}

		if isLeader {
			s.logger.Infof("acquired leadership for task '%s'", lockKey)
			if err := s.manageLocalAgent(payload, lock); err != nil {
				s.logger.WithError(err).Error("failed to manage local agent")
			}
		}
	default:
		s.logger.Warnf("ignoring unknown agent task '%s'", payload.Task)
	}
}

// endLocalAgentTask is the internal method for the leader to use.
func (s *SttService) endLocalAgentTask(serviceName, sessionId, userId string) {
	key := getAgentKey(sessionId, serviceName)
	s.lock.RLock()
	agent, ok := s.sessionAgents[key]
	s.lock.RUnlock()

	if ok {
		agent.EndTaskForUser(userId)
	}
}

// getAgentKey creates a unique identifier for an agent.
func getAgentKey(sessionId, serviceName string) string {
	return fmt.Sprintf("stt:%s_%s", sessionId, serviceName)
}

// PublishTask broadcasts a task to every node.
func (s *SttService) PublishTask(payload *TaskPayload) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.conf.NatsConn.Publish(s.conf.NatsInfo.Subjects.AgentTask, p)
}

// ActivateAgentTask publishes a 'start' message to activate a session agent
// for a long-running task.
func (s *SttService) ActivateAgentTask(serviceName, sessionId, userId string, options []byte) error {
	s.logger.Infof("publishing start agent task request for service '%s' in session '%s'", serviceName, sessionId)
	return s.PublishTask(&TaskPayload{
		Task:        TaskStart,
		ServiceName: serviceName,
		SessionId:   sessionId,
		UserId:      userId,
		Options:     options,
	})
}

// EndTask publishes an 'end' message for one user's task.
func (s *SttService) EndTask(serviceName, sessionId, userId string) error {
	s.logger.Infof("publishing end task request for service '%s' in session '%s'", serviceName, sessionId)
	return s.PublishTask(&TaskPayload{
		Task:        TaskEnd,
		ServiceName: serviceName,
		SessionId:   sessionId,
		UserId:      userId,
	})
}

// EndSessionTasks publishes the broadcast that removes every agent of a
// session on whichever node holds it.
func (s *SttService) EndSessionTasks(sessionId string) error {
	return s.PublishTask(&TaskPayload{
		Task:      TaskEndSessionTasks,
		SessionId: sessionId,
	})
}

// GetAgent returns the local agent of a session if this node is its leader.
// The ingest side uses it to skip the NATS frame relay.
func (s *SttService) GetAgent(sessionId, serviceName string) (*SessionAgent, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	agent, ok := s.sessionAgents[getAgentKey(sessionId, serviceName)]
	return agent, ok
}

// manageLocalAgent creates the agent if this node does not have one yet and
// activates the user's task on it.
func (s *SttService) manageLocalAgent(payload *TaskPayload, lock *redisservice.Lock) error {
	key := getAgentKey(payload.SessionId, payload.ServiceName)

	s.lock.Lock()
	agent, ok := s.sessionAgents[key]
	if !ok {
		s.logger.Infof("no agent found for service '%s' in session %s, creating a new one", payload.ServiceName, payload.SessionId)

		targetAccount, serviceConfig, err := s.conf.Speech.GetProviderAccountForService(payload.ServiceName)
		if err != nil {
			s.lock.Unlock()
			_ = lock.Unlock(s.ctx)
			return err
		}

		agent, err = newSessionAgent(s.ctx, s.conf, serviceConfig, targetAccount, s.redisService, s.natsService, s.logger, payload.SessionId, payload.ServiceName, payload.Options)
		if err != nil {
			s.lock.Unlock()
			_ = lock.Unlock(s.ctx)
			return fmt.Errorf("failed to create session agent: %w", err)
		}
		s.sessionAgents[key] = agent

		go s.superviseAgent(agent, lock)
	}
	s.lock.Unlock()

	return agent.ActivateTaskForUser(payload.UserId, payload.Options)
}

// superviseAgent keeps the leadership lock alive for as long as the agent
// runs and tears the agent down when either of the two dies.
func (s *SttService) superviseAgent(agent *SessionAgent, lock *redisservice.Lock) {
	ticker := time.NewTicker(agentLockTTL / 2)
	defer ticker.Stop()

	s.logger.Infof("supervisor started for agent '%s' in session '%s'", agent.serviceName, agent.sessionId)
	key := getAgentKey(agent.sessionId, agent.serviceName)

	for {
		select {
		case <-ticker.C:
			if err := lock.Refresh(s.ctx); err != nil {
				s.logger.Warnf("lost leadership for agent '%s', shutting down", agent.serviceName)
				s.shutdownAndRemoveAgent(key)
				return
			}
		case <-agent.ctx.Done():
			s.logger.Infof("agent for '%s' has shut down, releasing leadership", agent.serviceName)
			_ = lock.Unlock(s.ctx)
			s.shutdownAndRemoveAgent(key)
			return
		}
	}
}

// shutdownAndRemoveAgent safely shuts down and removes a single agent.
func (s *SttService) shutdownAndRemoveAgent(key string) {
	s.lock.Lock()
	agent, ok := s.sessionAgents[key]
	if ok {
		delete(s.sessionAgents, key)
	}
	s.lock.Unlock()

	if ok {
		agent.Shutdown()
		s.logger.Infof("removed and shut down agent for key %s", key)
	}
}

// RemoveAgentsForSession shuts down every local agent of a session. Ran on
// every node through the endSessionTasks broadcast, so the leader cleans
// up no matter where the end request landed.
func (s *SttService) RemoveAgentsForSession(sessionId string) {
	s.lock.RLock()
	keysToDelete := make([]string, 0)
	for key := range s.sessionAgents {
		if strings.HasPrefix(key, fmt.Sprintf("stt:%s_", sessionId)) {
			keysToDelete = append(keysToDelete, key)
		}
	}
	s.lock.RUnlock()

	for _, key := range keysToDelete {
		s.shutdownAndRemoveAgent(key)
	}

	if len(keysToDelete) > 0 {
		s.logger.Infof("removed %d agents for session %s", len(keysToDelete), sessionId)
	}
}

// GetSupportedLanguagesForService returns the list of supported languages
// for a single, specific service.
func (s *SttService) GetSupportedLanguagesForService(serviceName string) ([]*speech.LanguageInfo, error) {
	targetAccount, serviceConfig, err := s.conf.Speech.GetProviderAccountForService(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider account for service '%s': %w", serviceName, err)
	}

	provider, err := NewProvider(s.conf, serviceConfig.Provider, targetAccount, serviceConfig, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider for service '%s': %w", serviceName, err)
	}

	return provider.GetSupportedLanguages(speech.ServiceTranscription), nil
}

func (s *SttService) Shutdown() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.logger.WithError(err).Errorln("failed to unsubscribe from NATS")
		}
	}

	s.lock.RLock()
	toShutdown := make([]string, 0)
	for key := range s.sessionAgents {
		toShutdown = append(toShutdown, key)
	}
	s.lock.RUnlock()

	for _, key := range toShutdown {
		s.shutdownAndRemoveAgent(key)
	}

	s.logger.Infoln("stt service shutdown complete")
}
