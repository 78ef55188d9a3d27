package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sponsorlink/marketplace/backend/internal/metrics"
	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrPlaybookNotFound = errors.New("playbook not found")
)

// Options tunes the chat service.
type Options struct {
	ReplyDelay      time.Duration
	SessionTTL      time.Duration
	DefaultPlaybook string
}

// Service keeps every live widget conversation in memory, keyed by session id.
type Service struct {
	playbooks playbook.Store
	opts      Options
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Conversation
	scripts  map[string]*Script
}

// NewService bootstraps the in-memory chat service.
func NewService(playbooks playbook.Store, opts Options, logger *zap.Logger) *Service {
	if opts.DefaultPlaybook == "" {
		opts.DefaultPlaybook = playbook.DefaultID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		playbooks: playbooks,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Conversation),
		scripts:   make(map[string]*Script),
	}
}

// Playbooks exposes the playbook store backing the service.
func (s *Service) Playbooks() playbook.Store {
	return s.playbooks
}

// CreateSession starts a conversation driven by the given playbook, or the default one.
func (s *Service) CreateSession(ctx context.Context, playbookID string) (*Conversation, error) {
	if playbookID == "" {
		playbookID = s.opts.DefaultPlaybook
	}

	script, err := s.script(ctx, playbookID)
	if err != nil {
		return nil, err
	}

	conv := NewConversation(uuid.NewString(), script,
		WithReplyDelay(s.opts.ReplyDelay),
		WithLogger(s.logger),
		WithClock(s.now),
	)

	s.mu.Lock()
	s.sessions[conv.ID()] = conv
	s.mu.Unlock()

	metrics.ActiveSessions.Inc()
	s.logger.Info("session created", zap.String("session", conv.ID()), zap.String("playbook", playbookID))
	return conv, nil
}

// GetSession retrieves a live conversation.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}

// AddMessage appends a message to a session.
func (s *Service) AddMessage(ctx context.Context, sessionID, content string, sender chat.Sender) (chat.Message, error) {
	conv, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}
	return conv.AddMessage(ctx, content, sender), nil
}

// Toggle flips the widget visibility of a session.
func (s *Service) Toggle(ctx context.Context, sessionID string) (bool, error) {
	conv, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return conv.Toggle(), nil
}

// LoadTranscript returns the messages of a session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	conv, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return conv.Messages(), nil
}

// CloseSession tears a session down, discarding pending replies.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	conv, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	conv.Close()
	metrics.ActiveSessions.Dec()
	s.logger.Info("session closed", zap.String("session", sessionID))
	return nil
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL and returns how many.
func (s *Service) Sweep(now time.Time) int {
	if s.opts.SessionTTL <= 0 {
		return 0
	}

	var expired []*Conversation
	s.mu.Lock()
	for id, conv := range s.sessions {
		// A connected widget keeps its session alive.
		if conv.Subscribers() > 0 {
			continue
		}
		if now.Sub(conv.IdleSince()) > s.opts.SessionTTL {
			expired = append(expired, conv)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, conv := range expired {
		conv.Close()
		metrics.ActiveSessions.Dec()
	}
	if len(expired) > 0 {
		s.logger.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunSweeper sweeps idle sessions every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			s.Sweep(t)
		}
	}
}

// Close tears down every session.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Conversation)
	s.mu.Unlock()

	for _, conv := range sessions {
		conv.Close()
		metrics.ActiveSessions.Dec()
	}
}

func (s *Service) script(ctx context.Context, playbookID string) (*Script, error) {
	s.mu.RLock()
	script, ok := s.scripts[playbookID]
	s.mu.RUnlock()
	if ok {
		return script, nil
	}

	p, ok := s.playbooks.FindByID(playbookID)
	if !ok {
		return nil, ErrPlaybookNotFound
	}

	script, err := NewScript(ctx, p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.scripts[playbookID]; ok {
		return existing, nil
	}
	s.scripts[playbookID] = script
	return script, nil
}
