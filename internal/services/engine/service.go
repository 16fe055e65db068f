package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
	dnaservice "github.com/ternarybob/chameleon/internal/services/dna"
	"github.com/ternarybob/chameleon/internal/services/greenlight"
)

var (
	// ErrAlreadyRunning is returned when a target already owns an active
	// session.
	ErrAlreadyRunning = errors.New("target already has an active session")
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)

// Service owns the crawl sessions: one goroutine per active session, at
// most one session per target. Sessions are ephemeral; nothing here is
// persisted.
type Service struct {
	store    interfaces.StorageManager
	mutator  *dnaservice.Mutator
	scorer   *greenlight.Calculator
	advisor  interfaces.AdvisorService
	browsers *BrowserPool
	config   *common.Config
	logger   arbor.ILogger

	mu       sync.RWMutex
	sessions map[string]*session
	byTarget map[string]string
}

func NewService(
	store interfaces.StorageManager,
	mutator *dnaservice.Mutator,
	scorer *greenlight.Calculator,
	advisor interfaces.AdvisorService,
	browsers *BrowserPool,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		store:    store,
		mutator:  mutator,
		scorer:   scorer,
		advisor:  advisor,
		browsers: browsers,
		config:   config,
		logger:   logger,
		sessions: make(map[string]*session),
		byTarget: make(map[string]string),
	}
}

// Start validates the request and launches the session goroutine. The
// target must exist and must not already own an active session.
func (s *Service) Start(ctx context.Context, request *StartRequest) (*SessionView, error) {
	if err := validateStartRequest(request); err != nil {
		return nil, err
	}

	target, err := s.store.TargetStorage().GetTarget(ctx, request.TargetID)
	if err != nil {
		return nil, fmt.Errorf("unknown target %s: %w", request.TargetID, err)
	}
	seedURL := request.SeedURL
	if seedURL == "" {
		seedURL = target.URL
	}

	sess := &session{
		id:            common.NewSessionID(),
		targetID:      request.TargetID,
		seedURL:       seedURL,
		mode:          request.Mode,
		goal:          request.Goal,
		maxIterations: request.MaxIterations,
		maxDuration:   time.Duration(request.MaxDurationS) * time.Second,
		store:         s.store,
		mutator:       s.mutator,
		scorer:        s.scorer,
		advisor:       s.advisor,
		browsers:      s.browsers,
		config:        s.config,
		logger:        s.logger,
		explorer:      NewExplorer(s.config.Engine.ExplorePaths, s.logger),
		writer:        newStoreWriter(s.logger),
		status:        SessionStarting,
		startedAt:     time.Now().UTC(),
	}
	sess.cond = sync.NewCond(&sess.mu)

	s.mu.Lock()
	if existing, busy := s.byTarget[request.TargetID]; busy {
		if live := s.sessions[existing]; live != nil && liveStatus(live) {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: target %s, session %s", ErrAlreadyRunning, request.TargetID, existing)
		}
	}
	s.sessions[sess.id] = sess
	s.byTarget[request.TargetID] = sess.id
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	go sess.run(runCtx)

	s.logger.Info().
		Str("session_id", sess.id).
		Str("target_id", sess.targetID).
		Str("mode", string(sess.mode)).
		Str("seed_url", sess.seedURL).
		Msg("Crawl session started")

	return sess.view(), nil
}

func liveStatus(sess *session) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.status == SessionStarting || sess.status == SessionRunning || sess.status == SessionPaused
}

func validateStartRequest(request *StartRequest) error {
	if request == nil || request.TargetID == "" {
		return fmt.Errorf("target id is required")
	}
	switch request.Mode {
	case ModeExplore, ModeObserve, ModeAchieve:
	case "":
		request.Mode = ModeExplore
	default:
		return fmt.Errorf("unknown session mode %q", request.Mode)
	}
	if request.Mode == ModeAchieve && request.Goal == "" {
		return fmt.Errorf("achieve mode requires a goal")
	}
	if request.SeedURL != "" {
		parsed, err := url.Parse(request.SeedURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid seed url %q", request.SeedURL)
		}
	}
	if request.MaxIterations < 0 || request.MaxDurationS < 0 {
		return fmt.Errorf("session limits cannot be negative")
	}
	return nil
}

// Pause suspends the session loop at the next iteration boundary. All
// session-visible state other than status is left untouched.
func (s *Service) Pause(sessionID string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.status != SessionRunning {
		return fmt.Errorf("session %s is %s, cannot pause", sessionID, sess.status)
	}
	sess.status = SessionPaused
	sess.cond.Broadcast()
	return nil
}

// Resume wakes a paused session.
func (s *Service) Resume(sessionID string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.status != SessionPaused {
		return fmt.Errorf("session %s is %s, cannot resume", sessionID, sess.status)
	}
	sess.status = SessionRunning
	sess.cond.Broadcast()
	return nil
}

// Stop cancels the session; resources are released within one iteration
// boundary.
func (s *Service) Stop(sessionID string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	running := sess.status == SessionRunning || sess.status == SessionPaused || sess.status == SessionStarting
	sess.mu.Unlock()
	if running {
		sess.cancel()
		sess.mu.Lock()
		sess.cond.Broadcast()
		sess.mu.Unlock()
	}
	return nil
}

// StopAll cancels every live session; used on shutdown.
func (s *Service) StopAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		if err := s.Stop(id); err != nil {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to stop session")
		}
	}
}

// GetSession returns a snapshot of one session.
func (s *Service) GetSession(sessionID string) (*SessionView, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.view(), nil
}

// ListSessions snapshots every tracked session.
func (s *Service) ListSessions() []*SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make([]*SessionView, 0, len(s.sessions))
	for _, sess := range s.sessions {
		views = append(views, sess.view())
	}
	return views
}

// ReapFinished drops terminal sessions from the registry and returns how
// many were removed. The scheduler calls this periodically.
func (s *Service) ReapFinished() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if liveStatus(sess) {
			continue
		}
		delete(s.sessions, id)
		if s.byTarget[sess.targetID] == id {
			delete(s.byTarget, sess.targetID)
		}
		removed++
	}
	return removed
}

func (s *Service) get(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}
