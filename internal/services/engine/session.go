package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/httpclient"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
	dnaservice "github.com/ternarybob/chameleon/internal/services/dna"
	"github.com/ternarybob/chameleon/internal/services/greenlight"
	"golang.org/x/time/rate"
)

// SessionMode selects what a crawl session is trying to do.
type SessionMode string

const (
	ModeExplore SessionMode = "explore"
	ModeObserve SessionMode = "observe"
	ModeAchieve SessionMode = "achieve"
)

// SessionStatus is the lifecycle state of a session. Sessions are
// in-memory only; a process restart loses them.
type SessionStatus string

const (
	SessionStarting  SessionStatus = "starting"
	SessionRunning   SessionStatus = "running"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// StartRequest describes the crawl session to launch.
type StartRequest struct {
	TargetID      string      `json:"target_id"`
	SeedURL       string      `json:"seed_url"`
	Mode          SessionMode `json:"mode"`
	Goal          string      `json:"goal,omitempty"`
	MaxIterations int         `json:"max_iterations,omitempty"`
	MaxDurationS  int         `json:"max_duration_s,omitempty"`
}

// SessionView is the externally visible snapshot of a session.
type SessionView struct {
	ID         string        `json:"id"`
	TargetID   string        `json:"target_id"`
	SeedURL    string        `json:"seed_url"`
	Mode       SessionMode   `json:"mode"`
	Goal       string        `json:"goal,omitempty"`
	Status     SessionStatus `json:"status"`
	Iterations int           `json:"iterations"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
	Failure    string        `json:"failure,omitempty"`
}

// responseCapBytes bounds how much of a response body is read for
// challenge detection and link discovery.
const responseCapBytes = 256 * 1024

// previewBytes bounds the body preview persisted on request logs.
const previewBytes = 2048

// session is one active crawl loop bound to a target. The loop is
// strictly sequential; at most one outbound request is in flight.
type session struct {
	id            string
	targetID      string
	seedURL       string
	mode          SessionMode
	goal          string
	maxIterations int
	maxDuration   time.Duration

	store    interfaces.StorageManager
	mutator  *dnaservice.Mutator
	scorer   *greenlight.Calculator
	advisor  interfaces.AdvisorService
	browsers *BrowserPool
	config   *common.Config
	logger   arbor.ILogger
	explorer *Explorer
	writer   *storeWriter

	cancel context.CancelFunc

	mu         sync.Mutex
	cond       *sync.Cond
	status     SessionStatus
	iterations int
	startedAt  time.Time
	endedAt    *time.Time
	failure    string

	// loop-local state, touched only by the owning goroutine
	currentURL string
	lastHTML   string
	client     *http.Client
	clientDna  string
	limiter    *rate.Limiter
	sawSuccess bool
}

func (s *session) view() *SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &SessionView{
		ID:         s.id,
		TargetID:   s.targetID,
		SeedURL:    s.seedURL,
		Mode:       s.mode,
		Goal:       s.goal,
		Status:     s.status,
		Iterations: s.iterations,
		StartedAt:  s.startedAt,
		EndedAt:    s.endedAt,
		Failure:    s.failure,
	}
}

func (s *session) setStatus(status SessionStatus) {
	s.mu.Lock()
	s.status = status
	s.cond.Broadcast()
	s.mu.Unlock()
}

// awaitRunnable blocks while the session is paused and reports whether
// the loop should keep going.
func (s *session) awaitRunnable(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.status == SessionPaused && ctx.Err() == nil {
		s.cond.Wait()
	}
	return s.status == SessionRunning && ctx.Err() == nil
}

// finish records the terminal status. stop() wakes any paused waiter via
// the broadcast in setStatus.
func (s *session) finish(status SessionStatus, cause string) {
	now := time.Now().UTC()
	s.mu.Lock()
	s.status = status
	s.failure = cause
	s.endedAt = &now
	s.cond.Broadcast()
	s.mu.Unlock()
}

// run drives the crawl loop until a termination condition fires. All
// resources are released on every exit path.
func (s *session) run(ctx context.Context) {
	defer s.cancel()
	defer func() {
		if s.client != nil {
			s.client.CloseIdleConnections()
		}
	}()

	s.setStatus(SessionRunning)

	if err := s.ensureInitialDna(ctx); err != nil {
		s.fail(ctx, fmt.Sprintf("no usable DNA: %v", err))
		return
	}

	deadline := time.Time{}
	if s.maxDuration > 0 {
		deadline = time.Now().Add(s.maxDuration)
	}

	for {
		if !s.awaitRunnable(ctx) {
			s.concludeStopped()
			return
		}
		if s.maxIterations > 0 && s.iterationCount() >= s.maxIterations {
			s.finish(SessionCompleted, "")
			return
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			s.finish(SessionCompleted, "")
			return
		}

		done, delay, err := s.iterate(ctx)
		if err != nil {
			s.fail(ctx, err.Error())
			return
		}
		s.mu.Lock()
		s.iterations++
		iterations := s.iterations
		s.mu.Unlock()
		if done {
			s.finish(SessionCompleted, "")
			return
		}
		if s.maxIterations > 0 && iterations >= s.maxIterations {
			s.finish(SessionCompleted, "")
			return
		}
		s.sleepFor(ctx, delay)
	}
}

func (s *session) iterationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iterations
}

func (s *session) concludeStopped() {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	if status == SessionRunning || status == SessionPaused || status == SessionStarting {
		s.finish(SessionCompleted, "stopped")
	}
}

// fail marks the session failed, moves the target to failed unless it
// never advanced past learning, and leaves all partial logs intact.
func (s *session) fail(ctx context.Context, cause string) {
	s.finish(SessionFailed, cause)

	event := &models.LearningEvent{
		ID:          common.NewEventID(),
		TargetID:    s.targetID,
		EventType:   models.EventDiscovery,
		Title:       "Crawl session failed",
		Description: cause,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.EventStorage().AppendEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("session_id", s.id).Msg("Failed to record session failure event")
	}

	status := models.TargetStatusFailed
	if target, err := s.store.TargetStorage().GetTarget(ctx, s.targetID); err == nil {
		if target.Status == models.TargetStatusDiscovering {
			status = models.TargetStatusLearning
		}
	}
	patch := &models.TargetPatch{Status: &status}
	if err := s.store.TargetStorage().UpdateTargetFields(ctx, s.targetID, patch); err != nil {
		s.logger.Warn().Err(err).Str("session_id", s.id).Msg("Failed to mark target after session failure")
	}

	s.logger.Error().
		Str("session_id", s.id).
		Str("target_id", s.targetID).
		Str("cause", cause).
		Msg("Crawl session failed")
}

// ensureInitialDna creates the v1.0.0 snapshot when the target has none.
func (s *session) ensureInitialDna(ctx context.Context) error {
	_, err := s.store.DnaStorage().GetActiveSnapshot(ctx, s.targetID)
	if err == nil {
		return nil
	}
	_, err = s.mutator.CreateInitial(ctx, s.targetID)
	return err
}

// iterate performs one fetch-observe-score-adapt cycle. It returns
// whether the session's goal was achieved and the delay to sleep before
// the next iteration.
func (s *session) iterate(ctx context.Context) (bool, time.Duration, error) {
	target, err := s.store.TargetStorage().GetTarget(ctx, s.targetID)
	if err != nil {
		return false, 0, fmt.Errorf("target vanished: %w", err)
	}

	active, err := s.store.DnaStorage().GetActiveSnapshot(ctx, s.targetID)
	if err != nil {
		return false, 0, fmt.Errorf("active DNA missing mid-session: %w", err)
	}
	profile, err := active.Profile()
	if err != nil {
		return false, 0, fmt.Errorf("active DNA undecodable: %w", err)
	}

	window := s.config.Engine.RecentWindow
	if window <= 0 {
		window = 20
	}
	recent, err := s.store.RequestLogStorage().RecentRequestLogs(ctx, s.targetID, window)
	if err != nil {
		s.logger.Warn().Err(err).Str("target_id", s.targetID).Msg("Could not load recent request window")
		recent = nil
	}

	if err := s.refreshClient(active.ID, profile); err != nil {
		return false, 0, err
	}

	requestURL := s.currentURL
	if requestURL == "" {
		requestURL = s.seedURL
	}

	log, status, body, contentType, netErr := s.performRequest(ctx, requestURL, active.ID, profile)
	if log == nil {
		// storeWriter exhausted its failure budget before the request
		// could even be recorded.
		return false, 0, fmt.Errorf("store unavailable: request log append kept failing")
	}

	challenge := false
	challengeType := ""
	if netErr == nil {
		challenge = DetectChallenge(status, contentType, body)
		if challenge {
			challengeType = ClassifyChallenge(body)
		}
	}

	if err := s.completeRequestLog(ctx, log, status, body, contentType, challenge, challengeType, netErr); err != nil {
		return false, 0, err
	}

	if challenge {
		if err := s.adaptToChallenge(ctx, profile, challengeType); err != nil {
			s.logger.Warn().Err(err).Str("target_id", s.targetID).Msg("Local challenge adaptation failed")
		}
	} else if netErr == nil && status >= 200 && status < 300 {
		if err := s.recordFirstSuccess(ctx, recent, active.ID); err != nil {
			return false, 0, err
		}
	}

	state, nav, err := s.score(ctx, target, profile, log, recent)
	if err != nil {
		return false, 0, err
	}

	if s.mode == ModeAchieve && netErr == nil && GoalReached(s.goal, requestURL, body) {
		if err := s.recordGoal(ctx, active.ID); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	}

	if !nav.CanNavigate {
		s.consultAdvisor(ctx, target, state, profile, recent, log, challenge, challengeType)
		return false, time.Duration(2*profile.Timing.DelayRange.MaxMs) * time.Millisecond, nil
	}

	s.lastHTML = ""
	if netErr == nil && strings.Contains(strings.ToLower(contentType), "html") {
		s.lastHTML = body
	}
	s.currentURL = s.nextExploratoryURL(ctx, requestURL)

	s.applyRateLimit(ctx, nav)
	return false, randomDelay(profile.Timing.DelayRange), nil
}

// refreshClient rebuilds the shaped HTTP client when the active DNA
// changed; the cookie jar is kept for the lifetime of one DNA version.
func (s *session) refreshClient(dnaID string, profile *models.DNA) error {
	if s.client != nil && s.clientDna == dnaID {
		return nil
	}
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	client, err := httpclient.NewShapedClient(s.config, profile)
	if err != nil {
		return fmt.Errorf("cannot build shaped client: %w", err)
	}
	s.client = client
	s.clientDna = dnaID
	return nil
}

// performRequest appends the pre-flight request log, executes the shaped
// request and returns the raw observation. A nil returned log means the
// store failure budget is exhausted.
func (s *session) performRequest(ctx context.Context, requestURL, dnaID string, profile *models.DNA) (*models.RequestLog, int, string, string, error) {
	log := &models.RequestLog{
		ID:           common.NewRequestID(),
		TargetID:     s.targetID,
		DnaVersionID: dnaID,
		Method:       http.MethodGet,
		URL:          requestURL,
		CreatedAt:    time.Now().UTC(),
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, "", "", err
	}
	httpclient.ShapeRequest(req, profile)
	log.RequestHeaders = strings.Join(httpclient.OrderedHeaderList(req, profile), "\n")

	if err, exhausted := s.writer.Do(ctx, "append request log", func() error {
		return s.store.RequestLogStorage().AppendRequestLog(ctx, log)
	}); err != nil {
		if exhausted {
			return nil, 0, "", "", nil
		}
		s.logger.Warn().Err(err).Str("target_id", s.targetID).Msg("Request log append lost")
	}

	started := time.Now()
	resp, err := s.client.Do(req)
	log.TimingMs = time.Since(started).Milliseconds()
	if err != nil {
		return log, 0, "", "", err
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, responseCapBytes))
	if readErr != nil {
		return log, resp.StatusCode, "", resp.Header.Get("Content-Type"), readErr
	}
	return log, resp.StatusCode, string(raw), resp.Header.Get("Content-Type"), nil
}

// completeRequestLog fills the one-shot response update.
func (s *session) completeRequestLog(ctx context.Context, log *models.RequestLog, status int, body, contentType string, challenge bool, challengeType string, netErr error) error {
	update := &models.RequestLogResponse{
		Status:            status,
		Headers:           "Content-Type: " + contentType,
		BodyPreview:       truncate(body, previewBytes),
		ChallengeDetected: challenge,
		ChallengeType:     challengeType,
		TimingMs:          log.TimingMs,
	}
	if netErr != nil {
		update.WasBlocked = true
		update.BlockReason = "network error: " + netErr.Error()
	} else if challenge {
		update.WasBlocked = status == 403 || status == 429
		if update.WasBlocked {
			update.BlockReason = fmt.Sprintf("status %d with challenge markers", status)
		}
	}

	// Mirror the update locally so the scorer sees the completed row
	// without a re-read.
	log.ResponseStatus = update.Status
	log.ResponseHeaders = update.Headers
	log.ResponsePreview = update.BodyPreview
	log.WasBlocked = update.WasBlocked
	log.BlockReason = update.BlockReason
	log.ChallengeDetected = update.ChallengeDetected
	log.ChallengeType = update.ChallengeType
	log.CompletedAt = time.Now().UTC()

	err, exhausted := s.writer.Do(ctx, "complete request log", func() error {
		return s.store.RequestLogStorage().UpdateRequestLogResponse(ctx, log.ID, update)
	})
	if exhausted {
		return fmt.Errorf("store unavailable: response update kept failing: %w", err)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", log.ID).Msg("Response update lost")
	}
	return nil
}

// adaptToChallenge widens the delay window as a conservative local
// response and records the challenge observation.
func (s *session) adaptToChallenge(ctx context.Context, profile *models.DNA, challengeType string) error {
	proposal := &interfaces.MutationProposal{
		Gene: models.GeneTiming,
		Change: map[string]interface{}{
			"delay_range": map[string]interface{}{
				"min_ms": profile.Timing.DelayRange.MinMs + 500,
				"max_ms": profile.Timing.DelayRange.MaxMs + 1000,
			},
		},
		Reason:     "Back off after challenge",
		Confidence: 1,
		RiskLevel:  models.RiskMedium,
	}
	result, err := s.mutator.Mutate(ctx, s.targetID, proposal)
	if err != nil {
		return err
	}

	event := &models.LearningEvent{
		ID:            common.NewEventID(),
		TargetID:      s.targetID,
		DnaVersionID:  result.SnapshotID,
		EventType:     models.EventChallenge,
		Title:         "Challenge encountered",
		Description:   fmt.Sprintf("Widened request delays after a %s challenge", challengeType),
		TrustImpact:   -5,
		ChallengeType: challengeType,
		CreatedAt:     time.Now().UTC(),
	}
	err, exhausted := s.writer.Do(ctx, "append challenge event", func() error {
		return s.store.EventStorage().AppendEvent(ctx, event)
	})
	if exhausted {
		return fmt.Errorf("store unavailable: challenge event kept failing: %w", err)
	}
	return nil
}

// recordFirstSuccess appends the first-contact milestone when no earlier
// request in the window had succeeded.
func (s *session) recordFirstSuccess(ctx context.Context, recent []*models.RequestLog, dnaID string) error {
	if s.sawSuccess {
		return nil
	}
	for _, log := range recent {
		if log.ResponseStatus >= 200 && log.ResponseStatus < 300 {
			s.sawSuccess = true
			return nil
		}
	}
	s.sawSuccess = true

	event := &models.LearningEvent{
		ID:           common.NewEventID(),
		TargetID:     s.targetID,
		DnaVersionID: dnaID,
		EventType:    models.EventMilestone,
		Title:        "First successful request",
		TrustImpact:  10,
		CreatedAt:    time.Now().UTC(),
	}
	err, exhausted := s.writer.Do(ctx, "append milestone event", func() error {
		return s.store.EventStorage().AppendEvent(ctx, event)
	})
	if exhausted {
		return fmt.Errorf("store unavailable: milestone event kept failing: %w", err)
	}
	return nil
}

// score runs the green-light calculation over the fresh window, persists
// the state and updates the target row.
func (s *session) score(ctx context.Context, target *models.Target, profile *models.DNA, current *models.RequestLog, recent []*models.RequestLog) (*models.GreenLightState, models.NavigationCapability, error) {
	// Current request first; RecentRequestLogs returns newest-first.
	window := append([]*models.RequestLog{current}, recent...)
	state := s.scorer.Calculate(target, profile, window, time.Now().UTC())

	err, exhausted := s.writer.Do(ctx, "persist green-light state", func() error {
		return s.store.GreenLightStorage().PutGreenLightState(ctx, state)
	})
	if exhausted {
		return nil, models.NavigationCapability{}, fmt.Errorf("store unavailable: green-light state kept failing: %w", err)
	}

	if greenlight.Transitioned(target.GreenLightStatus, state) {
		event := &models.LearningEvent{
			ID:          common.NewEventID(),
			TargetID:    s.targetID,
			EventType:   models.EventGreenLight,
			Title:       fmt.Sprintf("Green light %s", state.Status),
			Description: fmt.Sprintf("Trust moved %d to %d", target.TrustScore, state.TrustScore),
			BeforeState: string(target.GreenLightStatus),
			AfterState:  string(state.Status),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.store.EventStorage().AppendEvent(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("target_id", s.targetID).Msg("Green-light event lost")
		}
	}

	now := time.Now().UTC()
	targetStatus := targetStatusFor(state.Status)
	patch := &models.TargetPatch{
		Status:           &targetStatus,
		GreenLightStatus: &state.Status,
		TrustScore:       &state.TrustScore,
		EstablishedAt:    state.EstablishedAt,
		MaintainedFor:    &state.MaintainedFor,
		LastSeen:         &now,
	}
	err, exhausted = s.writer.Do(ctx, "update target", func() error {
		return s.store.TargetStorage().UpdateTargetFields(ctx, s.targetID, patch)
	})
	if exhausted {
		return nil, models.NavigationCapability{}, fmt.Errorf("store unavailable: target update kept failing: %w", err)
	}

	return state, greenlight.NavigationFor(state.Status), nil
}

func targetStatusFor(status models.GreenLightStatus) models.TargetStatus {
	if status == models.GreenLightEstablished {
		return models.TargetStatusEstablished
	}
	return models.TargetStatusLearning
}

// consultAdvisor asks for guidance while the target is not navigable and
// applies any mutations that come back. Advisor trouble never fails the
// iteration.
func (s *session) consultAdvisor(ctx context.Context, target *models.Target, state *models.GreenLightState, profile *models.DNA, recent []*models.RequestLog, current *models.RequestLog, challenge bool, challengeType string) {
	envelope := s.buildEnvelope(ctx, target, state, profile, recent, current, challenge, challengeType)
	response, err := s.advisor.Analyze(ctx, envelope)
	if err != nil {
		s.logger.Warn().Err(err).Str("target_id", s.targetID).Msg("Advisor consultation failed")
		return
	}

	for i := range response.Mutations {
		if _, err := s.mutator.Mutate(ctx, s.targetID, &response.Mutations[i]); err != nil {
			s.logger.Warn().
				Err(err).
				Str("gene", string(response.Mutations[i].Gene)).
				Msg("Advisor mutation rejected")
		}
	}

	s.logger.Debug().
		Str("target_id", s.targetID).
		Str("model", response.Model).
		Bool("mock", response.Mock).
		Int("mutations", len(response.Mutations)).
		Msg("Advisor consulted")
}

func (s *session) buildEnvelope(ctx context.Context, target *models.Target, state *models.GreenLightState, profile *models.DNA, recent []*models.RequestLog, current *models.RequestLog, challenge bool, challengeType string) *interfaces.AdvisorContext {
	envelope := &interfaces.AdvisorContext{
		Target: interfaces.TargetSummary{
			ID:         target.ID,
			URL:        target.URL,
			Status:     target.Status,
			GreenLight: state.Status,
			TrustScore: state.TrustScore,
		},
		DNA: profile,
		LastRequest: &interfaces.RequestQuickView{
			Method:   current.Method,
			URL:      current.URL,
			Status:   current.ResponseStatus,
			TimingMs: current.TimingMs,
		},
	}

	for _, log := range recent {
		obs := interfaces.Observation{Timestamp: log.CreatedAt}
		switch {
		case log.WasBlocked:
			obs.Type = interfaces.ObservationBlocked
			obs.Summary = log.BlockReason
		case log.ChallengeDetected:
			obs.Type = interfaces.ObservationChallenge
			obs.Summary = log.ChallengeType
		default:
			obs.Type = interfaces.ObservationSuccess
			obs.Summary = fmt.Sprintf("%d %s", log.ResponseStatus, log.URL)
		}
		envelope.Observations = append(envelope.Observations, obs)
	}

	if events, err := s.store.EventStorage().ListEvents(ctx, s.targetID, 5); err == nil {
		for _, event := range events {
			envelope.RecentEvents = append(envelope.RecentEvents, interfaces.EventSummary{
				Type:    event.EventType,
				Outcome: event.Title,
			})
		}
	}

	if challenge {
		envelope.CurrentChallenge = &interfaces.ChallengeInfo{Type: challengeType, Attempts: 1}
	}
	return envelope
}

// recordGoal appends the achieve-mode milestone.
func (s *session) recordGoal(ctx context.Context, dnaID string) error {
	event := &models.LearningEvent{
		ID:           common.NewEventID(),
		TargetID:     s.targetID,
		DnaVersionID: dnaID,
		EventType:    models.EventMilestone,
		Title:        fmt.Sprintf("Goal %q achieved", s.goal),
		TrustImpact:  20,
		CreatedAt:    time.Now().UTC(),
	}
	err, exhausted := s.writer.Do(ctx, "append goal event", func() error {
		return s.store.EventStorage().AppendEvent(ctx, event)
	})
	if exhausted {
		return fmt.Errorf("store unavailable: goal event kept failing: %w", err)
	}
	return nil
}

// nextExploratoryURL chooses the next URL: a rendered-page link when the
// browser pool is active, a parsed link from the raw HTML otherwise, and
// the fixed path cycle as the fallback in both cases.
func (s *session) nextExploratoryURL(ctx context.Context, fromURL string) string {
	if s.browsers != nil && s.browsers.Enabled() {
		if html, err := s.browsers.RenderHTML(ctx, fromURL); err == nil && html != "" {
			return s.explorer.NextURL(fromURL, html)
		}
	}
	return s.explorer.NextURL(fromURL, s.lastHTML)
}

func (s *session) applyRateLimit(ctx context.Context, nav models.NavigationCapability) {
	if nav.Unrestricted || nav.MaxRequestsPerS <= 0 {
		s.limiter = nil
		return
	}
	if s.limiter == nil || s.limiter.Limit() != rate.Limit(nav.MaxRequestsPerS) {
		s.limiter = rate.NewLimiter(rate.Limit(nav.MaxRequestsPerS), 1)
	}
	if err := s.limiter.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug().Err(err).Msg("Rate limiter wait interrupted")
	}
}

// sleepFor is the cancellable inter-iteration delay.
func (s *session) sleepFor(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func randomDelay(r models.DelayRange) time.Duration {
	if r.MaxMs <= r.MinMs {
		return time.Duration(r.MinMs) * time.Millisecond
	}
	ms := r.MinMs + rand.Intn(r.MaxMs-r.MinMs+1)
	return time.Duration(ms) * time.Millisecond
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
