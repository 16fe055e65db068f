package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
)

var (
	// ErrAdvisorUnavailable indicates the external model could not be
	// reached; the service degrades to the offline response.
	ErrAdvisorUnavailable = errors.New("advisor unavailable")
	// ErrAdvisorProtocol indicates a tool call that does not satisfy the
	// advisor schema; only the offending call is discarded.
	ErrAdvisorProtocol = errors.New("advisor protocol violation")
)

// maxMutationsPerResponse caps how many mutation proposals one
// consultation may carry.
const maxMutationsPerResponse = 3

var validate = validator.New()

// Service bridges the crawl engine to an external LLM through a fixed
// tool-call protocol, with a deterministic offline fallback.
type Service struct {
	model   interfaces.AdvisorModel
	logger  arbor.ILogger
	cache   *responseCache
	timeout time.Duration
}

// NewService wires the advisor bridge. A nil model puts the service in
// offline mode permanently.
func NewService(model interfaces.AdvisorModel, cfg *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		model:   model,
		logger:  logger,
		cache:   newResponseCache(cfg.AdvisorCacheTTL()),
		timeout: cfg.AdvisorTimeout(),
	}
}

// Offline reports whether the service runs without an external model.
func (s *Service) Offline() bool { return s.model == nil }

// SweepCache drops expired cached responses and returns how many were
// removed.
func (s *Service) SweepCache() int { return s.cache.Sweep() }

// Close releases the underlying model client.
func (s *Service) Close() error {
	if s.model == nil {
		return nil
	}
	return s.model.Close()
}

// Analyze consults the model about one target's situation. Responses are
// cached by context digest; identical envelopes within the TTL reuse the
// previous answer. Any failure to reach the model degrades to the
// offline response rather than failing the crawl iteration.
func (s *Service) Analyze(ctx context.Context, envelope *interfaces.AdvisorContext) (*interfaces.AdvisorResponse, error) {
	if envelope == nil {
		return nil, fmt.Errorf("advisor context cannot be nil")
	}
	if s.model == nil {
		return offlineResponse(envelope), nil
	}

	key, err := digest(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to digest advisor context: %w", err)
	}
	if cached := s.cache.get(key); cached != nil {
		s.logger.Debug().
			Str("target_id", envelope.Target.ID).
			Msg("Advisor cache hit")
		return cached, nil
	}

	user, err := buildUserPrompt(envelope)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	calls, err := s.model.Invoke(callCtx, systemPrompt, user)
	if err != nil {
		s.logger.Warn().
			Str("target_id", envelope.Target.ID).
			Str("model", s.model.ModelName()).
			Err(fmt.Errorf("%w: %v", ErrAdvisorUnavailable, err)).
			Msg("Advisor call failed, using offline response")
		return offlineResponse(envelope), nil
	}

	response := s.assemble(envelope, calls)
	s.cache.put(key, response)
	return response, nil
}

// assemble validates each tool call and packages the survivors. A call
// that fails schema validation is discarded without poisoning the rest
// of the response; if nothing valid remains the offline response is
// used instead.
func (s *Service) assemble(envelope *interfaces.AdvisorContext, calls []interfaces.ToolCall) *interfaces.AdvisorResponse {
	response := &interfaces.AdvisorResponse{Model: s.model.ModelName()}

	for _, call := range calls {
		switch call.Name {
		case interfaces.ToolSuggestDnaMutation:
			var proposal interfaces.MutationProposal
			if err := s.parseCall(envelope, call, &proposal); err != nil {
				continue
			}
			if !models.ValidGene(proposal.Gene) {
				s.discard(envelope, call, fmt.Errorf("unknown gene %q", proposal.Gene))
				continue
			}
			if len(response.Mutations) < maxMutationsPerResponse {
				response.Mutations = append(response.Mutations, proposal)
			}
		case interfaces.ToolEvaluateTrustStatus:
			var trust interfaces.TrustEvaluation
			if err := s.parseCall(envelope, call, &trust); err != nil {
				continue
			}
			if response.Trust == nil {
				response.Trust = &trust
			}
		case interfaces.ToolDetermineStrategy:
			var strategy interfaces.StrategyDecision
			if err := s.parseCall(envelope, call, &strategy); err != nil {
				continue
			}
			if response.Strategy == nil {
				response.Strategy = &strategy
			}
		default:
			s.discard(envelope, call, fmt.Errorf("unknown tool %q", call.Name))
		}
	}

	if len(response.Mutations) == 0 && response.Trust == nil && response.Strategy == nil {
		s.logger.Warn().
			Str("target_id", envelope.Target.ID).
			Msg("Advisor returned no usable tool calls, using offline response")
		return offlineResponse(envelope)
	}
	return response
}

func (s *Service) parseCall(envelope *interfaces.AdvisorContext, call interfaces.ToolCall, out interface{}) error {
	if err := json.Unmarshal(call.Arguments, out); err != nil {
		s.discard(envelope, call, err)
		return err
	}
	if err := validate.Struct(out); err != nil {
		s.discard(envelope, call, err)
		return err
	}
	return nil
}

func (s *Service) discard(envelope *interfaces.AdvisorContext, call interfaces.ToolCall, cause error) {
	s.logger.Warn().
		Str("target_id", envelope.Target.ID).
		Str("tool", call.Name).
		Err(fmt.Errorf("%w: %v", ErrAdvisorProtocol, cause)).
		Msg("Discarding malformed advisor tool call")
}
