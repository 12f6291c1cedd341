package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/platform/metrics"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

// Actor identifies who requests a transition. SystemActor is used by the
// scanner; human actors come from the authenticated identity.
type Actor struct {
	ID   string
	Role domain.Role
}

func SystemActor() Actor {
	return Actor{ID: "system", Role: domain.RoleSystem}
}

// Fields carries the optional and state-required extras of a transition.
type Fields struct {
	FilingNumber       string
	RejectionReason    string
	ClarificationNotes string
	LetterObjectKey    string
}

// PostCommitHook runs after a transition has been committed. Hook failures
// are logged and never roll back the transition.
type PostCommitHook interface {
	AfterTransition(ctx context.Context, plan domain.Plan, entry domain.AuditEntry) error
}

type Service struct {
	plans   repo.PlanRepository
	history repo.HistoryRepository
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Registry
	hooks   []PostCommitHook
	now     func() time.Time
}

func New(plans repo.PlanRepository, history repo.HistoryRepository, cfg Config, logger *slog.Logger) *Service {
	if plans == nil || history == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		plans:   plans,
		history: history,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// WithMetrics attaches the Prometheus registry. Optional.
func (s *Service) WithMetrics(reg *metrics.Registry) *Service {
	s.metrics = reg
	return s
}

// AddHook registers a post-commit hook. Hooks run in registration order.
func (s *Service) AddHook(hook PostCommitHook) {
	if hook != nil {
		s.hooks = append(s.hooks, hook)
	}
}

// Transition moves a plan to the target state on behalf of the actor. The
// order of checks is fixed: edge first, then role, then required fields.
// Success returns the updated plan; every failure leaves the plan untouched.
func (s *Service) Transition(ctx context.Context, planID string, target domain.PlanState, actor Actor, comment string, fields Fields) (domain.Plan, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return domain.Plan{}, err
	}
	from := plan.State

	if !target.Valid() {
		s.countTransition(target, "illegal")
		return domain.Plan{}, fmt.Errorf("%w: unknown state %q", ErrIllegalTransition, target)
	}
	if !domain.CanTransition(from, target) {
		s.countTransition(target, "illegal")
		return domain.Plan{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, target)
	}
	if !actor.Role.Valid() || !domain.RoleMayTransition(actor.Role, from, target) {
		s.countTransition(target, "forbidden")
		return domain.Plan{}, fmt.Errorf("%w: role %s may not move %s -> %s", ErrForbidden, actor.Role, from, target)
	}

	expectedVersion := plan.Version
	now := s.now().UTC()
	if err := applyTargetEffects(&plan, target, actor, fields, now); err != nil {
		s.countTransition(target, "rejected")
		return domain.Plan{}, err
	}
	plan.State = target

	if strings.TrimSpace(comment) == "" {
		comment = fmt.Sprintf("transition from %s to %s", from, target)
	}
	entry := domain.AuditEntry{
		PlanID:        plan.ID,
		PreviousState: from,
		NewState:      target,
		Actor:         actor.ID,
		ActorRole:     actor.Role,
		Comment:       comment,
		OccurredAt:    now,
		Payload:       transitionPayload(plan, from, target, actor, fields),
	}
	digest, err := computeEntryIntegrity(entry)
	if err != nil {
		return domain.Plan{}, err
	}
	entry.IntegritySHA256 = digest

	if err := s.plans.ApplyTransition(ctx, plan, expectedVersion, entry); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			s.countTransition(target, "conflict")
		} else {
			s.countTransition(target, "error")
		}
		return domain.Plan{}, err
	}
	s.countTransition(target, "committed")
	plan.Version = expectedVersion + 1

	s.logger.Info("plan transition committed",
		"plan_id", plan.ID,
		"from", string(from),
		"to", string(target),
		"actor", actor.ID,
		"actor_role", string(actor.Role),
	)

	for _, hook := range s.hooks {
		if err := hook.AfterTransition(ctx, plan, entry); err != nil {
			s.logger.Warn("post-commit hook failed",
				"plan_id", plan.ID,
				"to", string(target),
				"error", err,
			)
		}
	}
	return plan, nil
}

// NextStates lists the states the actor may move the plan to. System edges
// never show up for human actors.
func (s *Service) NextStates(ctx context.Context, planID string, actor Actor) ([]domain.PlanState, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PlanState, 0, 2)
	for _, candidate := range domain.NextStates(plan.State) {
		if domain.RoleMayTransition(actor.Role, plan.State, candidate) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

// OpenPlanFromEvaluation creates a draft plan for an evaluation below the
// passing score. Evaluations at or above the score need no plan and return
// nil without error.
func (s *Service) OpenPlanFromEvaluation(ctx context.Context, evaluation domain.Evaluation) (*domain.Plan, error) {
	if err := evaluation.Validate(); err != nil {
		return nil, err
	}
	if !evaluation.RequiresPlan(s.cfg.PassingScore) {
		return nil, nil
	}
	now := s.now().UTC()
	deadline := now.AddDate(0, 0, s.cfg.PlanDeadlineDays)
	if evaluation.PlanDeadline != nil {
		deadline = evaluation.PlanDeadline.UTC()
	}
	plan := domain.Plan{
		ID:           uuid.NewString(),
		SupplierID:   evaluation.SupplierID,
		EvaluationID: evaluation.ID,
		State:        domain.StateDraft,
		CreatedAt:    now,
		Deadline:     &deadline,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.logger.Info("plan opened from evaluation",
		"plan_id", plan.ID,
		"supplier_id", plan.SupplierID,
		"evaluation_id", evaluation.ID,
		"score", evaluation.Score,
	)
	return &plan, nil
}

// History returns the plan's transition trail, newest first.
func (s *Service) History(ctx context.Context, planID string, limit int) ([]domain.AuditEntry, error) {
	return s.history.ListByPlan(ctx, planID, limit)
}

func (s *Service) countTransition(target domain.PlanState, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Transitions.WithLabelValues(string(target), outcome).Inc()
}

// applyTargetEffects mutates the plan's bookkeeping fields for the state it
// is entering. Required fields are enforced here, before anything persists.
func applyTargetEffects(plan *domain.Plan, target domain.PlanState, actor Actor, fields Fields, now time.Time) error {
	switch target {
	case domain.StateSignatureProcess:
		plan.LetterSentAt = &now
		if key := strings.TrimSpace(fields.LetterObjectKey); key != "" {
			plan.LetterObjectKey = key
		}
	case domain.StateSignedSent:
		plan.SentAt = &now
	case domain.StateNotReceived:
		plan.DaysWithoutResponse = daysWithoutResponse(*plan, now)
	case domain.StateClarification:
		plan.ClarificationAt = &now
		if notes := strings.TrimSpace(fields.ClarificationNotes); notes != "" {
			plan.ClarificationNotes = notes
		}
	case domain.StateInFilingQueue:
		plan.ReviewedAt = &now
		plan.ReviewedBy = actor.ID
	case domain.StateFiled:
		number := strings.TrimSpace(fields.FilingNumber)
		if number == "" {
			return fmt.Errorf("%w: filing number", ErrMissingField)
		}
		plan.FilingNumber = number
		plan.FiledAt = &now
	case domain.StateRejected:
		reason := strings.TrimSpace(fields.RejectionReason)
		if reason == "" {
			return fmt.Errorf("%w: rejection reason", ErrMissingField)
		}
		plan.RejectionReason = reason
		plan.ReviewedAt = &now
		plan.ReviewedBy = actor.ID
	case domain.StateCancellationFiled:
		plan.ReviewedAt = &now
	case domain.StateEthicsViolation:
		plan.Suspended = true
		plan.SuspendedAt = &now
	}
	if target.StampsCompletion() && plan.CompletedAt == nil {
		plan.CompletedAt = &now
	}
	return nil
}

// daysWithoutResponse counts whole days since the cover letter went out.
// Plans without a sent letter have nothing to count.
func daysWithoutResponse(plan domain.Plan, now time.Time) int {
	if plan.LetterSentAt == nil {
		return 0
	}
	days := int(now.Sub(plan.LetterSentAt.UTC()).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func transitionPayload(plan domain.Plan, from, to domain.PlanState, actor Actor, fields Fields) domain.Metadata {
	payload := domain.Metadata{
		"from":        string(from),
		"to":          string(to),
		"actor":       actor.ID,
		"actor_role":  string(actor.Role),
		"supplier_id": plan.SupplierID,
	}
	if v := strings.TrimSpace(fields.FilingNumber); v != "" {
		payload["filing_number"] = v
	}
	if v := strings.TrimSpace(fields.RejectionReason); v != "" {
		payload["rejection_reason"] = v
	}
	if v := strings.TrimSpace(fields.ClarificationNotes); v != "" {
		payload["clarification_notes"] = v
	}
	if v := strings.TrimSpace(fields.LetterObjectKey); v != "" {
		payload["letter_object_key"] = v
	}
	return payload
}

// computeEntryIntegrity digests the immutable entry fields so tampering with
// a stored row is detectable.
func computeEntryIntegrity(entry domain.AuditEntry) (string, error) {
	payloadJSON, err := json.Marshal(entry.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal entry payload: %w", err)
	}
	type integrityInput struct {
		PlanID        string          `json:"plan_id"`
		PreviousState string          `json:"previous_state"`
		NewState      string          `json:"new_state"`
		Actor         string          `json:"actor"`
		ActorRole     string          `json:"actor_role"`
		Comment       string          `json:"comment,omitempty"`
		OccurredAt    time.Time       `json:"occurred_at"`
		Payload       json.RawMessage `json:"payload"`
	}
	blob, err := json.Marshal(integrityInput{
		PlanID:        strings.TrimSpace(entry.PlanID),
		PreviousState: string(entry.PreviousState),
		NewState:      string(entry.NewState),
		Actor:         strings.TrimSpace(entry.Actor),
		ActorRole:     string(entry.ActorRole),
		Comment:       strings.TrimSpace(entry.Comment),
		OccurredAt:    entry.OccurredAt.UTC(),
		Payload:       payloadJSON,
	})
	if err != nil {
		return "", fmt.Errorf("marshal entry integrity: %w", err)
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}
