package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/platform/metrics"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

// Report accumulates the outcome of one scan pass. A plan failure is recorded
// and the scan moves on; one bad plan never stops the rest.
type Report struct {
	Scanned      int
	Transitioned int
	Alerted      int
	Updated      int
	Failures     []error
}

func (r Report) Err() error {
	return errors.Join(r.Failures...)
}

// Scanner issues the time-driven transitions and alerts. All writes go
// through the same transition path as interactive callers, under the
// reserved system role.
type Scanner struct {
	plans   repo.PlanRepository
	service *Service
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

func NewScanner(plans repo.PlanRepository, service *Service, cfg Config, logger *slog.Logger) *Scanner {
	if plans == nil || service == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		plans:   plans,
		service: service,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Scanner) WithMetrics(reg *metrics.Registry) *Scanner {
	s.metrics = reg
	return s
}

// ScanSilence moves signed_and_sent plans whose cover letter has gone
// unanswered past the silence timeout to not_received. A transitioned plan
// leaves the filter, so repeat runs are naturally idempotent.
func (s *Scanner) ScanSilence(ctx context.Context) Report {
	s.countRun("silence")
	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, -s.cfg.SilenceTimeoutDays)
	var report Report

	plans, err := s.plans.List(ctx, repo.PlanFilter{
		State:            domain.StateSignedSent,
		LetterSentBefore: &cutoff,
	})
	if err != nil {
		report.Failures = append(report.Failures, fmt.Errorf("list silent plans: %w", err))
		return report
	}
	for _, plan := range plans {
		report.Scanned++
		days := daysWithoutResponse(plan, now)
		comment := fmt.Sprintf("automatic action: %d days without a response", days)
		if _, err := s.service.Transition(ctx, plan.ID, domain.StateNotReceived, SystemActor(), comment, Fields{}); err != nil {
			s.countFailure("silence")
			report.Failures = append(report.Failures, fmt.Errorf("plan %s: %w", plan.ID, err))
			continue
		}
		report.Transitioned++
	}
	s.logger.Info("silence scan finished",
		"scanned", report.Scanned,
		"transitioned", report.Transitioned,
		"failures", len(report.Failures),
	)
	return report
}

// deadlineAlertStates are the states in which an approaching deadline is
// worth an alert.
var deadlineAlertStates = []domain.PlanState{
	domain.StateAwaitingApproval,
	domain.StateAdjustmentsRequested,
	domain.StateInFilingQueue,
}

// ScanDeadlines records an audit-only alert entry for plans due within the
// alert window. The plan state does not change; the entry keeps previous and
// new state equal.
func (s *Scanner) ScanDeadlines(ctx context.Context) Report {
	s.countRun("deadline")
	now := s.now().UTC()
	windowEnd := now.AddDate(0, 0, s.cfg.DeadlineAlertDays+1)
	var report Report

	for _, state := range deadlineAlertStates {
		plans, err := s.plans.List(ctx, repo.PlanFilter{
			State:          state,
			DeadlineBefore: &windowEnd,
		})
		if err != nil {
			report.Failures = append(report.Failures, fmt.Errorf("list %s plans: %w", state, err))
			continue
		}
		for _, plan := range plans {
			if plan.Deadline == nil || plan.Deadline.Before(now) {
				continue
			}
			report.Scanned++
			daysLeft := int(plan.Deadline.UTC().Sub(now).Hours() / 24)
			entry := domain.AuditEntry{
				PlanID:        plan.ID,
				PreviousState: plan.State,
				NewState:      plan.State,
				Actor:         SystemActor().ID,
				ActorRole:     domain.RoleSystem,
				Comment:       fmt.Sprintf("automatic alert: plan due in %d days", daysLeft),
				OccurredAt:    now,
				Payload: domain.Metadata{
					"supplier_id": plan.SupplierID,
					"deadline":    plan.Deadline.UTC().Format(time.RFC3339),
					"days_left":   daysLeft,
				},
			}
			digest, err := computeEntryIntegrity(entry)
			if err != nil {
				report.Failures = append(report.Failures, fmt.Errorf("plan %s: %w", plan.ID, err))
				continue
			}
			entry.IntegritySHA256 = digest
			if _, err := s.service.history.AppendAlert(ctx, entry); err != nil {
				s.countFailure("deadline")
				report.Failures = append(report.Failures, fmt.Errorf("plan %s: %w", plan.ID, err))
				continue
			}
			report.Alerted++
		}
	}
	s.logger.Info("deadline scan finished",
		"scanned", report.Scanned,
		"alerted", report.Alerted,
		"failures", len(report.Failures),
	)
	return report
}

// ScanResponseCounters recomputes days_without_response on plans waiting for
// a supplier response. Only changed counters are written.
func (s *Scanner) ScanResponseCounters(ctx context.Context) Report {
	s.countRun("counters")
	now := s.now().UTC()
	var report Report

	for _, state := range []domain.PlanState{domain.StateSignedSent, domain.StateNotReceived} {
		plans, err := s.plans.List(ctx, repo.PlanFilter{State: state})
		if err != nil {
			report.Failures = append(report.Failures, fmt.Errorf("list %s plans: %w", state, err))
			continue
		}
		for _, plan := range plans {
			if plan.LetterSentAt == nil {
				continue
			}
			report.Scanned++
			days := daysWithoutResponse(plan, now)
			if days == plan.DaysWithoutResponse {
				continue
			}
			if err := s.plans.UpdateSilenceCounter(ctx, plan.ID, days, plan.Suspended, plan.SuspendedAt); err != nil {
				s.countFailure("counters")
				report.Failures = append(report.Failures, fmt.Errorf("plan %s: %w", plan.ID, err))
				continue
			}
			report.Updated++
		}
	}
	s.logger.Info("counter scan finished",
		"scanned", report.Scanned,
		"updated", report.Updated,
		"failures", len(report.Failures),
	)
	return report
}

func (s *Scanner) countRun(scan string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ScanRuns.WithLabelValues(scan).Inc()
}

func (s *Scanner) countFailure(scan string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ScanPlanFailures.WithLabelValues(scan).Inc()
}
