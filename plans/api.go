package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/platform/auth"
	"github.com/mejora-labs/mejora-go/internal/platform/objectstore"
	"github.com/mejora-labs/mejora-go/internal/repo"
	"github.com/mejora-labs/mejora-go/internal/service/workflow"
)

type plansAPI struct {
	logger         *slog.Logger
	svc            *workflow.Service
	scanner        *workflow.Scanner
	plans          repo.PlanRepository
	suppliers      repo.SupplierRepository
	evaluations    repo.EvaluationRepository
	letters        objectstore.Store
	storeCfg       objectstore.Config
	uploadMaxBytes int64
}

func newPlansAPI(logger *slog.Logger, svc *workflow.Service, scanner *workflow.Scanner, plans repo.PlanRepository, suppliers repo.SupplierRepository, evaluations repo.EvaluationRepository, letters objectstore.Store, storeCfg objectstore.Config, uploadMaxBytes int64) *plansAPI {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 32 << 20
	}
	return &plansAPI{
		logger:         logger,
		svc:            svc,
		scanner:        scanner,
		plans:          plans,
		suppliers:      suppliers,
		evaluations:    evaluations,
		letters:        letters,
		storeCfg:       storeCfg,
		uploadMaxBytes: uploadMaxBytes,
	}
}

func (api *plansAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /suppliers", api.handleCreateSupplier)
	mux.HandleFunc("GET /suppliers", api.handleListSuppliers)
	mux.HandleFunc("GET /suppliers/{supplier_id}", api.handleGetSupplier)

	mux.HandleFunc("POST /evaluations", api.handleCreateEvaluation)
	mux.HandleFunc("GET /evaluations/{evaluation_id}", api.handleGetEvaluation)

	mux.HandleFunc("GET /plans", api.handleListPlans)
	mux.HandleFunc("GET /plans/{plan_id}", api.handleGetPlan)
	mux.HandleFunc("PUT /plans/{plan_id}/narrative", api.handleUpdateNarrative)
	mux.HandleFunc("POST /plans/{plan_id}/transition", api.handleTransition)
	mux.HandleFunc("GET /plans/{plan_id}/next-states", api.handleNextStates)
	mux.HandleFunc("GET /plans/{plan_id}/history", api.handleHistory)
	mux.HandleFunc("POST /plans/{plan_id}/letter", api.handleUploadLetter)
	mux.HandleFunc("GET /plans/{plan_id}/letter", api.handleDownloadLetter)

	mux.HandleFunc("POST /scans/{scan}", api.handleRunScan)
}

type supplier struct {
	SupplierID     string    `json:"supplier_id"`
	TaxID          string    `json:"tax_id"`
	LegalName      string    `json:"legal_name"`
	Email          string    `json:"email"`
	SecondaryEmail string    `json:"secondary_email,omitempty"`
	AccountID      string    `json:"account_id,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

type evaluation struct {
	EvaluationID   string     `json:"evaluation_id"`
	SupplierID     string     `json:"supplier_id"`
	Period         string     `json:"period,omitempty"`
	ContractNumber string     `json:"contract_number,omitempty"`
	ContractType   string     `json:"contract_type,omitempty"`
	Score          int        `json:"score"`
	EvaluatedAt    time.Time  `json:"evaluated_at"`
	PlanDeadline   *time.Time `json:"plan_deadline,omitempty"`
	Observations   string     `json:"observations,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	PlanID         string     `json:"plan_id,omitempty"`
}

type plan struct {
	PlanID              string     `json:"plan_id"`
	SupplierID          string     `json:"supplier_id"`
	EvaluationID        string     `json:"evaluation_id"`
	State               string     `json:"state"`
	Version             int64      `json:"version"`
	RootCauseAnalysis   string     `json:"root_cause_analysis,omitempty"`
	ProposedActions     string     `json:"proposed_actions,omitempty"`
	Responsible         string     `json:"responsible,omitempty"`
	ImplementationDate  *time.Time `json:"implementation_date,omitempty"`
	TrackingIndicators  string     `json:"tracking_indicators,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	SubmittedAt         *time.Time `json:"submitted_at,omitempty"`
	Deadline            *time.Time `json:"deadline,omitempty"`
	LetterObjectKey     string     `json:"letter_object_key,omitempty"`
	LetterSentAt        *time.Time `json:"letter_sent_at,omitempty"`
	SentAt              *time.Time `json:"sent_at,omitempty"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy          string     `json:"reviewed_by,omitempty"`
	FilingNumber        string     `json:"filing_number,omitempty"`
	FiledAt             *time.Time `json:"filed_at,omitempty"`
	RejectionReason     string     `json:"rejection_reason,omitempty"`
	ClarificationAt     *time.Time `json:"clarification_at,omitempty"`
	ClarificationNotes  string     `json:"clarification_notes,omitempty"`
	DaysWithoutResponse int        `json:"days_without_response"`
	Suspended           bool       `json:"suspended"`
	SuspendedAt         *time.Time `json:"suspended_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

type historyEntry struct {
	EntryID         int64          `json:"entry_id"`
	PlanID          string         `json:"plan_id"`
	PreviousState   string         `json:"previous_state"`
	NewState        string         `json:"new_state"`
	Actor           string         `json:"actor"`
	ActorRole       string         `json:"actor_role"`
	Comment         string         `json:"comment,omitempty"`
	OccurredAt      time.Time      `json:"occurred_at"`
	Payload         map[string]any `json:"payload"`
	IntegritySHA256 string         `json:"integrity_sha256"`
}

type createSupplierRequest struct {
	TaxID          string `json:"tax_id"`
	LegalName      string `json:"legal_name"`
	Email          string `json:"email"`
	SecondaryEmail string `json:"secondary_email,omitempty"`
}

type createEvaluationRequest struct {
	SupplierID     string     `json:"supplier_id"`
	Period         string     `json:"period,omitempty"`
	ContractNumber string     `json:"contract_number,omitempty"`
	ContractType   string     `json:"contract_type,omitempty"`
	Score          int        `json:"score"`
	EvaluatedAt    *time.Time `json:"evaluated_at,omitempty"`
	PlanDeadline   *time.Time `json:"plan_deadline,omitempty"`
	Observations   string     `json:"observations,omitempty"`
}

type transitionRequest struct {
	Target             string `json:"target"`
	Comment            string `json:"comment,omitempty"`
	FilingNumber       string `json:"filing_number,omitempty"`
	RejectionReason    string `json:"rejection_reason,omitempty"`
	ClarificationNotes string `json:"clarification_notes,omitempty"`
	LetterObjectKey    string `json:"letter_object_key,omitempty"`
}

type narrativeRequest struct {
	Version            int64      `json:"version"`
	RootCauseAnalysis  string     `json:"root_cause_analysis,omitempty"`
	ProposedActions    string     `json:"proposed_actions,omitempty"`
	Responsible        string     `json:"responsible,omitempty"`
	ImplementationDate *time.Time `json:"implementation_date,omitempty"`
	TrackingIndicators string     `json:"tracking_indicators,omitempty"`
}

func (api *plansAPI) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req createSupplierRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	record := domain.Supplier{
		ID:             uuid.NewString(),
		TaxID:          strings.TrimSpace(req.TaxID),
		LegalName:      strings.TrimSpace(req.LegalName),
		Email:          strings.TrimSpace(req.Email),
		SecondaryEmail: strings.TrimSpace(req.SecondaryEmail),
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := record.Validate(); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_supplier")
		return
	}
	if err := api.suppliers.Create(r.Context(), record); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			api.writeError(w, r, http.StatusConflict, "tax_id_exists")
			return
		}
		api.internalError(w, r, "create supplier", err)
		return
	}
	w.Header().Set("Location", "/suppliers/"+record.ID)
	api.writeJSON(w, http.StatusCreated, toSupplier(record))
}

func (api *plansAPI) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(parseIntQuery(r, "limit", 100), 1, 500)
	filter := repo.SupplierFilter{
		TaxID: strings.TrimSpace(r.URL.Query().Get("tax_id")),
		Limit: limit,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	items, err := api.suppliers.List(r.Context(), filter)
	if err != nil {
		api.internalError(w, r, "list suppliers", err)
		return
	}
	out := make([]supplier, 0, len(items))
	for _, item := range items {
		out = append(out, toSupplier(item))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"suppliers": out})
}

func (api *plansAPI) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	supplierID := strings.TrimSpace(r.PathValue("supplier_id"))
	if supplierID == "" {
		api.writeError(w, r, http.StatusBadRequest, "supplier_id_required")
		return
	}
	item, err := api.suppliers.Get(r.Context(), supplierID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.internalError(w, r, "get supplier", err)
		return
	}
	api.writeJSON(w, http.StatusOK, toSupplier(item))
}

// handleCreateEvaluation records an evaluation and, when the score falls
// below the passing threshold, opens the improvement plan in the same call.
func (api *plansAPI) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req createEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	evaluatedAt := time.Now().UTC()
	if req.EvaluatedAt != nil {
		evaluatedAt = req.EvaluatedAt.UTC()
	}
	record := domain.Evaluation{
		ID:             uuid.NewString(),
		SupplierID:     strings.TrimSpace(req.SupplierID),
		Period:         strings.TrimSpace(req.Period),
		ContractNumber: strings.TrimSpace(req.ContractNumber),
		ContractType:   strings.TrimSpace(req.ContractType),
		Score:          req.Score,
		EvaluatedAt:    evaluatedAt,
		PlanDeadline:   req.PlanDeadline,
		Observations:   strings.TrimSpace(req.Observations),
		CreatedAt:      time.Now().UTC(),
	}
	if err := record.Validate(); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_evaluation")
		return
	}
	if _, err := api.suppliers.Get(r.Context(), record.SupplierID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "supplier_not_found")
			return
		}
		api.internalError(w, r, "check supplier", err)
		return
	}
	if err := api.evaluations.Create(r.Context(), record); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			api.writeError(w, r, http.StatusConflict, "evaluation_exists")
			return
		}
		api.internalError(w, r, "create evaluation", err)
		return
	}

	opened, err := api.svc.OpenPlanFromEvaluation(r.Context(), record)
	if err != nil {
		api.internalError(w, r, "open plan from evaluation", err)
		return
	}
	out := toEvaluation(record)
	if opened != nil {
		out.PlanID = opened.ID
	}
	w.Header().Set("Location", "/evaluations/"+record.ID)
	api.writeJSON(w, http.StatusCreated, out)
}

func (api *plansAPI) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	evaluationID := strings.TrimSpace(r.PathValue("evaluation_id"))
	if evaluationID == "" {
		api.writeError(w, r, http.StatusBadRequest, "evaluation_id_required")
		return
	}
	item, err := api.evaluations.Get(r.Context(), evaluationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.internalError(w, r, "get evaluation", err)
		return
	}
	api.writeJSON(w, http.StatusOK, toEvaluation(item))
}

func (api *plansAPI) handleListPlans(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(parseIntQuery(r, "limit", 100), 1, 500)
	filter := repo.PlanFilter{
		SupplierID: strings.TrimSpace(r.URL.Query().Get("supplier_id")),
		Limit:      limit,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("state")); raw != "" {
		state := domain.NormalizeState(raw)
		if state == "" {
			api.writeError(w, r, http.StatusBadRequest, "unknown_state")
			return
		}
		filter.State = state
	}
	if r.URL.Query().Get("active") == "true" {
		filter.ActiveOnly = true
	}
	items, err := api.plans.List(r.Context(), filter)
	if err != nil {
		api.internalError(w, r, "list plans", err)
		return
	}
	out := make([]plan, 0, len(items))
	for _, item := range items {
		out = append(out, toPlan(item))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"plans": out})
}

func (api *plansAPI) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.PathValue("plan_id"))
	if planID == "" {
		api.writeError(w, r, http.StatusBadRequest, "plan_id_required")
		return
	}
	item, err := api.plans.Get(r.Context(), planID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.internalError(w, r, "get plan", err)
		return
	}
	api.writeJSON(w, http.StatusOK, toPlan(item))
}

func (api *plansAPI) handleUpdateNarrative(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.PathValue("plan_id"))
	if planID == "" {
		api.writeError(w, r, http.StatusBadRequest, "plan_id_required")
		return
	}
	var req narrativeRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	current, err := api.plans.Get(r.Context(), planID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.internalError(w, r, "get plan", err)
		return
	}
	current.RootCauseAnalysis = strings.TrimSpace(req.RootCauseAnalysis)
	current.ProposedActions = strings.TrimSpace(req.ProposedActions)
	current.Responsible = strings.TrimSpace(req.Responsible)
	current.ImplementationDate = req.ImplementationDate
	current.TrackingIndicators = strings.TrimSpace(req.TrackingIndicators)
	if err := api.plans.UpdateNarrative(r.Context(), current, req.Version); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			api.writeError(w, r, http.StatusConflict, "version_conflict")
			return
		}
		api.internalError(w, r, "update narrative", err)
		return
	}
	current.Version = req.Version + 1
	api.writeJSON(w, http.StatusOK, toPlan(current))
}

func (api *plansAPI) handleTransition(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.PathValue("plan_id"))
	if planID == "" {
		api.writeError(w, r, http.StatusBadRequest, "plan_id_required")
		return
	}
	actor, ok := api.actorFromRequest(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	target := domain.NormalizeState(req.Target)
	if target == "" {
		api.writeError(w, r, http.StatusBadRequest, "unknown_state")
		return
	}

	updated, err := api.svc.Transition(r.Context(), planID, target, actor, req.Comment, workflow.Fields{
		FilingNumber:       req.FilingNumber,
		RejectionReason:    req.RejectionReason,
		ClarificationNotes: req.ClarificationNotes,
		LetterObjectKey:    req.LetterObjectKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			api.writeError(w, r, http.StatusNotFound, "not_found")
		case errors.Is(err, workflow.ErrIllegalTransition):
			api.writeError(w, r, http.StatusConflict, "illegal_transition")
		case errors.Is(err, workflow.ErrForbidden):
			api.writeError(w, r, http.StatusForbidden, "forbidden")
		case errors.Is(err, workflow.ErrMissingField):
			api.writeError(w, r, http.StatusBadRequest, "missing_field")
		case errors.Is(err, repo.ErrConflict):
			api.writeError(w, r, http.StatusConflict, "version_conflict")
		default:
			api.internalError(w, r, "transition plan", err)
		}
		return
	}
	api.writeJSON(w, http.StatusOK, toPlan(updated))
}

func (api *plansAPI) handleNextStates(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.PathValue("plan_id"))
	if planID == "" {
		api.writeError(w, r, http.StatusBadRequest, "plan_id_required")
		return
	}
	actor, ok := api.actorFromRequest(w, r)
	if !ok {
		return
	}
	states, err := api.svc.NextStates(r.Context(), planID, actor)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.internalError(w, r, "next states", err)
		return
	}
	out := make([]string, 0, len(states))
	for _, state := range states {
		out = append(out, string(state))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"next_states": out})
}

func (api *plansAPI) handleHistory(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.PathValue("plan_id"))
	if planID == "" {
		api.writeError(w, r, http.StatusBadRequest, "plan_id_required")
		return
	}
	if _, err := api.plans.Get(r.Context(), planID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.internalError(w, r, "get plan", err)
		return
	}
	limit := clampInt(parseIntQuery(r, "limit", 100), 1, 500)
	entries, err := api.svc.History(r.Context(), planID, limit)
	if err != nil {
		api.internalError(w, r, "list history", err)
		return
	}
	out := make([]historyEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toHistoryEntry(entry))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (api *plansAPI) handleUploadLetter(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.PathValue("plan_id"))
	if planID == "" {
		api.writeError(w, r, http.StatusBadRequest, "plan_id_required")
		return
	}
	if r.ContentLength > 0 && r.ContentLength > api.uploadMaxBytes {
		api.writeError(w, r, http.StatusRequestEntityTooLarge, "upload_too_large")
		return
	}
	if _, err := api.plans.Get(r.Context(), planID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.internalError(w, r, "get plan", err)
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("letters/%s/%s", planID, uuid.NewString())
	body := io.LimitReader(r.Body, api.uploadMaxBytes)
	if err := api.letters.Put(r.Context(), api.storeCfg.BucketLetters, key, body, r.ContentLength, contentType); err != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_error")
		return
	}
	api.writeJSON(w, http.StatusCreated, map[string]any{"object_key": key})
}

func (api *plansAPI) handleDownloadLetter(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.PathValue("plan_id"))
	if planID == "" {
		api.writeError(w, r, http.StatusBadRequest, "plan_id_required")
		return
	}
	item, err := api.plans.Get(r.Context(), planID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.internalError(w, r, "get plan", err)
		return
	}
	if item.LetterObjectKey == "" {
		api.writeError(w, r, http.StatusNotFound, "letter_not_attached")
		return
	}
	obj, info, err := api.letters.Get(r.Context(), api.storeCfg.BucketLetters, item.LetterObjectKey)
	if err != nil {
		api.writeError(w, r, http.StatusBadGateway, "object_store_error")
		return
	}
	defer obj.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj)
}

func (api *plansAPI) handleRunScan(w http.ResponseWriter, r *http.Request) {
	scan := strings.TrimSpace(r.PathValue("scan"))
	var report workflow.Report
	switch scan {
	case "silence":
		report = api.scanner.ScanSilence(r.Context())
	case "deadlines":
		report = api.scanner.ScanDeadlines(r.Context())
	case "response-days":
		report = api.scanner.ScanResponseCounters(r.Context())
	default:
		api.writeError(w, r, http.StatusNotFound, "unknown_scan")
		return
	}
	failures := make([]string, 0, len(report.Failures))
	for _, failure := range report.Failures {
		failures = append(failures, failure.Error())
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"scan":         scan,
		"scanned":      report.Scanned,
		"transitioned": report.Transitioned,
		"alerted":      report.Alerted,
		"updated":      report.Updated,
		"failures":     failures,
	})
}

// actorFromRequest resolves the workflow actor from the authenticated
// identity. The reserved system role never comes from a request; the
// authorizer has already rejected identities claiming it.
func (api *plansAPI) actorFromRequest(w http.ResponseWriter, r *http.Request) (workflow.Actor, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return workflow.Actor{}, false
	}
	for _, raw := range identity.Roles {
		role, err := domain.ParseHumanRole(raw)
		if err != nil {
			continue
		}
		return workflow.Actor{ID: identity.Subject, Role: role}, true
	}
	api.writeError(w, r, http.StatusForbidden, "no_workflow_role")
	return workflow.Actor{}, false
}

func toSupplier(item domain.Supplier) supplier {
	return supplier{
		SupplierID:     item.ID,
		TaxID:          item.TaxID,
		LegalName:      item.LegalName,
		Email:          item.Email,
		SecondaryEmail: item.SecondaryEmail,
		AccountID:      item.AccountID,
		Active:         item.Active,
		CreatedAt:      item.CreatedAt,
	}
}

func toEvaluation(item domain.Evaluation) evaluation {
	return evaluation{
		EvaluationID:   item.ID,
		SupplierID:     item.SupplierID,
		Period:         item.Period,
		ContractNumber: item.ContractNumber,
		ContractType:   item.ContractType,
		Score:          item.Score,
		EvaluatedAt:    item.EvaluatedAt,
		PlanDeadline:   item.PlanDeadline,
		Observations:   item.Observations,
		CreatedAt:      item.CreatedAt,
	}
}

func toPlan(item domain.Plan) plan {
	return plan{
		PlanID:              item.ID,
		SupplierID:          item.SupplierID,
		EvaluationID:        item.EvaluationID,
		State:               string(item.State),
		Version:             item.Version,
		RootCauseAnalysis:   item.RootCauseAnalysis,
		ProposedActions:     item.ProposedActions,
		Responsible:         item.Responsible,
		ImplementationDate:  item.ImplementationDate,
		TrackingIndicators:  item.TrackingIndicators,
		CreatedAt:           item.CreatedAt,
		SubmittedAt:         item.SubmittedAt,
		Deadline:            item.Deadline,
		LetterObjectKey:     item.LetterObjectKey,
		LetterSentAt:        item.LetterSentAt,
		SentAt:              item.SentAt,
		ReviewedAt:          item.ReviewedAt,
		ReviewedBy:          item.ReviewedBy,
		FilingNumber:        item.FilingNumber,
		FiledAt:             item.FiledAt,
		RejectionReason:     item.RejectionReason,
		ClarificationAt:     item.ClarificationAt,
		ClarificationNotes:  item.ClarificationNotes,
		DaysWithoutResponse: item.DaysWithoutResponse,
		Suspended:           item.Suspended,
		SuspendedAt:         item.SuspendedAt,
		CompletedAt:         item.CompletedAt,
	}
}

func toHistoryEntry(entry domain.AuditEntry) historyEntry {
	payload := map[string]any(entry.Payload)
	if payload == nil {
		payload = map[string]any{}
	}
	return historyEntry{
		EntryID:         entry.ID,
		PlanID:          entry.PlanID,
		PreviousState:   string(entry.PreviousState),
		NewState:        string(entry.NewState),
		Actor:           entry.Actor,
		ActorRole:       string(entry.ActorRole),
		Comment:         entry.Comment,
		OccurredAt:      entry.OccurredAt,
		Payload:         payload,
		IntegritySHA256: entry.IntegritySHA256,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func parseIntQuery(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func (api *plansAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *plansAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func (api *plansAPI) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	api.logger.Error(op, "request_id", r.Header.Get("X-Request-Id"), "error", err)
	api.writeError(w, r, http.StatusInternalServerError, "internal_error")
}
