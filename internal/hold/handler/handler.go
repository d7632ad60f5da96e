package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"evidex/internal/casedir"
	"evidex/internal/hold/models"
	"evidex/internal/hold/service"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/platform/httputil"
	"evidex/pkg/requestcontext"
)

// Service defines the legal hold operations the handler exposes.
type Service interface {
	Issue(ctx context.Context, cmd service.IssueCommand, issuedBy string) (*models.Hold, error)
	Get(ctx context.Context, holdID id.HoldID) (*models.Hold, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Hold, error)
	Acknowledge(ctx context.Context, holdID id.HoldID, custodianEmail string, method models.AckMethod) (*models.Hold, error)
	Release(ctx context.Context, holdID id.HoldID, releasedBy, reason string) (*models.Hold, error)
	AddEvidence(ctx context.Context, holdID id.HoldID, evidenceIDs []id.EvidenceID, by string) (*service.AddEvidenceResult, error)
}

// Handler wires legal hold endpoints to the hold service.
type Handler struct {
	service   Service
	directory casedir.Directory
	logger    *slog.Logger
}

func New(service Service, directory casedir.Directory, logger *slog.Logger) *Handler {
	return &Handler{service: service, directory: directory, logger: logger}
}

// Register mounts legal hold endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/holds", h.HandleIssue)
	r.Get("/cases/{caseID}/holds", h.HandleListByCase)
	r.Get("/holds/{holdID}", h.HandleGet)
	r.Post("/holds/{holdID}/acknowledgements", h.HandleAcknowledge)
	r.Post("/holds/{holdID}/release", h.HandleRelease)
	r.Post("/holds/{holdID}/evidence", h.HandleAddEvidence)
}

// IssueRequest is the body of POST /cases/{caseID}/holds.
type IssueRequest struct {
	Title      string             `json:"title"`
	Scope      string             `json:"scope"`
	Custodians []models.Custodian `json:"custodians"`
}

func (r *IssueRequest) Validate() error {
	if len(r.Custodians) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one custodian is required")
	}
	for _, c := range r.Custodians {
		if c.AcknowledgedAt != nil || c.AcknowledgementMethod != "" {
			return dErrors.New(dErrors.CodeValidation, "custodians cannot be issued pre-acknowledged")
		}
	}
	return nil
}

// AcknowledgeRequest is the body of POST /holds/{holdID}/acknowledgements.
type AcknowledgeRequest struct {
	Email  string           `json:"email"`
	Method models.AckMethod `json:"method"`
}

func (r *AcknowledgeRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Method != "" && !r.Method.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid acknowledgement method %q", r.Method)
	}
	return nil
}

// ReleaseRequest is the optional body of POST /holds/{holdID}/release.
type ReleaseRequest struct {
	Reason string `json:"reason"`
}

func (r *ReleaseRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// AddEvidenceRequest is the body of POST /holds/{holdID}/evidence.
type AddEvidenceRequest struct {
	EvidenceIDs []id.EvidenceID `json:"evidenceIds"`
}

func (r *AddEvidenceRequest) Validate() error {
	if len(r.EvidenceIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "evidenceIds is required")
	}
	return nil
}

// HoldResponse is a hold with the case title from the directory.
type HoldResponse struct {
	*models.Hold
	CaseTitle string `json:"caseTitle,omitempty"`
}

func (h *Handler) holdResponse(hold *models.Hold) HoldResponse {
	return HoldResponse{Hold: hold, CaseTitle: casedir.Title(h.directory, hold.CaseID)}
}

// HandleIssue handles POST /cases/{caseID}/holds.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	hold, err := h.service.Issue(ctx, service.IssueCommand{
		CaseID:     caseID,
		Title:      req.Title,
		Scope:      req.Scope,
		Custodians: req.Custodians,
	}, requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "issue hold", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.holdResponse(hold))
}

// HandleListByCase handles GET /cases/{caseID}/holds.
func (h *Handler) HandleListByCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holds, err := h.service.ListByCase(ctx, caseID)
	if err != nil {
		h.fail(ctx, w, "list holds", err)
		return
	}
	out := make([]HoldResponse, len(holds))
	for i, hold := range holds {
		out[i] = HoldResponse{Hold: hold}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"caseId":    caseID,
		"caseTitle": casedir.Title(h.directory, caseID),
		"holds":     out,
		"total":     len(out),
	})
}

// HandleGet handles GET /holds/{holdID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holdID, ok := h.holdID(w, r)
	if !ok {
		return
	}
	hold, err := h.service.Get(ctx, holdID)
	if err != nil {
		h.fail(ctx, w, "get hold", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.holdResponse(hold))
}

// HandleAcknowledge handles POST /holds/{holdID}/acknowledgements. Repeat
// acknowledgements succeed without changing the hold.
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holdID, ok := h.holdID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AcknowledgeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	hold, err := h.service.Acknowledge(ctx, holdID, req.Email, req.Method)
	if err != nil {
		h.fail(ctx, w, "acknowledge hold", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.holdResponse(hold))
}

// HandleRelease handles POST /holds/{holdID}/release.
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holdID, ok := h.holdID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeOptionalAndPrepare[ReleaseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	hold, err := h.service.Release(ctx, holdID, requestcontext.Actor(ctx), req.Reason)
	if err != nil {
		h.fail(ctx, w, "release hold", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.holdResponse(hold))
}

// HandleAddEvidence handles POST /holds/{holdID}/evidence. The batch is all or
// nothing.
func (h *Handler) HandleAddEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holdID, ok := h.holdID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddEvidenceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.AddEvidence(ctx, holdID, req.EvidenceIDs, requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "add evidence to hold", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) holdID(w http.ResponseWriter, r *http.Request) (id.HoldID, bool) {
	holdID, err := id.ParseHoldID(chi.URLParam(r, "holdID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.HoldID{}, false
	}
	return holdID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
