package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"evidex/internal/casedir"
	"evidex/internal/privilege/models"
	"evidex/internal/privilege/service"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/platform/httputil"
	"evidex/pkg/requestcontext"
)

// Service defines the privilege log operations the handler exposes.
type Service interface {
	LogPrivilege(ctx context.Context, cmd models.LogCommand, loggedBy string) (*models.Entry, error)
	Get(ctx context.Context, entryID id.PrivilegeEntryID) (*models.Entry, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Entry, error)
	Waive(ctx context.Context, entryID id.PrivilegeEntryID, by, reason string) (*models.Entry, error)
	RequestClawback(ctx context.Context, entryID id.PrivilegeEntryID, by, reason string) (*models.Entry, error)
	ResolveClawback(ctx context.Context, entryID id.PrivilegeEntryID, resolution models.ClawbackStatus, by, notes string) (*service.ClawbackResult, error)
}

type Handler struct {
	service   Service
	directory casedir.Directory
	logger    *slog.Logger
}

func New(service Service, directory casedir.Directory, logger *slog.Logger) *Handler {
	return &Handler{service: service, directory: directory, logger: logger}
}

// Register mounts privilege log endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/privilege-log", h.HandleLog)
	r.Get("/cases/{caseID}/privilege-log", h.HandleListByCase)
	r.Get("/privilege-log/{entryID}", h.HandleGet)
	r.Post("/privilege-log/{entryID}/waive", h.HandleWaive)
	r.Post("/privilege-log/{entryID}/clawback", h.HandleRequestClawback)
	r.Post("/privilege-log/{entryID}/clawback/resolve", h.HandleResolveClawback)
}

// LogRequest is the body of POST /cases/{caseID}/privilege-log.
type LogRequest struct {
	EvidenceID    id.EvidenceID `json:"evidenceId"`
	PrivilegeType models.Type   `json:"privilegeType"`
	Basis         string        `json:"basis"`
	Author        string        `json:"author"`
	Recipients    []string      `json:"recipients"`
	DocumentDate  string        `json:"documentDate"`
	Description   string        `json:"description"`
	Withheld      *bool         `json:"withheld"`

	documentDate *time.Time
}

func (r *LogRequest) Validate() error {
	r.DocumentDate = strings.TrimSpace(r.DocumentDate)
	if r.DocumentDate == "" {
		return nil
	}
	d, err := time.Parse(time.DateOnly, r.DocumentDate)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "documentDate must be YYYY-MM-DD")
	}
	r.documentDate = &d
	return nil
}

func (r *LogRequest) Command(caseID id.CaseID) models.LogCommand {
	return models.LogCommand{
		CaseID:        caseID,
		EvidenceID:    r.EvidenceID,
		PrivilegeType: r.PrivilegeType,
		Basis:         r.Basis,
		Author:        r.Author,
		Recipients:    r.Recipients,
		DocumentDate:  r.documentDate,
		Description:   r.Description,
		Withheld:      r.Withheld,
	}
}

// ReasonRequest is the optional body of waive and clawback requests.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// ResolveRequest is the body of POST /privilege-log/{entryID}/clawback/resolve.
type ResolveRequest struct {
	Resolution models.ClawbackStatus `json:"resolution"`
	Notes      string                `json:"notes"`
}

func (r *ResolveRequest) Validate() error {
	if r.Resolution != models.ClawbackGranted && r.Resolution != models.ClawbackDenied {
		return dErrors.Newf(dErrors.CodeValidation, "resolution must be %s or %s", models.ClawbackGranted, models.ClawbackDenied)
	}
	return nil
}

// HandleLog handles POST /cases/{caseID}/privilege-log.
func (h *Handler) HandleLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[LogRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	entry, err := h.service.LogPrivilege(ctx, req.Command(caseID), requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "log privilege", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// HandleListByCase handles GET /cases/{caseID}/privilege-log. With
// ?format=csv it answers the log as a CSV download.
func (h *Handler) HandleListByCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unsupported format %q", format))
		return
	}
	entries, err := h.service.ListByCase(ctx, caseID)
	if err != nil {
		h.fail(ctx, w, "list privilege log", err)
		return
	}
	if format == "csv" {
		err := httputil.WriteCSV(w, "privilege-log-"+caseID.String()+".csv", func(out io.Writer) error {
			return service.WriteCSV(out, entries)
		})
		if err != nil {
			h.logger.ErrorContext(ctx, "privilege log export interrupted",
				"error", err,
				"case_id", caseID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"caseId":    caseID,
		"caseTitle": casedir.Title(h.directory, caseID),
		"entries":   entries,
		"total":     len(entries),
	})
}

// HandleGet handles GET /privilege-log/{entryID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.Get(ctx, entryID)
	if err != nil {
		h.fail(ctx, w, "get privilege entry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// HandleWaive handles POST /privilege-log/{entryID}/waive.
func (h *Handler) HandleWaive(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, "waive privilege", h.service.Waive)
}

// HandleRequestClawback handles POST /privilege-log/{entryID}/clawback.
func (h *Handler) HandleRequestClawback(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, "request clawback", h.service.RequestClawback)
}

// HandleResolveClawback handles POST /privilege-log/{entryID}/clawback/resolve.
func (h *Handler) HandleResolveClawback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.ResolveClawback(ctx, entryID, req.Resolution, requestcontext.Actor(ctx), req.Notes)
	if err != nil {
		h.fail(ctx, w, "resolve clawback", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

type reasonOp func(ctx context.Context, entryID id.PrivilegeEntryID, by, reason string) (*models.Entry, error)

func (h *Handler) withReason(w http.ResponseWriter, r *http.Request, op string, fn reasonOp) {
	ctx := r.Context()
	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeOptionalAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	entry, err := fn(ctx, entryID, requestcontext.Actor(ctx), req.Reason)
	if err != nil {
		h.fail(ctx, w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (id.PrivilegeEntryID, bool) {
	entryID, err := id.ParsePrivilegeEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PrivilegeEntryID{}, false
	}
	return entryID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
