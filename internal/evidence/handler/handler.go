package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evidex/internal/casedir"
	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	"evidex/internal/evidence/processing"
	"evidex/internal/evidence/service"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/platform/httputil"
	"evidex/pkg/requestcontext"
)

// Service defines the evidence operations the handler exposes.
type Service interface {
	Collect(ctx context.Context, cmd evidence.CollectCommand, collectedBy string) (*evidence.Item, error)
	Get(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*evidence.Item, error)
	Process(ctx context.Context, ids []string, cmd processing.Command) (*processing.Result, error)
	Tag(ctx context.Context, evidenceID id.EvidenceID, cmd evidence.TagCommand) (*evidence.Item, error)
	Preserve(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error)
	Verify(ctx context.Context, evidenceID id.EvidenceID, expectedSHA256, by, notes string) (*evidence.Item, error)
	MarkReadyForReview(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error)
	Transfer(ctx context.Context, evidenceID id.EvidenceID, cmd service.TransferCommand, by string) (*evidence.Item, error)
	Archive(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error)
	Delete(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error)
	PlaceOnHold(ctx context.Context, evidenceID id.EvidenceID, holdID id.HoldID, by string) (*evidence.Item, error)
	ReleaseHold(ctx context.Context, evidenceID id.EvidenceID, holdID id.HoldID, by string) (*evidence.Item, error)
	Custody(ctx context.Context, evidenceID id.EvidenceID) ([]*custody.Entry, error)
	VerifyCustody(ctx context.Context, evidenceID id.EvidenceID) (custody.Verification, error)
}

// Handler wires evidence endpoints to the evidence service.
type Handler struct {
	service   Service
	directory casedir.Directory
	logger    *slog.Logger
}

// New constructs an evidence handler. directory may be nil.
func New(service Service, directory casedir.Directory, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		directory: directory,
		logger:    logger,
	}
}

// Register mounts evidence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/evidence", h.HandleCollect)
	r.Get("/cases/{caseID}/evidence", h.HandleListByCase)
	r.Post("/evidence/process", h.HandleProcess)
	r.Route("/evidence/{evidenceID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Delete("/", h.HandleDelete)
		r.Post("/tags", h.HandleTag)
		r.Post("/preserve", h.HandlePreserve)
		r.Post("/verify", h.HandleVerify)
		r.Post("/ready-for-review", h.HandleReadyForReview)
		r.Post("/transfer", h.HandleTransfer)
		r.Post("/archive", h.HandleArchive)
		r.Post("/holds", h.HandlePlaceOnHold)
		r.Delete("/holds/{holdID}", h.HandleReleaseHold)
		r.Get("/custody", h.HandleCustody)
		r.Get("/custody/verify", h.HandleVerifyCustody)
	})
}

// HandleCollect handles POST /cases/{caseID}/evidence.
func (h *Handler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CollectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	item, err := h.service.Collect(ctx, req.Command(caseID), requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "collect evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, itemResponse(h.directory, item))
}

// HandleListByCase handles GET /cases/{caseID}/evidence.
func (h *Handler) HandleListByCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	items, err := h.service.ListByCase(ctx, caseID)
	if err != nil {
		h.fail(ctx, w, "list evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(h.directory, caseID, items))
}

// HandleProcess handles POST /evidence/process. The batch is best effort:
// a batch with failed items answers 207 with the same counts and errors.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ProcessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.Process(ctx, req.EvidenceIDs, processing.Command{
		ProcessingType: req.ProcessingType,
		ProcessedBy:    requestcontext.Actor(ctx),
		ExtractText:    req.ExtractText,
	})
	if err != nil {
		h.fail(ctx, w, "process evidence", err)
		return
	}
	status := http.StatusOK
	if res.Failed > 0 {
		status = httputil.StatusFor(dErrors.CodePartialBatchFailure)
	}
	httputil.WriteJSON(w, status, res)
}

// HandleGet handles GET /evidence/{evidenceID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	item, err := h.service.Get(ctx, evidenceID)
	if err != nil {
		h.fail(ctx, w, "get evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, itemResponse(h.directory, item))
}

// HandleTag handles POST /evidence/{evidenceID}/tags.
func (h *Handler) HandleTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TagRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	item, err := h.service.Tag(ctx, evidenceID, req.Command())
	if err != nil {
		h.fail(ctx, w, "tag evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, itemResponse(h.directory, item))
}

// HandlePreserve handles POST /evidence/{evidenceID}/preserve.
func (h *Handler) HandlePreserve(w http.ResponseWriter, r *http.Request) {
	h.withNotes(w, r, "preserve evidence", h.service.Preserve)
}

// HandleReadyForReview handles POST /evidence/{evidenceID}/ready-for-review.
func (h *Handler) HandleReadyForReview(w http.ResponseWriter, r *http.Request) {
	h.withNotes(w, r, "mark evidence ready for review", h.service.MarkReadyForReview)
}

// HandleArchive handles POST /evidence/{evidenceID}/archive.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.withNotes(w, r, "archive evidence", h.service.Archive)
}

// HandleDelete handles DELETE /evidence/{evidenceID}. Items under any legal
// hold are refused.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.withNotes(w, r, "delete evidence", h.service.Delete)
}

// HandleVerify handles POST /evidence/{evidenceID}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeOptionalAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	item, err := h.service.Verify(ctx, evidenceID, req.ExpectedSHA256, requestcontext.Actor(ctx), req.Notes)
	if err != nil {
		h.fail(ctx, w, "verify evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, itemResponse(h.directory, item))
}

// HandleTransfer handles POST /evidence/{evidenceID}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	item, err := h.service.Transfer(ctx, evidenceID, req.Command(), requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "transfer evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, itemResponse(h.directory, item))
}

// HandlePlaceOnHold handles POST /evidence/{evidenceID}/holds.
func (h *Handler) HandlePlaceOnHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PlaceHoldRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	item, err := h.service.PlaceOnHold(ctx, evidenceID, req.HoldID, requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "place evidence on hold", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, itemResponse(h.directory, item))
}

// HandleReleaseHold handles DELETE /evidence/{evidenceID}/holds/{holdID}.
func (h *Handler) HandleReleaseHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	holdID, err := id.ParseHoldID(chi.URLParam(r, "holdID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.service.ReleaseHold(ctx, evidenceID, holdID, requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "release evidence hold", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, itemResponse(h.directory, item))
}

// HandleCustody handles GET /evidence/{evidenceID}/custody.
func (h *Handler) HandleCustody(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Custody(ctx, evidenceID)
	if err != nil {
		h.fail(ctx, w, "read custody", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CustodyResponse{
		EvidenceID: evidenceID,
		Entries:    entries,
		Total:      len(entries),
	})
}

// HandleVerifyCustody handles GET /evidence/{evidenceID}/custody/verify.
func (h *Handler) HandleVerifyCustody(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	v, err := h.service.VerifyCustody(ctx, evidenceID)
	if err != nil {
		h.fail(ctx, w, "verify custody", err)
		return
	}
	if !v.Valid {
		h.logger.ErrorContext(ctx, "custody chain broken",
			"evidence_id", evidenceID.String(),
			"broken_at", v.BrokenAt,
			"reason", v.Reason,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

type notesOp func(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error)

func (h *Handler) withNotes(w http.ResponseWriter, r *http.Request, op string, fn notesOp) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeOptionalAndPrepare[NotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	item, err := fn(ctx, evidenceID, requestcontext.Actor(ctx), req.Notes)
	if err != nil {
		h.fail(ctx, w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, itemResponse(h.directory, item))
}

func (h *Handler) evidenceID(w http.ResponseWriter, r *http.Request) (id.EvidenceID, bool) {
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EvidenceID{}, false
	}
	return evidenceID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
