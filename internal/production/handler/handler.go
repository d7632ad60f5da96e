package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"evidex/internal/casedir"
	"evidex/internal/production/models"
	"evidex/internal/production/service"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/platform/httputil"
	"evidex/pkg/requestcontext"
)

// Service defines the production operations the handler exposes.
type Service interface {
	NextBatesNumber(ctx context.Context, caseID id.CaseID, prefix string) (*service.NextNumber, error)
	Create(ctx context.Context, cmd service.CreateCommand, createdBy string) (*models.Production, error)
	Get(ctx context.Context, productionID id.ProductionID) (*models.Production, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Production, error)
	AddDocument(ctx context.Context, productionID id.ProductionID, cmd service.AddDocumentCommand, by string) (*service.AddDocumentResult, error)
	Start(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error)
	SubmitForReview(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error)
	Approve(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error)
	Deliver(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error)
	Complete(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error)
}

// Handler wires production endpoints to the production allocator.
type Handler struct {
	service   Service
	directory casedir.Directory
	logger    *slog.Logger
}

func New(service Service, directory casedir.Directory, logger *slog.Logger) *Handler {
	return &Handler{service: service, directory: directory, logger: logger}
}

// Register mounts production endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/productions", h.HandleCreate)
	r.Get("/cases/{caseID}/productions", h.HandleListByCase)
	r.Get("/cases/{caseID}/bates/next", h.HandleNextBatesNumber)
	r.Route("/productions/{productionID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Get("/index.csv", h.HandleIndex)
		r.Post("/documents", h.HandleAddDocument)
		r.Post("/start", h.transitionHandler("start production", Service.Start))
		r.Post("/submit", h.transitionHandler("submit production", Service.SubmitForReview))
		r.Post("/approve", h.transitionHandler("approve production", Service.Approve))
		r.Post("/deliver", h.transitionHandler("deliver production", Service.Deliver))
		r.Post("/complete", h.transitionHandler("complete production", Service.Complete))
	})
}

// CreateRequest is the body of POST /cases/{caseID}/productions.
type CreateRequest struct {
	Name             string `json:"name"`
	Recipient        string `json:"recipient"`
	BatesPrefix      string `json:"batesPrefix"`
	BatesStartNumber *int64 `json:"batesStartNumber"`
	PadWidth         *int   `json:"padWidth"`
}

func (r *CreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(r.BatesPrefix) == "" {
		return dErrors.New(dErrors.CodeValidation, "batesPrefix is required")
	}
	return nil
}

// AddDocumentRequest is the body of POST /productions/{productionID}/documents.
type AddDocumentRequest struct {
	EvidenceID id.EvidenceID `json:"evidenceId"`
	PageCount  int           `json:"pageCount"`
	Redacted   bool          `json:"redacted"`
}

func (r *AddDocumentRequest) Validate() error {
	if r.EvidenceID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "evidenceId is required")
	}
	if r.PageCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "pageCount cannot be negative")
	}
	return nil
}

// ProductionResponse is a production with the case title from the directory.
type ProductionResponse struct {
	*models.Production
	CaseTitle string `json:"caseTitle,omitempty"`
}

func (h *Handler) productionResponse(p *models.Production) ProductionResponse {
	return ProductionResponse{Production: p, CaseTitle: casedir.Title(h.directory, p.CaseID)}
}

// HandleCreate handles POST /cases/{caseID}/productions.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Create(ctx, service.CreateCommand{
		CaseID:      caseID,
		Name:        req.Name,
		Recipient:   req.Recipient,
		BatesPrefix: req.BatesPrefix,
		StartNumber: req.BatesStartNumber,
		PadWidth:    req.PadWidth,
	}, requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "create production", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.productionResponse(p))
}

// HandleListByCase handles GET /cases/{caseID}/productions.
func (h *Handler) HandleListByCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListByCase(ctx, caseID)
	if err != nil {
		h.fail(ctx, w, "list productions", err)
		return
	}
	out := make([]ProductionResponse, len(list))
	for i, p := range list {
		out[i] = ProductionResponse{Production: p}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"caseId":      caseID,
		"caseTitle":   casedir.Title(h.directory, caseID),
		"productions": out,
		"total":       len(out),
	})
}

// HandleNextBatesNumber handles GET /cases/{caseID}/bates/next?prefix=.
func (h *Handler) HandleNextBatesNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	prefix := r.URL.Query().Get("prefix")
	if strings.TrimSpace(prefix) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "prefix query parameter is required"))
		return
	}
	next, err := h.service.NextBatesNumber(ctx, caseID, prefix)
	if err != nil {
		h.fail(ctx, w, "next bates number", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, next)
}

// HandleGet handles GET /productions/{productionID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productionID, ok := h.productionID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(ctx, productionID)
	if err != nil {
		h.fail(ctx, w, "get production", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.productionResponse(p))
}

// HandleIndex handles GET /productions/{productionID}/index.csv.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productionID, ok := h.productionID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(ctx, productionID)
	if err != nil {
		h.fail(ctx, w, "export production index", err)
		return
	}
	err = httputil.WriteCSV(w, p.ProductionNumber+"-index.csv", func(out io.Writer) error {
		return service.WriteIndex(out, p)
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "production index export interrupted",
			"error", err,
			"production_id", productionID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// HandleAddDocument handles POST /productions/{productionID}/documents.
func (h *Handler) HandleAddDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productionID, ok := h.productionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.AddDocument(ctx, productionID, service.AddDocumentCommand{
		EvidenceID: req.EvidenceID,
		PageCount:  req.PageCount,
		Redacted:   req.Redacted,
	}, requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "add production document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

type transition func(s Service, ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error)

func (h *Handler) transitionHandler(op string, fn transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productionID, ok := h.productionID(w, r)
		if !ok {
			return
		}
		p, err := fn(h.service, ctx, productionID, requestcontext.Actor(ctx))
		if err != nil {
			h.fail(ctx, w, op, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, h.productionResponse(p))
	}
}

func (h *Handler) productionID(w http.ResponseWriter, r *http.Request) (id.ProductionID, bool) {
	productionID, err := id.ParseProductionID(chi.URLParam(r, "productionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProductionID{}, false
	}
	return productionID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
