// Package processing runs evidence items through processing as a best-effort
// batch. Items are fanned out over a bounded worker group; one item failing
// never stops the others.
package processing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	evidence "evidex/internal/evidence/models"
	"evidex/internal/platform/metrics"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
)

const (
	defaultConcurrency = 8
	defaultItemTimeout = 30 * time.Second
	// MaxBatchSize caps the number of distinct ids in one run.
	MaxBatchSize = 500
)

var tracer = otel.Tracer("evidex/processing")

// Command describes how every item in a batch is processed.
type Command struct {
	ProcessingType string
	ProcessedBy    string
	ExtractText    bool
}

func (c *Command) normalize() {
	c.ProcessingType = strings.TrimSpace(c.ProcessingType)
	c.ProcessedBy = strings.TrimSpace(c.ProcessedBy)
}

func (c Command) validate() error {
	if c.ProcessingType == "" {
		return dErrors.New(dErrors.CodeValidation, "processingType is required")
	}
	if c.ProcessedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "processedBy is required")
	}
	return nil
}

// Processor processes one item in its own unit of work.
type Processor interface {
	ProcessItem(ctx context.Context, evidenceID id.EvidenceID, cmd Command) (*evidence.Item, error)
}

// ItemError reports why one item was not processed. EvidenceID echoes the
// submitted value when it could not be parsed.
type ItemError struct {
	EvidenceID string `json:"evidenceId"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Result is the batch outcome. Items keep the order of the request.
type Result struct {
	Processed      int              `json:"processed"`
	Failed         int              `json:"failed"`
	ProcessedItems []*evidence.Item `json:"processedItems"`
	Errors         []ItemError      `json:"errors"`
}

// Pipeline fans items out to a Processor.
type Pipeline struct {
	processor   Processor
	concurrency int
	itemTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Pipeline)

// WithConcurrency bounds how many items are processed at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithItemTimeout bounds each item, including its content store calls.
func WithItemTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.itemTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(processor Processor, opts ...Option) *Pipeline {
	p := &Pipeline{
		processor:   processor,
		concurrency: defaultConcurrency,
		itemTimeout: defaultItemTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// slot is one entry of the batch. Entries that failed to parse carry their
// error up front and never reach the processor.
type slot struct {
	raw        string
	evidenceID id.EvidenceID
	item       *evidence.Item
	err        error
}

// Run processes every distinct id. The returned error is non-nil only when the
// batch itself is malformed; per-item failures, including ids that do not
// parse, are in Result.Errors.
func (p *Pipeline) Run(ctx context.Context, ids []string, cmd Command) (*Result, error) {
	cmd.normalize()
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "evidenceIds must not be empty")
	}
	if len(ids) > MaxBatchSize {
		return nil, dErrors.Newf(dErrors.CodeValidation, "at most %d evidence items per batch", MaxBatchSize)
	}
	slots := parseSlots(ids)

	ctx, span := tracer.Start(ctx, "processing.Run", trace.WithAttributes(
		attribute.Int("processing.items", len(slots)),
		attribute.String("processing.type", cmd.ProcessingType),
	))
	defer span.End()

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range slots {
		if slots[i].err != nil {
			p.count("failed")
			continue
		}
		g.Go(func() error {
			slots[i].item, slots[i].err = p.runOne(ctx, slots[i].evidenceID, cmd)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{ProcessedItems: []*evidence.Item{}, Errors: []ItemError{}}
	for _, sl := range slots {
		if sl.err != nil {
			res.Failed++
			res.Errors = append(res.Errors, itemError(sl.raw, sl.err))
			continue
		}
		res.Processed++
		res.ProcessedItems = append(res.ProcessedItems, sl.item)
	}
	span.SetAttributes(
		attribute.Int("processing.processed", res.Processed),
		attribute.Int("processing.failed", res.Failed),
	)
	if p.logger != nil {
		p.logger.InfoContext(ctx, "processing batch finished",
			"processing_type", cmd.ProcessingType,
			"processed", res.Processed,
			"failed", res.Failed,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return res, nil
}

func (p *Pipeline) runOne(ctx context.Context, evidenceID id.EvidenceID, cmd Command) (*evidence.Item, error) {
	if err := ctx.Err(); err != nil {
		p.count("failed")
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "batch cancelled before the item was processed")
	}
	itemCtx, cancel := context.WithTimeout(ctx, p.itemTimeout)
	defer cancel()

	item, err := p.processor.ProcessItem(itemCtx, evidenceID, cmd)
	if err != nil {
		if itemCtx.Err() != nil && !dErrors.HasCode(err, dErrors.CodeTimeout) {
			err = dErrors.Wrap(err, dErrors.CodeTimeout, "processing timed out")
		}
		p.count("failed")
		if p.logger != nil {
			p.logger.WarnContext(ctx, "evidence processing failed",
				"evidence_id", evidenceID.String(),
				"code", string(dErrors.CodeOf(err)),
				"error", err,
			)
		}
		return nil, err
	}
	p.count("processed")
	return item, nil
}

func (p *Pipeline) count(result string) {
	if p.metrics != nil {
		p.metrics.IncProcessing(result)
	}
}

func itemError(evidenceID string, err error) ItemError {
	code := dErrors.CodeOf(err)
	msg := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal {
		msg = "internal error"
	}
	return ItemError{EvidenceID: evidenceID, Code: string(code), Message: msg}
}

// parseSlots keeps request order. A valid id is processed once however often
// it repeats; every blank or malformed entry is reported on its own.
func parseSlots(ids []string) []slot {
	seen := make(map[id.EvidenceID]struct{}, len(ids))
	slots := make([]slot, 0, len(ids))
	for _, raw := range ids {
		raw = strings.TrimSpace(raw)
		evidenceID, err := id.ParseEvidenceID(raw)
		if err != nil {
			slots = append(slots, slot{raw: raw, err: err})
			continue
		}
		if _, ok := seen[evidenceID]; ok {
			continue
		}
		seen[evidenceID] = struct{}{}
		slots = append(slots, slot{raw: evidenceID.String(), evidenceID: evidenceID})
	}
	return slots
}
