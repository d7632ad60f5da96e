package models

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

// Status is the production lifecycle, strictly one step at a time.
type Status string

const (
	StatusDraft          Status = "Draft"
	StatusInProgress     Status = "InProgress"
	StatusReadyForReview Status = "ReadyForReview"
	StatusApproved       Status = "Approved"
	StatusDelivered      Status = "Delivered"
	StatusCompleted      Status = "Completed"
)

var nextStatus = map[Status]Status{
	StatusDraft:          StatusInProgress,
	StatusInProgress:     StatusReadyForReview,
	StatusReadyForReview: StatusApproved,
	StatusApproved:       StatusDelivered,
	StatusDelivered:      StatusCompleted,
}

// CanTransitionTo reports whether to is the single next step after s.
func (s Status) CanTransitionTo(to Status) bool {
	return nextStatus[s] == to
}

// AcceptsDocuments reports whether documents may still be numbered.
func (s Status) AcceptsDocuments() bool {
	return s == StatusDraft || s == StatusInProgress
}

const (
	DefaultPadWidth = 7
	MaxPadWidth     = 12
)

var prefixPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,19}$`)

// NormalizePrefix upper-cases and validates a Bates prefix.
func NormalizePrefix(prefix string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	if !prefixPattern.MatchString(p) {
		return "", dErrors.New(dErrors.CodeValidation, "batesPrefix must be 1-20 characters of A-Z, 0-9, '-' or '_'")
	}
	return p, nil
}

// FormatBates renders prefix + zero-padded number.
func FormatBates(prefix string, number int64, padWidth int) string {
	return fmt.Sprintf("%s%0*d", prefix, padWidth, number)
}

// Document is one numbered entry in a production.
type Document struct {
	EvidenceID     id.EvidenceID `json:"evidenceId"`
	EvidenceNumber string        `json:"evidenceNumber,omitempty"`
	BatesNumber    string        `json:"batesNumber"`
	BatesNumeric   int64         `json:"batesNumeric"`
	PageCount      int           `json:"pageCount"`
	Redacted       bool          `json:"redacted"`
	// Withdrawn marks a document clawed back after numbering; its number
	// stays issued.
	Withdrawn bool      `json:"withdrawn"`
	AddedBy   string    `json:"addedBy"`
	AddedAt   time.Time `json:"addedAt"`
}

// Transition is one recorded status change.
type Transition struct {
	From Status    `json:"from"`
	To   Status    `json:"to"`
	By   string    `json:"by"`
	At   time.Time `json:"at"`
}

// Production is a numbered set of documents delivered to a recipient.
//
// Invariants:
//   - Documents[i].BatesNumeric == BatesStartNumber + i (no gaps in a run)
//   - BatesEndNumber == BatesStartNumber + TotalDocuments - 1 once numbered
//   - Numbers are never reused or removed
type Production struct {
	ID               id.ProductionID `json:"id"`
	ProductionNumber string          `json:"productionNumber"`
	CaseID           id.CaseID       `json:"caseId"`
	Name             string          `json:"name"`
	Recipient        string          `json:"recipient,omitempty"`
	BatesPrefix      string          `json:"batesPrefix"`
	BatesStartNumber int64           `json:"batesStartNumber"`
	BatesEndNumber   int64           `json:"batesEndNumber"`
	PadWidth         int             `json:"padWidth"`
	Documents        []Document      `json:"documents"`
	TotalDocuments   int             `json:"totalDocuments"`
	TotalPages       int             `json:"totalPages"`
	Status           Status          `json:"status"`
	Transitions      []Transition    `json:"transitions"`
	CreatedBy        string          `json:"createdBy"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy.
func (p *Production) Clone() *Production {
	if p == nil {
		return nil
	}
	c := *p
	c.Documents = slices.Clone(p.Documents)
	c.Transitions = slices.Clone(p.Transitions)
	return &c
}

// HasDocuments reports whether any number has been issued from this production.
func (p *Production) HasDocuments() bool {
	return p.TotalDocuments > 0
}

// NextNumber is the number the next document would receive.
func (p *Production) NextNumber() int64 {
	return p.BatesStartNumber + int64(p.TotalDocuments)
}

// HasEvidence reports whether evidenceID is already in this production.
func (p *Production) HasEvidence(evidenceID id.EvidenceID) bool {
	return slices.ContainsFunc(p.Documents, func(d Document) bool { return d.EvidenceID == evidenceID })
}

// CanAddDocument checks status only; numbering rules live with the allocator.
func (p *Production) CanAddDocument() error {
	if !p.Status.AcceptsDocuments() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot add documents to a production in %s", p.Status)
	}
	return nil
}

// Rebase moves the start of an unnumbered production.
func (p *Production) Rebase(start int64) error {
	if p.HasDocuments() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot rebase a production that has issued numbers")
	}
	p.BatesStartNumber = start
	return nil
}

// ApplyDocument appends the next numbered document and returns it.
func (p *Production) ApplyDocument(evidenceID id.EvidenceID, evidenceNumber string, pageCount int, redacted bool, by string, now time.Time) Document {
	n := p.NextNumber()
	doc := Document{
		EvidenceID:     evidenceID,
		EvidenceNumber: evidenceNumber,
		BatesNumber:    FormatBates(p.BatesPrefix, n, p.PadWidth),
		BatesNumeric:   n,
		PageCount:      pageCount,
		Redacted:       redacted,
		AddedBy:        by,
		AddedAt:        now,
	}
	p.Documents = append(p.Documents, doc)
	p.TotalDocuments++
	p.TotalPages += pageCount
	p.BatesEndNumber = n
	p.UpdatedAt = now
	return doc
}

// WithdrawEvidence marks documents of evidenceID withdrawn. Returns how many changed.
func (p *Production) WithdrawEvidence(evidenceID id.EvidenceID, now time.Time) int {
	n := 0
	for i := range p.Documents {
		if p.Documents[i].EvidenceID == evidenceID && !p.Documents[i].Withdrawn {
			p.Documents[i].Withdrawn = true
			n++
		}
	}
	if n > 0 {
		p.UpdatedAt = now
	}
	return n
}

// CanTransitionTo checks the one-step lifecycle.
func (p *Production) CanTransitionTo(to Status) error {
	if !p.Status.CanTransitionTo(to) {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot move production from %s to %s", p.Status, to)
	}
	if to == StatusReadyForReview && !p.HasDocuments() {
		return dErrors.New(dErrors.CodeInvalidTransition, "production has no documents")
	}
	return nil
}

func (p *Production) ApplyTransition(to Status, by string, now time.Time) {
	p.Transitions = append(p.Transitions, Transition{From: p.Status, To: to, By: by, At: now})
	p.Status = to
	p.UpdatedAt = now
}

// NewProduction builds an empty Draft production. BatesEndNumber stays 0
// until the first document is numbered.
func NewProduction(productionID id.ProductionID, number string, caseID id.CaseID, name, recipient, prefix string, start int64, padWidth int, createdBy string, now time.Time) (*Production, error) {
	name = strings.TrimSpace(name)
	if caseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "caseId is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if start < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "batesStartNumber must be at least 1")
	}
	if padWidth < 1 || padWidth > MaxPadWidth {
		return nil, dErrors.Newf(dErrors.CodeValidation, "padWidth must be between 1 and %d", MaxPadWidth)
	}
	return &Production{
		ID:               productionID,
		ProductionNumber: number,
		CaseID:           caseID,
		Name:             name,
		Recipient:        strings.TrimSpace(recipient),
		BatesPrefix:      prefix,
		BatesStartNumber: start,
		PadWidth:         padWidth,
		Documents:        []Document{},
		Status:           StatusDraft,
		Transitions:      []Transition{},
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
