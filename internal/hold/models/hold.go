package models

import (
	"slices"
	"strings"
	"time"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/email"
)

// Status is the hold lifecycle: Active -> Released, one way.
type Status string

const (
	StatusActive   Status = "Active"
	StatusReleased Status = "Released"
)

// AckMethod records how a custodian acknowledged the hold notice.
type AckMethod string

const (
	AckEmail      AckMethod = "Email"
	AckPortal     AckMethod = "Portal"
	AckSignedForm AckMethod = "SignedForm"
	AckVerbal     AckMethod = "Verbal"
)

func (m AckMethod) IsValid() bool {
	switch m {
	case AckEmail, AckPortal, AckSignedForm, AckVerbal:
		return true
	}
	return false
}

// Custodian is a person bound by the hold notice.
type Custodian struct {
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	AcknowledgedAt        *time.Time `json:"acknowledgedAt,omitempty"`
	AcknowledgementMethod AckMethod  `json:"acknowledgementMethod,omitempty"`
}

func (c Custodian) Acknowledged() bool {
	return c.AcknowledgedAt != nil
}

// Hold is a legal hold notice over a case.
//
// Invariants:
//   - Custodian emails are non-empty and unique, compared case-insensitively
//   - ComplianceRate == acknowledged/total at all times
//   - Released is terminal
type Hold struct {
	ID             id.HoldID   `json:"id"`
	HoldNumber     string      `json:"holdNumber"`
	CaseID         id.CaseID   `json:"caseId"`
	Title          string      `json:"title"`
	Scope          string      `json:"scope"`
	Custodians     []Custodian `json:"custodians"`
	Status         Status      `json:"status"`
	ComplianceRate float64     `json:"complianceRate"`
	IssuedBy       string      `json:"issuedBy"`
	IssuedAt       time.Time   `json:"issuedAt"`
	ReleasedBy     string      `json:"releasedBy,omitempty"`
	ReleasedAt     *time.Time  `json:"releasedAt,omitempty"`
	ReleaseReason  string      `json:"releaseReason,omitempty"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// NewHold validates custodians and builds an Active hold.
func NewHold(holdID id.HoldID, number string, caseID id.CaseID, title, scope string, custodians []Custodian, issuedBy string, now time.Time) (*Hold, error) {
	if caseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "caseId is required")
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "scope is required")
	}
	if len(custodians) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one custodian is required")
	}

	seen := make(map[string]struct{}, len(custodians))
	normalized := make([]Custodian, 0, len(custodians))
	for _, c := range custodians {
		addr := email.Normalize(c.Email)
		if !email.LooksValid(addr) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "invalid custodian email %q", c.Email)
		}
		if _, dup := seen[addr]; dup {
			return nil, dErrors.Newf(dErrors.CodeValidation, "duplicate custodian email %q", c.Email)
		}
		seen[addr] = struct{}{}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = email.DisplayName(addr)
		}
		normalized = append(normalized, Custodian{Name: name, Email: addr})
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = number
	}
	return &Hold{
		ID:         holdID,
		HoldNumber: number,
		CaseID:     caseID,
		Title:      title,
		Scope:      scope,
		Custodians: normalized,
		Status:     StatusActive,
		IssuedBy:   issuedBy,
		IssuedAt:   now,
		UpdatedAt:  now,
	}, nil
}

func (h *Hold) IsActive() bool {
	return h.Status == StatusActive
}

// Clone returns a deep copy.
func (h *Hold) Clone() *Hold {
	if h == nil {
		return nil
	}
	c := *h
	c.Custodians = slices.Clone(h.Custodians)
	for i := range c.Custodians {
		if t := c.Custodians[i].AcknowledgedAt; t != nil {
			v := *t
			c.Custodians[i].AcknowledgedAt = &v
		}
	}
	if h.ReleasedAt != nil {
		v := *h.ReleasedAt
		c.ReleasedAt = &v
	}
	return &c
}

// AcknowledgedCount is the number of custodians who acknowledged.
func (h *Hold) AcknowledgedCount() int {
	n := 0
	for _, c := range h.Custodians {
		if c.Acknowledged() {
			n++
		}
	}
	return n
}

func (h *Hold) recomputeCompliance() {
	if len(h.Custodians) == 0 {
		h.ComplianceRate = 0
		return
	}
	h.ComplianceRate = float64(h.AcknowledgedCount()) / float64(len(h.Custodians))
}

// Acknowledge marks the custodian with addr as acknowledged. Returns false
// when they already had; the first acknowledgement time and method are kept.
func (h *Hold) Acknowledge(addr string, method AckMethod, now time.Time) (bool, error) {
	if !h.IsActive() {
		return false, dErrors.New(dErrors.CodeInvalidTransition, "hold has been released")
	}
	if !method.IsValid() {
		return false, dErrors.Newf(dErrors.CodeValidation, "invalid acknowledgement method %q", method)
	}
	addr = email.Normalize(addr)
	for i := range h.Custodians {
		if h.Custodians[i].Email != addr {
			continue
		}
		if h.Custodians[i].Acknowledged() {
			return false, nil
		}
		t := now
		h.Custodians[i].AcknowledgedAt = &t
		h.Custodians[i].AcknowledgementMethod = method
		h.recomputeCompliance()
		h.UpdatedAt = now
		return true, nil
	}
	return false, dErrors.New(dErrors.CodeNotFound, "custodian is not on this hold")
}

// CanRelease allows Active -> Released.
func (h *Hold) CanRelease() error {
	if !h.IsActive() {
		return dErrors.New(dErrors.CodeInvalidTransition, "hold is already released")
	}
	return nil
}

func (h *Hold) ApplyRelease(by, reason string, now time.Time) {
	h.Status = StatusReleased
	h.ReleasedBy = by
	h.ReleaseReason = strings.TrimSpace(reason)
	t := now
	h.ReleasedAt = &t
	h.UpdatedAt = now
}
