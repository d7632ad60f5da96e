package models

import (
	"slices"
	"strings"
	"time"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

// Type is the privilege asserted over a document.
type Type string

const (
	TypeAttorneyClient         Type = "AttorneyClient"
	TypeWorkProduct            Type = "WorkProduct"
	TypeTradeSecret            Type = "TradeSecret"
	TypeSettlementNegotiations Type = "SettlementNegotiations"
	TypeJointDefense           Type = "JointDefense"
	TypeOther                  Type = "Other"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeAttorneyClient, TypeWorkProduct, TypeTradeSecret,
		TypeSettlementNegotiations, TypeJointDefense, TypeOther:
		return true
	}
	return false
}

// ClawbackStatus tracks a request to retrieve a produced privileged document.
type ClawbackStatus string

const (
	ClawbackNone      ClawbackStatus = "None"
	ClawbackRequested ClawbackStatus = "Requested"
	ClawbackGranted   ClawbackStatus = "Granted"
	ClawbackDenied    ClawbackStatus = "Denied"
)

// NoteKind labels an entry in the note history.
type NoteKind string

const (
	NoteLogged           NoteKind = "Logged"
	NoteWaived           NoteKind = "Waived"
	NoteClawbackRequest  NoteKind = "ClawbackRequested"
	NoteClawbackResolved NoteKind = "ClawbackResolved"
)

// Note is one append-only history line.
type Note struct {
	Kind NoteKind  `json:"kind"`
	By   string    `json:"by"`
	At   time.Time `json:"at"`
	Text string    `json:"text,omitempty"`
}

// Entry is one privilege log line.
//
// Invariants:
//   - Waived implies !Withheld
//   - Notes only grow
type Entry struct {
	ID             id.PrivilegeEntryID `json:"id"`
	EntryNumber    string              `json:"entryNumber"`
	CaseID         id.CaseID           `json:"caseId"`
	EvidenceID     id.EvidenceID       `json:"evidenceId"`
	EvidenceNumber string              `json:"evidenceNumber,omitempty"`
	PrivilegeType  Type                `json:"privilegeType"`
	Basis          string              `json:"basis"`
	Author         string              `json:"author,omitempty"`
	Recipients     []string            `json:"recipients"`
	DocumentDate   *time.Time          `json:"documentDate,omitempty"`
	Description    string              `json:"description,omitempty"`
	Withheld       bool                `json:"withheld"`
	Waived         bool                `json:"waived"`
	ClawbackStatus ClawbackStatus      `json:"clawbackStatus"`
	Notes          []Note              `json:"notes"`
	LoggedBy       string              `json:"loggedBy"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Recipients = slices.Clone(e.Recipients)
	c.Notes = slices.Clone(e.Notes)
	if e.DocumentDate != nil {
		d := *e.DocumentDate
		c.DocumentDate = &d
	}
	return &c
}

func (e *Entry) addNote(kind NoteKind, by, text string, now time.Time) {
	e.Notes = append(e.Notes, Note{Kind: kind, By: by, At: now, Text: strings.TrimSpace(text)})
	e.UpdatedAt = now
}

// CanWaive rejects a second waiver; state is left untouched.
func (e *Entry) CanWaive() error {
	if e.Waived {
		return dErrors.New(dErrors.CodeInvalidTransition, "privilege has already been waived")
	}
	if e.ClawbackStatus == ClawbackRequested {
		return dErrors.New(dErrors.CodeInvalidTransition, "resolve the pending clawback before waiving")
	}
	return nil
}

func (e *Entry) ApplyWaive(by, reason string, now time.Time) {
	e.Waived = true
	e.Withheld = false
	e.addNote(NoteWaived, by, reason, now)
}

// CanRequestClawback allows None|Denied -> Requested on unwaived entries.
func (e *Entry) CanRequestClawback() error {
	if e.Waived {
		return dErrors.New(dErrors.CodeInvalidTransition, "waived privilege cannot be clawed back")
	}
	if e.ClawbackStatus != ClawbackNone && e.ClawbackStatus != ClawbackDenied {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "clawback is already %s", e.ClawbackStatus)
	}
	return nil
}

func (e *Entry) ApplyClawbackRequest(by, reason string, now time.Time) {
	e.ClawbackStatus = ClawbackRequested
	e.addNote(NoteClawbackRequest, by, reason, now)
}

// CanResolveClawback allows Requested -> Granted|Denied.
func (e *Entry) CanResolveClawback(resolution ClawbackStatus) error {
	if resolution != ClawbackGranted && resolution != ClawbackDenied {
		return dErrors.Newf(dErrors.CodeValidation, "resolution must be %s or %s", ClawbackGranted, ClawbackDenied)
	}
	if e.ClawbackStatus != ClawbackRequested {
		return dErrors.New(dErrors.CodeInvalidTransition, "no clawback request is pending")
	}
	return nil
}

// ApplyClawbackResolution records the outcome. A grant re-withholds the document.
func (e *Entry) ApplyClawbackResolution(resolution ClawbackStatus, by, notes string, now time.Time) {
	e.ClawbackStatus = resolution
	if resolution == ClawbackGranted {
		e.Withheld = true
	}
	text := string(resolution)
	if n := strings.TrimSpace(notes); n != "" {
		text += ": " + n
	}
	e.addNote(NoteClawbackResolved, by, text, now)
}

// LogCommand is the input to LogPrivilege.
type LogCommand struct {
	CaseID        id.CaseID
	EvidenceID    id.EvidenceID
	PrivilegeType Type
	Basis         string
	Author        string
	Recipients    []string
	DocumentDate  *time.Time
	Description   string
	// Withheld defaults to true when nil.
	Withheld *bool
}

// Validate rejects malformed input before any write.
func (c *LogCommand) Validate() error {
	if c.CaseID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "caseId is required")
	}
	if c.EvidenceID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "evidenceId is required")
	}
	if !c.PrivilegeType.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid privilegeType %q", c.PrivilegeType)
	}
	if strings.TrimSpace(c.Basis) == "" {
		return dErrors.New(dErrors.CodeValidation, "basis is required")
	}
	if len(c.Basis) > 2000 || len(c.Description) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "basis and description must be 2000 characters or less")
	}
	if len(c.Recipients) > 200 {
		return dErrors.New(dErrors.CodeValidation, "too many recipients")
	}
	return nil
}

// NewEntry builds a log line from a validated command. Withheld defaults to
// true; the first note records who logged it.
func NewEntry(entryID id.PrivilegeEntryID, number string, c LogCommand, evidenceNumber, loggedBy string, now time.Time) *Entry {
	withheld := true
	if c.Withheld != nil {
		withheld = *c.Withheld
	}
	recipients := make([]string, 0, len(c.Recipients))
	for _, r := range c.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	e := &Entry{
		ID:             entryID,
		EntryNumber:    number,
		CaseID:         c.CaseID,
		EvidenceID:     c.EvidenceID,
		EvidenceNumber: evidenceNumber,
		PrivilegeType:  c.PrivilegeType,
		Basis:          strings.TrimSpace(c.Basis),
		Author:         strings.TrimSpace(c.Author),
		Recipients:     recipients,
		DocumentDate:   c.DocumentDate,
		Description:    strings.TrimSpace(c.Description),
		Withheld:       withheld,
		ClawbackStatus: ClawbackNone,
		LoggedBy:       loggedBy,
		CreatedAt:      now,
	}
	e.addNote(NoteLogged, loggedBy, "", now)
	return e
}
