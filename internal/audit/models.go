// Package audit streams committed custody entries to downstream consumers.
// The ledger in the store stays the system of record; publishing is
// best-effort and never fails the operation that produced the entry.
package audit

import (
	"time"

	custody "evidex/internal/custody/models"
	id "evidex/pkg/domain"
)

// EventCustodyAppended is the only event type emitted today.
const EventCustodyAppended = "custody.appended"

// Event is one committed custody entry plus routing context.
type Event struct {
	Type           string        `json:"type"`
	CaseID         id.CaseID     `json:"caseId"`
	EvidenceNumber string        `json:"evidenceNumber,omitempty"`
	RequestID      string        `json:"requestId,omitempty"`
	EmittedAt      time.Time     `json:"emittedAt"`
	Entry          custody.Entry `json:"entry"`
}

// NewCustodyEvent wraps a committed entry.
func NewCustodyEvent(caseID id.CaseID, evidenceNumber, requestID string, entry *custody.Entry, now time.Time) Event {
	return Event{
		Type:           EventCustodyAppended,
		CaseID:         caseID,
		EvidenceNumber: evidenceNumber,
		RequestID:      requestID,
		EmittedAt:      now,
		Entry:          *entry.Clone(),
	}
}

// Key partitions events by evidence item so a ledger stays ordered.
func (e Event) Key() string {
	return e.Entry.EvidenceID.String()
}
