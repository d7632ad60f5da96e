// Package storage declares the persistence ports shared by every eDiscovery
// service. A Runner hands the caller a Tx whose stores all read and write
// inside one unit of work: either every change made in fn is committed or
// none is.
package storage

import (
	"context"

	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	hold "evidex/internal/hold/models"
	privilege "evidex/internal/privilege/models"
	production "evidex/internal/production/models"
	"evidex/internal/sequence"
	id "evidex/pkg/domain"
)

// Runner opens units of work.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes every store bound to the same unit of work.
type Tx interface {
	Evidence() EvidenceStore
	Custody() CustodyStore
	Holds() HoldStore
	Privilege() PrivilegeStore
	Productions() ProductionStore
	Sequences() SequenceStore
}

// EvidenceStore persists evidence items.
// GetForUpdate locks the row until the unit of work ends.
type EvidenceStore interface {
	Create(ctx context.Context, item *evidence.Item) error
	Get(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error)
	GetForUpdate(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error)
	Update(ctx context.Context, item *evidence.Item) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*evidence.Item, error)
	ListByHold(ctx context.Context, holdID id.HoldID) ([]*evidence.Item, error)
}

// CustodyStore is append-only. Append fails with ErrConflict when the
// entry's sequence is already taken.
type CustodyStore interface {
	Append(ctx context.Context, entry *custody.Entry) error
	// Last returns nil, nil for an empty ledger.
	Last(ctx context.Context, evidenceID id.EvidenceID) (*custody.Entry, error)
	List(ctx context.Context, evidenceID id.EvidenceID) ([]*custody.Entry, error)
}

type HoldStore interface {
	Create(ctx context.Context, h *hold.Hold) error
	Get(ctx context.Context, holdID id.HoldID) (*hold.Hold, error)
	GetForUpdate(ctx context.Context, holdID id.HoldID) (*hold.Hold, error)
	Update(ctx context.Context, h *hold.Hold) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*hold.Hold, error)
}

type PrivilegeStore interface {
	Create(ctx context.Context, e *privilege.Entry) error
	Get(ctx context.Context, entryID id.PrivilegeEntryID) (*privilege.Entry, error)
	GetForUpdate(ctx context.Context, entryID id.PrivilegeEntryID) (*privilege.Entry, error)
	Update(ctx context.Context, e *privilege.Entry) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*privilege.Entry, error)
	ListByEvidence(ctx context.Context, evidenceID id.EvidenceID) ([]*privilege.Entry, error)
}

type ProductionStore interface {
	Create(ctx context.Context, p *production.Production) error
	Get(ctx context.Context, productionID id.ProductionID) (*production.Production, error)
	GetForUpdate(ctx context.Context, productionID id.ProductionID) (*production.Production, error)
	Update(ctx context.Context, p *production.Production) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]*production.Production, error)
	ListByEvidence(ctx context.Context, evidenceID id.EvidenceID) ([]*production.Production, error)
	// LastIssued is the highest Bates number issued for (case, prefix), or 0.
	LastIssued(ctx context.Context, caseID id.CaseID, prefix string) (int64, error)
	// LockSeries serializes numbering of (case, prefix) until the unit of work ends.
	LockSeries(ctx context.Context, caseID id.CaseID, prefix string) error
}

// SequenceStore backs human-readable numbers.
type SequenceStore interface {
	sequence.Allocator
}
