package memory

import (
	"context"
	"fmt"
	"slices"

	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	hold "evidex/internal/hold/models"
	privilege "evidex/internal/privilege/models"
	production "evidex/internal/production/models"
	"evidex/internal/sequence"
	id "evidex/pkg/domain"
	"evidex/pkg/platform/sentinel"
)

type evidenceStore struct{ tx *memTx }

func (s evidenceStore) Create(_ context.Context, item *evidence.Item) error {
	if s.tx.items.has(item.ID) {
		return fmt.Errorf("evidence %s: %w", item.ID, sentinel.ErrConflict)
	}
	dup := false
	s.tx.items.each(func(v *evidence.Item) {
		if v.EvidenceNumber == item.EvidenceNumber {
			dup = true
		}
	})
	if dup {
		return fmt.Errorf("evidence number %s: %w", item.EvidenceNumber, sentinel.ErrConflict)
	}
	s.tx.items.put(item.ID, item)
	return nil
}

func (s evidenceStore) Get(_ context.Context, evidenceID id.EvidenceID) (*evidence.Item, error) {
	item, ok := s.tx.items.get(evidenceID)
	if !ok {
		return nil, fmt.Errorf("evidence %s: %w", evidenceID, sentinel.ErrNotFound)
	}
	return item, nil
}

// GetForUpdate is Get: the store mutex already serializes units of work.
func (s evidenceStore) GetForUpdate(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error) {
	return s.Get(ctx, evidenceID)
}

func (s evidenceStore) Update(_ context.Context, item *evidence.Item) error {
	if !s.tx.items.has(item.ID) {
		return fmt.Errorf("evidence %s: %w", item.ID, sentinel.ErrNotFound)
	}
	s.tx.items.put(item.ID, item)
	return nil
}

func (s evidenceStore) ListByCase(_ context.Context, caseID id.CaseID) ([]*evidence.Item, error) {
	return s.tx.items.filter(func(v *evidence.Item) bool { return v.CaseID == caseID }), nil
}

func (s evidenceStore) ListByHold(_ context.Context, holdID id.HoldID) ([]*evidence.Item, error) {
	return s.tx.items.filter(func(v *evidence.Item) bool { return v.HasHold(holdID) }), nil
}

type custodyStore struct{ tx *memTx }

func (s custodyStore) entries(evidenceID id.EvidenceID) []*custody.Entry {
	committed := s.tx.store.custody[evidenceID]
	staged := s.tx.custody[evidenceID]
	return append(slices.Clip(committed), staged...)
}

func (s custodyStore) Append(_ context.Context, entry *custody.Entry) error {
	existing := s.entries(entry.EvidenceID)
	if entry.Sequence != len(existing)+1 {
		return fmt.Errorf("custody %s sequence %d: %w", entry.EvidenceID, entry.Sequence, sentinel.ErrConflict)
	}
	s.tx.custody[entry.EvidenceID] = append(s.tx.custody[entry.EvidenceID], entry.Clone())
	return nil
}

func (s custodyStore) Last(_ context.Context, evidenceID id.EvidenceID) (*custody.Entry, error) {
	existing := s.entries(evidenceID)
	if len(existing) == 0 {
		return nil, nil
	}
	return existing[len(existing)-1].Clone(), nil
}

func (s custodyStore) List(_ context.Context, evidenceID id.EvidenceID) ([]*custody.Entry, error) {
	existing := s.entries(evidenceID)
	out := make([]*custody.Entry, len(existing))
	for i, e := range existing {
		out[i] = e.Clone()
	}
	return out, nil
}

type holdStore struct{ tx *memTx }

func (s holdStore) Create(_ context.Context, h *hold.Hold) error {
	if s.tx.holds.has(h.ID) {
		return fmt.Errorf("hold %s: %w", h.ID, sentinel.ErrConflict)
	}
	s.tx.holds.put(h.ID, h)
	return nil
}

func (s holdStore) Get(_ context.Context, holdID id.HoldID) (*hold.Hold, error) {
	h, ok := s.tx.holds.get(holdID)
	if !ok {
		return nil, fmt.Errorf("hold %s: %w", holdID, sentinel.ErrNotFound)
	}
	return h, nil
}

func (s holdStore) GetForUpdate(ctx context.Context, holdID id.HoldID) (*hold.Hold, error) {
	return s.Get(ctx, holdID)
}

func (s holdStore) Update(_ context.Context, h *hold.Hold) error {
	if !s.tx.holds.has(h.ID) {
		return fmt.Errorf("hold %s: %w", h.ID, sentinel.ErrNotFound)
	}
	s.tx.holds.put(h.ID, h)
	return nil
}

func (s holdStore) ListByCase(_ context.Context, caseID id.CaseID) ([]*hold.Hold, error) {
	return s.tx.holds.filter(func(v *hold.Hold) bool { return v.CaseID == caseID }), nil
}

type privilegeStore struct{ tx *memTx }

func (s privilegeStore) Create(_ context.Context, e *privilege.Entry) error {
	if s.tx.privilege.has(e.ID) {
		return fmt.Errorf("privilege entry %s: %w", e.ID, sentinel.ErrConflict)
	}
	s.tx.privilege.put(e.ID, e)
	return nil
}

func (s privilegeStore) Get(_ context.Context, entryID id.PrivilegeEntryID) (*privilege.Entry, error) {
	e, ok := s.tx.privilege.get(entryID)
	if !ok {
		return nil, fmt.Errorf("privilege entry %s: %w", entryID, sentinel.ErrNotFound)
	}
	return e, nil
}

func (s privilegeStore) GetForUpdate(ctx context.Context, entryID id.PrivilegeEntryID) (*privilege.Entry, error) {
	return s.Get(ctx, entryID)
}

func (s privilegeStore) Update(_ context.Context, e *privilege.Entry) error {
	if !s.tx.privilege.has(e.ID) {
		return fmt.Errorf("privilege entry %s: %w", e.ID, sentinel.ErrNotFound)
	}
	s.tx.privilege.put(e.ID, e)
	return nil
}

func (s privilegeStore) ListByCase(_ context.Context, caseID id.CaseID) ([]*privilege.Entry, error) {
	return s.tx.privilege.filter(func(v *privilege.Entry) bool { return v.CaseID == caseID }), nil
}

func (s privilegeStore) ListByEvidence(_ context.Context, evidenceID id.EvidenceID) ([]*privilege.Entry, error) {
	return s.tx.privilege.filter(func(v *privilege.Entry) bool { return v.EvidenceID == evidenceID }), nil
}

type productionStore struct{ tx *memTx }

func (s productionStore) Create(_ context.Context, p *production.Production) error {
	if s.tx.productions.has(p.ID) {
		return fmt.Errorf("production %s: %w", p.ID, sentinel.ErrConflict)
	}
	s.tx.productions.put(p.ID, p)
	return nil
}

func (s productionStore) Get(_ context.Context, productionID id.ProductionID) (*production.Production, error) {
	p, ok := s.tx.productions.get(productionID)
	if !ok {
		return nil, fmt.Errorf("production %s: %w", productionID, sentinel.ErrNotFound)
	}
	return p, nil
}

func (s productionStore) GetForUpdate(ctx context.Context, productionID id.ProductionID) (*production.Production, error) {
	return s.Get(ctx, productionID)
}

func (s productionStore) Update(_ context.Context, p *production.Production) error {
	if !s.tx.productions.has(p.ID) {
		return fmt.Errorf("production %s: %w", p.ID, sentinel.ErrNotFound)
	}
	s.tx.productions.put(p.ID, p)
	return nil
}

func (s productionStore) ListByCase(_ context.Context, caseID id.CaseID) ([]*production.Production, error) {
	return s.tx.productions.filter(func(v *production.Production) bool { return v.CaseID == caseID }), nil
}

func (s productionStore) ListByEvidence(_ context.Context, evidenceID id.EvidenceID) ([]*production.Production, error) {
	return s.tx.productions.filter(func(v *production.Production) bool { return v.HasEvidence(evidenceID) }), nil
}

func (s productionStore) LastIssued(_ context.Context, caseID id.CaseID, prefix string) (int64, error) {
	var last int64
	s.tx.productions.each(func(p *production.Production) {
		if p.CaseID == caseID && p.BatesPrefix == prefix && p.HasDocuments() && p.BatesEndNumber > last {
			last = p.BatesEndNumber
		}
	})
	return last, nil
}

// LockSeries is a no-op; the store mutex is already held.
func (s productionStore) LockSeries(context.Context, id.CaseID, string) error {
	return nil
}

type sequenceStore struct{ tx *memTx }

func (s sequenceStore) Next(_ context.Context, kind sequence.Kind, year int) (int64, error) {
	k := seqKey{kind: kind, year: year}
	current, staged := s.tx.sequences[k]
	if !staged {
		current = s.tx.store.sequences[k]
	}
	current++
	s.tx.sequences[k] = current
	return current, nil
}
