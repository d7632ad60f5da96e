// Package memory is the in-process storage backend used by tests and by the
// server when no DATABASE_URL is configured.
//
// A single mutex serializes units of work. Writes are staged in an overlay
// and only merged into the committed maps when fn returns nil, so a failed
// or timed-out unit leaves no trace.
package memory

import (
	"context"
	"sync"
	"time"

	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	hold "evidex/internal/hold/models"
	privilege "evidex/internal/privilege/models"
	production "evidex/internal/production/models"
	"evidex/internal/sequence"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

// defaultTxTimeout bounds a unit of work when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

type seqKey struct {
	kind sequence.Kind
	year int
}

// Store holds every table.
type Store struct {
	mu      sync.Mutex
	timeout time.Duration

	items       *table[id.EvidenceID, *evidence.Item]
	holds       *table[id.HoldID, *hold.Hold]
	privilege   *table[id.PrivilegeEntryID, *privilege.Entry]
	productions *table[id.ProductionID, *production.Production]
	custody     map[id.EvidenceID][]*custody.Entry
	sequences   map[seqKey]int64
}

type Option func(*Store)

// WithTimeout overrides the default unit-of-work deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		timeout:     defaultTxTimeout,
		items:       newTable[id.EvidenceID, *evidence.Item](),
		holds:       newTable[id.HoldID, *hold.Hold](),
		privilege:   newTable[id.PrivilegeEntryID, *privilege.Entry](),
		productions: newTable[id.ProductionID, *production.Production](),
		custody:     make(map[id.EvidenceID][]*custody.Entry),
		sequences:   make(map[seqKey]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.Runner = (*Store)(nil)

// RunInTx runs fn against a staged view of the store and commits on success.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	tx := s.begin()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
	}
	tx.commit()
	return nil
}

func (s *Store) begin() *memTx {
	return &memTx{
		store:       s,
		items:       newOverlay(s.items),
		holds:       newOverlay(s.holds),
		privilege:   newOverlay(s.privilege),
		productions: newOverlay(s.productions),
		custody:     make(map[id.EvidenceID][]*custody.Entry),
		sequences:   make(map[seqKey]int64),
	}
}

type memTx struct {
	store       *Store
	items       *overlay[id.EvidenceID, *evidence.Item]
	holds       *overlay[id.HoldID, *hold.Hold]
	privilege   *overlay[id.PrivilegeEntryID, *privilege.Entry]
	productions *overlay[id.ProductionID, *production.Production]
	custody     map[id.EvidenceID][]*custody.Entry
	sequences   map[seqKey]int64
}

func (t *memTx) commit() {
	t.items.commit()
	t.holds.commit()
	t.privilege.commit()
	t.productions.commit()
	for evidenceID, entries := range t.custody {
		t.store.custody[evidenceID] = append(t.store.custody[evidenceID], entries...)
	}
	for k, v := range t.sequences {
		t.store.sequences[k] = v
	}
}

func (t *memTx) Evidence() storage.EvidenceStore { return evidenceStore{t} }
func (t *memTx) Custody() storage.CustodyStore { return custodyStore{t} }
func (t *memTx) Holds() storage.HoldStore { return holdStore{t} }
func (t *memTx) Privilege() storage.PrivilegeStore { return privilegeStore{t} }
func (t *memTx) Productions() storage.ProductionStore { return productionStore{t} }
func (t *memTx) Sequences() storage.SequenceStore { return sequenceStore{t} }
