package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

// GenesisHash is the prevHash of the first entry in every ledger.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one immutable custody event in an evidence item's ledger.
//
// Invariants:
//   - Sequence is 1-based and gap-free per evidence item
//   - Detail carries exactly the variant its Action requires (see Detail.Validate)
//   - Hash = sha256(PrevHash || canonical(entry without Hash))
type Entry struct {
	EvidenceID  id.EvidenceID `json:"evidenceId"`
	Sequence    int           `json:"sequence"`
	Action      Action        `json:"action"`
	PerformedBy string        `json:"performedBy"`
	PerformedAt time.Time     `json:"performedAt"`
	Location    string        `json:"location,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	Device      string        `json:"device,omitempty"`
	ClientIP    string        `json:"clientIp,omitempty"`
	Detail      Detail        `json:"detail"`
	PrevHash    string        `json:"prevHash"`
	Hash        string        `json:"hash"`
}

// Draft is what a caller supplies; the ledger fills in sequence, time and hashes.
type Draft struct {
	Action      Action
	PerformedBy string
	Location    string
	Notes       string
	Detail      Detail
}

// Validate checks a draft before any write.
func (d Draft) Validate() error {
	if !d.Action.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown custody action %q", d.Action)
	}
	if d.PerformedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "performedBy is required")
	}
	if len(d.Notes) > 4000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be 4000 characters or less")
	}
	return d.Detail.Validate(d.Action)
}

// NewEntry seals a draft as the successor of prev (nil for the first entry).
func NewEntry(evidenceID id.EvidenceID, prev *Entry, d Draft, device, clientIP string, now time.Time) (*Entry, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	seq, prevHash := 1, GenesisHash
	if prev != nil {
		seq, prevHash = prev.Sequence+1, prev.Hash
	}
	e := &Entry{
		EvidenceID:  evidenceID,
		Sequence:    seq,
		Action:      d.Action,
		PerformedBy: d.PerformedBy,
		PerformedAt: now.UTC().Truncate(time.Microsecond),
		Location:    d.Location,
		Notes:       d.Notes,
		Device:      device,
		ClientIP:    clientIP,
		Detail:      d.Detail,
		PrevHash:    prevHash,
	}
	e.Hash = e.ComputeHash()
	return e, nil
}

// canonical is the hashed projection of an entry. Field order is fixed by the
// struct, so encoding/json output is stable.
type canonical struct {
	EvidenceID  string `json:"e"`
	Sequence    int    `json:"s"`
	Action      Action `json:"a"`
	PerformedBy string `json:"b"`
	PerformedAt string `json:"t"`
	Location    string `json:"l"`
	Notes       string `json:"n"`
	Device      string `json:"d"`
	ClientIP    string `json:"i"`
	Detail      Detail `json:"x"`
}

// ComputeHash derives the entry hash from its content and PrevHash.
func (e *Entry) ComputeHash() string {
	body, _ := json.Marshal(canonical{
		EvidenceID:  e.EvidenceID.String(),
		Sequence:    e.Sequence,
		Action:      e.Action,
		PerformedBy: e.PerformedBy,
		PerformedAt: e.PerformedAt.UTC().Format(time.RFC3339Nano),
		Location:    e.Location,
		Notes:       e.Notes,
		Device:      e.Device,
		ClientIP:    e.ClientIP,
		Detail:      e.Detail,
	})
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Detail = e.Detail.clone()
	return &c
}

// Verification is the outcome of walking a ledger's hash chain.
type Verification struct {
	EvidenceID id.EvidenceID `json:"evidenceId"`
	Entries    int           `json:"entries"`
	Valid      bool          `json:"valid"`
	// BrokenAt is the first sequence whose link or hash does not check out.
	BrokenAt int    `json:"brokenAt,omitempty"`
	Reason   string `json:"reason,omitempty"`
	HeadHash string `json:"headHash,omitempty"`
}

// VerifyChain walks entries in order and reports the first broken link.
func VerifyChain(evidenceID id.EvidenceID, entries []*Entry) Verification {
	v := Verification{EvidenceID: evidenceID, Entries: len(entries), Valid: true}
	prevHash := GenesisHash
	for i, e := range entries {
		switch {
		case e.Sequence != i+1:
			return broken(v, i+1, "sequence gap: found "+strconv.Itoa(e.Sequence))
		case e.PrevHash != prevHash:
			return broken(v, e.Sequence, "previous hash mismatch")
		case e.ComputeHash() != e.Hash:
			return broken(v, e.Sequence, "entry hash mismatch")
		}
		prevHash = e.Hash
	}
	if len(entries) > 0 {
		v.HeadHash = prevHash
	}
	return v
}

func broken(v Verification, seq int, reason string) Verification {
	v.Valid = false
	v.BrokenAt = seq
	v.Reason = reason
	return v
}
