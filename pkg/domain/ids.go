// Package domain holds the typed identifiers shared by every eDiscovery module.
//
// Each entity gets its own named UUID type so an evidence id can never be
// passed where a hold id is expected. Construct them from external input with
// the Parse* functions; direct conversion from uuid.UUID bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "evidex/pkg/domain-errors"
)

type (
	CaseID           uuid.UUID
	EvidenceID       uuid.UUID
	HoldID           uuid.UUID
	PrivilegeEntryID uuid.UUID
	ProductionID     uuid.UUID
)

// maxIDLength bounds input before it reaches the uuid parser.
const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is required", kind)
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", kind)
	}
	return u, nil
}

func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID("case id", s)
	return CaseID(u), err
}

func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parseUUID("evidence id", s)
	return EvidenceID(u), err
}

func ParseHoldID(s string) (HoldID, error) {
	u, err := parseUUID("hold id", s)
	return HoldID(u), err
}

func ParsePrivilegeEntryID(s string) (PrivilegeEntryID, error) {
	u, err := parseUUID("privilege entry id", s)
	return PrivilegeEntryID(u), err
}

func ParseProductionID(s string) (ProductionID, error) {
	u, err := parseUUID("production id", s)
	return ProductionID(u), err
}

func NewCaseID() CaseID                     { return CaseID(uuid.New()) }
func NewEvidenceID() EvidenceID             { return EvidenceID(uuid.New()) }
func NewHoldID() HoldID                     { return HoldID(uuid.New()) }
func NewPrivilegeEntryID() PrivilegeEntryID { return PrivilegeEntryID(uuid.New()) }
func NewProductionID() ProductionID         { return ProductionID(uuid.New()) }

func (id CaseID) String() string           { return uuid.UUID(id).String() }
func (id EvidenceID) String() string       { return uuid.UUID(id).String() }
func (id HoldID) String() string           { return uuid.UUID(id).String() }
func (id PrivilegeEntryID) String() string { return uuid.UUID(id).String() }
func (id ProductionID) String() string     { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id HoldID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id PrivilegeEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProductionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps the JSON form a plain UUID string.

func (id CaseID) MarshalText() ([]byte, error)           { return uuid.UUID(id).MarshalText() }
func (id EvidenceID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id HoldID) MarshalText() ([]byte, error)           { return uuid.UUID(id).MarshalText() }
func (id PrivilegeEntryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ProductionID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *CaseID) UnmarshalText(b []byte) error           { return unmarshalInto((*uuid.UUID)(id), b) }
func (id *EvidenceID) UnmarshalText(b []byte) error       { return unmarshalInto((*uuid.UUID)(id), b) }
func (id *HoldID) UnmarshalText(b []byte) error           { return unmarshalInto((*uuid.UUID)(id), b) }
func (id *PrivilegeEntryID) UnmarshalText(b []byte) error { return unmarshalInto((*uuid.UUID)(id), b) }
func (id *ProductionID) UnmarshalText(b []byte) error     { return unmarshalInto((*uuid.UUID)(id), b) }

func unmarshalInto(dst *uuid.UUID, b []byte) error {
	if len(b) == 0 {
		*dst = uuid.Nil
		return nil
	}
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid identifier")
	}
	*dst = u
	return nil
}
