package models

import (
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

// Detail is a tagged union of per-action payloads. At most one field is set,
// and which one is dictated by the entry's Action.
type Detail struct {
	Hold         *HoldDetail         `json:"hold,omitempty"`
	Production   *ProductionDetail   `json:"production,omitempty"`
	Processing   *ProcessingDetail   `json:"processing,omitempty"`
	Transfer     *TransferDetail     `json:"transfer,omitempty"`
	Verification *VerificationDetail `json:"verification,omitempty"`
}

// HoldDetail records which hold was applied or released.
type HoldDetail struct {
	HoldID     id.HoldID `json:"holdId"`
	HoldNumber string    `json:"holdNumber,omitempty"`
	// StillHeld is true when other holds keep the item under hold after a release.
	StillHeld bool `json:"stillHeld,omitempty"`
}

// ProductionDetail records the Bates number an item received.
type ProductionDetail struct {
	ProductionID     id.ProductionID `json:"productionId"`
	ProductionNumber string          `json:"productionNumber,omitempty"`
	BatesNumber      string          `json:"batesNumber"`
	Redacted         bool            `json:"redacted,omitempty"`
}

// ProcessingDetail records how an item was processed.
type ProcessingDetail struct {
	ProcessingType string `json:"processingType"`
	TextExtracted  bool   `json:"textExtracted"`
}

// TransferDetail records a change of holder or location.
type TransferDetail struct {
	FromHolder string `json:"fromHolder,omitempty"`
	ToHolder   string `json:"toHolder"`
}

// VerificationDetail records an integrity check.
type VerificationDetail struct {
	SHA256  string `json:"sha256,omitempty"`
	Matched bool   `json:"matched"`
}

func (d Detail) count() int {
	n := 0
	if d.Hold != nil {
		n++
	}
	if d.Production != nil {
		n++
	}
	if d.Processing != nil {
		n++
	}
	if d.Transfer != nil {
		n++
	}
	if d.Verification != nil {
		n++
	}
	return n
}

// Validate enforces the action/detail pairing.
func (d Detail) Validate(action Action) error {
	if d.count() > 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "custody detail must carry a single variant")
	}
	var ok bool
	switch action {
	case ActionLegalHoldApplied, ActionLegalHoldReleased:
		ok = d.Hold != nil && !d.Hold.HoldID.IsNil()
	case ActionProduced:
		ok = d.Production != nil && !d.Production.ProductionID.IsNil() && d.Production.BatesNumber != ""
	case ActionProcessed:
		ok = d.Processing != nil && d.Processing.ProcessingType != ""
	case ActionTransferred:
		ok = d.Transfer != nil && d.Transfer.ToHolder != ""
	case ActionVerified:
		ok = d.count() == 0 || d.Verification != nil
	default:
		ok = d.count() == 0
	}
	if !ok {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "custody detail does not match action %s", action)
	}
	return nil
}

func (d Detail) clone() Detail {
	var c Detail
	if d.Hold != nil {
		v := *d.Hold
		c.Hold = &v
	}
	if d.Production != nil {
		v := *d.Production
		c.Production = &v
	}
	if d.Processing != nil {
		v := *d.Processing
		c.Processing = &v
	}
	if d.Transfer != nil {
		v := *d.Transfer
		c.Transfer = &v
	}
	if d.Verification != nil {
		v := *d.Verification
		c.Verification = &v
	}
	return c
}
