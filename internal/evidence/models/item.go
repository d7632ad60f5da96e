package models

import (
	"slices"
	"time"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

// Content describes the stored bytes behind an item.
type Content struct {
	StorageRef    string `json:"storageRef,omitempty"`
	SHA256        string `json:"sha256,omitempty"`
	SizeBytes     int64  `json:"sizeBytes,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
	FileName      string `json:"fileName,omitempty"`
	ExtractedText string `json:"extractedText,omitempty"`
}

// Item is the evidence aggregate. Its custody ledger is stored alongside and
// only ever appended to through the ledger.
//
// Invariants:
//   - OnLegalHold == len(HoldIDs) > 0
//   - Status cannot become Deleted while OnLegalHold
//   - BatesNumber and ProducedInSet are set together, once
type Item struct {
	ID                   id.EvidenceID        `json:"id"`
	EvidenceNumber       string               `json:"evidenceNumber"`
	CaseID               id.CaseID            `json:"caseId"`
	EvidenceType         EvidenceType         `json:"evidenceType"`
	Description          string               `json:"description,omitempty"`
	Custodian            string               `json:"custodian"`
	CollectionMethod     CollectionMethod     `json:"collectionMethod"`
	Source               string               `json:"source,omitempty"`
	CurrentHolder        string               `json:"currentHolder"`
	Location             string               `json:"location,omitempty"`
	PreservationStatus   PreservationStatus   `json:"preservationStatus"`
	Relevance            Relevance            `json:"relevance"`
	ConfidentialityLevel ConfidentialityLevel `json:"confidentialityLevel"`
	Tags                 []string             `json:"tags"`
	HoldIDs              []id.HoldID          `json:"holdIds"`
	OnLegalHold          bool                 `json:"onLegalHold"`
	ProducedInSet        *id.ProductionID     `json:"producedInSet,omitempty"`
	BatesNumber          string               `json:"batesNumber,omitempty"`
	Status               Status               `json:"status"`
	Content              Content              `json:"content"`
	ProcessingType       string               `json:"processingType,omitempty"`
	CollectedBy          string               `json:"collectedBy"`
	CollectedAt          time.Time            `json:"collectedAt"`
	ProcessedAt          *time.Time           `json:"processedAt,omitempty"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// Clone returns a deep copy so stores never share slices with callers.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.Tags = slices.Clone(i.Tags)
	c.HoldIDs = slices.Clone(i.HoldIDs)
	if i.ProducedInSet != nil {
		p := *i.ProducedInSet
		c.ProducedInSet = &p
	}
	if i.ProcessedAt != nil {
		t := *i.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}

func (i *Item) IsActive() bool {
	return i.Status == StatusActive
}

func (i *Item) touch(now time.Time) {
	i.UpdatedAt = now
}

func (i *Item) requireActive(op string) error {
	if i.Status != StatusActive {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot %s evidence in status %s", op, i.Status)
	}
	return nil
}

// CanPreserve allows Collected -> Preserved.
func (i *Item) CanPreserve() error {
	if err := i.requireActive("preserve"); err != nil {
		return err
	}
	if i.PreservationStatus != PreservationCollected {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot preserve evidence in %s", i.PreservationStatus)
	}
	return nil
}

func (i *Item) ApplyPreserve(now time.Time) {
	i.PreservationStatus = PreservationPreserved
	i.touch(now)
}

// CanVerify allows Preserved -> Verified. When expectedSHA256 is given it must
// match the stored content hash.
func (i *Item) CanVerify(expectedSHA256 string) error {
	if err := i.requireActive("verify"); err != nil {
		return err
	}
	if i.PreservationStatus != PreservationPreserved {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot verify evidence in %s", i.PreservationStatus)
	}
	if expectedSHA256 != "" && expectedSHA256 != i.Content.SHA256 {
		return dErrors.New(dErrors.CodeConflict, "content hash does not match the expected value")
	}
	return nil
}

func (i *Item) ApplyVerify(now time.Time) {
	i.PreservationStatus = PreservationVerified
	i.touch(now)
}

// CanProcess allows processing from any state before review. Reprocessing a
// Processed item is permitted.
func (i *Item) CanProcess() error {
	if err := i.requireActive("process"); err != nil {
		return err
	}
	if i.PreservationStatus == PreservationReadyForReview {
		return dErrors.New(dErrors.CodeInvalidTransition, "evidence is already ready for review")
	}
	return nil
}

// ApplyProcess records processing. text is stored only when extraction ran.
func (i *Item) ApplyProcess(processingType string, text *string, now time.Time) {
	i.PreservationStatus = PreservationProcessed
	i.ProcessingType = processingType
	if text != nil {
		i.Content.ExtractedText = *text
	}
	t := now
	i.ProcessedAt = &t
	i.touch(now)
}

// CanMarkReadyForReview allows Processed -> ReadyForReview.
func (i *Item) CanMarkReadyForReview() error {
	if err := i.requireActive("review"); err != nil {
		return err
	}
	if i.PreservationStatus != PreservationProcessed {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot mark evidence in %s ready for review", i.PreservationStatus)
	}
	return nil
}

func (i *Item) ApplyReadyForReview(now time.Time) {
	i.PreservationStatus = PreservationReadyForReview
	i.touch(now)
}

// CanTransfer requires a live record and a new holder.
func (i *Item) CanTransfer(toHolder string) error {
	if i.Status == StatusDeleted || i.Status == StatusExpired {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot transfer evidence in status %s", i.Status)
	}
	if toHolder == "" {
		return dErrors.New(dErrors.CodeValidation, "toHolder is required")
	}
	if toHolder == i.CurrentHolder {
		return dErrors.New(dErrors.CodeInvalidTransition, "evidence is already with that holder")
	}
	return nil
}

// ApplyTransfer returns the previous holder.
func (i *Item) ApplyTransfer(toHolder, location string, now time.Time) string {
	from := i.CurrentHolder
	i.CurrentHolder = toHolder
	if location != "" {
		i.Location = location
	}
	i.touch(now)
	return from
}

// CanArchive allows Active -> Archived.
func (i *Item) CanArchive() error {
	return i.requireActive("archive")
}

func (i *Item) ApplyArchive(now time.Time) {
	i.Status = StatusArchived
	i.touch(now)
}

// CanDelete allows Active|Archived -> Deleted, never while held.
func (i *Item) CanDelete() error {
	if i.OnLegalHold {
		return dErrors.New(dErrors.CodeInvalidTransition, "evidence under legal hold cannot be deleted")
	}
	if i.Status != StatusActive && i.Status != StatusArchived {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot delete evidence in status %s", i.Status)
	}
	return nil
}

func (i *Item) ApplyDelete(now time.Time) {
	i.Status = StatusDeleted
	i.touch(now)
}

// HasHold reports whether holdID is among the item's hold references.
func (i *Item) HasHold(holdID id.HoldID) bool {
	return slices.Contains(i.HoldIDs, holdID)
}

// CanPlaceHold rejects holds on disposed records.
func (i *Item) CanPlaceHold() error {
	if i.Status == StatusDeleted || i.Status == StatusExpired {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot hold evidence in status %s", i.Status)
	}
	return nil
}

// ApplyHold adds holdID to the reference set. Returns false when it was
// already present.
func (i *Item) ApplyHold(holdID id.HoldID, now time.Time) bool {
	if i.HasHold(holdID) {
		return false
	}
	i.HoldIDs = append(i.HoldIDs, holdID)
	i.OnLegalHold = true
	i.touch(now)
	return true
}

// CanReleaseHold requires holdID to be referenced.
func (i *Item) CanReleaseHold(holdID id.HoldID) error {
	if !i.HasHold(holdID) {
		return dErrors.New(dErrors.CodeInvalidTransition, "evidence is not under that hold")
	}
	return nil
}

// ApplyReleaseHold removes holdID; OnLegalHold stays true while other
// references remain.
func (i *Item) ApplyReleaseHold(holdID id.HoldID, now time.Time) {
	i.HoldIDs = slices.DeleteFunc(i.HoldIDs, func(h id.HoldID) bool { return h == holdID })
	i.OnLegalHold = len(i.HoldIDs) > 0
	i.touch(now)
}

// CanProduce requires an active item that has never been produced.
func (i *Item) CanProduce() error {
	if err := i.requireActive("produce"); err != nil {
		return err
	}
	if i.ProducedInSet != nil || i.BatesNumber != "" {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "evidence already produced as %s", i.BatesNumber)
	}
	return nil
}

func (i *Item) ApplyProduced(productionID id.ProductionID, batesNumber string, now time.Time) {
	p := productionID
	i.ProducedInSet = &p
	i.BatesNumber = batesNumber
	i.touch(now)
}
