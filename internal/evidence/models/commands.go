package models

import (
	"strings"
	"time"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	strutil "evidex/pkg/platform/strings"
)

const (
	maxTextField   = 512
	maxDescription = 4000
	maxTags        = 50
	// MaxContentBytes caps inline uploads.
	MaxContentBytes = 32 << 20
)

// CollectCommand is the input to evidence collection.
type CollectCommand struct {
	CaseID               id.CaseID
	EvidenceType         EvidenceType
	Description          string
	Custodian            string
	CollectionMethod     CollectionMethod
	Source               string
	Location             string
	Tags                 []string
	ConfidentialityLevel ConfidentialityLevel
	Content              []byte
	ContentType          string
	FileName             string
}

// Normalize trims free text and defaults optional enums.
func (c *CollectCommand) Normalize() {
	c.Description = strings.TrimSpace(c.Description)
	c.Custodian = strings.TrimSpace(c.Custodian)
	c.Source = strings.TrimSpace(c.Source)
	c.Location = strings.TrimSpace(c.Location)
	c.FileName = strings.TrimSpace(c.FileName)
	c.Tags = strutil.DedupeAndTrim(c.Tags)
	if c.CollectionMethod == "" {
		c.CollectionMethod = CollectionUpload
	}
	if c.ConfidentialityLevel == "" {
		c.ConfidentialityLevel = ConfidentialityConfidential
	}
}

// Validate rejects malformed input before anything is written.
func (c *CollectCommand) Validate() error {
	if c.CaseID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "caseId is required")
	}
	if c.Custodian == "" {
		return dErrors.New(dErrors.CodeValidation, "custodian is required")
	}
	if !c.EvidenceType.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid evidenceType %q", c.EvidenceType)
	}
	if !c.CollectionMethod.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid collectionMethod %q", c.CollectionMethod)
	}
	if !c.ConfidentialityLevel.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid confidentialityLevel %q", c.ConfidentialityLevel)
	}
	if len(c.Custodian) > maxTextField || len(c.Source) > maxTextField || len(c.Location) > maxTextField {
		return dErrors.New(dErrors.CodeValidation, "text fields must be 512 characters or less")
	}
	if len(c.Description) > maxDescription {
		return dErrors.New(dErrors.CodeValidation, "description must be 4000 characters or less")
	}
	if len(c.Tags) > maxTags {
		return dErrors.New(dErrors.CodeValidation, "too many tags")
	}
	if len(c.Content) > MaxContentBytes {
		return dErrors.New(dErrors.CodeValidation, "content exceeds the inline upload limit")
	}
	return nil
}

// TagCommand updates classification. Nil fields are left untouched.
type TagCommand struct {
	Tags                 []string
	Relevance            *Relevance
	ConfidentialityLevel *ConfidentialityLevel
}

// Validate rejects unknown classifications and empty updates.
func (c *TagCommand) Validate() error {
	if len(c.Tags) == 0 && c.Relevance == nil && c.ConfidentialityLevel == nil {
		return dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	if c.Relevance != nil && !c.Relevance.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid relevance %q", *c.Relevance)
	}
	if c.ConfidentialityLevel != nil && !c.ConfidentialityLevel.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid confidentialityLevel %q", *c.ConfidentialityLevel)
	}
	if len(c.Tags) > maxTags {
		return dErrors.New(dErrors.CodeValidation, "too many tags")
	}
	return nil
}

// ApplyTags merges tags as a set and overwrites the given classifications.
func (i *Item) ApplyTags(c TagCommand, now time.Time) {
	i.Tags = strutil.Union(i.Tags, c.Tags)
	if c.Relevance != nil {
		i.Relevance = *c.Relevance
	}
	if c.ConfidentialityLevel != nil {
		i.ConfidentialityLevel = *c.ConfidentialityLevel
	}
	i.touch(now)
}

// CanTag rejects classification of disposed records.
func (i *Item) CanTag() error {
	if i.Status == StatusDeleted {
		return dErrors.New(dErrors.CodeInvalidTransition, "cannot tag deleted evidence")
	}
	return nil
}

// NewItem builds a freshly collected item from a validated command. The
// collector is the first holder.
func NewItem(itemID id.EvidenceID, number string, c CollectCommand, content Content, collectedBy string, now time.Time) *Item {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Item{
		ID:                   itemID,
		EvidenceNumber:       number,
		CaseID:               c.CaseID,
		EvidenceType:         c.EvidenceType,
		Description:          c.Description,
		Custodian:            c.Custodian,
		CollectionMethod:     c.CollectionMethod,
		Source:               c.Source,
		CurrentHolder:        collectedBy,
		Location:             c.Location,
		PreservationStatus:   PreservationCollected,
		Relevance:            RelevancePendingReview,
		ConfidentialityLevel: c.ConfidentialityLevel,
		Tags:                 tags,
		HoldIDs:              []id.HoldID{},
		Status:               StatusActive,
		Content:              content,
		CollectedBy:          collectedBy,
		CollectedAt:          now,
		UpdatedAt:            now,
	}
}
