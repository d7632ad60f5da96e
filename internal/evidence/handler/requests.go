package handler

import (
	"strings"

	evidence "evidex/internal/evidence/models"
	"evidex/internal/evidence/service"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

// CollectRequest is the body of POST /cases/{caseID}/evidence. Content is
// base64 in JSON.
type CollectRequest struct {
	EvidenceType         evidence.EvidenceType         `json:"evidenceType"`
	Description          string                        `json:"description"`
	Custodian            string                        `json:"custodian"`
	CollectionMethod     evidence.CollectionMethod     `json:"collectionMethod"`
	Source               string                        `json:"source"`
	Location             string                        `json:"location"`
	Tags                 []string                      `json:"tags"`
	ConfidentialityLevel evidence.ConfidentialityLevel `json:"confidentialityLevel"`
	Content              []byte                        `json:"content"`
	ContentType          string                        `json:"contentType"`
	FileName             string                        `json:"fileName"`
}

// Validate only checks shape; the service owns the domain rules.
func (r *CollectRequest) Validate() error {
	if len(r.Content) > evidence.MaxContentBytes {
		return dErrors.New(dErrors.CodeValidation, "content exceeds the inline upload limit")
	}
	if r.Content == nil && (r.ContentType != "" || r.FileName != "") {
		return dErrors.New(dErrors.CodeValidation, "contentType and fileName need content")
	}
	return nil
}

func (r *CollectRequest) Command(caseID id.CaseID) evidence.CollectCommand {
	return evidence.CollectCommand{
		CaseID:               caseID,
		EvidenceType:         r.EvidenceType,
		Description:          r.Description,
		Custodian:            r.Custodian,
		CollectionMethod:     r.CollectionMethod,
		Source:               r.Source,
		Location:             r.Location,
		Tags:                 r.Tags,
		ConfidentialityLevel: r.ConfidentialityLevel,
		Content:              r.Content,
		ContentType:          r.ContentType,
		FileName:             r.FileName,
	}
}

// ProcessRequest is the body of POST /evidence/process.
type ProcessRequest struct {
	EvidenceIDs    []string `json:"evidenceIds"`
	ProcessingType string   `json:"processingType"`
	ExtractText    bool     `json:"extractText"`
}

func (r *ProcessRequest) Validate() error {
	if len(r.EvidenceIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "evidenceIds is required")
	}
	return nil
}

// TagRequest is the body of POST /evidence/{id}/tags.
type TagRequest struct {
	Tags                 []string                       `json:"tags"`
	Relevance            *evidence.Relevance            `json:"relevance"`
	ConfidentialityLevel *evidence.ConfidentialityLevel `json:"confidentialityLevel"`
}

func (r *TagRequest) Validate() error {
	cmd := r.Command()
	return cmd.Validate()
}

func (r *TagRequest) Command() evidence.TagCommand {
	return evidence.TagCommand{
		Tags:                 r.Tags,
		Relevance:            r.Relevance,
		ConfidentialityLevel: r.ConfidentialityLevel,
	}
}

// NotesRequest is the optional body of the simple transitions.
type NotesRequest struct {
	Notes string `json:"notes"`
}

func (r *NotesRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}

// VerifyRequest is the body of POST /evidence/{id}/verify.
type VerifyRequest struct {
	ExpectedSHA256 string `json:"expectedSha256"`
	Notes          string `json:"notes"`
}

func (r *VerifyRequest) Validate() error {
	r.ExpectedSHA256 = strings.ToLower(strings.TrimSpace(r.ExpectedSHA256))
	if r.ExpectedSHA256 != "" && len(r.ExpectedSHA256) != 64 {
		return dErrors.New(dErrors.CodeValidation, "expectedSha256 must be 64 hex characters")
	}
	return nil
}

// TransferRequest is the body of POST /evidence/{id}/transfer.
type TransferRequest struct {
	ToHolder string `json:"toHolder"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

func (r *TransferRequest) Validate() error {
	r.ToHolder = strings.TrimSpace(r.ToHolder)
	if r.ToHolder == "" {
		return dErrors.New(dErrors.CodeValidation, "toHolder is required")
	}
	return nil
}

func (r *TransferRequest) Command() service.TransferCommand {
	return service.TransferCommand{ToHolder: r.ToHolder, Location: r.Location, Notes: r.Notes}
}

// PlaceHoldRequest is the body of POST /evidence/{id}/holds.
type PlaceHoldRequest struct {
	HoldID id.HoldID `json:"holdId"`
}

func (r *PlaceHoldRequest) Validate() error {
	if r.HoldID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "holdId is required")
	}
	return nil
}
