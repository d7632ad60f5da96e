package handler

import (
	"evidex/internal/casedir"
	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	id "evidex/pkg/domain"
)

// ItemResponse is an evidence item with the case title from the directory.
type ItemResponse struct {
	*evidence.Item
	CaseTitle string `json:"caseTitle,omitempty"`
}

func itemResponse(dir casedir.Directory, item *evidence.Item) ItemResponse {
	return ItemResponse{Item: item, CaseTitle: casedir.Title(dir, item.CaseID)}
}

// ListResponse wraps case listings.
type ListResponse struct {
	CaseID    id.CaseID      `json:"caseId"`
	CaseTitle string         `json:"caseTitle,omitempty"`
	Items     []ItemResponse `json:"items"`
	Total     int            `json:"total"`
}

func listResponse(dir casedir.Directory, caseID id.CaseID, items []*evidence.Item) ListResponse {
	out := make([]ItemResponse, len(items))
	for i, item := range items {
		out[i] = ItemResponse{Item: item}
	}
	return ListResponse{
		CaseID:    caseID,
		CaseTitle: casedir.Title(dir, caseID),
		Items:     out,
		Total:     len(out),
	}
}

// CustodyResponse is the ordered ledger of one item.
type CustodyResponse struct {
	EvidenceID id.EvidenceID    `json:"evidenceId"`
	Entries    []*custody.Entry `json:"entries"`
	Total      int              `json:"total"`
}
