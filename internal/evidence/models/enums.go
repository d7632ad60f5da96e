package models

// PreservationStatus tracks how far an item has moved through preservation.
type PreservationStatus string

const (
	PreservationCollected      PreservationStatus = "Collected"
	PreservationPreserved      PreservationStatus = "Preserved"
	PreservationVerified       PreservationStatus = "Verified"
	PreservationProcessed      PreservationStatus = "Processed"
	PreservationReadyForReview PreservationStatus = "ReadyForReview"
)

// Relevance is the review classification.
type Relevance string

const (
	RelevancePendingReview       Relevance = "PendingReview"
	RelevanceRelevant            Relevance = "Relevant"
	RelevancePotentiallyRelevant Relevance = "PotentiallyRelevant"
	RelevanceNotRelevant         Relevance = "NotRelevant"
	RelevancePrivileged          Relevance = "Privileged"
)

func (r Relevance) IsValid() bool {
	switch r {
	case RelevancePendingReview, RelevanceRelevant, RelevancePotentiallyRelevant,
		RelevanceNotRelevant, RelevancePrivileged:
		return true
	}
	return false
}

// ConfidentialityLevel drives protective-order handling.
type ConfidentialityLevel string

const (
	ConfidentialityPublic             ConfidentialityLevel = "Public"
	ConfidentialityConfidential       ConfidentialityLevel = "Confidential"
	ConfidentialityHighlyConfidential ConfidentialityLevel = "HighlyConfidential"
	ConfidentialityAttorneysEyesOnly  ConfidentialityLevel = "AttorneysEyesOnly"
)

func (c ConfidentialityLevel) IsValid() bool {
	switch c {
	case ConfidentialityPublic, ConfidentialityConfidential,
		ConfidentialityHighlyConfidential, ConfidentialityAttorneysEyesOnly:
		return true
	}
	return false
}

// Status is the record lifecycle, independent of preservation.
type Status string

const (
	StatusActive   Status = "Active"
	StatusArchived Status = "Archived"
	StatusDeleted  Status = "Deleted"
	StatusExpired  Status = "Expired"
)

// EvidenceType classifies what was collected.
type EvidenceType string

const (
	TypeDocument EvidenceType = "Document"
	TypeEmail    EvidenceType = "Email"
	TypeDatabase EvidenceType = "Database"
	TypeMedia    EvidenceType = "Media"
	TypeDevice   EvidenceType = "Device"
	TypeSocial   EvidenceType = "SocialMedia"
	TypePhysical EvidenceType = "Physical"
	TypeOther    EvidenceType = "Other"
)

func (t EvidenceType) IsValid() bool {
	switch t {
	case TypeDocument, TypeEmail, TypeDatabase, TypeMedia, TypeDevice,
		TypeSocial, TypePhysical, TypeOther:
		return true
	}
	return false
}

// CollectionMethod records how the item was acquired.
type CollectionMethod string

const (
	CollectionForensicImage CollectionMethod = "ForensicImage"
	CollectionExport        CollectionMethod = "Export"
	CollectionUpload        CollectionMethod = "Upload"
	CollectionPhysical      CollectionMethod = "Physical"
	CollectionSubpoena      CollectionMethod = "Subpoena"
	CollectionOther         CollectionMethod = "Other"
)

func (m CollectionMethod) IsValid() bool {
	switch m {
	case CollectionForensicImage, CollectionExport, CollectionUpload,
		CollectionPhysical, CollectionSubpoena, CollectionOther:
		return true
	}
	return false
}
