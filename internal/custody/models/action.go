package models

// Action is the kind of custody event an entry records.
type Action string

const (
	ActionCollected         Action = "Collected"
	ActionTransferred       Action = "Transferred"
	ActionPreserved         Action = "Preserved"
	ActionVerified          Action = "Verified"
	ActionProcessed         Action = "Processed"
	ActionReviewed          Action = "Reviewed"
	ActionProduced          Action = "Produced"
	ActionArchived          Action = "Archived"
	ActionDeleted           Action = "Deleted"
	ActionLegalHoldApplied  Action = "LegalHoldApplied"
	ActionLegalHoldReleased Action = "LegalHoldReleased"
)

var validActions = map[Action]struct{}{
	ActionCollected:         {},
	ActionTransferred:       {},
	ActionPreserved:         {},
	ActionVerified:          {},
	ActionProcessed:         {},
	ActionReviewed:          {},
	ActionProduced:          {},
	ActionArchived:          {},
	ActionDeleted:           {},
	ActionLegalHoldApplied:  {},
	ActionLegalHoldReleased: {},
}

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	_, ok := validActions[a]
	return ok
}

func (a Action) String() string {
	return string(a)
}
