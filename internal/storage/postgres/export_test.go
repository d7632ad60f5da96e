package postgres

const EvidenceByHoldQuery = evidenceByHoldQuery
