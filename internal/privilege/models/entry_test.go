package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

type EntrySuite struct {
	suite.Suite
	now time.Time
}

func TestEntrySuite(t *testing.T) {
	suite.Run(t, new(EntrySuite))
}

func (s *EntrySuite) SetupTest() {
	s.now = time.Date(2024, 4, 10, 8, 0, 0, 0, time.UTC)
}

func (s *EntrySuite) newEntry() *Entry {
	return &Entry{
		ID:             id.NewPrivilegeEntryID(),
		EvidenceID:     id.NewEvidenceID(),
		PrivilegeType:  TypeAttorneyClient,
		Withheld:       true,
		ClawbackStatus: ClawbackNone,
	}
}

func (s *EntrySuite) TestWaiveTwiceKeepsState() {
	e := s.newEntry()
	s.Require().NoError(e.CanWaive())
	e.ApplyWaive("partner", "shared with third party", s.now)
	s.False(e.Withheld)
	s.True(e.Waived)
	s.Len(e.Notes, 1)

	err := e.CanWaive()
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	s.False(e.Withheld, "second waive must not revert")
	s.Len(e.Notes, 1)
}

func (s *EntrySuite) TestClawbackLifecycle() {
	e := s.newEntry()

	s.True(dErrors.HasCode(e.CanResolveClawback(ClawbackGranted), dErrors.CodeInvalidTransition))

	s.Require().NoError(e.CanRequestClawback())
	e.ApplyClawbackRequest("counsel", "inadvertent production", s.now)
	s.Equal(ClawbackRequested, e.ClawbackStatus)
	s.True(dErrors.HasCode(e.CanRequestClawback(), dErrors.CodeInvalidTransition))
	s.True(dErrors.HasCode(e.CanWaive(), dErrors.CodeInvalidTransition))

	s.True(dErrors.HasCode(e.CanResolveClawback(ClawbackRequested), dErrors.CodeValidation))

	s.Require().NoError(e.CanResolveClawback(ClawbackDenied))
	e.ApplyClawbackResolution(ClawbackDenied, "judge", "", s.now)
	s.Equal(ClawbackDenied, e.ClawbackStatus)

	s.Require().NoError(e.CanRequestClawback(), "denied requests may be renewed")
	e.ApplyClawbackRequest("counsel", "renewed motion", s.now)
	s.Require().NoError(e.CanResolveClawback(ClawbackGranted))
	e.ApplyClawbackResolution(ClawbackGranted, "judge", "order 12", s.now)
	s.Equal(ClawbackGranted, e.ClawbackStatus)
	s.True(e.Withheld)
	s.Len(e.Notes, 4)
	s.Equal("Granted: order 12", e.Notes[3].Text)
}

func (s *EntrySuite) TestWaivedCannotBeClawedBack() {
	e := s.newEntry()
	e.ApplyWaive("partner", "", s.now)
	s.True(dErrors.HasCode(e.CanRequestClawback(), dErrors.CodeInvalidTransition))
}

func (s *EntrySuite) TestLogCommandValidate() {
	valid := LogCommand{
		CaseID:        id.NewCaseID(),
		EvidenceID:    id.NewEvidenceID(),
		PrivilegeType: TypeWorkProduct,
		Basis:         "prepared in anticipation of litigation",
	}
	s.NoError(valid.Validate())

	missingBasis := valid
	missingBasis.Basis = "  "
	s.True(dErrors.HasCode(missingBasis.Validate(), dErrors.CodeValidation))

	badType := valid
	badType.PrivilegeType = "Vibes"
	s.True(dErrors.HasCode(badType.Validate(), dErrors.CodeValidation))
}
