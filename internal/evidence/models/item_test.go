package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

type ItemSuite struct {
	suite.Suite
	now time.Time
}

func TestItemSuite(t *testing.T) {
	suite.Run(t, new(ItemSuite))
}

func (s *ItemSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ItemSuite) newItem() *Item {
	return &Item{
		ID:                 id.NewEvidenceID(),
		CaseID:             id.NewCaseID(),
		Custodian:          "j.doe",
		PreservationStatus: PreservationCollected,
		Relevance:          RelevancePendingReview,
		Status:             StatusActive,
		Content:            Content{SHA256: "abc"},
	}
}

func (s *ItemSuite) TestPreservationPath() {
	item := s.newItem()

	s.Require().NoError(item.CanPreserve())
	item.ApplyPreserve(s.now)

	s.Run("verify rejects hash mismatch", func() {
		err := item.CanVerify("def")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Require().NoError(item.CanVerify("abc"))
	item.ApplyVerify(s.now)
	s.Require().NoError(item.CanProcess())
	item.ApplyProcess("ocr", nil, s.now)
	s.Equal(PreservationProcessed, item.PreservationStatus)

	s.Run("reprocessing is allowed", func() {
		s.NoError(item.CanProcess())
	})

	s.Require().NoError(item.CanMarkReadyForReview())
	item.ApplyReadyForReview(s.now)

	s.Run("no processing after review", func() {
		s.True(dErrors.HasCode(item.CanProcess(), dErrors.CodeInvalidTransition))
	})
	s.Run("no second preserve", func() {
		s.True(dErrors.HasCode(item.CanPreserve(), dErrors.CodeInvalidTransition))
	})
}

func (s *ItemSuite) TestHoldUnion() {
	item := s.newItem()
	h1, h2 := id.NewHoldID(), id.NewHoldID()

	s.True(item.ApplyHold(h1, s.now))
	s.False(item.ApplyHold(h1, s.now), "same hold twice is a no-op")
	s.True(item.ApplyHold(h2, s.now))
	s.Len(item.HoldIDs, 2)

	item.ApplyReleaseHold(h1, s.now)
	s.True(item.OnLegalHold, "still held by the second hold")
	s.True(dErrors.HasCode(item.CanDelete(), dErrors.CodeInvalidTransition))

	s.True(dErrors.HasCode(item.CanReleaseHold(h1), dErrors.CodeInvalidTransition))
	item.ApplyReleaseHold(h2, s.now)
	s.False(item.OnLegalHold)
	s.NoError(item.CanDelete())
}

func (s *ItemSuite) TestProduceOnce() {
	item := s.newItem()
	s.Require().NoError(item.CanProduce())
	item.ApplyProduced(id.NewProductionID(), "ABC0000001", s.now)

	err := item.CanProduce()
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	s.Equal("ABC0000001", item.BatesNumber)
}

func (s *ItemSuite) TestDisposal() {
	item := s.newItem()
	s.Require().NoError(item.CanArchive())
	item.ApplyArchive(s.now)
	s.True(dErrors.HasCode(item.CanArchive(), dErrors.CodeInvalidTransition))
	s.NoError(item.CanPlaceHold(), "archived records can still be held")

	s.Require().NoError(item.CanDelete())
	item.ApplyDelete(s.now)
	s.True(dErrors.HasCode(item.CanPlaceHold(), dErrors.CodeInvalidTransition))
	s.True(dErrors.HasCode(item.CanTag(), dErrors.CodeInvalidTransition))
}

func (s *ItemSuite) TestTransfer() {
	item := s.newItem()
	item.CurrentHolder = "collector"

	s.True(dErrors.HasCode(item.CanTransfer("collector"), dErrors.CodeInvalidTransition))
	s.Require().NoError(item.CanTransfer("vault"))
	from := item.ApplyTransfer("vault", "Room 4", s.now)
	s.Equal("collector", from)
	s.Equal("vault", item.CurrentHolder)
	s.Equal("Room 4", item.Location)
}

func TestApplyTagsUnion(t *testing.T) {
	item := &Item{Tags: []string{"hot"}, Relevance: RelevancePendingReview}
	rel := RelevanceRelevant
	item.ApplyTags(TagCommand{Tags: []string{"hot", "board"}, Relevance: &rel}, time.Now())

	assert.Equal(t, []string{"hot", "board"}, item.Tags)
	assert.Equal(t, RelevanceRelevant, item.Relevance)
}

func TestCollectCommandValidate(t *testing.T) {
	valid := func() CollectCommand {
		return CollectCommand{
			CaseID:       id.NewCaseID(),
			EvidenceType: TypeEmail,
			Custodian:    "  j.doe ",
		}
	}

	t.Run("normalizes defaults", func(t *testing.T) {
		c := valid()
		c.Normalize()
		require.NoError(t, c.Validate())
		assert.Equal(t, "j.doe", c.Custodian)
		assert.Equal(t, CollectionUpload, c.CollectionMethod)
		assert.Equal(t, ConfidentialityConfidential, c.ConfidentialityLevel)
	})

	t.Run("custodian required", func(t *testing.T) {
		c := valid()
		c.Custodian = "   "
		c.Normalize()
		err := c.Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("case required", func(t *testing.T) {
		c := valid()
		c.CaseID = id.CaseID{}
		c.Normalize()
		assert.True(t, dErrors.HasCode(c.Validate(), dErrors.CodeValidation))
	})

	t.Run("unknown type", func(t *testing.T) {
		c := valid()
		c.EvidenceType = "Hologram"
		c.Normalize()
		assert.True(t, dErrors.HasCode(c.Validate(), dErrors.CodeValidation))
	})
}
