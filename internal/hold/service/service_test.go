package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"evidex/internal/contentstore"
	"evidex/internal/custody/ledger"
	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	evidenceSvc "evidex/internal/evidence/service"
	"evidex/internal/hold/models"
	"evidex/internal/platform/metrics"
	"evidex/internal/storage/memory"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
	"evidex/pkg/testutil"
)

type HoldServiceSuite struct {
	suite.Suite
	store    *memory.Store
	metrics  *metrics.Metrics
	evidence *evidenceSvc.Service
	service  *Service
	ctx      context.Context
	caseID   id.CaseID
}

func TestHoldServiceSuite(t *testing.T) {
	suite.Run(t, new(HoldServiceSuite))
}

func (s *HoldServiceSuite) SetupTest() {
	s.store = memory.New()
	s.metrics = metrics.New(prometheus.NewRegistry())
	l := ledger.New(s.store)
	s.evidence = evidenceSvc.New(s.store, l, contentstore.NewMemory())
	s.service = New(s.store, s.evidence, l, WithMetrics(s.metrics))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC))
	s.caseID = id.NewCaseID()
}

func (s *HoldServiceSuite) issue(emails ...string) *models.Hold {
	custodians := make([]models.Custodian, len(emails))
	for i, e := range emails {
		custodians[i] = models.Custodian{Email: e}
	}
	h, err := s.service.Issue(s.ctx, IssueCommand{CaseID: s.caseID, Scope: "finance mail 2022-2023", Custodians: custodians}, "counsel")
	s.Require().NoError(err)
	return h
}

func (s *HoldServiceSuite) collect() *evidence.Item {
	item, err := s.evidence.Collect(s.ctx, evidence.CollectCommand{
		CaseID:       s.caseID,
		EvidenceType: evidence.TypeDocument,
		Custodian:    "Dana Reyes",
	}, "collector")
	s.Require().NoError(err)
	return item
}

func (s *HoldServiceSuite) TestIssue() {
	h := s.issue("a@x.com", "B@X.com")

	s.Equal("HOLD-2024-001", h.HoldNumber)
	s.Equal("HOLD-2024-001", h.Title)
	s.Equal(models.StatusActive, h.Status)
	s.Zero(h.ComplianceRate)
	s.Equal("b@x.com", h.Custodians[1].Email)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.HoldsIssued))

	s.Run("duplicate emails are rejected case-insensitively", func() {
		_, err := s.service.Issue(s.ctx, IssueCommand{
			CaseID:     s.caseID,
			Scope:      "x",
			Custodians: []models.Custodian{{Email: "a@x.com"}, {Email: "A@x.com"}},
		}, "counsel")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("empty email is rejected", func() {
		_, err := s.service.Issue(s.ctx, IssueCommand{
			CaseID:     s.caseID,
			Scope:      "x",
			Custodians: []models.Custodian{{Name: "Nobody"}},
		}, "counsel")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejected holds do not consume numbers", func() {
		next := s.issue("c@x.com")
		s.Equal("HOLD-2024-002", next.HoldNumber)
	})
}

func (s *HoldServiceSuite) TestAcknowledgementScenario() {
	testutil.Given(s.T(), "a hold with two custodians", func(t *testing.T) {
		h := s.issue("a@x.com", "b@x.com")

		testutil.When(t, "a acknowledges twice and b once", func(t *testing.T) {
			got, err := s.service.Acknowledge(s.ctx, h.ID, "a@x.com", models.AckEmail)
			require.NoError(t, err)
			assert.Equal(t, 0.5, got.ComplianceRate)

			got, err = s.service.Acknowledge(s.ctx, h.ID, "A@X.COM", models.AckPortal)
			require.NoError(t, err)
			assert.Equal(t, 0.5, got.ComplianceRate)
			assert.Equal(t, models.AckEmail, got.Custodians[0].AcknowledgementMethod)

			got, err = s.service.Acknowledge(s.ctx, h.ID, "b@x.com", models.AckSignedForm)
			require.NoError(t, err)

			testutil.Then(t, "compliance reaches 1.0 and repeats are not counted", func(t *testing.T) {
				assert.Equal(t, 1.0, got.ComplianceRate)
				assert.Equal(t, 2.0, promtest.ToFloat64(s.metrics.HoldAcknowledgements))
			})
		})
	})
}

func (s *HoldServiceSuite) TestAcknowledgeErrors() {
	h := s.issue("a@x.com")

	_, err := s.service.Acknowledge(s.ctx, h.ID, "stranger@x.com", models.AckEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Acknowledge(s.ctx, id.NewHoldID(), "a@x.com", models.AckEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Release(s.ctx, h.ID, "counsel", "matter settled")
	s.Require().NoError(err)
	_, err = s.service.Acknowledge(s.ctx, h.ID, "a@x.com", models.AckEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *HoldServiceSuite) TestOverlappingHolds() {
	h1 := s.issue("a@x.com")
	h2 := s.issue("b@x.com")
	item := s.collect()

	res, err := s.service.AddEvidence(s.ctx, h1.ID, []id.EvidenceID{item.ID, item.ID}, "counsel")
	s.Require().NoError(err)
	s.Equal(1, res.Added)
	_, err = s.service.AddEvidence(s.ctx, h2.ID, []id.EvidenceID{item.ID}, "counsel")
	s.Require().NoError(err)

	s.Run("first release keeps the item held", func() {
		released, err := s.service.Release(s.ctx, h1.ID, "counsel", "scope narrowed")
		s.Require().NoError(err)
		s.Equal(models.StatusReleased, released.Status)

		got, err := s.evidence.Get(s.ctx, item.ID)
		s.Require().NoError(err)
		s.True(got.OnLegalHold)
		s.Equal([]id.HoldID{h2.ID}, got.HoldIDs)
	})

	s.Run("releasing twice fails", func() {
		_, err := s.service.Release(s.ctx, h1.ID, "counsel", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("last release frees the item", func() {
		_, err := s.service.Release(s.ctx, h2.ID, "counsel", "matter closed")
		s.Require().NoError(err)

		got, err := s.evidence.Get(s.ctx, item.ID)
		s.Require().NoError(err)
		s.False(got.OnLegalHold)
	})

	s.Run("each reference change is one ledger entry", func() {
		entries, err := s.evidence.Custody(s.ctx, item.ID)
		s.Require().NoError(err)
		var applied, released int
		for _, e := range entries {
			switch e.Action {
			case custody.ActionLegalHoldApplied:
				applied++
			case custody.ActionLegalHoldReleased:
				released++
			}
		}
		s.Equal(2, applied)
		s.Equal(2, released)
	})

	s.Run("released holds accept no evidence", func() {
		_, err := s.service.AddEvidence(s.ctx, h1.ID, []id.EvidenceID{item.ID}, "counsel")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Equal(2.0, promtest.ToFloat64(s.metrics.HoldsReleased))
}

func (s *HoldServiceSuite) TestAddEvidenceIsAllOrNothing() {
	h := s.issue("a@x.com")
	item := s.collect()

	_, err := s.service.AddEvidence(s.ctx, h.ID, []id.EvidenceID{item.ID, id.NewEvidenceID()}, "counsel")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	got, err := s.evidence.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.False(got.OnLegalHold)
}

func (s *HoldServiceSuite) TestListByCase() {
	s.issue("a@x.com")
	s.issue("b@x.com")

	holds, err := s.service.ListByCase(s.ctx, s.caseID)
	s.Require().NoError(err)
	s.Len(holds, 2)

	none, err := s.service.ListByCase(s.ctx, id.NewCaseID())
	s.Require().NoError(err)
	s.Empty(none)
}
