package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	evidence "evidex/internal/evidence/models"
	"evidex/internal/platform/metrics"
	"evidex/internal/privilege/models"
	production "evidex/internal/production/models"
	"evidex/internal/storage"
	"evidex/internal/storage/memory"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
)

type PrivilegeServiceSuite struct {
	suite.Suite
	store   *memory.Store
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
	item    *evidence.Item
}

func TestPrivilegeServiceSuite(t *testing.T) {
	suite.Run(t, new(PrivilegeServiceSuite))
}

func (s *PrivilegeServiceSuite) SetupTest() {
	s.store = memory.New()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store, WithMetrics(s.metrics))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC))
	s.item = &evidence.Item{
		ID:             id.NewEvidenceID(),
		EvidenceNumber: "EVD-2024-00001",
		CaseID:         id.NewCaseID(),
		Status:         evidence.StatusActive,
	}
	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Evidence().Create(ctx, s.item)
	}))
}

func (s *PrivilegeServiceSuite) logEntry() *models.Entry {
	docDate := time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC)
	e, err := s.service.LogPrivilege(s.ctx, models.LogCommand{
		CaseID:        s.item.CaseID,
		EvidenceID:    s.item.ID,
		PrivilegeType: models.TypeAttorneyClient,
		Basis:         "legal advice on merger terms",
		Author:        "General Counsel",
		Recipients:    []string{"CFO", " ", "CEO"},
		DocumentDate:  &docDate,
	}, "paralegal")
	s.Require().NoError(err)
	return e
}

func (s *PrivilegeServiceSuite) TestLogPrivilege() {
	e := s.logEntry()

	s.Equal("PRIV-2024-0001", e.EntryNumber)
	s.Equal("EVD-2024-00001", e.EvidenceNumber)
	s.True(e.Withheld)
	s.False(e.Waived)
	s.Equal(models.ClawbackNone, e.ClawbackStatus)
	s.Equal([]string{"CFO", "CEO"}, e.Recipients)
	s.Require().Len(e.Notes, 1)
	s.Equal(models.NoteLogged, e.Notes[0].Kind)

	withheld, err := s.service.IsWithheld(s.ctx, s.item.ID)
	s.Require().NoError(err)
	s.True(withheld)

	s.Run("evidence from another case is rejected", func() {
		_, err := s.service.LogPrivilege(s.ctx, models.LogCommand{
			CaseID:        id.NewCaseID(),
			EvidenceID:    s.item.ID,
			PrivilegeType: models.TypeWorkProduct,
			Basis:         "trial prep",
		}, "paralegal")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown evidence is not found", func() {
		_, err := s.service.LogPrivilege(s.ctx, models.LogCommand{
			CaseID:        s.item.CaseID,
			EvidenceID:    id.NewEvidenceID(),
			PrivilegeType: models.TypeWorkProduct,
			Basis:         "trial prep",
		}, "paralegal")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PrivilegeServiceSuite) TestWaiveTwiceKeepsState() {
	e := s.logEntry()

	waived, err := s.service.Waive(s.ctx, e.ID, "partner", "disclosed to auditors")
	s.Require().NoError(err)
	s.False(waived.Withheld)
	s.True(waived.Waived)

	_, err = s.service.Waive(s.ctx, e.ID, "partner", "again")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	got, err := s.service.Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.False(got.Withheld)
	s.True(got.Waived)
	s.Len(got.Notes, 2)

	withheld, err := s.service.IsWithheld(s.ctx, s.item.ID)
	s.Require().NoError(err)
	s.False(withheld)

	s.Run("waived entries cannot be clawed back", func() {
		_, err := s.service.RequestClawback(s.ctx, e.ID, "partner", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *PrivilegeServiceSuite) TestClawbackGrantWithdrawsDocuments() {
	e := s.logEntry()
	p := &production.Production{
		ID:               id.NewProductionID(),
		ProductionNumber: "PROD-2024-001",
		CaseID:           s.item.CaseID,
		Name:             "first volume",
		BatesPrefix:      "ABC",
		BatesStartNumber: 1,
		PadWidth:         6,
		Status:           production.StatusInProgress,
	}
	p.ApplyDocument(s.item.ID, s.item.EvidenceNumber, 3, true, "paralegal", requestcontext.Now(s.ctx))
	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.Productions().Create(ctx, p)
	}))

	_, err := s.service.ResolveClawback(s.ctx, e.ID, models.ClawbackGranted, "judge", "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "nothing pending yet")

	_, err = s.service.RequestClawback(s.ctx, e.ID, "counsel", "inadvertent production")
	s.Require().NoError(err)

	s.Run("waiving is blocked while a clawback is pending", func() {
		_, err := s.service.Waive(s.ctx, e.ID, "partner", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	res, err := s.service.ResolveClawback(s.ctx, e.ID, models.ClawbackGranted, "judge", "order 14")
	s.Require().NoError(err)
	s.Equal(models.ClawbackGranted, res.Entry.ClawbackStatus)
	s.True(res.Entry.Withheld)
	s.Equal(1, res.WithdrawnDocuments)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.ClawbacksGranted))

	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.Productions().Get(ctx, p.ID)
		s.Require().NoError(err)
		s.True(got.Documents[0].Withdrawn)
		s.Equal("ABC000001", got.Documents[0].BatesNumber)
		s.Equal(int64(1), got.BatesEndNumber)
		return nil
	}))
}

func (s *PrivilegeServiceSuite) TestClawbackDeniedCanBeRequestedAgain() {
	e := s.logEntry()

	_, err := s.service.RequestClawback(s.ctx, e.ID, "counsel", "")
	s.Require().NoError(err)
	res, err := s.service.ResolveClawback(s.ctx, e.ID, models.ClawbackDenied, "judge", "")
	s.Require().NoError(err)
	s.Zero(res.WithdrawnDocuments)

	again, err := s.service.RequestClawback(s.ctx, e.ID, "counsel", "new facts")
	s.Require().NoError(err)
	s.Equal(models.ClawbackRequested, again.ClawbackStatus)

	_, err = s.service.ResolveClawback(s.ctx, e.ID, models.ClawbackNone, "judge", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *PrivilegeServiceSuite) TestExportCSV() {
	s.logEntry()

	var buf bytes.Buffer
	s.Require().NoError(s.service.ExportCSV(s.ctx, s.item.CaseID, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(logHeader, rows[0])
	s.Equal("PRIV-2024-0001", rows[1][0])
	s.Equal("2023-11-02", rows[1][2])
	s.Equal("CFO; CEO", rows[1][6])
	s.Equal("true", rows[1][8])
}
