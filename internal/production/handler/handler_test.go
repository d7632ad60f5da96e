package handler

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"evidex/internal/contentstore"
	"evidex/internal/custody/ledger"
	evidence "evidex/internal/evidence/models"
	evidenceSvc "evidex/internal/evidence/service"
	privilege "evidex/internal/privilege/models"
	privilegeSvc "evidex/internal/privilege/service"
	"evidex/internal/production/models"
	"evidex/internal/production/service"
	"evidex/internal/storage/memory"
	id "evidex/pkg/domain"
	"evidex/pkg/requestcontext"
	"evidex/pkg/testutil"
)

type ProductionHandlerSuite struct {
	suite.Suite
	router    chi.Router
	evidence  *evidenceSvc.Service
	privilege *privilegeSvc.Service
	ctx       context.Context
	caseID    id.CaseID
}

func TestProductionHandlerSuite(t *testing.T) {
	suite.Run(t, new(ProductionHandlerSuite))
}

func (s *ProductionHandlerSuite) SetupTest() {
	store := memory.New()
	l := ledger.New(store)
	s.evidence = evidenceSvc.New(store, l, contentstore.NewMemory())
	s.privilege = privilegeSvc.New(store)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC))
	s.caseID = id.NewCaseID()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(service.New(store, l), nil, logger).Register(s.router)
}

func (s *ProductionHandlerSuite) send(method, path string, body any) *http.Request {
	var req *http.Request
	if body == nil {
		req = testutil.NewRequest(s.T(), method, path)
	} else {
		req = testutil.NewJSONRequest(s.T(), method, path, body)
	}
	return testutil.WithActorContext(req.WithContext(s.ctx), "paralegal")
}

func (s *ProductionHandlerSuite) collect() *evidence.Item {
	item, err := s.evidence.Collect(s.ctx, evidence.CollectCommand{
		CaseID:       s.caseID,
		EvidenceType: evidence.TypeDocument,
		Custodian:    "Dana Reyes",
	}, "collector")
	s.Require().NoError(err)
	return item
}

func (s *ProductionHandlerSuite) createProduction(body map[string]any) *ProductionResponse {
	rr := testutil.DoRequest(s.router, s.send(http.MethodPost, "/cases/"+s.caseID.String()+"/productions", body))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalData[ProductionResponse](s.T(), rr)
}

func (s *ProductionHandlerSuite) addDocument(p *ProductionResponse, item *evidence.Item, redacted bool) *http.Request {
	return s.send(http.MethodPost, "/productions/"+p.ID.String()+"/documents", map[string]any{
		"evidenceId": item.ID.String(),
		"pageCount":  4,
		"redacted":   redacted,
	})
}

func (s *ProductionHandlerSuite) TestCreateAndNumber() {
	p := s.createProduction(map[string]any{"name": "Volume 1", "batesPrefix": "acme"})
	s.Equal("PROD-2024-001", p.ProductionNumber)
	s.Equal("ACME", p.BatesPrefix)
	s.Equal(models.DefaultPadWidth, p.PadWidth)

	rr := testutil.DoRequest(s.router, s.addDocument(p, s.collect(), false))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	res := testutil.UnmarshalData[service.AddDocumentResult](s.T(), rr)
	s.Equal("ACME0000001", res.Document.BatesNumber)
	s.Equal(int64(1), res.Production.BatesEndNumber)

	s.Run("next number", func() {
		rr := testutil.DoRequest(s.router, s.send(http.MethodGet, "/cases/"+s.caseID.String()+"/bates/next?prefix=acme", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		next := testutil.UnmarshalData[service.NextNumber](s.T(), rr)
		s.Equal(int64(1), next.LastIssued)
		s.Equal("ACME0000002", next.BatesNumber)
	})

	s.Run("prefix is required", func() {
		rr := testutil.DoRequest(s.router, s.send(http.MethodGet, "/cases/"+s.caseID.String()+"/bates/next", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("overlapping start is a conflict", func() {
		rr := testutil.DoRequest(s.router, s.send(http.MethodPost, "/cases/"+s.caseID.String()+"/productions", map[string]any{
			"name":             "Volume 2",
			"batesPrefix":      "ACME",
			"batesStartNumber": 1,
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("listing", func() {
		rr := testutil.DoRequest(s.router, s.send(http.MethodGet, "/cases/"+s.caseID.String()+"/productions", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Contains(rr.Body.String(), `"total":1`)
	})
}

func (s *ProductionHandlerSuite) TestCreateValidation() {
	rr := testutil.DoRequest(s.router, s.send(http.MethodPost, "/cases/"+s.caseID.String()+"/productions", map[string]any{
		"name": "Volume 1",
	}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(s.router, s.send(http.MethodPost, "/cases/"+s.caseID.String()+"/productions", map[string]any{
		"name":        "Volume 1",
		"batesPrefix": "A B",
	}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *ProductionHandlerSuite) TestPrivilegedDocumentIsUnprocessable() {
	p := s.createProduction(map[string]any{"name": "Volume 1", "batesPrefix": "ACME"})
	item := s.collect()
	_, err := s.privilege.LogPrivilege(s.ctx, privilege.LogCommand{
		CaseID:        s.caseID,
		EvidenceID:    item.ID,
		PrivilegeType: privilege.TypeWorkProduct,
		Basis:         "litigation memo",
	}, "paralegal")
	s.Require().NoError(err)

	rr := testutil.DoRequest(s.router, s.addDocument(p, item, false))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "privileged_document")

	rr = testutil.DoRequest(s.router, s.addDocument(p, item, true))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
}

func (s *ProductionHandlerSuite) TestLifecycleAndIndex() {
	p := s.createProduction(map[string]any{"name": "Volume 1", "batesPrefix": "ACME", "padWidth": 4})
	base := "/productions/" + p.ID.String()

	rr := testutil.DoRequest(s.router, s.send(http.MethodPost, base+"/approve", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_transition")

	for _, step := range []string{"start", "submit", "approve", "deliver", "complete"} {
		if step == "submit" {
			rr := testutil.DoRequest(s.router, s.addDocument(p, s.collect(), false))
			testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		}
		rr := testutil.DoRequest(s.router, s.send(http.MethodPost, base+"/"+step, nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	}

	rr = testutil.DoRequest(s.router, s.send(http.MethodGet, base, nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	got := testutil.UnmarshalData[ProductionResponse](s.T(), rr)
	s.Equal(models.StatusCompleted, got.Status)
	s.Len(got.Transitions, 5)

	rr = testutil.DoRequest(s.router, s.send(http.MethodGet, base+"/index.csv", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.True(strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv"))
	rows, err := csv.NewReader(rr.Body).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("Bates Number", rows[0][0])
	s.Equal("ACME0001", rows[1][0])
}

func (s *ProductionHandlerSuite) TestUnknownProduction() {
	rr := testutil.DoRequest(s.router, s.send(http.MethodGet, "/productions/"+id.NewProductionID().String(), nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(s.router, s.send(http.MethodGet, "/productions/not-an-id", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}
