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

	evidence "evidex/internal/evidence/models"
	"evidex/internal/privilege/models"
	"evidex/internal/privilege/service"
	"evidex/internal/storage"
	"evidex/internal/storage/memory"
	id "evidex/pkg/domain"
	"evidex/pkg/requestcontext"
	"evidex/pkg/testutil"
)

type PrivilegeHandlerSuite struct {
	suite.Suite
	router chi.Router
	item   *evidence.Item
}

func TestPrivilegeHandlerSuite(t *testing.T) {
	suite.Run(t, new(PrivilegeHandlerSuite))
}

func (s *PrivilegeHandlerSuite) SetupTest() {
	store := memory.New()
	s.item = &evidence.Item{
		ID:             id.NewEvidenceID(),
		EvidenceNumber: "EVD-2024-00007",
		CaseID:         id.NewCaseID(),
		Status:         evidence.StatusActive,
	}
	s.Require().NoError(store.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.Evidence().Create(ctx, s.item)
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(service.New(store), nil, logger).Register(s.router)
}

func (s *PrivilegeHandlerSuite) send(method, path string, body any) *http.Request {
	var req *http.Request
	if body == nil {
		req = testutil.NewRequest(s.T(), method, path)
	} else {
		req = testutil.NewJSONRequest(s.T(), method, path, body)
	}
	ctx := requestcontext.WithTime(req.Context(), time.Date(2024, 8, 20, 10, 0, 0, 0, time.UTC))
	return testutil.WithActorContext(req.WithContext(ctx), "paralegal")
}

func (s *PrivilegeHandlerSuite) logEntry() *models.Entry {
	rr := testutil.DoRequest(s.router, s.send(http.MethodPost, "/cases/"+s.item.CaseID.String()+"/privilege-log", map[string]any{
		"evidenceId":    s.item.ID.String(),
		"privilegeType": "AttorneyClient",
		"basis":         "advice on indemnity clause",
		"author":        "Outside Counsel",
		"recipients":    []string{"GC"},
		"documentDate":  "2023-02-14",
	}))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalData[models.Entry](s.T(), rr)
}

func (s *PrivilegeHandlerSuite) TestLogAndList() {
	entry := s.logEntry()
	s.Equal("PRIV-2024-0001", entry.EntryNumber)
	s.True(entry.Withheld)

	s.Run("json listing", func() {
		rr := testutil.DoRequest(s.router, s.send(http.MethodGet, "/cases/"+s.item.CaseID.String()+"/privilege-log", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Contains(rr.Body.String(), `"total":1`)
	})

	s.Run("csv export", func() {
		rr := testutil.DoRequest(s.router, s.send(http.MethodGet, "/cases/"+s.item.CaseID.String()+"/privilege-log?format=csv", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.True(strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv"))
		rows, err := csv.NewReader(rr.Body).ReadAll()
		s.Require().NoError(err)
		s.Require().Len(rows, 2)
		s.Equal("Entry Number", rows[0][0])
		s.Equal("EVD-2024-00007", rows[1][1])
		s.Equal("2023-02-14", rows[1][2])
	})

	s.Run("unsupported format", func() {
		rr := testutil.DoRequest(s.router, s.send(http.MethodGet, "/cases/"+s.item.CaseID.String()+"/privilege-log?format=xlsx", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("bad document date", func() {
		rr := testutil.DoRequest(s.router, s.send(http.MethodPost, "/cases/"+s.item.CaseID.String()+"/privilege-log", map[string]any{
			"evidenceId":    s.item.ID.String(),
			"privilegeType": "WorkProduct",
			"basis":         "x",
			"documentDate":  "14/02/2023",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *PrivilegeHandlerSuite) TestWaiveTwice() {
	entry := s.logEntry()
	path := "/privilege-log/" + entry.ID.String() + "/waive"

	rr := testutil.DoRequest(s.router, s.send(http.MethodPost, path, map[string]any{"reason": "client consent"}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	waived := testutil.UnmarshalData[models.Entry](s.T(), rr)
	s.False(waived.Withheld)
	s.True(waived.Waived)

	rr = testutil.DoRequest(s.router, s.send(http.MethodPost, path, nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_transition")
}

func (s *PrivilegeHandlerSuite) TestClawbackFlow() {
	entry := s.logEntry()
	base := "/privilege-log/" + entry.ID.String()

	rr := testutil.DoRequest(s.router, s.send(http.MethodPost, base+"/clawback/resolve", map[string]any{"resolution": "Granted"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_transition")

	rr = testutil.DoRequest(s.router, s.send(http.MethodPost, base+"/clawback", map[string]any{"reason": "inadvertent"}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, s.send(http.MethodPost, base+"/clawback/resolve", map[string]any{"resolution": "Requested"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(s.router, s.send(http.MethodPost, base+"/clawback/resolve", map[string]any{"resolution": "Denied"}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	res := testutil.UnmarshalData[service.ClawbackResult](s.T(), rr)
	s.Equal(models.ClawbackDenied, res.Entry.ClawbackStatus)
	s.Zero(res.WithdrawnDocuments)
}

func (s *PrivilegeHandlerSuite) TestUnknownEntry() {
	rr := testutil.DoRequest(s.router, s.send(http.MethodGet, "/privilege-log/"+id.NewPrivilegeEntryID().String(), nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}
