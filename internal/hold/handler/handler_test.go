package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"evidex/internal/hold/handler/mocks"
	"evidex/internal/hold/models"
	"evidex/internal/hold/service"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(svc, nil, logger).Register(r)
	return r, svc
}

func sampleHold(caseID id.CaseID) *models.Hold {
	return &models.Hold{
		ID:         id.NewHoldID(),
		HoldNumber: "HOLD-2024-001",
		CaseID:     caseID,
		Title:      "Finance preservation",
		Status:     models.StatusActive,
		Custodians: []models.Custodian{{Name: "A", Email: "a@x.com"}, {Name: "B", Email: "b@x.com"}},
		IssuedBy:   "counsel",
		IssuedAt:   time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC),
	}
}

func TestHandleIssue(t *testing.T) {
	caseID := id.NewCaseID()

	t.Run("issues with the actor as issuer", func(t *testing.T) {
		r, svc := newTestRouter(t)
		h := sampleHold(caseID)
		svc.EXPECT().Issue(gomock.Any(), service.IssueCommand{
			CaseID:     caseID,
			Scope:      "finance mail",
			Custodians: []models.Custodian{{Name: "A", Email: "a@x.com"}},
		}, "counsel@firm.example").Return(h, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/cases/"+caseID.String()+"/holds", map[string]any{
			"scope":      "finance mail",
			"custodians": []map[string]string{{"name": "A", "email": "a@x.com"}},
		})
		rr := testutil.DoRequest(r, testutil.WithActorContext(req, "counsel@firm.example"))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		got := testutil.UnmarshalData[HoldResponse](t, rr)
		assert.Equal(t, "HOLD-2024-001", got.HoldNumber)
	})

	t.Run("no custodians never reaches the service", func(t *testing.T) {
		r, _ := newTestRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/cases/"+caseID.String()+"/holds", map[string]any{
			"scope":      "finance mail",
			"custodians": []map[string]string{},
		})
		rr := testutil.DoRequest(r, testutil.WithActorContext(req, "counsel"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("service validation surfaces as 400", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Issue(gomock.Any(), gomock.Any(), "counsel").
			Return(nil, dErrors.New(dErrors.CodeValidation, "duplicate custodian email a@x.com"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/cases/"+caseID.String()+"/holds", map[string]any{
			"scope":      "x",
			"custodians": []map[string]string{{"email": "a@x.com"}, {"email": "A@x.com"}},
		})
		rr := testutil.DoRequest(r, testutil.WithActorContext(req, "counsel"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func TestHandleAcknowledge(t *testing.T) {
	caseID := id.NewCaseID()

	t.Run("passes email and method through", func(t *testing.T) {
		r, svc := newTestRouter(t)
		h := sampleHold(caseID)
		h.ComplianceRate = 0.5
		svc.EXPECT().Acknowledge(gomock.Any(), h.ID, "a@x.com", models.AckSignedForm).Return(h, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/holds/"+h.ID.String()+"/acknowledgements", map[string]any{
			"email":  " a@x.com ",
			"method": "SignedForm",
		})
		rr := testutil.DoRequest(r, testutil.WithActorContext(req, "a@x.com"))

		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalData[HoldResponse](t, rr)
		assert.Equal(t, 0.5, got.ComplianceRate)
	})

	t.Run("unknown method is rejected", func(t *testing.T) {
		r, _ := newTestRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/holds/"+id.NewHoldID().String()+"/acknowledgements", map[string]any{
			"email":  "a@x.com",
			"method": "Carrier pigeon",
		})
		rr := testutil.DoRequest(r, testutil.WithActorContext(req, "a@x.com"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("released hold is a conflict", func(t *testing.T) {
		r, svc := newTestRouter(t)
		holdID := id.NewHoldID()
		svc.EXPECT().Acknowledge(gomock.Any(), holdID, "a@x.com", models.AckMethod("")).
			Return(nil, dErrors.New(dErrors.CodeInvalidTransition, "hold is released"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/holds/"+holdID.String()+"/acknowledgements", map[string]any{
			"email": "a@x.com",
		})
		rr := testutil.DoRequest(r, testutil.WithActorContext(req, "a@x.com"))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_transition")
	})
}

func TestHandleRelease(t *testing.T) {
	r, svc := newTestRouter(t)
	h := sampleHold(id.NewCaseID())
	h.Status = models.StatusReleased
	svc.EXPECT().Release(gomock.Any(), h.ID, "counsel", "").Return(h, nil)

	req := testutil.NewRequest(t, http.MethodPost, "/holds/"+h.ID.String()+"/release")
	rr := testutil.DoRequest(r, testutil.WithActorContext(req, "counsel"))

	testutil.AssertStatus(t, rr, http.StatusOK)
	got := testutil.UnmarshalData[HoldResponse](t, rr)
	assert.Equal(t, models.StatusReleased, got.Status)
}

func TestHandleAddEvidence(t *testing.T) {
	r, svc := newTestRouter(t)
	h := sampleHold(id.NewCaseID())
	ids := []id.EvidenceID{id.NewEvidenceID(), id.NewEvidenceID()}
	svc.EXPECT().AddEvidence(gomock.Any(), h.ID, ids, "counsel").
		Return(&service.AddEvidenceResult{Hold: h, Added: 1, AlreadyHeld: 1}, nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/holds/"+h.ID.String()+"/evidence", map[string]any{
		"evidenceIds": []string{ids[0].String(), ids[1].String()},
	})
	rr := testutil.DoRequest(r, testutil.WithActorContext(req, "counsel"))

	testutil.AssertStatus(t, rr, http.StatusOK)
	got := testutil.UnmarshalData[service.AddEvidenceResult](t, rr)
	assert.Equal(t, 1, got.Added)
	assert.Equal(t, 1, got.AlreadyHeld)
}

func TestHandleGet(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		r, _ := newTestRouter(t)
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/holds/12"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("internal errors hide their message", func(t *testing.T) {
		r, svc := newTestRouter(t)
		holdID := id.NewHoldID()
		svc.EXPECT().Get(gomock.Any(), holdID).Return(nil, assert.AnError)

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/holds/"+holdID.String()))
		testutil.AssertStatus(t, rr, http.StatusInternalServerError)
		env := testutil.DecodeEnvelope(t, rr)
		require.NotNil(t, env.Error)
		assert.Empty(t, env.Error.Message)
	})
}
