package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainhr/payportal/config"
	"github.com/chainhr/payportal/internal/types"
	"github.com/chainhr/payportal/payment"
	"github.com/chainhr/payportal/upstream"
)

func testContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestPaymentErrorMapping(t *testing.T) {
	s := &Server{logger: logrus.New()}

	cases := []struct {
		kind       payment.Kind
		wantStatus int
		retryable  bool
	}{
		{payment.KindPermissionDenied, http.StatusForbidden, true},
		{payment.KindNoPayableRecipients, http.StatusUnprocessableEntity, true},
		{payment.KindUnsupportedChain, http.StatusUnprocessableEntity, false},
		{payment.KindChainSwitchFailed, http.StatusBadGateway, true},
		{payment.KindApprovalFailed, http.StatusBadGateway, true},
		{payment.KindTransferFailed, http.StatusBadGateway, true},
		{payment.KindAcknowledgeFailed, http.StatusBadGateway, false},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			c, rec := testContext()
			err := s.paymentError(c, &payment.FlowError{Kind: tc.kind, Err: fmt.Errorf("boom")})
			assert.NoError(t, err)
			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp envelope
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEqual(t, 0, resp.Code)
			assert.Equal(t, tc.kind.String(), resp.Msg)

			data, ok := resp.Data.(map[string]interface{})
			assert.True(t, ok)
			assert.Equal(t, tc.kind.String(), data["kind"])
			assert.Equal(t, tc.retryable, data["retryable"])
		})
	}
}

func TestPaymentErrorInProgress(t *testing.T) {
	s := &Server{logger: logrus.New()}
	c, rec := testContext()
	err := s.paymentError(c, payment.ErrPaymentInProgress)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPaymentErrorUnclassifiedBubbles(t *testing.T) {
	s := &Server{logger: logrus.New()}
	c, _ := testContext()
	cause := errors.New("redis down")
	err := s.paymentError(c, cause)
	assert.Equal(t, cause, err)
}

// journalStub satisfies storage.DatabaseStorage for handler tests that only
// read the journal.
type journalStub struct {
	latest *types.PaymentAttempt
}

func (j *journalStub) Close() error { return nil }
func (j *journalStub) CreateAttempt(ctx context.Context, attempt types.PaymentAttempt) error {
	return nil
}
func (j *journalStub) MarkBroadcast(ctx context.Context, id uuid.UUID, txHashes []string) error {
	return nil
}
func (j *journalStub) MarkAcknowledged(ctx context.Context, id uuid.UUID) error { return nil }
func (j *journalStub) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return nil
}
func (j *journalStub) LatestAttempt(ctx context.Context, payrollID int64) (*types.PaymentAttempt, error) {
	return j.latest, nil
}
func (j *journalStub) AttemptByID(ctx context.Context, id uuid.UUID) (*types.PaymentAttempt, error) {
	return j.latest, nil
}
func (j *journalStub) AttemptHistory(ctx context.Context, payrollID int64, take int, skip int) ([]types.PaymentAttempt, error) {
	return nil, nil
}

func TestPayStatusReportsPayrollAndAttempt(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/portal/payroll/detail/7" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":0,"msg":"","timestamp":0,"data":{"payroll":{"id":7,"status":"02","pay_time":"2026-08"},"staff_list":[]}}`)
	}))
	defer backend.Close()

	var cfg config.Config
	cfg.Upstream.URL = backend.URL
	logger := logrus.New()

	s := &Server{
		logger:   logger,
		upstream: upstream.NewClient(cfg, logger),
		db: &journalStub{latest: &types.PaymentAttempt{
			ID:        uuid.New(),
			PayrollID: 7,
			State:     types.AttemptBroadcast,
			TxHashes:  []string{"0xabc"},
		}},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/portal/payroll/pay/status/7", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("7")
	c.Set("session", &types.Session{ID: "s1", UpstreamToken: "tok"})

	require.NoError(t, s.PayStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), data["payroll_id"])
	assert.Equal(t, "approved", data["status"])

	attempt, ok := data["attempt"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(types.AttemptBroadcast), attempt["state"])
}

func TestExtractToken(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "abc123", extractToken(c))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("XAUTH", "xyz789")
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "xyz789", extractToken(c))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "", extractToken(c))
}
