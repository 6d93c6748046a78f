package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainhr/payportal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var cfg config.Config
	cfg.Upstream.URL = srv.URL
	cfg.Upstream.AppID = "primary"
	cfg.Upstream.Ver = "v1"
	cfg.Upstream.ApiKey = "secret-key"
	return NewClient(cfg, logrus.New()), srv
}

func TestSign(t *testing.T) {
	// SIG = hex(SHA256(appid + ts + ver + key))
	want := sha256.Sum256([]byte("primary" + "1700000000" + "v1" + "secret-key"))
	assert.Equal(t, hex.EncodeToString(want[:]), Sign("primary", 1700000000, "v1", "secret-key"))
}

func TestRequestHeaders(t *testing.T) {
	var gotAppID, gotVer, gotTS, gotSig, gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAppID = r.Header.Get("APPID")
		gotVer = r.Header.Get("VER")
		gotTS = r.Header.Get("TS")
		gotSig = r.Header.Get("SIG")
		gotAuth = r.Header.Get("XAUTH")
		_ = json.NewEncoder(w).Encode(Envelope{Code: 0, Data: json.RawMessage(`{"payrolls":[]}`)})
	})

	_, err := client.WithToken("session-token").PayrollList(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "primary", gotAppID)
	assert.Equal(t, "v1", gotVer)
	assert.Equal(t, "session-token", gotAuth)

	ts, err := strconv.ParseInt(gotTS, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, Sign("primary", ts, "v1", "secret-key"), gotSig)
}

func TestWithTokenDoesNotMutateBase(t *testing.T) {
	var cfg config.Config
	cfg.Upstream.URL = "http://example.invalid"
	base := NewClient(cfg, logrus.New())
	authed := base.WithToken("tok")

	assert.Empty(t, base.token)
	assert.Equal(t, "tok", authed.token)
}

func TestEnvelopeErrorCode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Envelope{Code: 403, Msg: "no permission"})
	})

	_, err := client.PaymentConfig(context.Background(), 42)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
	assert.Equal(t, "no permission", apiErr.Msg)
	assert.True(t, IsPermissionDenied(err))
}

func TestIsPermissionDeniedOtherErrors(t *testing.T) {
	assert.False(t, IsPermissionDenied(&APIError{Code: 500, Msg: "boom"}))
	assert.False(t, IsPermissionDenied(context.Canceled))
}

func TestLoginHashesPassword(t *testing.T) {
	var gotBody map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/portal/login", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(Envelope{
			Code: 0,
			Data: json.RawMessage(`{"token":"xauth-token","user":{"id":7,"name":"Ada"}}`),
		})
	})

	result, err := client.Login(context.Background(), "ada", "hunter2")
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("hunter2"))
	assert.Equal(t, hex.EncodeToString(sum[:]), gotBody["password"])
	assert.Equal(t, "ada", gotBody["login_id"])
	assert.Equal(t, "xauth-token", result.Token)
	assert.Equal(t, int64(7), result.User.ID)
}

func TestPaymentConfigDecode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/portal/payroll/pay/config/42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Envelope{Code: 0, Data: json.RawMessage(`{
			"chain": "arbitrum",
			"pay_token": "usdc",
			"pay_contract": "0x1111111111111111111111111111111111111111",
			"disburse_contract": "0x2222222222222222222222222222222222222222",
			"recipients": [
				{"wallet_address": "0xAA", "amount": "100.00"},
				{"wallet_address": "0xBB", "amount": "50.00"}
			]
		}`)})
	})

	cfg, err := client.PaymentConfig(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "arbitrum", cfg.Chain)
	require.Len(t, cfg.Recipients, 2)
	assert.Equal(t, "0xAA", cfg.Recipients[0].Address)
	assert.Equal(t, "50.00", cfg.Recipients[1].Amount)
}
