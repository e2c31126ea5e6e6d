package portal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"aspen/config"
	"aspen/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.PortalConfig{
		BaseURL:        server.URL,
		DevicePageSize: 100,
		RequestTimeout: 5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testAccount() *entity.Account {
	return &entity.Account{
		Account: "dev@example.com",
		TeamID:  "TEAM1",
		Cookie:  `{"myacinfo":"tok","dqsid":"abc"}`,
		Headers: `{"user-agent":"Mozilla/5.0",":authority":"developer.example.com"}`,
	}
}

func TestClient_SendsSessionCookiesAndHeaders(t *testing.T) {
	var gotCookie, gotAgent, gotAuthority string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotAgent = r.Header.Get("User-Agent")
		gotAuthority = r.Header.Get(":authority")
		_ = json.NewEncoder(w).Encode(map[string]any{"resultCode": 0, "devices": []any{}})
	}))

	_, err := client.ListDevices(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, "dqsid=abc; myacinfo=tok", gotCookie)
	assert.Equal(t, "Mozilla/5.0", gotAgent)
	assert.Empty(t, gotAuthority, "http/2 pseudo-headers must not be resent")
}

func TestClient_NonZeroResultCodeFails(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"resultCode": 7250, "devices": []any{}})
	}))

	_, err := client.ListDevices(context.Background(), testAccount())
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "dev@example.com", remoteErr.Account)
	assert.Contains(t, err.Error(), "7250")
}

func TestClient_UnexpectedStatusFails(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.ListDevices(context.Background(), testAccount())
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
}

func TestClient_CSRFPrimedOnceAndReused(t *testing.T) {
	var primes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/services-account/QH65B2/account/ios/device/listDevices.action", func(w http.ResponseWriter, _ *http.Request) {
		primes.Add(1)
		w.Header().Set("csrf", "token-1")
		w.Header().Set("csrf_ts", "171717")
		_ = json.NewEncoder(w).Encode(map[string]any{"resultCode": 0, "devices": []any{}})
	})
	var gotCSRF []string
	mux.HandleFunc("/services-account/QH65B2/account/ios/device/validateDevices.action", func(w http.ResponseWriter, r *http.Request) {
		gotCSRF = append(gotCSRF, r.Header.Get("csrf")+"/"+r.Header.Get("csrf_ts"))
		_ = json.NewEncoder(w).Encode(map[string]any{"resultCode": 0, "failedDevices": []any{}})
	})
	client := testClient(t, mux)

	account := testAccount()
	require.NoError(t, client.ValidateDevice(context.Background(), account, "udid-1", "udid-1"))
	require.NoError(t, client.ValidateDevice(context.Background(), account, "udid-2", "udid-2"))

	assert.Equal(t, int32(1), primes.Load())
	assert.Equal(t, []string{"token-1/171717", "token-1/171717"}, gotCSRF)
}

func TestClient_ValidateDeviceFailedValidation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services-account/QH65B2/account/ios/device/listDevices.action", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("csrf", "token-1")
		_ = json.NewEncoder(w).Encode(map[string]any{"resultCode": 0, "devices": []any{}})
	})
	mux.HandleFunc("/services-account/QH65B2/account/ios/device/validateDevices.action", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resultCode":    0,
			"failedDevices": []any{map[string]any{"deviceNumber": "bad"}},
		})
	})
	client := testClient(t, mux)

	err := client.ValidateDevice(context.Background(), testAccount(), "bad", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed validation")
}

func TestClient_DownloadProfileBinary(t *testing.T) {
	payload := []byte{0x30, 0x82, 0x01, 0x00}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "prof-1", r.URL.Query().Get("displayId"))
		_, _ = w.Write(payload)
	}))

	blob, err := client.DownloadProfile(context.Background(), testAccount(), "prof-1")
	require.NoError(t, err)
	assert.Equal(t, payload, blob)
}

func TestClient_GetUserProfile(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "myacinfo=probe", r.Header.Get("Cookie"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resultCode":  0,
			"userProfile": map[string]any{"email": "Dev@Example.com"},
		})
	}))

	email, err := client.GetUserProfile(context.Background(), "myacinfo=probe")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", email)
}
