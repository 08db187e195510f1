package paypro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGateway(Config{
		VendorAccountID: 4242,
		APISecretKey:    "api-secret",
		APIBaseURL:      srv.URL,
		Timeout:         200 * time.Millisecond,
	})
}

func TestManage_Endpoints(t *testing.T) {
	calls := map[string]managementRequest{}
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body managementRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls[r.URL.Path] = body

		_, _ = w.Write([]byte(`{"isSuccess":true,"errors":[]}`))
	})

	ctx := context.Background()
	assert.Equal(t, ActionResult{Success: true}, g.CancelSubscription(ctx, "555"))
	assert.Equal(t, ActionResult{Success: true}, g.ResumeSubscription(ctx, "555"))
	assert.Equal(t, ActionResult{Success: true}, g.TerminateSubscription(ctx, "555"))

	require.Len(t, calls, 3)
	for _, path := range []string{pathSuspend, pathRenew, pathTerminate} {
		body, ok := calls[path]
		require.True(t, ok, path)
		assert.Equal(t, int64(555), body.SubscriptionID)
		assert.Equal(t, int64(4242), body.VendorAccountID)
		assert.Equal(t, "api-secret", body.APISecretKey)
	}
}

func TestManage_NotSuccess(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"isSuccess":false,"errors":[{"message":"Subscription already suspended"}]}`))
	})

	res := g.CancelSubscription(context.Background(), "555")
	assert.False(t, res.Success)
	assert.Equal(t, "Subscription already suspended", res.Error)
}

func TestManage_BadJSON(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	res := g.CancelSubscription(context.Background(), "555")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestManage_Timeout(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
		_, _ = w.Write([]byte(`{"isSuccess":true}`))
	})

	res := g.CancelSubscription(context.Background(), "555")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestManage_InvalidSubscriptionID(t *testing.T) {
	called := false
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})

	for _, id := range []string{"", "abc", "-5", "0"} {
		res := g.CancelSubscription(context.Background(), id)
		assert.False(t, res.Success, id)
	}
	assert.False(t, called)
}

func TestManage_NetworkError(t *testing.T) {
	g := NewGateway(Config{APIBaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})

	res := g.ResumeSubscription(context.Background(), "555")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}
