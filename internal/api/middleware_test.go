package api

import (
	"fmt"
	"net/http"
	"testing"

	"fittrack/app/internal/metrics"
	"fittrack/app/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuthMiddleware_Rejects(t *testing.T) {
	env := newTestEnv(t)
	env.auth.EXPECT().ParseToken(gomock.Any(), "expired").Return(nil, service.ErrInvalidToken)

	for name, header := range map[string]string{
		"missing":   "",
		"malformed": "Token " + testToken,
		"expired":   "Bearer expired",
	} {
		t.Run(name, func(t *testing.T) {
			req := newRequest(t, http.MethodGet, "/api/v1/schedule", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := env.serve(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, errorBody(t, rec)["error"])
		})
	}
}

func TestAuthMiddleware_StoreUnavailableIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	env.auth.EXPECT().ParseToken(gomock.Any(), "other").
		Return(nil, fmt.Errorf("check revocation: %w", service.ErrStoreUnavailable))

	req := newRequest(t, http.MethodGet, "/api/v1/schedule", nil)
	req.Header.Set("Authorization", "Bearer other")
	rec := env.serve(req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, true, errorBody(t, rec)["retryable"])
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doAnon(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	env := newTestEnv(t, func(o *RouteOptions) {
		o.MetricsPath = "/metrics"
		o.Gatherer = reg
	})

	rec := env.doAnon(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fittrack_sessions_completed_total")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doAnon(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondWithServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("password: %w", service.ErrWeakPassword), http.StatusBadRequest},
		{service.ErrAuthenticationFailed, http.StatusUnauthorized},
		{service.ErrNotWorkoutCreator, http.StatusForbidden},
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrVideoStorageDisabled, http.StatusNotImplemented},
		{fmt.Errorf("list sessions: %w", service.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			env := newTestEnv(t)
			env.friend.EXPECT().ListFriends(gomock.Any(), env.userID).Return(nil, tc.err)

			rec := env.do(t, http.MethodGet, "/api/v1/friends", nil)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
