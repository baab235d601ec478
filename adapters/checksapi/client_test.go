package checksapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"statadvisor/domain/core"
	"statadvisor/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"dataset": "ds-1",
			"result": {"assumptions": {
				"normality": {"passed": false, "p_value": 0.02, "test": "shapiro_wilk", "timestamp": "2026-01-02T03:04:05Z"},
				"homogeneity": {"passed": true, "pValue": 0.4},
				"independence": {"passed": null},
				"linearity": {"passed": false, "p_value": "0.0004"},
				"bogus": 42
			}}
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:    server.URL + "/",
		ResultPath: "result.assumptions",
		Headers:    map[string]string{"X-API-Key": "secret"},
	})

	checks, err := client.Fetch(context.Background(), core.DatasetID("ds-1"))
	require.NoError(t, err)

	assert.Equal(t, "/datasets/ds-1/assumptions", gotPath)
	assert.Equal(t, "secret", gotAuth)
	require.Len(t, checks, 4, "non-object entries are skipped")

	normality := checks["normality"]
	require.NotNil(t, normality.Passed)
	assert.False(t, *normality.Passed)
	require.NotNil(t, normality.PValue)
	assert.InDelta(t, 0.02, *normality.PValue, 1e-12)
	assert.Equal(t, "shapiro_wilk", normality.Test)
	assert.Equal(t, 2026, normality.Timestamp.Time().Year())

	assert.InDelta(t, 0.4, *checks["homogeneity"].PValue, 1e-12, "camelCase alias is accepted")
	assert.Nil(t, checks["independence"].Passed)
	assert.InDelta(t, 0.0004, *checks["linearity"].PValue, 1e-12, "numeric strings are accepted")
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantIs   error
	}{
		{"server error", http.StatusBadGateway, `oops`, errors.CodeExternalService, core.ErrUpstream},
		{"unknown dataset", http.StatusNotFound, `{}`, "", core.ErrNotFound},
		{"missing path", http.StatusOK, `{"other": {}}`, errors.CodeExternalService, core.ErrUpstream},
		{"not json", http.StatusOK, `<html>`, errors.CodeExternalService, core.ErrUpstream},
		{"scalar at path", http.StatusOK, `{"assumptions": "none"}`, errors.CodeExternalService, core.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(Config{BaseURL: server.URL}).Fetch(context.Background(), "ds")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errors.GetCode(err))
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond}).Fetch(context.Background(), "ds")
	assert.ErrorIs(t, err, core.ErrUpstream)
}

func TestParseChecks_Array(t *testing.T) {
	body := []byte(`{"assumptions": [
		{"assumption": "normality", "passed": true, "p_value": 0.3},
		{"passed": false},
		{"assumption": "independence", "passed": false, "p_value": 0.001}
	]}`)

	checks, err := ParseChecks(body, "assumptions")
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.True(t, *checks["normality"].Passed)
	assert.InDelta(t, 0.001, *checks["independence"].PValue, 1e-12)
}
