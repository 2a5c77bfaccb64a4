package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{
			name: "all up",
			checks: map[string]Check{
				"index": func(context.Context) ComponentHealth { return Up("generation 3") },
			},
			want: StatusUp,
		},
		{
			name: "optional component failing",
			checks: map[string]Check{
				"index": func(context.Context) ComponentHealth { return Up("") },
				"cache": func(context.Context) ComponentHealth { return Degraded(errors.New("connection refused")) },
			},
			want: StatusDegraded,
		},
		{
			name: "required component failing",
			checks: map[string]Check{
				"cache": func(context.Context) ComponentHealth { return Degraded(errors.New("timeout")) },
				"index": func(context.Context) ComponentHealth { return Down(errors.New("closed")) },
			},
			want: StatusDown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("index", func(context.Context) ComponentHealth { return Down(errors.New("closed")) })

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "closed", report.Components["index"].Message)

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
