package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) *telemetry.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := telemetry.NewClient(srv.URL+"/indicators", 200*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestFetch(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indicators", r.URL.Path)
		_, _ = w.Write([]byte(`{"valid":true,"rpm":2850.5,"speed":180.7,"gear":5,"gear_neutral":3,"cruise_control":0,"type":"tankModels/x"}`))
	})

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Valid)
	assert.Equal(t, 2850.5, snap.RPM)
	assert.Equal(t, 180, snap.SpeedKPH())
	assert.Equal(t, "2", snap.GearLabel())
	assert.Equal(t, 0, snap.Cruise())
}

func TestFetchMissingFieldsDefaultToZero(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"valid":true}`))
	})

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, telemetry.Snapshot{Valid: true}, snap)
	assert.Equal(t, "N", snap.GearLabel())
}

func TestFetchInvalidSample(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"valid":false}`))
	})

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Valid)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    errors.ErrorCode
	}{
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"valid": tru`))
			},
			code: telemetry.ErrDecodeFailed,
		},
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			code: telemetry.ErrBadStatus,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			code: telemetry.ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := serve(t, tt.handler)

			start := time.Now()
			_, err := c.Fetch(context.Background())
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	c, err := telemetry.NewClient("http://127.0.0.1:1/indicators", 50*time.Millisecond)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.Error(t, err)
}

func TestNewClientValidation(t *testing.T) {
	_, err := telemetry.NewClient("", time.Second)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidConfig))

	_, err = telemetry.NewClient("http://127.0.0.1:8111/indicators", 0)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidConfig))
}

func TestGearLabel(t *testing.T) {
	assert.Equal(t, "2", telemetry.GearLabel(5, 3))
	assert.Equal(t, "N", telemetry.GearLabel(3, 3))
	assert.Equal(t, "R2", telemetry.GearLabel(1, 3))
	assert.Equal(t, "1", telemetry.GearLabel(1, 0))
}

func TestCruiseLabel(t *testing.T) {
	assert.Equal(t, "3", telemetry.CruiseLabel(3))
	assert.Equal(t, "R1", telemetry.CruiseLabel(-1))
}
