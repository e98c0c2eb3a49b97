package dispatchhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BearBump/FleetPulse/internal/integrations/dispatch"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestClient_ListVehicles_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vehicles", r.URL.Path)
		require.Equal(t, "Bearer demo", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vehicles":[
			{"callsign":"AB12","suspended":true},
			{"callsign":"CD34","suspended":"yes"},
			{"callsign":"EF56","suspended":0},
			{"callsign":"GH78"}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "demo")
	vs, err := c.ListVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vs, 4)

	// Every vehicle carries a real boolean after normalization.
	require.Equal(t, true, vs[0]["suspended"])
	require.Equal(t, true, vs[1]["suspended"])
	require.Equal(t, false, vs[2]["suspended"])
	require.Equal(t, false, vs[3]["suspended"])
}

func TestClient_ListVehicles_BareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"callsign":"AB12","suspended":"false"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	vs, err := c.ListVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vs, 1)
	require.Equal(t, false, vs[0]["suspended"])
}

func TestClient_ListVehicles_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "demo")
	_, err := c.ListVehicles(context.Background())
	require.Error(t, err)

	var ue *dispatch.UpstreamError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, http.StatusServiceUnavailable, ue.Status)
	require.Contains(t, ue.Body, "maintenance")
}
