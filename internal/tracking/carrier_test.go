package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPCarrierClientTrack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/track", r.URL.Path)
		require.Equal(t, "dhl", r.URL.Query().Get("carrier"))
		require.Equal(t, "TN-42", r.URL.Query().Get("number"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"in_transit","description":"arrived at hub"}`))
	}))
	defer server.Close()

	client := NewHTTPCarrierClient(server.URL, 5*time.Second)
	update, err := client.Track(context.Background(), "dhl", "TN-42")
	require.NoError(t, err)
	require.Equal(t, "in_transit", update.Status)
	require.Equal(t, "arrived at hub", update.Description)
}

func TestHTTPCarrierClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("number") {
		case "MISSING":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewHTTPCarrierClient(server.URL, 5*time.Second)

	_, err := client.Track(context.Background(), "dhl", "MISSING")
	require.ErrorIs(t, err, ErrShipmentNotFound)

	_, err = client.Track(context.Background(), "dhl", "BOOM")
	require.Error(t, err)

	_, err = client.Track(context.Background(), "", "TN")
	require.ErrorIs(t, err, ErrCarrierRequired)
}
