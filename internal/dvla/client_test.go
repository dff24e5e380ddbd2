package dvla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AB12CDE", req["registrationNumber"], "normalized registration must be the sole payload field")

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupSuccess(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"registrationNumber": "AB12CDE",
		"make": "FORD",
		"colour": "Blue",
		"fuelType": "PETROL",
		"engineCapacity": 1600,
		"yearOfManufacture": 2019,
		"taxStatus": "Taxed",
		"motStatus": "Valid"
	}`)

	client := NewClient(srv.URL, "test-key")
	details, err := client.Lookup(context.Background(), "ab12 cde")
	require.NoError(t, err)

	assert.Equal(t, "AB12CDE", details.RegistrationNumber)
	assert.Equal(t, "FORD", details.Make)
	require.NotNil(t, details.EngineCapacityCC)
	assert.Equal(t, 1600, *details.EngineCapacityCC)
	require.NotNil(t, details.YearOfManufacture)
	assert.Equal(t, 2019, *details.YearOfManufacture)
}

func TestLookupDefaultsOmittedFields(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"registrationNumber":"AB12CDE","make":"FORD"}`)

	client := NewClient(srv.URL, "")
	details, err := client.Lookup(context.Background(), "AB12CDE")
	require.NoError(t, err)

	assert.Equal(t, "Unknown", details.Model)
	assert.Equal(t, "Unknown", details.Colour)
	assert.Equal(t, "Unknown", details.FuelType)
	assert.Nil(t, details.EngineCapacityCC, "unknown numeric fields stay absent, not zero")
	assert.Nil(t, details.YearOfManufacture)
}

func TestLookupErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"not found", http.StatusNotFound, `{"errors":[{"title":"Vehicle Not Found"}]}`, KindNotFound},
		{"bad format", http.StatusBadRequest, `{"errors":[{"detail":"Invalid format for field - vehicle registration number"}]}`, KindInvalidFormat},
		{"rate limited", http.StatusTooManyRequests, ``, KindRateLimited},
		{"server error", http.StatusInternalServerError, `boom`, KindUpstream},
		{"teapot", http.StatusTeapot, ``, KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body)
			client := NewClient(srv.URL, "")

			_, err := client.Lookup(context.Background(), "AB12CDE")
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestLookupUnparseableSuccessBody(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{not json`)
	client := NewClient(srv.URL, "")

	_, err := client.Lookup(context.Background(), "AB12CDE")
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestLookupTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, "")
	_, err := client.Lookup(context.Background(), "AB12CDE")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestKindOfUnknownError(t *testing.T) {
	assert.Equal(t, KindUpstream, KindOf(assert.AnError))
}
