package intake

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashdownmotors/garage-platform/internal/dvla"
)

func newTestChatHandler(t *testing.T, lookup VehicleLookup, submitter Submitter) *Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewSessionStore(client, time.Hour)
	machine := NewMachine(lookup, submitter, nil)
	return NewHandler(machine, store, lookup, nil)
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHandleMessageStartsNewSession(t *testing.T) {
	h := newTestChatHandler(t, &fakeLookup{details: fordFocus()}, &fakeSubmitter{})

	rr := postJSON(t, h.HandleMessage, "/chat/message", map[string]string{"text": ""})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		SessionID string   `json:"session_id"`
		Replies   []string `json:"replies"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	require.NotEmpty(t, resp.Replies)
	assert.Contains(t, resp.Replies[len(resp.Replies)-1], "name")
}

func TestHandleMessagePersistsProgressAcrossRequests(t *testing.T) {
	h := newTestChatHandler(t, &fakeLookup{details: fordFocus()}, &fakeSubmitter{})

	rr := postJSON(t, h.HandleMessage, "/chat/message", map[string]string{"text": ""})
	var first struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))

	rr = postJSON(t, h.HandleMessage, "/chat/message", map[string]string{
		"session_id": first.SessionID,
		"text":       "Jo Bloggs",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var second struct {
		Replies []string `json:"replies"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	require.NotEmpty(t, second.Replies)
	assert.Contains(t, second.Replies[0], "email", "next prompt shows the session advanced")
}

func TestHandleHistoryUnknownSessionIsEmpty(t *testing.T) {
	h := newTestChatHandler(t, &fakeLookup{details: fordFocus()}, &fakeSubmitter{})

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=missing", nil)
	rr := httptest.NewRecorder()
	h.HandleHistory(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"messages":[]`)
}

func TestEstimatorLookupConfirmQuote(t *testing.T) {
	h := newTestChatHandler(t, &fakeLookup{details: fordFocus()}, &fakeSubmitter{})

	rr := postJSON(t, h.HandleEstimatorLookup, "/estimator/lookup", map[string]string{
		"registration": "ab12 cde",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var lookupResp struct {
		SessionID string `json:"session_id"`
		Display   string `json:"display"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lookupResp))
	assert.Equal(t, "AB12 CDE", lookupResp.Display)

	rr = postJSON(t, h.HandleEstimatorConfirm, "/estimator/confirm", map[string]string{
		"session_id": lookupResp.SessionID,
		"action":     "confirm",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = postJSON(t, h.HandleEstimatorQuote, "/estimator/quote", map[string]any{
		"session_id": lookupResp.SessionID,
		"services":   []string{"Full Service", "MOT"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var quoteResp struct {
		Total        float64 `json:"total"`
		TotalDisplay string  `json:"total_display"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &quoteResp))
	assert.Equal(t, 179.0+54.85, quoteResp.Total)
	assert.Equal(t, "£233.85", quoteResp.TotalDisplay)
}

func TestEstimatorRetryDiscardsLookup(t *testing.T) {
	h := newTestChatHandler(t, &fakeLookup{details: fordFocus()}, &fakeSubmitter{})

	rr := postJSON(t, h.HandleEstimatorLookup, "/estimator/lookup", map[string]string{
		"registration": "AB12CDE",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var lookupResp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lookupResp))

	rr = postJSON(t, h.HandleEstimatorConfirm, "/estimator/confirm", map[string]string{
		"session_id": lookupResp.SessionID,
		"action":     "retry",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	// Nothing carried forward: a quote now has no confirmed vehicle.
	rr = postJSON(t, h.HandleEstimatorQuote, "/estimator/quote", map[string]any{
		"session_id": lookupResp.SessionID,
		"services":   []string{"MOT"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// The session is back at the registration step, so a second confirm
	// has nothing to act on either.
	rr = postJSON(t, h.HandleEstimatorConfirm, "/estimator/confirm", map[string]string{
		"session_id": lookupResp.SessionID,
		"action":     "confirm",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no lookup awaiting confirmation")
}

func TestEstimatorLookupRejectsBadRegistration(t *testing.T) {
	h := newTestChatHandler(t, &fakeLookup{details: fordFocus()}, &fakeSubmitter{})

	rr := postJSON(t, h.HandleEstimatorLookup, "/estimator/lookup", map[string]string{
		"registration": "!",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "errors")
}

func TestEstimatorLookupMapsUpstreamErrors(t *testing.T) {
	cases := []struct {
		kind dvla.ErrorKind
		want int
	}{
		{dvla.KindNotFound, http.StatusNotFound},
		{dvla.KindInvalidFormat, http.StatusBadRequest},
		{dvla.KindRateLimited, http.StatusTooManyRequests},
		{dvla.KindUpstream, http.StatusBadGateway},
	}
	for _, tc := range cases {
		h := newTestChatHandler(t, &fakeLookup{err: &dvla.LookupError{Kind: tc.kind}}, &fakeSubmitter{})
		rr := postJSON(t, h.HandleEstimatorLookup, "/estimator/lookup", map[string]string{
			"registration": "AB12CDE",
		})
		assert.Equal(t, tc.want, rr.Code, "kind %v", tc.kind)
		assert.Contains(t, rr.Body.String(), "error")
	}
}
