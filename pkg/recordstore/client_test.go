package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", opts...)
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func ok(data any) map[string]any {
	return map[string]any{"status": "OK", "response": map[string]any{"data": data}}
}

func TestFetchForwardsTokenAndUnwrapsEnvelope(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /bank-details/E1": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			jsonResponse(w, http.StatusOK, ok(map[string]any{"accountNumber": "12345"}))
		},
	})

	raw, err := c.Fetch(context.Background(), "tok", "/bank-details/E1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"accountNumber":"12345"}`, string(raw))
}

func TestListRequestsAcceptsNumericIDs(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /bank-details/update-requests": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, http.StatusOK, ok([]map[string]any{{
				"requestId":     42,
				"employeeId":    "E1",
				"requestStatus": "Pending",
				"requestedDate": "2024-05-01",
				"previousData":  map[string]any{"accountNumber": "12345"},
				"requestedData": map[string]any{"accountNumber": "67890"},
			}}))
		},
	})

	got, err := c.ListRequests(context.Background(), "", "/bank-details/update-requests")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "42", got[0].RequestID.String())
	assert.Equal(t, "E1", got[0].EmployeeID.String())
	assert.JSONEq(t, `{"accountNumber":"67890"}`, string(got[0].RequestedData))
}

func TestListRequestsEmptyData(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /documents/update-requests": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, http.StatusOK, ok(nil))
		},
	})
	got, err := c.ListRequests(context.Background(), "", "/documents/update-requests")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSubmitBuildsMultipart(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"PUT /employees/E1/profile/update-request": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.JSONEq(t, `{"firstName":"Aasha"}`, r.FormValue("requestedData"))
			file, header, err := r.FormFile("profileImage")
			require.NoError(t, err)
			defer file.Close()
			body, _ := io.ReadAll(file)
			assert.Equal(t, "photo.png", header.Filename)
			assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
			assert.Equal(t, "png", string(body))
			jsonResponse(w, http.StatusOK, ok(map[string]any{"requestId": 7}))
		},
	})

	_, err := c.Submit(context.Background(), "tok", http.MethodPut, "/employees/E1/profile/update-request", SubmitForm{
		JSONPart: "requestedData",
		Data:     map[string]any{"firstName": "Aasha"},
		Files:    []FilePart{{Field: "profileImage", Filename: "photo.png", ContentType: "image/png", Body: strings.NewReader("png")}},
	})
	require.NoError(t, err)
}

func TestDecideMergesExtraIdentifiers(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /certificates/update-requests/approval": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			raw, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"requestId":9,"approvalStatus":"Accepted","employeeId":"E1","certificateId":"C3"}`, string(raw))
			jsonResponse(w, http.StatusOK, ok(nil))
		},
	})

	err := c.Decide(context.Background(), "", "/certificates/update-requests/approval", Decision{
		RequestID:      "9",
		ApprovalStatus: "Accepted",
		EmployeeID:     "E1",
		Extra:          map[string]any{"certificateId": "C3"},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackendMessageSurfaces(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /bank-details/update-requests/approval": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, http.StatusBadRequest, map[string]any{"status": "BAD_REQUEST", "message": "request already processed"})
		},
		"GET /bank-details/E2": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, http.StatusOK, map[string]any{"status": "FAILED", "response": map[string]any{"message": "employee inactive"}})
		},
	})

	err := c.Decide(context.Background(), "", "/bank-details/update-requests/approval", Decision{RequestID: "1", ApprovalStatus: "Approved"})
	require.Error(t, err)
	assert.Equal(t, "request already processed", Message(err))

	_, err = c.Fetch(context.Background(), "", "/bank-details/E2")
	require.Error(t, err)
	assert.Equal(t, "employee inactive", Message(err))
}

func TestNotFoundAndTransportErrors(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{})
	_, err := c.Fetch(context.Background(), "", "/missing")
	assert.True(t, IsNotFound(err))

	dead := New("http://127.0.0.1:1", WithTimeout(200*time.Millisecond))
	_, err = dead.Fetch(context.Background(), "", "/x")
	var transport *TransportError
	assert.True(t, errors.As(err, &transport))
	assert.Empty(t, Message(err))
}

func TestObserverSeesEveryCall(t *testing.T) {
	var seen []string
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /documents/E1": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, http.StatusOK, ok(map[string]any{}))
		},
	}, WithObserver(func(op string, status int, _ time.Duration) {
		seen = append(seen, op)
		assert.Equal(t, http.StatusOK, status)
	}))

	_, err := c.Fetch(context.Background(), "", "/documents/E1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch"}, seen)
}
