package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecotrack-console/internal/source"
)

func staticToken(tok string) TokenSource {
	return TokenFunc(func() (string, error) { return tok, nil })
}

func TestFetchCollectionSendsBearerAndDecodesArray(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `[{"id":1},{"id":2}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", staticToken("secret"), time.Second)
	records, err := c.FetchCollection(context.Background(), source.ResourceReports)

	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/api/admin/reports", gotPath)
}

func TestFetchCollectionErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   source.ErrorKind
		wantReason string
	}{
		{name: "401", status: http.StatusUnauthorized, wantKind: source.Unauthorized},
		{name: "403", status: http.StatusForbidden, wantKind: source.Unauthorized},
		{
			name:       "structured rejection",
			status:     http.StatusBadRequest,
			body:       `{"message":"status is invalid"}`,
			wantKind:   source.ServerRejected,
			wantReason: "status is invalid",
		},
		{
			name:       "unstructured rejection",
			status:     http.StatusInternalServerError,
			body:       "boom",
			wantKind:   source.ServerRejected,
			wantReason: "Internal Server Error",
		},
		{name: "not an array", status: http.StatusOK, body: `{"id":1}`, wantKind: source.MalformedResponse},
		{name: "data not an array", status: http.StatusOK, body: `{"data":{"id":1}}`, wantKind: source.MalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, staticToken("t"), time.Second)
			_, err := c.FetchCollection(context.Background(), source.ResourceUsers)

			require.Error(t, err)
			kind, ok := source.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, source.Reason(err))
			}
		})
	}
}

func TestMissingCredentialIsUnauthorizedWithoutRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken(""), time.Second)
	_, err := c.FetchCollection(context.Background(), source.ResourceReports)

	assert.True(t, source.IsUnauthorized(err))
	assert.False(t, called)
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient(addr, staticToken("t"), time.Second)
	_, err := c.FetchCollection(context.Background(), source.ResourceReports)

	assert.True(t, source.IsUnreachable(err))
}

func TestMutateResource(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, `{"_id":"abc","status":"Resolved"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("t"), time.Second)

	rec, err := c.MutateResource(context.Background(), source.ResourceReports, "abc",
		source.OpUpdate, map[string]string{"status": "Resolved"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/admin/reports/abc", gotPath)
	assert.JSONEq(t, `{"status":"Resolved"}`, gotBody)
	assert.JSONEq(t, `{"_id":"abc","status":"Resolved"}`, string(rec))

	rec, err = c.MutateResource(context.Background(), source.ResourceReports, "abc", source.OpDelete, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Nil(t, rec)
}

func TestFetchCollectionAcceptsDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":1},{"id":2},{"id":3}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("t"), time.Second)
	records, err := c.FetchCollection(context.Background(), source.ResourceReports)

	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestLocalFailuresAreFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	ctx := context.Background()

	c := NewClient(srv.URL, staticToken("t"), time.Second)
	_, err := c.MutateResource(ctx, source.ResourceReports, "r1", source.OpUpdate, map[string]any{"bad": make(chan int)})
	kind, ok := source.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, source.MalformedResponse, kind)

	_, err = c.MutateResource(ctx, source.ResourceReports, "r1", source.Operation(9), nil)
	kind, ok = source.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, source.MalformedResponse, kind)

	bad := NewClient("http://bad host", staticToken("t"), time.Second)
	_, err = bad.FetchCollection(ctx, source.ResourceReports)
	kind, ok = source.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, source.Unreachable, kind)
}
