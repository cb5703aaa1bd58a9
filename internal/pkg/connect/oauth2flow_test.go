package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[{"id":"a1","name":"Account One"}]}`))
	}))
	defer srv.Close()

	var body struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	err := getJSON(context.Background(), srv.URL, &body, bearerHeader("tok-123"))
	require.NoError(t, err)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "a1", body.Data[0].ID)
}

func TestGetJSONMapsAuthStatusToReauthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"expired"}`))
	}))
	defer srv.Close()

	err := getJSON(context.Background(), srv.URL, nil, nil)
	assert.ErrorIs(t, err, ErrReauthorizationRequired)
}

func TestGetJSONMapsServerErrorToUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := getJSON(context.Background(), srv.URL, nil, nil)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrReauthorizationRequired)
}

func TestPostJSONTokenParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600}`))
	}))
	defer srv.Close()

	resp, err := postJSONToken(context.Background(), srv.URL, map[string]string{"code": "c"})
	require.NoError(t, err)
	assert.Equal(t, "at-1", resp.AccessToken)
	assert.Equal(t, "rt-1", resp.RefreshToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
}

func TestPostJSONTokenSurfacesErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))
	defer srv.Close()

	_, err := postJSONToken(context.Background(), srv.URL, map[string]string{"code": "c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://x.test/a", buildURL("https://x.test/a", nil))
	got := buildURL("https://x.test/a", url.Values{"q": {"search"}})
	assert.Equal(t, "https://x.test/a?q=search", got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate([]byte("abc"), 5))
	assert.Equal(t, "ab...", truncate([]byte("abcdef"), 2))
}

func TestStringField(t *testing.T) {
	row := map[string]any{"s": "v", "n": float64(123), "b": true}
	assert.Equal(t, "v", stringField(row, "s"))
	assert.Equal(t, "123", stringField(row, "n"))
	assert.Equal(t, "", stringField(row, "b"))
	assert.Equal(t, "", stringField(row, "missing"))
}
