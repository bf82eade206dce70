package meli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClientWithServer(t *testing.T, handler http.HandlerFunc) (*Client, *TokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := NewTokenStore(zap.NewNop(), time.Hour)
	t.Cleanup(tokens.Close)
	tokens.Put("user-1", &Token{
		AccessToken: "test-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	client := NewClient(zap.NewNop(), Config{
		BaseURL: srv.URL,
		UserID:  "user-1",
	}, tokens)
	return client, tokens
}

func TestClient_PauseCampaign(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	client, _ := newClientWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.PauseCampaign(context.Background(), "camp-1"))
	require.Equal(t, "/advertising/campaigns/camp-1", gotPath)
	require.Equal(t, "Bearer test-token", gotAuth)
	require.Equal(t, "paused", gotBody["status"])
}

func TestClient_SetBidAndBudget(t *testing.T) {
	bodies := make([]map[string]interface{}, 0, 2)
	client, _ := newClientWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	require.NoError(t, client.SetBid(ctx, "camp-1", 0.95))
	require.NoError(t, client.SetBudget(ctx, "camp-1", 120.0))
	require.Len(t, bodies, 2)
	require.InDelta(t, 0.95, bodies[0]["max_cpc"], 1e-9)
	require.InDelta(t, 120.0, bodies[1]["daily_budget"], 1e-9)
}

func TestClient_UpstreamErrorSurfaces(t *testing.T) {
	client, _ := newClientWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	err := client.PauseCampaign(context.Background(), "camp-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestClient_MissingTokenFailsFast(t *testing.T) {
	client, tokens := newClientWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})
	tokens.Delete("user-1")

	err := client.SetBid(context.Background(), "camp-1", 1.0)
	require.Error(t, err)
}
