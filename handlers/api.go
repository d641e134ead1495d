package handlers

import (
	"context"
	"net/http"
)

type testDataResponse struct {
	Text string `json:"text"`
}

// TestData handles GET /api/test-data
func TestData(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	logRequest(ctx, "debug", "Serving test data")
	writeJSON(ctx, w, http.StatusOK, testDataResponse{Text: "Hello from server!"})
}

// Health handles GET /healthz. It touches no store.
func Health(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
