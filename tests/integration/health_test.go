//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestProbes(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doGet(t, path)
			defer resp.Body.Close()

			expectStatus(t, resp, http.StatusOK)
			body := decodeJSON[healthResponse](t, resp)
			if body.Status != "ok" || len(body.Checks) != 0 {
				t.Fatalf("expected healthy probe, got %+v", body)
			}
			if resp.Header.Get("X-RateLimit-Limit") != "" {
				t.Error("probes must not be rate limited")
			}
		})
	}
}
