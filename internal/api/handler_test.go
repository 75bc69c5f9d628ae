package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/deployconf/internal/chaincheck"
	"github.com/eugenenazirov/deployconf/internal/resolver"
)

const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type stubProber struct {
	report chaincheck.Report
	err    error
	got    resolver.Record
}

func (s *stubProber) Probe(_ context.Context, rec resolver.Record) (chaincheck.Report, error) {
	s.got = rec
	return s.report, s.err
}

func setupTestRouter(t *testing.T, opts ...HandlerOption) (http.Handler, time.Time) {
	t.Helper()

	now := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
	rec := resolver.Resolve(resolver.Environment{
		resolver.EnvPrivateKey:     testKey,
		resolver.EnvExplorerAPIKey: "REALKEY",
	})

	opts = append([]HandlerOption{WithClock(func() time.Time { return now })}, opts...)
	handler := NewHandler(rec, opts...)
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false), WithRateLimit(0, 0))

	return router, now
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, now := setupTestRouter(t)

	rec := get(t, router, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(now) {
		t.Fatalf("expected timestamp %s, got %s", now, body.Timestamp)
	}
}

func TestGetConfigIsRedacted(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := get(t, router, "/api/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	raw := rec.Body.String()
	if strings.Contains(raw, testKey) || strings.Contains(raw, "REALKEY") {
		t.Fatalf("expected secrets to be redacted, got %s", raw)
	}

	var body resolver.Record
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ChainID != 4202 || body.NetworkName != "lisk-sepolia" {
		t.Fatalf("unexpected record: %+v", body)
	}
	if len(body.AccountKeys) != 1 {
		t.Fatalf("expected one masked account key, got %v", body.AccountKeys)
	}
}

func TestGetConfigViews(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		view string
		want string
	}{
		{"deployment", `"compilerVersion":"0.8.28"`},
		{"verification", `"chainId":4202`},
		{"typechain", `"target":"ethers-v5"`},
	}
	for _, tc := range tests {
		t.Run(tc.view, func(t *testing.T) {
			rec := get(t, router, "/api/config/"+tc.view)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("expected body to contain %s, got %s", tc.want, rec.Body.String())
			}
		})
	}

	if rec := get(t, router, "/api/config/compiler"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown view, got %d", rec.Code)
	}
}

func TestRenderEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := get(t, router, "/api/render/toml")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/toml" {
		t.Fatalf("unexpected content type %s", got)
	}
	if !strings.Contains(rec.Body.String(), "[rpc_endpoints]") {
		t.Fatalf("expected foundry rpc_endpoints table, got %s", rec.Body.String())
	}

	rec = get(t, router, "/api/render/env")
	if strings.Contains(rec.Body.String(), testKey) {
		t.Fatalf("expected private key to be redacted in env output")
	}

	rec = get(t, router, "/api/render/xml")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown format, got %d", rec.Code)
	}
}

func TestCheckEndpointOffline(t *testing.T) {
	findings := []chaincheck.Finding{{Field: "rpcUrl", Severity: chaincheck.SeverityError, Message: "bad"}}
	router, _ := setupTestRouter(t, WithFindings(findings))

	rec := get(t, router, "/api/check")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body checkResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Findings) != 1 || body.Findings[0].Field != "rpcUrl" {
		t.Fatalf("unexpected findings: %+v", body.Findings)
	}
	if body.Report != nil {
		t.Fatalf("expected no report without live=true")
	}
}

func TestCheckEndpointLive(t *testing.T) {
	t.Run("without prober", func(t *testing.T) {
		router, _ := setupTestRouter(t)
		if rec := get(t, router, "/api/check?live=true"); rec.Code != http.StatusNotImplemented {
			t.Fatalf("expected status 501, got %d", rec.Code)
		}
	})

	t.Run("healthy", func(t *testing.T) {
		prober := &stubProber{report: chaincheck.Report{ReportedChainID: "4202", ChainIDMatches: true}}
		router, _ := setupTestRouter(t, WithProber(prober))

		rec := get(t, router, "/api/check?live=true")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if len(prober.got.AccountKeys) != 1 || prober.got.AccountKeys[0] != testKey {
			t.Fatalf("expected prober to receive the unredacted record")
		}

		var body checkResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Report == nil || !body.Report.ChainIDMatches {
			t.Fatalf("expected matching report, got %+v", body.Report)
		}
	})

	t.Run("chain mismatch", func(t *testing.T) {
		prober := &stubProber{
			report: chaincheck.Report{ReportedChainID: "1"},
			err:    fmt.Errorf("%w: expected 4202", chaincheck.ErrChainIDMismatch),
		}
		router, _ := setupTestRouter(t, WithProber(prober))

		rec := get(t, router, "/api/check?live=1")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d", rec.Code)
		}
		var body checkResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Report == nil || body.Report.ReportedChainID != "1" || body.Error == "" {
			t.Fatalf("expected mismatch report, got %+v", body)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		prober := &stubProber{err: errors.New("dial tcp: connection refused")}
		router, _ := setupTestRouter(t, WithProber(prober))

		rec := get(t, router, "/api/check?live=true")
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected status 502, got %d", rec.Code)
		}
		var body errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Suggestion == "" {
			t.Fatalf("expected suggestion to be populated")
		}
	})
}

func TestConcurrentReaders(t *testing.T) {
	router, _ := setupTestRouter(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/render/hardhat", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
		}()
	}
	wg.Wait()
}

func TestCorsPreflight(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/config", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
}
