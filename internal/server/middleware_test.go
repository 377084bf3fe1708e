package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/moodsplit/internal/shared"
)

const lanPattern = `https?://(localhost|127\.0\.0\.1|0\.0\.0\.0|192\.168\.\d{1,3}\.\d{1,3}|10\.\d{1,3}\.\d{1,3}\.\d{1,3})(:\d+)?$`

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestCORS(t *testing.T) {
	mw, err := CORS([]string{"https://app.example.com"}, lanPattern)
	if err != nil {
		t.Fatalf("CORS() error = %v", err)
	}
	handler := mw(okHandler())

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"Listed Origin", http.MethodPost, "https://app.example.com", false, http.StatusOK, "https://app.example.com"},
		{"Regex Origin", http.MethodPost, "http://192.168.1.20:3000", false, http.StatusOK, "http://192.168.1.20:3000"},
		{"Unknown Origin Passes Without Headers", http.MethodPost, "https://evil.example.com", false, http.StatusOK, ""},
		{"No Origin", http.MethodGet, "", false, http.StatusOK, ""},
		{"Regex Must Match Whole Origin", http.MethodPost, "http://localhost:3000.evil.com", false, http.StatusOK, ""},
		{"Preflight Allowed", http.MethodOptions, "http://localhost:3000", true, http.StatusNoContent, "http://localhost:3000"},
		{"Preflight Rejected", http.MethodOptions, "https://evil.example.com", true, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/classify", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "content-type")
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if tt.preflight && tt.wantStatus == http.StatusNoContent {
				if rec.Header().Get("Access-Control-Allow-Headers") != "content-type" {
					t.Error("preflight should echo requested headers")
				}
				if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
					t.Error("preflight should allow credentials")
				}
			}
		})
	}

	t.Run("Invalid Pattern", func(t *testing.T) {
		if _, err := CORS(nil, "(["); err == nil {
			t.Error("CORS() expected error for invalid regex")
		}
	})

	t.Run("Wildcard", func(t *testing.T) {
		mw, err := CORS([]string{"*"}, "")
		if err != nil {
			t.Fatalf("CORS() error = %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://anything.example")
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, req)
		if rec.Header().Get("Access-Control-Allow-Origin") != "https://anything.example" {
			t.Error("wildcard should allow every origin")
		}
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/classify", nil))

	out := buf.String()
	for _, want := range []string{"request", "method=POST", "path=/classify", "status=201"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestRecover(t *testing.T) {
	handler := Recover(shared.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
