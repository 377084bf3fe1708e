package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/moodsplit/internal/shared"
	"golang.org/x/oauth2"
)

func TestOAuthHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ex := &mockExchanger{token: &oauth2.Token{AccessToken: "tok"}}
		h := NewOAuthHandler(ex, "state-1")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		result := <-h.Result()
		if result.Error() != nil || result.Token.AccessToken != "tok" {
			t.Errorf("result = %+v", result)
		}
		if ex.code != "abc" {
			t.Errorf("exchanged code = %q", ex.code)
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		h := NewOAuthHandler(&mockExchanger{}, "state-1")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected state error")
		}
	})

	t.Run("Denied", func(t *testing.T) {
		h := NewOAuthHandler(&mockExchanger{}, "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		h := NewOAuthHandler(&mockExchanger{err: errors.New("invalid_grant")}, "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		h := NewOAuthHandler(&mockExchanger{token: &oauth2.Token{AccessToken: "tok"}}, "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("Routes", func(t *testing.T) {
		if routes := NewOAuthHandler(nil, "").Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("Routes() = %v", routes)
		}
	})
}

func TestListenAndServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler(), shared.DiscardLogger()); err != nil {
		t.Errorf("ListenAndServe() error = %v", err)
	}
}
