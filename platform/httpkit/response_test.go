package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"jury_portal_backend/platform/apperr"
)

func TestHandleError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"conflict", apperr.Conflict("stale"), http.StatusConflict, "conflict", "stale"},
		{"wrapped validation", fmt.Errorf("op: %w", apperr.Validation("bad input")), http.StatusBadRequest, "validation", "bad input"},
		{"delivery keeps provider text", apperr.Delivery("mailbox full", errors.New("550")), http.StatusBadGateway, "delivery", "mailbox full"},
		{"please wait", apperr.TooManyRequests("please wait"), http.StatusTooManyRequests, "too_many_requests", "please wait"},
		{"plain error is hidden", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal", "internal server error"},
		{"internal message is hidden", apperr.Internal("template broke"), http.StatusInternalServerError, "internal", "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := testContext(nil, nil)
			if !HandleError(c, tc.err) {
				t.Fatal("expected the error to be handled")
			}
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tc.wantCode || body.Error != tc.wantMsg {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}

func TestHandleErrorSetsRetryAfter(t *testing.T) {
	c, rec := testContext(nil, nil)
	HandleError(c, apperr.TooManyRequests("please wait"))
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After header, got %q", rec.Header().Get("Retry-After"))
	}

	c, _ = testContext(nil, nil)
	if HandleError(c, nil) {
		t.Fatal("nil error must not be handled")
	}
}
