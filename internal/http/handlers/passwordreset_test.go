package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/followerscart/backend/internal/http/handlers"
	"github.com/followerscart/backend/internal/passwordreset"
	"github.com/gin-gonic/gin"
)

type fakeResetManager struct {
	requestFn func(ctx context.Context, email string) (passwordreset.Result, error)
	consumeFn func(ctx context.Context, rawToken, newPassword, confirmPassword string) error
}

func (f *fakeResetManager) RequestReset(ctx context.Context, email string) (passwordreset.Result, error) {
	if f.requestFn != nil {
		return f.requestFn(ctx, email)
	}
	return passwordreset.Result{}, nil
}

func (f *fakeResetManager) ConsumeReset(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, rawToken, newPassword, confirmPassword)
	}
	return nil
}

func doForgot(t *testing.T, mgr *fakeResetManager, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := handlers.NewPasswordResetHandler(mgr, nil)
	r := setupRouter(http.MethodPost, "/auth/forgotpassword", h.ForgotPassword)

	req := httptest.NewRequest(http.MethodPost, "/auth/forgotpassword", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// The response for an email that has an account and one that does not must be
// indistinguishable, byte for byte, or the endpoint leaks which emails exist.
func TestForgotPasswordIdenticalResponses(t *testing.T) {
	known := doForgot(t, &fakeResetManager{
		requestFn: func(ctx context.Context, email string) (passwordreset.Result, error) {
			return passwordreset.Result{TokenIssued: true, Delivered: true}, nil
		},
	}, `{"email": "real@example.com"}`)

	ghost := doForgot(t, &fakeResetManager{
		requestFn: func(ctx context.Context, email string) (passwordreset.Result, error) {
			return passwordreset.Result{}, nil
		},
	}, `{"email": "nobody@example.com"}`)

	if known.Code != http.StatusOK || ghost.Code != http.StatusOK {
		t.Fatalf("got statuses %d and %d, want 200 for both", known.Code, ghost.Code)
	}

	if !bytes.Equal(known.Body.Bytes(), ghost.Body.Bytes()) {
		t.Fatalf("responses differ:\nknown: %s\nghost: %s", known.Body.String(), ghost.Body.String())
	}
}

// Delivery failure must still look like success from the outside.
func TestForgotPasswordDeliveryFailureStillSucceeds(t *testing.T) {
	w := doForgot(t, &fakeResetManager{
		requestFn: func(ctx context.Context, email string) (passwordreset.Result, error) {
			return passwordreset.Result{TokenIssued: true, DeliveryErr: errors.New("smtp down")}, nil
		},
	}, `{"email": "real@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
}

// A malformed address is handled like any other unknown address: the manager
// runs and the caller sees the same generic 200, never a validation error.
func TestForgotPasswordMalformedEmailGetsGenericResponse(t *testing.T) {
	var gotEmail string

	w := doForgot(t, &fakeResetManager{
		requestFn: func(ctx context.Context, email string) (passwordreset.Result, error) {
			gotEmail = email
			return passwordreset.Result{}, nil
		},
	}, `{"email": "not-an-email"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if gotEmail != "not-an-email" {
		t.Fatalf("manager got email %q", gotEmail)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("If an account with that email exists")) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestForgotPasswordValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing_email", `{}`},
		{"bad_json", `{"email": `},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			called := false

			w := doForgot(t, &fakeResetManager{
				requestFn: func(ctx context.Context, email string) (passwordreset.Result, error) {
					called = true
					return passwordreset.Result{}, nil
				},
			}, tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
			}
			if called {
				t.Fatal("manager should not be called for an invalid request")
			}
		})
	}
}

func TestForgotPasswordInfraError(t *testing.T) {
	w := doForgot(t, &fakeResetManager{
		requestFn: func(ctx context.Context, email string) (passwordreset.Result, error) {
			return passwordreset.Result{}, errors.New("db down")
		},
	}, `{"email": "real@example.com"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500, body=%s", w.Code, w.Body.String())
	}
}

func doReset(t *testing.T, mgr *fakeResetManager, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := handlers.NewPasswordResetHandler(mgr, nil)
	r := setupRouter(http.MethodPatch, "/auth/resetpassword/:token", h.ResetPassword)

	req := httptest.NewRequest(http.MethodPatch, "/auth/resetpassword/"+token, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResetPasswordOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		consumeErr error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "success",
			consumeErr: nil,
			wantStatus: http.StatusOK,
			wantMsg:    "Password reset successfully.",
		},
		{
			name:       "invalid_token",
			consumeErr: passwordreset.ErrInvalidOrExpiredToken,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid or expired password reset token.",
		},
		{
			name:       "missing_fields",
			consumeErr: passwordreset.ErrMissingFields,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Please provide both new and confirm password.",
		},
		{
			name:       "mismatch",
			consumeErr: passwordreset.ErrPasswordMismatch,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Passwords do not match.",
		},
		{
			name:       "infra_error",
			consumeErr: errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			mgr := &fakeResetManager{
				consumeFn: func(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
					return tt.consumeErr
				},
			}

			w := doReset(t, mgr, "sometokenvalue", `{"newPassword": "newpass123", "confirmNewPassword": "newpass123"}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantMsg != "" && !bytes.Contains(w.Body.Bytes(), []byte(tt.wantMsg)) {
				t.Fatalf("body %q does not contain %q", w.Body.String(), tt.wantMsg)
			}
		})
	}
}

// The body keys are newPassword and confirmNewPassword; a client using them
// must see its values reach the manager and get a 200 on success.
func TestResetPasswordBodyFieldNames(t *testing.T) {
	var gotPassword, gotConfirm string

	mgr := &fakeResetManager{
		consumeFn: func(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
			gotPassword = newPassword
			gotConfirm = confirmPassword
			return nil
		},
	}

	w := doReset(t, mgr, "sometokenvalue", `{"newPassword": "brandnewpass1", "confirmNewPassword": "brandnewpass1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if gotPassword != "brandnewpass1" || gotConfirm != "brandnewpass1" {
		t.Fatalf("manager got %q and %q", gotPassword, gotConfirm)
	}
}

// The raw token comes from the URL and the manager gets it verbatim, along
// with whatever the body held, even when the body is empty.
func TestResetPasswordPassesTokenAndFields(t *testing.T) {
	var gotToken, gotPassword, gotConfirm string

	mgr := &fakeResetManager{
		consumeFn: func(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
			gotToken = rawToken
			gotPassword = newPassword
			gotConfirm = confirmPassword
			return passwordreset.ErrMissingFields
		},
	}

	w := doReset(t, mgr, "abc123def456", ``)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
	if gotToken != "abc123def456" {
		t.Fatalf("manager got token %q", gotToken)
	}
	if gotPassword != "" || gotConfirm != "" {
		t.Fatalf("expected empty fields, got %q and %q", gotPassword, gotConfirm)
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}
