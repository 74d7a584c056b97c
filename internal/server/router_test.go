package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deepfake-guard/internal/auth"
	"deepfake-guard/internal/detection"
	"deepfake-guard/internal/hub"
	"deepfake-guard/internal/model"
	"deepfake-guard/internal/store"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	router *gin.Engine
	hub    *hub.Hub
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.New()
	h := hub.New(nil)
	authSvc := auth.NewService(st, st, auth.Options{
		TokenConfig: auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"},
		Decoder:     auth.JWTIdentityDecoder{},
		BcryptCost:  bcrypt.MinCost,
	})
	detSvc := detection.NewService(st, detection.Options{Scorer: detection.FixedScorer(75), Notifier: h, Seed: 1})
	return testApp{
		router: NewRouter(Deps{Auth: authSvc, Detection: detSvc, Hub: h, Version: "test"}),
		hub:    h,
	}
}

func (a testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %s: %v", w.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRegisterScanHistoryStats(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "a@x.io", "password": "hunter22", "name": "Alice"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	reg := decode[model.AuthResult](t, w)
	if reg.Token == "" || reg.User.Email != "a@x.io" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	w = app.do(t, http.MethodPost, "/v1/scans", reg.Token, map[string]string{"contentType": "text", "content": "hello world"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	scan := decode[model.ScanResult](t, w)
	if !scan.IsDeepfake || len(scan.DetectedMarkers) != 3 || scan.UserID != reg.User.ID {
		t.Fatalf("unexpected scan: %+v", scan)
	}

	w = app.do(t, http.MethodGet, "/v1/scans", reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	history := decode[struct {
		Scans []model.ScanResult `json:"scans"`
	}](t, w)
	if len(history.Scans) != 1 || history.Scans[0].ID != scan.ID {
		t.Fatalf("expected only the submitted scan, got %d", len(history.Scans))
	}

	w = app.do(t, http.MethodGet, "/v1/scans/"+scan.ID, reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = app.do(t, http.MethodGet, "/v1/scans/stats", reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	stats := decode[model.Stats](t, w)
	if stats.TotalScans != 1 || stats.DeepfakesDetected != 1 || stats.ByContentType[model.ContentText].Deepfake != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	w = app.do(t, http.MethodGet, "/v1/account/profile", reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if profile := decode[model.User](t, w); profile.ID != reg.User.ID {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestHistorySeedsOnFirstRead(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "a@x.io", "password": "hunter22", "name": "A"})
	reg := decode[model.AuthResult](t, w)

	w = app.do(t, http.MethodGet, "/v1/scans", reg.Token, nil)
	history := decode[struct {
		Scans []model.ScanResult `json:"scans"`
	}](t, w)
	if len(history.Scans) != detection.SeedCount {
		t.Fatalf("expected %d seeded scans, got %d", detection.SeedCount, len(history.Scans))
	}
}

func TestErrorMapping(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "a@x.io", "password": "hunter22", "name": "A"})
	reg := decode[model.AuthResult](t, w)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"duplicate", http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "a@x.io", "password": "hunter22", "name": "B"}, http.StatusConflict, "DuplicateEmail"},
		{"weak", http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "b@x.io", "password": "123", "name": "B"}, http.StatusBadRequest, "WeakPassword"},
		{"no user", http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "c@x.io", "password": "hunter22"}, http.StatusNotFound, "UserNotFound"},
		{"bad password", http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "a@x.io", "password": "nope-nope"}, http.StatusUnauthorized, "InvalidCredentials"},
		{"no token", http.MethodGet, "/v1/scans", "", nil, http.StatusUnauthorized, "InvalidToken"},
		{"bad type", http.MethodPost, "/v1/scans", reg.Token, map[string]string{"contentType": "pdf", "content": "x"}, http.StatusBadRequest, "UnsupportedContentType"},
		{"empty content", http.MethodPost, "/v1/scans", reg.Token, map[string]string{"contentType": "image", "content": ""}, http.StatusBadRequest, "MissingInput"},
		{"unknown scan", http.MethodGet, "/v1/scans/nope", reg.Token, nil, http.StatusNotFound, "NotFound"},
	}
	for _, tc := range cases {
		w := app.do(t, tc.method, tc.path, tc.token, tc.body)
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, w.Code, w.Body.String())
		}
		if body := decode[errorBody](t, w); body.Code != tc.code {
			t.Fatalf("%s: expected code %s, got %s", tc.name, tc.code, body.Code)
		}
	}
}

func TestReloginSupersedesToken(t *testing.T) {
	app := newTestApp(t)
	creds := map[string]string{"email": "a@x.io", "password": "hunter22", "name": "A"}
	first := decode[model.AuthResult](t, app.do(t, http.MethodPost, "/v1/auth/register", "", creds))
	second := decode[model.AuthResult](t, app.do(t, http.MethodPost, "/v1/auth/login", "", creds))

	if w := app.do(t, http.MethodGet, "/v1/auth/verify", first.Token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected superseded token to be rejected, got %d", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/v1/auth/verify", second.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("expected current token to verify, got %d", w.Code)
	}
}

func TestAuthRateLimit(t *testing.T) {
	app := newTestApp(t)
	var last int
	for i := 0; i < 11; i++ {
		last = app.do(t, http.MethodPost, "/v1/auth/logout", "", nil).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 11th auth request to be limited, got %d", last)
	}
}
