package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"deepfake-guard/internal/hub"
	"deepfake-guard/internal/model"
	"github.com/gorilla/websocket"
)

func TestWebSocketScanEvents(t *testing.T) {
	app := newTestApp(t)
	reg := decode[model.AuthResult](t, app.do(t, http.MethodPost, "/v1/auth/register", "",
		map[string]string{"email": "a@x.io", "password": "hunter22", "name": "A"}))

	srv := httptest.NewServer(app.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + reg.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// the pong proves the connection is registered with the hub
	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var pong hub.Event
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if pong.Type != "pong" {
		t.Fatalf("expected pong, got %q", pong.Type)
	}

	w := app.do(t, http.MethodPost, "/v1/scans", reg.Token, map[string]string{"contentType": "image", "content": "https://example.com/a.png"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	scan := decode[model.ScanResult](t, w)

	var ev hub.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if ev.Type != hub.EventScanCompleted || ev.Scan == nil || ev.Scan.ID != scan.ID {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response")
	}
}
