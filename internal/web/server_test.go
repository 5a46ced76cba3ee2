package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/boilerd/internal/boiler"
	"github.com/sweeney/boilerd/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *Server) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{TickSeconds: 5, Broker: "tcp://192.168.1.200:1883", HTTPAddr: ":8080", Pumps: 4}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, srv
}

func tickFaults(pumps int) *boiler.FaultRegistry {
	return boiler.NewFaultRegistry(pumps)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	faults := tickFaults(4)
	tr.UpdateTick(boiler.ModeNormal, 500, 10, false,
		[]bool{true, false, false, false}, []bool{true, false, false, false}, []bool{true, false, false, false}, faults)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Mode != "NORMAL" {
		t.Errorf("Mode: got %q, want NORMAL", sj.Status.Mode)
	}
	if sj.Status.Level != 500 {
		t.Errorf("Level: got %v, want 500", sj.Status.Level)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if len(sj.Status.Pumps) != 4 {
		t.Fatalf("expected 4 pumps, got %d", len(sj.Status.Pumps))
	}
	if !sj.Status.Pumps[0].Command {
		t.Error("expected pump 0 command=true")
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	faults := tickFaults(4)
	tr.UpdateTick(boiler.ModeWaiting, 0, 0, false,
		make([]bool, 4), make([]bool, 4), make([]bool, 4), faults)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	faults := tickFaults(4)

	resp1, _ := http.Get(ts.URL + "/index.json")
	var sj1 status.StatusJSON
	json.NewDecoder(resp1.Body).Decode(&sj1)
	resp1.Body.Close()
	if sj1.Status.Mode != "" {
		t.Errorf("expected empty Mode initially, got %q", sj1.Status.Mode)
	}

	tr.UpdateTick(boiler.ModeDegraded, 600, 10, false,
		make([]bool, 4), make([]bool, 4), make([]bool, 4), faults)
	tr.SetMQTTConnected(true)

	resp2, _ := http.Get(ts.URL + "/index.json")
	var sj2 status.StatusJSON
	json.NewDecoder(resp2.Body).Decode(&sj2)
	resp2.Body.Close()

	if sj2.Status.Mode != "DEGRADED" {
		t.Errorf("Mode: got %q, want DEGRADED", sj2.Status.Mode)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func TestWebSocketBroadcastsEvent(t *testing.T) {
	ts, tr, srv := newTestServer(t)
	faults := tickFaults(4)
	tr.UpdateTick(boiler.ModeRescue, 950, 5, false,
		make([]bool, 4), make([]bool, 4), make([]bool, 4), faults)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	srv.Broadcast("LEVEL_FAILURE_DETECTION", "level sensor stuck at capacity")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(payload, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "LEVEL_FAILURE_DETECTION" {
		t.Errorf("Event: got %q, want LEVEL_FAILURE_DETECTION", sj.Status.Event)
	}
	if sj.Status.Mode != "RESCUE" {
		t.Errorf("Mode: got %q, want RESCUE", sj.Status.Mode)
	}
}
