package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/midiwire/pkg/packet"
	"github.com/ssargent/midiwire/pkg/storage"
	"github.com/ssargent/midiwire/pkg/transport"
)

const testAPIKey = "test-key"

var testLayout = packet.Layout{Align: packet.Align1, Order: binary.LittleEndian}

type testServer struct {
	server  *Server
	router  *transport.Router
	clips   *storage.ClipStore
	handler http.Handler
}

// setupTestServer creates a server over a fresh router and clip store
func setupTestServer(t *testing.T, withClips bool) *testServer {
	t.Helper()

	router, err := transport.NewRouter(transport.Config{Layout: testLayout, EnforceMaxSize: true})
	if err != nil {
		t.Fatalf("Failed to create router: %v", err)
	}
	t.Cleanup(func() { router.Close() })

	var clips *storage.ClipStore
	if withClips {
		clips, err = storage.NewClipStore(filepath.Join(t.TempDir(), "clips"), testLayout)
		if err != nil {
			t.Fatalf("Failed to create clip store: %v", err)
		}
		t.Cleanup(func() { clips.Close() })
	}

	// A private registry per test avoids duplicate registration panics
	metrics := NewMetrics(prometheus.NewRegistry())
	server := NewServer(router, clips, ServerConfig{APIKey: testAPIKey}, metrics, nil)

	return &testServer{
		server:  server,
		router:  router,
		clips:   clips,
		handler: server.Handler(),
	}
}

func (ts *testServer) do(t *testing.T, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

// subscribe collects the raw bytes of every list delivered to endpoint
func (ts *testServer) subscribe(t *testing.T, endpoint string) <-chan []byte {
	t.Helper()
	got := make(chan []byte, 8)
	err := ts.router.Subscribe(endpoint, func(_ string, list packet.PacketList) {
		got <- append([]byte(nil), list.Bytes()...)
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	return got
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("Failed to decode response data: %v", err)
		}
	}
	return APIResponse{Success: raw.Success, Error: raw.Error}
}

func TestServer_Auth(t *testing.T) {
	ts := setupTestServer(t, false)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", w.Code)
	}

	w = ts.do(t, "GET", "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var health map[string]interface{}
	resp := decodeResponse(t, w, &health)
	if !resp.Success {
		t.Error("Expected success to be true")
	}
	if health["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", health["status"])
	}
	if health["layout"] != testLayout.String() {
		t.Errorf("Expected layout %q, got %v", testLayout.String(), health["layout"])
	}
}

func TestServer_Metrics(t *testing.T) {
	ts := setupTestServer(t, false)
	if err := ts.router.CreateDestination("synth"); err != nil {
		t.Fatal(err)
	}

	w := ts.do(t, "POST", "/api/v1/endpoints/synth/send", "application/json",
		[]byte(`{"packets":[{"timestamp":0,"data":"90407f"}]}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	mw := httptest.NewRecorder()
	ts.handler.ServeHTTP(mw, req)
	if mw.Code != http.StatusOK {
		t.Fatalf("Expected status 200 from /metrics, got %d", mw.Code)
	}

	body := mw.Body.String()
	for _, want := range []string{
		`midiwire_packet_lists_sent_total{status="success"} 1`,
		`midiwire_packets_sent_total 1`,
		`midiwire_http_requests_total{endpoint="/api/v1/endpoints/{name}/send",method="POST",status_code="200"} 1`,
		`midiwire_auth_requests_total{status="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}
}

func TestServer_ListenAndServe(t *testing.T) {
	router, err := transport.NewRouter(transport.Config{Layout: testLayout})
	if err != nil {
		t.Fatal(err)
	}
	defer router.Close()

	// Reserve a free port
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	server := NewServer(router, nil, ServerConfig{Bind: "127.0.0.1", Port: port, APIKey: testAPIKey}, NewMetrics(prometheus.NewRegistry()), nil)
	if server.Addr() != l.Addr().String() {
		t.Errorf("Expected addr %s, got %s", l.Addr(), server.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.ListenAndServe(ctx) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		req, _ := http.NewRequest("GET", "http://"+server.Addr()+"/api/v1/health", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		resp, err = http.DefaultClient.Do(req)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Unexpected shutdown error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}
