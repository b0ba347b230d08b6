package server

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agri-dashboard/internal/config"
	"agri-dashboard/internal/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_NotFound(t *testing.T) {
	reports := services.NewReports(services.NewMemoryRepository(discardLogger()), discardLogger())
	srv := NewServer(reports, discardLogger())

	r := httptest.NewRequest(http.MethodGet, "/missing", nil)
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"NOT_FOUND"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestServer_EmptyRepository(t *testing.T) {
	reports := services.NewReports(services.NewMemoryRepository(discardLogger()), discardLogger())
	srv := NewServer(reports, discardLogger())

	for _, path := range []string{"/", "/aggregate", "/analysis", "/top_villages/neem"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

func testGracefulConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{ShutdownTimeout: 2 * time.Second}}
}

func TestGracefulServer_ShutdownRunsHooksInOrder(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	gs := NewGracefulServer(&http.Server{Handler: http.NotFoundHandler()}, discardLogger(), testGracefulConfig())

	var order []string
	gs.RegisterShutdownHook("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	gs.RegisterShutdownHook("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/")
	if err != nil {
		t.Fatalf("server not reachable: %v", err)
	}
	resp.Body.Close()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	if strings.Join(order, ",") != "first,second" {
		t.Errorf("hook order = %v", order)
	}
}

func TestGracefulServer_HookErrorIsReturned(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	gs := NewGracefulServer(&http.Server{Handler: http.NotFoundHandler()}, discardLogger(), testGracefulConfig())
	hookErr := stderrors.New("disconnect failed")
	gs.RegisterShutdownHook("data source", func(ctx context.Context) error { return hookErr })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gs.Serve(ctx, listener); !stderrors.Is(err, hookErr) {
		t.Errorf("Serve() = %v, want hook error", err)
	}
}
