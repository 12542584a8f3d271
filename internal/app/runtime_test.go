package app

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/skobkin/probelink/internal/capture"
	"github.com/skobkin/probelink/internal/config"
	"github.com/skobkin/probelink/internal/connectors"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	root := t.TempDir()

	return Paths{
		RootDir:    root,
		ConfigFile: filepath.Join(root, ConfigFilename),
		DBFile:     filepath.Join(root, DBFilename),
		LogFile:    filepath.Join(root, LogFilename),
	}
}

func serveOneReply(t *testing.T, reply string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		buf := make([]byte, 64)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		_, _ = conn.Write([]byte(reply))
		_, _ = conn.Read(buf)
	}()

	return ln.Addr().String()
}

func waitForConnStatus(t *testing.T, rt *Runtime, want connectors.ConnectionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := rt.CurrentConnStatus(); ok && status.State == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection status did not become %q", want)
}

func TestInitializeAppliesOverrides(t *testing.T) {
	paths := testPaths(t)
	rt, err := Initialize(context.Background(), Options{
		Paths: &paths,
		Override: func(cfg *config.AppConfig) {
			cfg.Probe.Serial = " E2C0 "
			cfg.Logging.Level = "error"
		},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer func() { _ = rt.Close() }()

	if rt.Config.Probe.Serial != "E2C0" {
		t.Fatalf("expected trimmed serial override, got %q", rt.Config.Probe.Serial)
	}
	if rt.DB != nil || rt.Recorder != nil {
		t.Fatalf("expected capture to stay off")
	}
	if rt.Session == nil || rt.Session.IsOpen() {
		t.Fatalf("expected a closed probe session")
	}
}

func TestInitializeRejectsInvalidOverride(t *testing.T) {
	paths := testPaths(t)
	_, err := Initialize(context.Background(), Options{
		Paths:    &paths,
		Override: func(cfg *config.AppConfig) { cfg.Logging.Level = "loud" },
	})
	if err == nil {
		t.Fatalf("expected invalid config error")
	}
}

func TestInitializeRejectsNonPositiveTimeoutOverride(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.AppConfig)
	}{
		{name: "zero wait", mutate: func(cfg *config.AppConfig) { cfg.Probe.WaitTimeoutMS = 0 }},
		{name: "negative wait", mutate: func(cfg *config.AppConfig) { cfg.Probe.WaitTimeoutMS = -1000 }},
		{name: "zero dial", mutate: func(cfg *config.AppConfig) { cfg.Probe.DialTimeoutMS = 0 }},
	}

	for _, tc := range tests {
		paths := testPaths(t)
		rt, err := Initialize(context.Background(), Options{Paths: &paths, Override: tc.mutate})
		if err == nil {
			_ = rt.Close()
			t.Fatalf("%s: expected invalid config error", tc.name)
		}
	}
}

func TestRuntimeCapturesExchange(t *testing.T) {
	paths := testPaths(t)
	addr := serveOneReply(t, "&KBMP#")

	rt, err := Initialize(context.Background(), Options{
		Paths: &paths,
		Override: func(cfg *config.AppConfig) {
			cfg.Probe.Device = addr
			cfg.Capture.Enabled = true
			cfg.Logging.Level = "error"
		},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := rt.OpenProbe(); err != nil {
		_ = rt.Close()
		t.Fatalf("open probe: %v", err)
	}
	waitForConnStatus(t, rt, connectors.ConnectionStateConnected)
	reply, err := Exchange(rt.Session, []byte("+#!GA#"), 0)
	if err != nil {
		_ = rt.Close()
		t.Fatalf("exchange: %v", err)
	}
	if string(reply) != "KBMP" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close runtime: %v", err)
	}

	db, err := capture.Open(context.Background(), paths.DBFile)
	if err != nil {
		t.Fatalf("reopen capture db: %v", err)
	}
	defer func() { _ = db.Close() }()
	repo := capture.NewRepo(db)

	sessions, err := repo.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one capture session, got %+v", sessions)
	}
	s := sessions[0]
	if s.Transport != "ip" || s.Target != addr || s.Frames != 2 || s.EndedAt.IsZero() {
		t.Fatalf("unexpected capture session: %+v", s)
	}
}
