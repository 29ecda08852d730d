package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/playernet/internal/config"
	"github.com/danmuck/playernet/internal/server"
	"github.com/danmuck/playernet/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	root := newRootCmd()
	root.SetOut(out)
	root.SetErr(out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTargets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write targets: %v", err)
	}
	return path
}

func TestLoadTargetsTemplate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "targets.toml")
	if err := config.WriteTemplate(path, "targets", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	file, err := loadTargets(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tgt, err := file.resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tgt.Name != "local" || tgt.GameAddr != "localhost:19132" || tgt.AdminAddr != "http://localhost:9400" || tgt.Username != "steve" {
		t.Fatalf("unexpected target: %+v", tgt)
	}
}

func TestLoadTargetsDefaultsAndErrors(t *testing.T) {
	testlog.Start(t)
	path := writeTargets(t, `
[targets.b]
game_addr = "b:1"
admin_addr = "b:2/"

[targets.a]
game_addr = "a:1"
`)
	file, err := loadTargets(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file.Default != "a" {
		t.Fatalf("default should be first name, got %q", file.Default)
	}
	tgt, err := file.resolve("b")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tgt.AdminAddr != "http://b:2" {
		t.Fatalf("admin addr not normalized: %q", tgt.AdminAddr)
	}
	if _, err := file.resolve("c"); err == nil {
		t.Fatalf("expected unknown target error")
	}

	if _, err := loadTargets(writeTargets(t, "default = \"x\"\n")); err == nil {
		t.Fatalf("expected error without targets")
	}
	if _, err := loadTargets(writeTargets(t, "[targets.a]\ngame = \"typo\"\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if _, err := loadTargets(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
}

func TestTargetsCommand(t *testing.T) {
	testlog.Start(t)
	path := writeTargets(t, `
default = "prod"

[targets.prod]
game_addr = "game:19132"
admin_addr = "http://admin:9400"
username = "ops"
`)
	out, err := runCLI(t, "--targets", path, "targets")
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	if !strings.Contains(out, "prod *") || !strings.Contains(out, "game:19132") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func startServer(t *testing.T) (*server.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.AdminAddr = "localhost:0"
	cfg.FlushInterval = "10ms"
	cfg.Welcome = "hi there"
	s, err := server.New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := s.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	admin := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		admin.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return s, admin.URL
}

func TestAdminCommands(t *testing.T) {
	testlog.Start(t)
	_, adminURL := startServer(t)
	targets := filepath.Join(t.TempDir(), "none.toml")
	_ = os.WriteFile(targets, []byte("[targets.x]\ngame_addr = \"unused\"\n"), 0o600)
	base := []string{"--targets", targets, "--admin-addr", adminURL}

	out, err := runCLI(t, append(base, "status")...)
	if err != nil || !strings.Contains(out, "playerd ok") {
		t.Fatalf("status: %v %s", err, out)
	}
	out, err = runCLI(t, append(base, "sessions")...)
	if err != nil || !strings.Contains(out, "SESSION") {
		t.Fatalf("sessions: %v %s", err, out)
	}
	if _, err := runCLI(t, append(base, "kick", "s-404")...); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 kick error, got %v", err)
	}
	out, err = runCLI(t, append(base, "broadcast", "hello", "all")...)
	if err != nil || !strings.Contains(out, "delivered to 0 players") {
		t.Fatalf("broadcast: %v %s", err, out)
	}
	if _, err := runCLI(t, append(base, "observers", "rm", "nope")...); err == nil {
		t.Fatalf("expected observer removal error")
	}
}

func TestChatCommandSendsAndPrints(t *testing.T) {
	testlog.Start(t)
	s, adminURL := startServer(t)
	targets := filepath.Join(t.TempDir(), "none.toml")
	_ = os.WriteFile(targets, []byte("[targets.x]\ngame_addr = \"unused\"\n"), 0o600)

	out, err := runCLI(t,
		"--targets", targets,
		"--game-addr", s.Addr().String(),
		"--admin-addr", adminURL,
		"-u", "alex",
		"chat", "-m", "hello world", "--wait", "500ms",
	)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(out, "* hi there") || !strings.Contains(out, "<alex> hello world") {
		t.Fatalf("unexpected chat output: %q", out)
	}
}
