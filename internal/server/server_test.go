package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/playernet/internal/config"
	"github.com/danmuck/playernet/internal/network"
	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/packet"
	"github.com/danmuck/playernet/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func testConfig() config.ServerConfig {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.AdminAddr = "localhost:0"
	cfg.FlushInterval = "10ms"
	cfg.Welcome = ""
	return cfg
}

func newTestServer(t *testing.T, mutate func(*config.ServerConfig)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

// runServer starts s and returns a stop func that waits for Run to return.
func runServer(t *testing.T, s *Server) func() {
	t.Helper()
	if err := s.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run: %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Errorf("server did not stop")
		}
	}
	t.Cleanup(stop)
	return stop
}

func connect(t *testing.T, s *Server, name string) *network.Client {
	t.Helper()
	c, err := network.Dial(context.Background(), s.Addr().String(), network.DialConfig{Attempts: 1, Timeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Send(&packet.Login{Protocol: packet.CurrentProtocol, Username: name, ClientID: name + "-id"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	waitFor(t, func() bool {
		p, ok := s.World().ByName(name)
		return ok && p.LoggedIn()
	})
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

func next(t *testing.T, c *network.Client) *protocol.Envelope {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	env, err := c.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	return env
}

func nextText(t *testing.T, c *network.Client) *packet.Text {
	t.Helper()
	env := next(t, c)
	text, ok := env.Body.(*packet.Text)
	if !ok {
		t.Fatalf("expected text, got %s", env.Kind)
	}
	return text
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.FlushInterval = "later"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestHealthAndPolicyRoutes(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status: %d", rec.Code)
	}
	var health map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" || health["server"] != "playerd" || health["version"] != Version {
		t.Fatalf("unexpected health: %v", health)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready before listen should be unavailable, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/policies", nil))
	var policies struct {
		Policies map[string]string `json:"policies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &policies); err != nil {
		t.Fatalf("decode policies: %v", err)
	}
	if policies.Policies["TextPacket"] != "delegate" || policies.Policies["ClientToServerHandshakePacket"] != "fixed_cancelled" {
		t.Fatalf("unexpected policies: %v", policies.Policies)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "playernet_") {
		t.Fatalf("metrics not served: %d", rec.Code)
	}
}

func TestSessionRoutesUnknownSession(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"sessions":[]`) {
		t.Fatalf("unexpected sessions response: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/s-404/disconnect", strings.NewReader(`{"reason":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if err := s.Disconnect("s-404", "", false); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestObserverRoutes(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.Observers.LogPackets = true
		cfg.Observers.BlockedWords = []string{"creeper"}
		cfg.Observers.DropKinds = []string{"BossEvent"}
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/observers", nil))
	var body struct {
		Observers []string `json:"observers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode observers: %v", err)
	}
	want := []string{ObserverPacketLog, ObserverKindFilter, ObserverChatFilter}
	if strings.Join(body.Observers, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected observers: %v", body.Observers)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/observers/"+ObserverChatFilter, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete observer: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/observers/"+ObserverChatFilter, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete should 404, got %d", rec.Code)
	}
}

func TestKindFilterCancelsBothDirections(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name     string
		drop     string
		wantView func(before int) int
	}{
		{name: "inbound request dropped", drop: "RequestChunkRadius", wantView: func(before int) int { return before }},
		{name: "outbound reply dropped", drop: "ChunkRadiusUpdatedPacket", wantView: func(int) int { return 4 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, func(cfg *config.ServerConfig) {
				cfg.Observers.DropKinds = []string{tc.drop}
			})
			runServer(t, s)
			alex := connect(t, s, "alex")
			p, _ := s.World().ByName("alex")
			before := p.ViewDistance()

			if err := alex.Send(&packet.RequestChunkRadius{Radius: 4}); err != nil {
				t.Fatalf("send radius: %v", err)
			}
			if err := alex.Send(&packet.Text{Type: packet.TextTypeChat, Message: "after"}); err != nil {
				t.Fatalf("send chat: %v", err)
			}
			// Replies are queued in order, so a ChunkRadiusUpdated that got
			// through would arrive ahead of the chat line.
			if text := nextText(t, alex); text.Message != "after" {
				t.Fatalf("unexpected text: %+v", text)
			}
			if got, want := p.ViewDistance(), tc.wantView(before); got != want {
				t.Fatalf("view distance %d, want %d", got, want)
			}
		})
	}
}

func TestChatReachesEveryOnlinePlayer(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)
	runServer(t, s)

	alex := connect(t, s, "alex")
	steve := connect(t, s, "steve")

	if err := alex.Send(&packet.Text{Type: packet.TextTypeChat, Message: "hello"}); err != nil {
		t.Fatalf("send chat: %v", err)
	}
	for _, c := range []*network.Client{alex, steve} {
		text := nextText(t, c)
		if text.Type != packet.TextTypeChat || text.Source != "alex" || text.Message != "hello" {
			t.Fatalf("unexpected chat: %+v", text)
		}
	}

	infos := s.Sessions()
	if len(infos) != 2 {
		t.Fatalf("expected two sessions, got %d", len(infos))
	}
	for _, info := range infos {
		if !info.LoggedIn {
			t.Fatalf("session not logged in: %+v", info)
		}
	}
}

func TestBlockedWordsCancelChat(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.Observers.BlockedWords = []string{"Creeper"}
	})
	runServer(t, s)

	alex := connect(t, s, "alex")
	steve := connect(t, s, "steve")

	_ = alex.Send(&packet.Text{Type: packet.TextTypeChat, Message: "a CREEPER is here"})
	_ = alex.Send(&packet.Text{Type: packet.TextTypeChat, Message: "all clear"})

	if text := nextText(t, steve); text.Message != "all clear" {
		t.Fatalf("blocked chat was delivered: %+v", text)
	}
}

func TestAdminDisconnectNotifiesClient(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)
	runServer(t, s)

	alex := connect(t, s, "alex")
	p, _ := s.World().ByName("alex")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+p.ID()+"/disconnect", strings.NewReader(`{"reason":"maintenance"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("disconnect status: %d %s", rec.Code, rec.Body.String())
	}

	env := next(t, alex)
	dc, ok := env.Body.(*packet.Disconnect)
	if !ok || dc.Message != "maintenance" || dc.HideDisconnectionScreen {
		t.Fatalf("unexpected disconnect: %s %+v", env.Kind, env.Body)
	}
	_ = alex.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := alex.Receive(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	waitFor(t, func() bool { return len(s.Sessions()) == 0 })
	if _, ok := s.World().Get(p.ID()); ok {
		t.Fatalf("player still in world")
	}
}

func TestBroadcastRoute(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)
	runServer(t, s)
	alex := connect(t, s, "alex")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/broadcast", strings.NewReader(`{"message":"restart soon"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"delivered":1`) {
		t.Fatalf("broadcast response: %d %s", rec.Code, rec.Body.String())
	}
	if text := nextText(t, alex); text.Type != packet.TextTypeSystem || text.Message != "restart soon" {
		t.Fatalf("unexpected broadcast: %+v", text)
	}
}

func TestShutdownNotifiesSessions(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)
	stop := runServer(t, s)
	alex := connect(t, s, "alex")

	stop()
	env := next(t, alex)
	dc, ok := env.Body.(*packet.Disconnect)
	if !ok || dc.Message != ReasonServerClosed {
		t.Fatalf("expected shutdown notice, got %s %+v", env.Kind, env.Body)
	}
}

func TestAdminTokenGuardsMutatingRoutes(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.AdminToken = "secret"
	})

	post := func(header string) int {
		req := httptest.NewRequest(http.MethodPost, "/broadcast", strings.NewReader(`{"message":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}
	if code := post(""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", code)
	}
	if code := post("Bearer wrong"); code != http.StatusUnauthorized {
		t.Fatalf("wrong token: %d", code)
	}
	if code := post("Bearer secret"); code != http.StatusOK {
		t.Fatalf("valid token: %d", code)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("read routes stay open: %d", rec.Code)
	}
}
