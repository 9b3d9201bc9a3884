package e2e

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/inventhq/invent/internal/config"
	"github.com/inventhq/invent/internal/importer"
	"github.com/inventhq/invent/internal/prefs"
	"github.com/inventhq/invent/internal/server"
	"github.com/inventhq/invent/pkg/client"
)

// requireDeployment returns the deployment configuration or skips the test.
func requireDeployment(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load e2e config: %v", err)
	}
	if !cfg.Enabled() {
		t.Skip("INVENT_E2E_URL, INVENT_E2E_USER and INVENT_E2E_PASSWORD are not set")
	}
	return cfg
}

// login signs in and returns a client carrying the token.
func login(t *testing.T, ctx context.Context, cfg *Config) (*client.Client, *client.LoginResponse) {
	t.Helper()
	c := client.New("", client.WithServer(cfg.URL))
	resp, err := c.Login(ctx, cfg.LoginPath, cfg.User, cfg.Password)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return c.WithToken(resp.Token), resp
}

// Daemon is inventd running in-process in front of the deployment.
type Daemon struct {
	Server  *server.Server
	URL     string
	RedisC  testcontainers.Container
	cancel  context.CancelFunc
	closeFn func()
}

// StartDaemon boots inventd against the deployment with a Redis container
// for preferences.
func StartDaemon(t *testing.T, cfg *Config) *Daemon {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	d := &Daemon{cancel: cancel}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		cancel()
		t.Skipf("docker unavailable, cannot start redis: %v", err)
	}
	d.RedisC = redisC

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get redis port: %v", err)
	}

	rdb, err := prefs.Dial(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	d.closeFn = func() { rdb.Close() }
	store := prefs.NewRedis(rdb)

	srvCfg := &config.Config{
		Port:                     "0",
		ShutdownTimeout:          5 * time.Second,
		InventAPIURL:             cfg.URL,
		UpstreamTimeout:          30 * time.Second,
		CORSOrigins:              []string{"http://localhost:3000"},
		RateLimitPerSecond:       100,
		RateLimitBurst:           100,
		UnauthRateLimitPerSecond: 100,
		UnauthRateLimitBurst:     100,
		StructureRefreshCron:     "*/15 * * * *",
		LogLevel:                 "debug",
		LogFormat:                "text",
	}
	srv, err := server.New(srvCfg, server.Deps{
		API:     client.New("", client.WithServer(cfg.URL)),
		Prefs:   store,
		Redis:   store,
		Mapping: importer.NameMapping,
		Version: "e2e",
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	d.Server = srv
	if err := srv.Refresh(ctx); err != nil {
		t.Fatalf("failed to load reference data: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	d.URL = fmt.Sprintf("http://%s", listener.Addr().String())

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	if err := waitForServer(d.URL); err != nil {
		t.Fatalf("server not ready: %v", err)
	}
	return d
}

// Cleanup tears down the daemon and its container.
func (d *Daemon) Cleanup(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if d.Server != nil {
		d.Server.Shutdown(ctx)
	}
	if d.closeFn != nil {
		d.closeFn()
	}
	if d.RedisC != nil {
		d.RedisC.Terminate(ctx)
	}
	d.cancel()
}

func waitForServer(url string) error {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become ready")
}
