package questdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContainer wraps a QuestDB testcontainer with a connected client.
type TestContainer struct {
	Container testcontainers.Container
	Client    *Client
	Config    Config
}

// TestContainerConfig holds configuration for the test container.
type TestContainerConfig struct {
	Image          string
	StartupTimeout time.Duration
}

// DefaultTestContainerConfig returns a default configuration.
func DefaultTestContainerConfig() *TestContainerConfig {
	return &TestContainerConfig{
		Image:          "questdb/questdb:8.2.1",
		StartupTimeout: 2 * time.Minute,
	}
}

// NewTestContainer starts QuestDB and connects a client over the Postgres wire port.
func NewTestContainer(ctx context.Context, config *TestContainerConfig) (*TestContainer, error) {
	if config == nil {
		config = DefaultTestContainerConfig()
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        config.Image,
			ExposedPorts: []string{"8812/tcp", "9000/tcp"},
			WaitingFor: wait.ForListeningPort("8812/tcp").
				WithStartupTimeout(config.StartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start questdb container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "8812/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	cfg := Config{
		Host:            host,
		Port:            port.Int(),
		Database:        "qdb",
		Username:        "admin",
		Password:        "quest",
		MaxConns:        2,
		MaxConnIdleTime: time.Minute,
		ConnectTimeout:  10 * time.Second,
	}

	client, err := NewClient(ctx, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestContainer{
		Container: container,
		Client:    client,
		Config:    cfg,
	}, nil
}

// Close closes the client and terminates the container.
func (tc *TestContainer) Close(ctx context.Context) error {
	if tc.Client != nil {
		tc.Client.Close()
	}
	if tc.Container != nil {
		if err := tc.Container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}
	return nil
}

// NewTestHelper starts a container for the duration of t, skipping in short mode.
func NewTestHelper(t *testing.T) *TestContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	tc, err := NewTestContainer(ctx, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := tc.Close(ctx); err != nil {
			t.Logf("Failed to close test container: %v", err)
		}
	})

	return tc
}
