//go:build container

package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RunWithMongoContainer starts a disposable MongoDB container, points
// SetupTestDB at it and runs the package's tests. Use from TestMain in
// packages built with -tags container:
//
//	func TestMain(m *testing.M) { os.Exit(testutil.RunWithMongoContainer(m)) }
func RunWithMongoContainer(m *testing.M) int {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start mongo container: %v\n", err)
		return 1
	}
	defer func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			fmt.Fprintf(os.Stderr, "terminate mongo container: %v\n", err)
		}
	}()

	host, err := c.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container host: %v\n", err)
		return 1
	}
	port, err := c.MappedPort(ctx, "27017/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "container port: %v\n", err)
		return 1
	}

	mongoURIOverride = fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	return m.Run()
}
