//go:build !windows

package server

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerUnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "diagrammer.sock")
	startServer(t, &Config{Address: "unix://" + sock})

	c := &client{
		t: t,
		http: &http.Client{Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", sock)
			},
		}},
		base: "http://unix",
	}

	var health map[string]string
	c.json(http.MethodGet, "/healthz", nil, http.StatusOK, &health)
	assert.Equal(t, "SERVING", health["status"])
}
