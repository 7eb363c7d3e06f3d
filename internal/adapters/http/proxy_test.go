package http

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/melih/lighthouse-lxc/internal/core/ports/portstest"
	"gotest.tools/v3/assert"
)

func TestSubdomain(t *testing.T) {
	tests := map[string]string{
		"web.lxc.local":      "web",
		"WEB.lxc.local:8080": "web",
		"web.lxc.local.":     "web",
		"localhost":          "",
		"lxc.local":          "",
		"www.lxc.local":      "",
		".lxc.local":         "",
		"a.web.lxc.local":    "",
		"127.0.0.1:3000":     "",
		"api.example.com":    "",
		"weblxc.local":       "",
	}
	for host, want := range tests {
		assert.Equal(t, subdomain(host, DefaultProxyDomain), want, "host %q", host)
	}
}

func TestProxyRequest(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "hello from "+r.URL.Path)
	}))
	defer backend.Close()

	host, portStr, err := net.SplitHostPort(backend.Listener.Addr().String())
	assert.NilError(t, err)
	port, err := strconv.Atoi(portStr)
	assert.NilError(t, err)

	svc := portstest.NewService(map[string]domain.Info{
		"web": {"state": "RUNNING", "ip": host},
		"db":  {"state": "STOPPED", "ip": host},
	})

	app := fiber.New()
	app.Use(NewProxyHandler(svc, "", port).ProxyRequest)
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("api") })
	app.Get("/api/v1/containers", func(c *fiber.Ctx) error { return c.SendString("containers") })

	get := func(target string) (int, string) {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
		assert.NilError(t, err)
		body, err := io.ReadAll(resp.Body)
		assert.NilError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("http://web.lxc.local/status")
	assert.Equal(t, status, fiber.StatusOK)
	assert.Equal(t, body, "hello from /status")

	status, _ = get("http://db.lxc.local/")
	assert.Equal(t, status, fiber.StatusNotFound)

	status, _ = get("http://cache.lxc.local/")
	assert.Equal(t, status, fiber.StatusNotFound)

	status, body = get("http://localhost/")
	assert.Equal(t, status, fiber.StatusOK)
	assert.Equal(t, body, "api")

	for _, target := range []string{
		"http://127.0.0.1:3000/api/v1/containers",
		"http://api.example.com/api/v1/containers",
		"http://localhost/api/v1/containers",
	} {
		status, body = get(target)
		assert.Equal(t, status, fiber.StatusOK, target)
		assert.Equal(t, body, "containers", target)
	}
	assert.Equal(t, len(svc.Calls), 3, "only container hosts consult the service: %v", svc.Calls)
}

func TestProxyRequestCustomDomain(t *testing.T) {
	svc := portstest.NewService(map[string]domain.Info{
		"web": {"state": "STOPPED"},
	})

	app := fiber.New()
	app.Use(NewProxyHandler(svc, "apps.example.com", 0).ProxyRequest)
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("api") })

	resp, err := app.Test(httptest.NewRequest("GET", "http://web.apps.example.com/", nil), -1)
	assert.NilError(t, err)
	assert.Equal(t, resp.StatusCode, fiber.StatusNotFound)

	resp, err = app.Test(httptest.NewRequest("GET", "http://web.lxc.local/", nil), -1)
	assert.NilError(t, err)
	assert.Equal(t, resp.StatusCode, fiber.StatusOK)
}
