package http

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/melih/lighthouse-lxc/internal/core/ports"
)

// DefaultProxyDomain is the parent domain container hosts live under.
const DefaultProxyDomain = "lxc.local"

// ProxyHandler manages reverse proxying for subdomains.
type ProxyHandler struct {
	service ports.ContainerService
	// Domain is the parent domain of container hosts; only <name>.<Domain>
	// is intercepted.
	Domain string
	// Port is the container port requests are forwarded to; 0 means 80.
	Port int
}

// NewProxyHandler creates a new proxy handler. An empty parent means
// DefaultProxyDomain.
func NewProxyHandler(service ports.ContainerService, parent string, port int) *ProxyHandler {
	if parent == "" {
		parent = DefaultProxyDomain
	}
	return &ProxyHandler{service: service, Domain: strings.ToLower(strings.Trim(parent, ".")), Port: port}
}

// subdomain returns the container name encoded in host, or "" when the
// request is not addressed to a container under parent.
func subdomain(host, parent string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	name := strings.TrimSuffix(host, "."+parent)
	if name == host || name == "" || name == "www" || strings.Contains(name, ".") {
		return ""
	}
	return name
}

// ProxyRequest intercepts requests to subdomains (e.g., web.lxc.local)
// and routes them to the IP lxc-info reports for the container of the same
// name. Every other host falls through to the next handler.
func (h *ProxyHandler) ProxyRequest(c *fiber.Ctx) error {
	name := subdomain(c.Hostname(), h.Domain)
	if name == "" {
		return c.Next()
	}

	info, err := h.service.Info(c.Context(), name)
	if err != nil {
		if domain.HasCode(err, domain.ContainerNotExists) {
			return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("App '%s' not found or not running", name))
		}
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to inspect container")
	}

	// Only proxy to running containers
	targetIP := info.IPAddress()
	if !info.Running() || targetIP == "" {
		return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("App '%s' not found or not running", name))
	}

	host := targetIP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if h.Port != 0 {
		host = fmt.Sprintf("%s:%d", host, h.Port)
	}
	remote, err := url.Parse("http://" + host)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Invalid target URL")
	}

	proxy := httputil.NewSingleHostReverseProxy(remote)

	// Rewrite Host so the application sees the address it listens on.
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = remote.Host
		req.URL.Host = remote.Host
		req.URL.Scheme = remote.Scheme
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(fmt.Sprintf("Proxy Info: target=%s error=%v", targetIP, err)))
	}

	return adaptor.HTTPHandler(proxy)(c)
}
