// Package server - HTTP-Host fuer Interpreter-Sessions und Bildtransformationen
// Beinhaltet: Server-Struct, Router-Registrierung, Middleware
package server

import (
	"net"
	"net/http"
	"net/netip"
	"os"
	"slices"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tflite-micro/tflm-go/envconfig"
	"github.com/tflite-micro/tflm-go/version"
)

var mode string = gin.DebugMode

// Server haelt die offenen Interpreter-Sessions
type Server struct {
	addr     net.Addr
	modelDir string
	sessions *sessions
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// New erstellt einen Server fuer Modelle unter modelDir mit hoechstens limit
// gleichzeitigen Interpretern (0 = unbegrenzt)
func New(modelDir string, limit int) *Server {
	return &Server{
		modelDir: modelDir,
		sessions: newSessions(limit),
	}
}

// Close schliesst alle Sessions
func (s *Server) Close() {
	s.sessions.closeAll()
}

// localTLDs sind Host-Endungen, die immer als lokal gelten
var localTLDs = []string{"localhost", "local", "internal"}

// isLocalIP prueft ob die IP-Adresse zu einem lokalen Interface gehoert
func isLocalIP(ip netip.Addr) bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, a := range addrs {
			if prefix, err := netip.ParsePrefix(a.String()); err == nil && prefix.Addr() == ip {
				return true
			}
		}
	}

	return false
}

// allowedHost prueft ob der Host-Name lokal ist
func allowedHost(host string) bool {
	host = strings.ToLower(host)

	if host == "" || host == "localhost" {
		return true
	}

	if hostname, err := os.Hostname(); err == nil && host == strings.ToLower(hostname) {
		return true
	}

	return slices.ContainsFunc(localTLDs, func(tld string) bool {
		return strings.HasSuffix(host, "."+tld)
	})
}

// allowedHostsMiddleware blockiert fremde Host-Header, solange der Server
// nur auf Loopback lauscht
func allowedHostsMiddleware(addr net.Addr) gin.HandlerFunc {
	return func(c *gin.Context) {
		if addr == nil {
			c.Next()
			return
		}

		if ap, err := netip.ParseAddrPort(addr.String()); err == nil && !ap.Addr().IsLoopback() {
			c.Next()
			return
		}

		host, _, err := net.SplitHostPort(c.Request.Host)
		if err != nil {
			host = c.Request.Host
		}

		if ip, err := netip.ParseAddr(host); err == nil {
			if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || isLocalIP(ip) {
				c.Next()
				return
			}
		}

		if !allowedHost(host) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
	}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "tflm is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "tflm is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })

	// Modelle und Backends
	r.GET("/api/models", s.ModelsHandler)
	r.GET("/api/models/:name", s.ModelHandler)
	r.GET("/api/backends", s.BackendsHandler)

	// Interpreter Sessions
	r.POST("/api/interpreters", s.CreateHandler)
	r.GET("/api/interpreters", s.ListHandler)
	r.GET("/api/interpreters/:id", s.ShowHandler)
	r.DELETE("/api/interpreters/:id", s.DeleteHandler)
	r.POST("/api/interpreters/:id/allocate", s.AllocateHandler)
	r.POST("/api/interpreters/:id/invoke", s.InvokeHandler)
	r.POST("/api/interpreters/:id/reset", s.ResetHandler)

	// Tensoren
	r.GET("/api/interpreters/:id/tensors", s.TensorsHandler)
	r.GET("/api/interpreters/:id/tensors/:index", s.TensorHandler)
	r.PUT("/api/interpreters/:id/tensors/:index", s.SetTensorHandler)

	// Transformationen
	r.POST("/api/transform/matrix", s.MatrixHandler)
	r.POST("/api/transform/warp", s.WarpHandler)
	r.POST("/api/transform/warp/batch", s.WarpBatchHandler)

	return r
}
