package startup

import (
	"strings"
	"time"

	"github.com/gorilla/mux"

	"genai-gallery/internal/logging"
)

// Route is one path template of the router with every method it accepts.
type Route struct {
	Section string
	Path    string
	Methods []string
}

// Routes lists the router's path templates in registration order. Methods
// registered separately for one template are merged; prefix-only routes
// such as subrouter mounts are left out.
func Routes(router *mux.Router) ([]Route, error) {
	var routes []Route
	index := make(map[string]int)

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}

		if i, ok := index[tmpl]; ok {
			routes[i].Methods = append(routes[i].Methods, methods...)
			return nil
		}
		index[tmpl] = len(routes)
		routes = append(routes, Route{
			Section: routeSection(tmpl),
			Path:    tmpl,
			Methods: append([]string(nil), methods...),
		})
		return nil
	})

	return routes, err
}

// routeSection names the part of the service a path belongs to.
func routeSection(tmpl string) string {
	switch {
	case strings.HasPrefix(tmpl, "/api/"):
		return "api"
	case strings.HasPrefix(tmpl, "/images/"):
		return "files"
	case tmpl == "/metrics":
		return "metrics"
	default:
		return "probes"
	}
}

// LogHTTPRoutes logs the route table and which requests reach the access
// log.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP ROUTES")
	logging.Info("------------------------------------------------------------")

	routes, err := Routes(router)
	if err != nil {
		logging.Warn("  Could not list routes: %v", err)
	}
	for _, r := range routes {
		logging.Info("  %-8s %-10s %s", r.Section, strings.Join(r.Methods, ","), r.Path)
	}

	logging.Info("")
	logging.Info("  Access log: image files %s, health probes %s",
		onOff(logStaticFiles), onOff(logHealthChecks))
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listen address and where to point a browser
// or a generation tool's upload node.
func LogServerStarted(config ServerConfig) {
	base := "http://0.0.0.0:" + config.Port

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("LISTENING on :%s (ready in %v)", config.Port, config.StartupDuration.Round(time.Millisecond))
	logging.Info("------------------------------------------------------------")
	logging.Info("  Browse:  %s/api/browse", base)
	logging.Info("  Search:  %s/api/images?q=seed:42", base)
	logging.Info("  Upload:  POST %s/api/upload", base)
	if config.MetricsEnabled {
		logging.Info("  Metrics: %s/metrics", base)
	}
	logging.Info("")
}
