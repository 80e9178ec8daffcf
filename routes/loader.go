package routes

import (
	"fmt"
	"os"

	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/marcelsud/telephony-gateway/webhook/handlers"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

/* Loader manages handler routes from routes.yaml
 * Routes keep file order because handler order is significant
 */

// Config represents the structure of routes.yaml
type Config struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig represents a single route in the YAML file
type RouteConfig struct {
	EventType string          `yaml:"event_type"`
	Handlers  []HandlerConfig `yaml:"handlers"`
}

// HandlerConfig represents one handler entry of a route
type HandlerConfig struct {
	Name          string `yaml:"name"`
	Kind          string `yaml:"kind"`
	URL           string `yaml:"url"`
	TargetID      string `yaml:"target_id"`
	SigningSecret string `yaml:"signing_secret"`
}

// Loader holds the loaded routes
type Loader struct {
	routes []*Route
	index  map[string]*Route
}

// NewLoader creates a new route loader
func NewLoader() *Loader {
	return &Loader{
		index: make(map[string]*Route),
	}
}

// Load reads and parses the routes.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading routes file: %w", err)
	}
	return l.Parse(data)
}

// Parse loads routes from YAML bytes
func (l *Loader) Parse(data []byte) error {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing routes YAML: %w", err)
	}

	for _, rc := range config.Routes {
		route := &Route{EventType: rc.EventType}
		for _, hc := range rc.Handlers {
			route.Handlers = append(route.Handlers, HandlerSpec{
				Name:          hc.Name,
				Kind:          NewKind(hc.Kind),
				URL:           hc.URL,
				TargetID:      hc.TargetID,
				SigningSecret: hc.SigningSecret,
			})
		}

		if err := route.Validate(); err != nil {
			return fmt.Errorf("validating route: %w", err)
		}
		if _, exists := l.index[route.EventType]; exists {
			return fmt.Errorf("duplicate route for event_type %s", route.EventType)
		}

		l.routes = append(l.routes, route)
		l.index[route.EventType] = route
	}

	return nil
}

// Get retrieves a route by its event type pattern
func (l *Loader) Get(eventType string) (*Route, error) {
	route, exists := l.index[eventType]
	if !exists {
		return nil, fmt.Errorf("route not found: %s", eventType)
	}
	return route, nil
}

// List returns all loaded routes in file order
func (l *Loader) List() []*Route {
	return append([]*Route(nil), l.routes...)
}

// Exists checks if a route is declared for eventType
func (l *Loader) Exists(eventType string) bool {
	_, exists := l.index[eventType]
	return exists
}

// Register creates the handlers of every route and adds them to registry.
// Forward handlers share exec, so each destination gets its own breaker keyed by target.
func (l *Loader) Register(registry *webhook.Registry, logger zerolog.Logger, exec handlers.Executor) error {
	for _, route := range l.routes {
		for _, hs := range route.Handlers {
			var h webhook.Handler
			switch hs.Kind {
			case Log:
				h = handlers.NewLog(logger.With().Str("handler", hs.Name).Logger())
			case Forward:
				if exec == nil {
					return fmt.Errorf("forward handler %s needs an executor", hs.Name)
				}
				h = handlers.NewForward(exec, hs.Target(), hs.URL, hs.SigningSecret)
			default:
				return fmt.Errorf("unsupported handler kind %s for %s", hs.Kind, hs.Name)
			}
			if err := registry.Register(route.EventType, hs.Name, h); err != nil {
				return fmt.Errorf("registering handler %s: %w", hs.Name, err)
			}
		}
	}
	return nil
}
