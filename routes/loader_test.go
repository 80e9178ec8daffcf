package routes_test

import (
	"os"
	"testing"

	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/routes"
	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRoutes = `
routes:
  - event_type: "/restapi/v1.0/account/*/extension/*/presence*"
    handlers:
      - name: presence-log
        kind: log
      - name: crm-presence
        kind: forward
        url: "https://crm.example.com/hooks/presence"
        target_id: crm
        signing_secret: "Zm9yd2FyZC1zaWduaW5nLXNlY3JldA"
  - event_type: "*"
    handlers:
      - name: audit
        kind: log
`

func writeRoutes(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "routes-*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoader_Load(t *testing.T) {
	t.Run("success - valid routes file", func(t *testing.T) {
		loader := routes.NewLoader()
		err := loader.Load(writeRoutes(t, validRoutes))
		require.NoError(t, err)

		allRoutes := loader.List()
		require.Len(t, allRoutes, 2)
		assert.Equal(t, "/restapi/v1.0/account/*/extension/*/presence*", allRoutes[0].EventType)
		assert.Equal(t, "*", allRoutes[1].EventType)

		route, err := loader.Get("/restapi/v1.0/account/*/extension/*/presence*")
		require.NoError(t, err)
		require.Len(t, route.Handlers, 2)
		assert.Equal(t, routes.Log, route.Handlers[0].Kind)
		assert.Equal(t, routes.Forward, route.Handlers[1].Kind)
		assert.Equal(t, "crm", route.Handlers[1].Target())
		assert.Equal(t, "https://crm.example.com/hooks/presence", route.Handlers[1].URL)
	})

	t.Run("error - file not found", func(t *testing.T) {
		err := routes.NewLoader().Load("nonexistent.yaml")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading routes file")
	})

	t.Run("error - invalid YAML", func(t *testing.T) {
		err := routes.NewLoader().Load(writeRoutes(t, `invalid yaml content: [[[`))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing routes YAML")
	})

	t.Run("error - forward without url", func(t *testing.T) {
		content := `
routes:
  - event_type: "*"
    handlers:
      - name: crm
        kind: forward
`
		err := routes.NewLoader().Load(writeRoutes(t, content))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires an absolute http(s) url")
	})

	t.Run("error - duplicate event type", func(t *testing.T) {
		content := `
routes:
  - event_type: "*"
    handlers: [{name: a, kind: log}]
  - event_type: "*"
    handlers: [{name: b, kind: log}]
`
		err := routes.NewLoader().Load(writeRoutes(t, content))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate route")
	})
}

func TestLoader_Exists(t *testing.T) {
	loader := routes.NewLoader()
	require.NoError(t, loader.Parse([]byte(validRoutes)))

	t.Run("route exists", func(t *testing.T) {
		assert.True(t, loader.Exists("*"))
	})

	t.Run("route does not exist", func(t *testing.T) {
		assert.False(t, loader.Exists("/restapi/v1.0/account/~/extension"))
		_, err := loader.Get("/restapi/v1.0/account/~/extension")
		assert.ErrorContains(t, err, "route not found")
	})
}

func TestLoader_Register(t *testing.T) {
	t.Run("success - registers handlers in order", func(t *testing.T) {
		loader := routes.NewLoader()
		require.NoError(t, loader.Parse([]byte(validRoutes)))

		registry := webhook.NewRegistry()
		exec := resilience.NewExecutor(resilience.NewHTTPTransport("", nil))
		require.NoError(t, loader.Register(registry, zerolog.Nop(), exec))

		hs := registry.Handlers("/restapi/v1.0/account/1/extension/2/presence")
		require.Len(t, hs, 3)
		assert.Equal(t, "presence-log", hs[0].Name)
		assert.Equal(t, "crm-presence", hs[1].Name)
		assert.Equal(t, "audit", hs[2].Name)
	})

	t.Run("error - forward without executor", func(t *testing.T) {
		loader := routes.NewLoader()
		require.NoError(t, loader.Parse([]byte(validRoutes)))

		err := loader.Register(webhook.NewRegistry(), zerolog.Nop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "needs an executor")
	})
}

func TestRoute_Validate(t *testing.T) {
	t.Run("valid log route", func(t *testing.T) {
		route := &routes.Route{
			EventType: "/restapi/v1.0/account/~/extension",
			Handlers:  []routes.HandlerSpec{{Name: "log", Kind: routes.Log}},
		}
		require.NoError(t, route.Validate())
	})

	t.Run("error - relative event type", func(t *testing.T) {
		route := &routes.Route{
			EventType: "extension.updated",
			Handlers:  []routes.HandlerSpec{{Name: "log", Kind: routes.Log}},
		}
		err := route.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid event_type")
	})

	t.Run("error - no handlers", func(t *testing.T) {
		route := &routes.Route{EventType: "*"}
		err := route.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one handler")
	})

	t.Run("error - duplicate handler names", func(t *testing.T) {
		route := &routes.Route{
			EventType: "*",
			Handlers: []routes.HandlerSpec{
				{Name: "log", Kind: routes.Log},
				{Name: "log", Kind: routes.Log},
			},
		}
		err := route.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate handler")
	})

	t.Run("error - unknown kind", func(t *testing.T) {
		route := &routes.Route{
			EventType: "*",
			Handlers:  []routes.HandlerSpec{{Name: "x", Kind: routes.NewKind("email")}},
		}
		err := route.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid kind")
	})

	t.Run("error - short signing secret", func(t *testing.T) {
		route := &routes.Route{
			EventType: "*",
			Handlers: []routes.HandlerSpec{{
				Name: "crm", Kind: routes.Forward, URL: "https://crm.example.com", SigningSecret: "short",
			}},
		}
		err := route.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signing_secret")
	})
}
