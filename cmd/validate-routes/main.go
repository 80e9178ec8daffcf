package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/telephony-gateway/routes"
)

/* validate-routes - Standalone CLI tool to validate routes.yaml
 * Usage: go run cmd/validate-routes/main.go [routes.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	// Get routes file path from args or use default
	routesFile := "routes.yaml"
	if len(os.Args) > 1 {
		routesFile = os.Args[1]
	}

	fmt.Printf("Validating routes file: %s\n", routesFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := routes.NewLoader()
	if err := loader.Load(routesFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loadedRoutes := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d route(s):\n", len(loadedRoutes))

	for i, route := range loadedRoutes {
		fmt.Printf("\n%d. Event type: %s\n", i+1, route.EventType)
		for j, h := range route.Handlers {
			fmt.Printf("   %d) %-20s kind=%s", j+1, h.Name, h.Kind)
			if h.Kind == routes.Forward {
				fmt.Printf(" target=%s url=%s signed=%t", h.Target(), h.URL, h.SigningSecret != "")
			}
			fmt.Println()
		}
	}

	fmt.Printf("\n✓ All routes are valid!\n")
	os.Exit(0)
}
