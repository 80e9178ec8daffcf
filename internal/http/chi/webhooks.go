package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/marcelsud/telephony-gateway/routes"
	"github.com/marcelsud/telephony-gateway/webhook"
	"github.com/marcelsud/telephony-gateway/webhook/payload"
)

/* HTTP layer DTOs for webhook API
 * Separate from domain entities to avoid leaking internal structure
 */

const (
	// validationTokenHeader is sent by the platform when a subscription is created
	validationTokenHeader = "Validation-Token"

	maxWebhookBytes = 1 << 20
)

// handlerResultResponse represents one handler outcome in the API response
type handlerResultResponse struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// webhookResponse represents the API response for a received event
type webhookResponse struct {
	EventID   string                  `json:"event_id"`
	EventType string                  `json:"event_type"`
	Category  string                  `json:"category"`
	Duplicate bool                    `json:"duplicate"`
	Handlers  []handlerResultResponse `json:"handlers"`
}

// routeResponse represents a route in the API
type routeResponse struct {
	EventType string                 `json:"event_type"`
	Handlers  []routeHandlerResponse `json:"handlers"`
}

type routeHandlerResponse struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"`
	Signed bool   `json:"signed,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// postWebhook handles POST /v1/webhooks
func postWebhook(dispatcher webhook.UseCase, signatureHeader string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Subscription handshake: echo the token, nothing to dispatch
		if token := r.Header.Get(validationTokenHeader); token != "" {
			w.Header().Set(validationTokenHeader, token)
			w.WriteHeader(http.StatusOK)
			return
		}

		// Read request body
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		n, err := payload.Parse(body)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid payload format: %v", err), http.StatusBadRequest)
			return
		}

		report, err := dispatcher.Dispatch(r.Context(), n.ToEvent(body, r.Header.Get(signatureHeader)))
		if err != nil {
			if errors.Is(err, webhook.ErrValidation) {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		response := webhookResponse{
			EventID:   report.EventID,
			EventType: report.EventType,
			Category:  string(payload.Classify(report.EventType)),
			Duplicate: report.Mark == webhook.Duplicate,
			Handlers:  make([]handlerResultResponse, 0, len(report.Results)),
		}
		for _, res := range report.Results {
			response.Handlers = append(response.Handlers, handlerResultResponse{
				Name:       res.Name,
				Status:     res.Status.String(),
				Error:      res.Error,
				DurationMS: res.Duration.Milliseconds(),
			})
		}

		// Handler failures are reported in the body; the event itself was accepted
		writeJSON(w, http.StatusOK, response)
	})
}

// getRoutes handles GET /v1/routes
func getRoutes(routeLoader *routes.Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allRoutes := routeLoader.List()

		responses := make([]routeResponse, 0, len(allRoutes))
		for _, route := range allRoutes {
			rr := routeResponse{EventType: route.EventType}
			for _, h := range route.Handlers {
				hr := routeHandlerResponse{Name: h.Name, Kind: h.Kind.String()}
				if h.Kind == routes.Forward {
					hr.URL = h.URL
					hr.Target = h.Target()
					hr.Signed = h.SigningSecret != ""
				}
				rr.Handlers = append(rr.Handlers, hr)
			}
			responses = append(responses, rr)
		}

		writeJSON(w, http.StatusOK, responses)
	})
}
