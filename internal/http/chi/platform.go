package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marcelsud/telephony-gateway/metrics"
	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/ringcentral"
)

// Platform is the subset of the platform client the API needs
type Platform interface {
	Do(ctx context.Context, method, path string, header http.Header, body []byte) (resilience.Response, error)
	CreateSubscription(ctx context.Context, req ringcentral.SubscriptionRequest) (ringcentral.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]ringcentral.Subscription, error)
	GetSubscription(ctx context.Context, id string) (ringcentral.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	RenewSubscription(ctx context.Context, id string) (ringcentral.Subscription, error)
}

const maxProxyBodyBytes = 10 << 20

type errorResponse struct {
	Error  string `json:"error"`
	Target string `json:"target,omitempty"`
}

// proxiedHeaders are copied from the caller to the platform and back
var proxiedHeaders = []string{"Content-Type", "Accept"}

func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}

/* writeUpstreamError maps executor failures onto HTTP statuses
 * A ClientError carries the platform's own status and body, which are relayed unchanged
 */
func writeUpstreamError(w http.ResponseWriter, err error) {
	var (
		circuitErr   *resilience.CircuitOpenError
		rateLimitErr *resilience.RateLimitExceededError
		clientErr    *resilience.ClientError
		serverErr    *resilience.ServerError
		transportErr *resilience.TransportError
		invalidErr   *resilience.InvalidRequestError
		statusErr    *resilience.UnexpectedStatusError
	)

	switch {
	case errors.As(err, &circuitErr):
		w.Header().Set("Retry-After", retryAfterSeconds(circuitErr.RetryAfter))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Target: circuitErr.Target})
	case errors.As(err, &rateLimitErr):
		if rateLimitErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", retryAfterSeconds(rateLimitErr.RetryAfter))
		}
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error(), Target: rateLimitErr.Target})
	case errors.As(err, &clientErr):
		if ct := clientErr.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(clientErr.Status)
		w.Write(clientErr.Body)
	case errors.As(err, &serverErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Target: serverErr.Target})
	case errors.As(err, &transportErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Target: transportErr.Target})
	case errors.As(err, &statusErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Target: statusErr.Target})
	case errors.As(err, &invalidErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Target: invalidErr.Target})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// proxyPlatform handles /v1/platform/* by relaying the call through the executor
func proxyPlatform(platform Platform) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := chi.URLParam(r, "*")
		if !strings.HasPrefix(rest, "restapi/") {
			http.Error(w, "only /restapi/ resources can be proxied", http.StatusBadRequest)
			return
		}
		path := "/" + rest
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBodyBytes))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		header := http.Header{}
		for _, h := range proxiedHeaders {
			if v := r.Header.Get(h); v != "" {
				header.Set(h, v)
			}
		}

		resp, err := platform.Do(r.Context(), r.Method, path, header, body)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		for _, h := range proxiedHeaders {
			if v := resp.Header.Get(h); v != "" {
				w.Header().Set(h, v)
			}
		}
		w.Header().Set("X-Gateway-Attempts", strconv.Itoa(resp.Attempts))
		w.WriteHeader(resp.Status)
		w.Write(resp.Body)
	})
}

// targetResponse represents the resilience state of one target
type targetResponse struct {
	Target    string                      `json:"target"`
	Circuit   *resilience.CircuitState    `json:"circuit,omitempty"`
	RateLimit *resilience.RateLimitWindow `json:"rate_limit,omitempty"`
}

// getTargets handles GET /v1/targets
func getTargets(collector metrics.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := collector.Collect(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		byTarget := map[string]*targetResponse{}
		var order []string
		get := func(target string) *targetResponse {
			if t, ok := byTarget[target]; ok {
				return t
			}
			t := &targetResponse{Target: target}
			byTarget[target] = t
			order = append(order, target)
			return t
		}
		for i := range m.Circuits {
			get(m.Circuits[i].Target).Circuit = &m.Circuits[i]
		}
		for i := range m.RateLimits {
			get(m.RateLimits[i].Target).RateLimit = &m.RateLimits[i]
		}

		responses := make([]targetResponse, 0, len(order))
		for _, target := range order {
			responses = append(responses, *byTarget[target])
		}
		writeJSON(w, http.StatusOK, responses)
	})
}

// listSubscriptions handles GET /v1/subscriptions
func listSubscriptions(platform Platform) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subs, err := platform.ListSubscriptions(r.Context())
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	})
}

// postSubscription handles POST /v1/subscriptions
func postSubscription(platform Platform) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ringcentral.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := req.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		sub, err := platform.CreateSubscription(r.Context(), req)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	})
}

// getSubscription handles GET /v1/subscriptions/{id}
func getSubscription(platform Platform) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := platform.GetSubscription(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	})
}

// deleteSubscription handles DELETE /v1/subscriptions/{id}
func deleteSubscription(platform Platform) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := platform.DeleteSubscription(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeUpstreamError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// renewSubscription handles POST /v1/subscriptions/{id}/renew
func renewSubscription(platform Platform) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := platform.RenewSubscription(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	})
}
