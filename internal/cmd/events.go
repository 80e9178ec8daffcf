package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marcelsud/telephony-gateway/resilience"
	"github.com/marcelsud/telephony-gateway/webhook/payload"
	"github.com/marcelsud/telephony-gateway/webhook/signature"
)

func newEventsCommand() *cobra.Command {
	events := &cobra.Command{
		Use:   "events",
		Short: "Work with webhook events",
	}

	var (
		url       string
		eventType string
		token     string
		header    string
		body      string
		eventID   string
	)
	send := &cobra.Command{
		Use:   "send",
		Short: "Post a synthetic, signed notification to a gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventID == "" {
				eventID = uuid.NewString()
			}
			n := payload.Notification{
				UUID:           eventID,
				Event:          eventType,
				Timestamp:      time.Now().UTC(),
				SubscriptionID: "cli",
				Body:           json.RawMessage(body),
			}
			if err := n.Validate(); err != nil {
				return fmt.Errorf("building event: %w", err)
			}
			raw, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("encoding event: %w", err)
			}

			h := http.Header{}
			h.Set("Content-Type", "application/json")
			if token != "" {
				h.Set(header, signature.Sign(token, raw))
			}

			exec := resilience.NewExecutor(resilience.NewHTTPTransport("", nil))
			resp, err := exec.Execute(cmd.Context(), resilience.NewOutboundCall("gateway", http.MethodPost, url, h, raw))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "event %s: %d %s\n", eventID, resp.Status, http.StatusText(resp.Status))
			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}
	send.Flags().StringVar(&url, "url", "http://localhost:8080/v1/webhooks", "gateway webhook endpoint")
	send.Flags().StringVar(&eventType, "event", "/restapi/v1.0/account/~/extension/~/presence", "event filter of the notification")
	send.Flags().StringVar(&token, "token", "", "validation token used to sign the body")
	send.Flags().StringVar(&header, "signature-header", signature.DefaultHeader, "header carrying the signature")
	send.Flags().StringVar(&body, "body", "{}", "JSON body of the notification")
	send.Flags().StringVar(&eventID, "id", "", "event uuid (random when empty)")
	events.AddCommand(send)

	return events
}
