package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marcelsud/telephony-gateway/ringcentral"
)

func newSubscriptionsCommand(newClient ClientFactory) *cobra.Command {
	subs := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage webhook subscriptions",
	}

	subs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			list, err := client.ListSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	})

	var (
		filters   []string
		address   string
		expiresIn int
		token     string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a webhook subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ringcentral.SubscriptionRequest{
				EventFilters: filters,
				DeliveryMode: ringcentral.DeliveryMode{
					TransportType:     ringcentral.TransportWebHook,
					Address:           address,
					VerificationToken: token,
				},
				ExpiresIn: expiresIn,
			}
			if err := req.Validate(); err != nil {
				return err
			}

			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := client.CreateSubscription(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sub)
		},
	}
	create.Flags().StringArrayVarP(&filters, "filter", "f", nil, "event filter, repeatable")
	create.Flags().StringVar(&address, "address", "", "https URL the platform posts notifications to")
	create.Flags().IntVar(&expiresIn, "expires-in", ringcentral.DefaultSubscriptionTTL, "subscription lifetime in seconds")
	create.Flags().StringVar(&token, "verification-token", "", "token the platform sends back in the Verification-Token header")
	_ = create.MarkFlagRequired("filter")
	_ = create.MarkFlagRequired("address")
	subs.AddCommand(create)

	subs.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show one subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := client.GetSubscription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sub)
		},
	})

	subs.AddCommand(&cobra.Command{
		Use:   "renew ID",
		Short: "Extend a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := client.RenewSubscription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sub)
		},
	})

	subs.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Cancel a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.DeleteSubscription(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("deleted %s\n", args[0])
			return nil
		},
	})

	return subs
}
