package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newCallCommand(newClient ClientFactory) *cobra.Command {
	var (
		data     string
		dataFile string
	)
	call := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Issue one platform REST call through the executor",
		Example: `  rcgw call GET /restapi/v1.0/account/~/extension
  rcgw call POST /restapi/v1.0/account/~/extension/~/sms --data '{"text":"hi"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			path := args[1]
			if !strings.HasPrefix(path, "/restapi/") {
				return fmt.Errorf("path must start with /restapi/: %s", path)
			}
			if data != "" && dataFile != "" {
				return fmt.Errorf("--data and --data-file are mutually exclusive")
			}

			var body []byte
			switch {
			case data != "":
				body = []byte(data)
			case dataFile != "":
				b, err := os.ReadFile(dataFile)
				if err != nil {
					return fmt.Errorf("reading data file: %w", err)
				}
				body = b
			}

			header := http.Header{}
			header.Set("Accept", "application/json")
			if len(body) > 0 {
				header.Set("Content-Type", "application/json")
			}

			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.Do(cmd.Context(), method, path, header, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d %s (%d attempt(s))\n", resp.Status, http.StatusText(resp.Status), resp.Attempts)
			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}
	call.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	call.Flags().StringVar(&dataFile, "data-file", "", "file holding the JSON request body")
	return call
}
