package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <address>",
		Short: "Resolves an address to its districts and races",
		Long: `Geocodes a Wisconsin street address, finds its Assembly, Senate and
congressional districts and prints the matching races as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer appInstance.Close(cmd.Context())
			result, err := appInstance.Lookup(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("lookup: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
