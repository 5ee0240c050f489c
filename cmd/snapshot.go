package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Exports the guide data to the configured blob store",
		Long: `Reads candidates, races, stories and news once and writes them as JSON
objects plus a manifest to the configured storage backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer appInstance.Close(cmd.Context())
			manifest, err := appInstance.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			for _, obj := range manifest.Objects {
				appInstance.Logger().Info("snapshot object written",
					zap.String("uri", obj.URI),
					zap.Int("size", obj.Size),
				)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d objects\n", len(manifest.Objects))
			return nil
		},
	}
}
