package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/pdmews/internal/bootstrap"
)

// reputationCmd exposes the per-app trust and crowd state.
func (a *app) reputationCmd() *cobra.Command {
	reputationCmd := &cobra.Command{
		Use:   "reputation",
		Short: "Inspect app trust scores and crowd reports",
	}

	var trustApp string
	trustCmd := &cobra.Command{
		Use:   "trust",
		Short: "Print an app's current trust score",
		RunE: a.with(func(cmd *cobra.Command, c *bootstrap.Container) error {
			return printJSON(cmd.OutOrStdout(), c.Insights.TrustScore(trustApp))
		}),
	}
	trustCmd.Flags().StringVar(&trustApp, "app", "", "App name")
	_ = trustCmd.MarkFlagRequired("app")

	var crowdApp string
	crowdCmd := &cobra.Command{
		Use:   "crowd",
		Short: "Print an app's high-risk report count and multiplier",
		RunE: a.with(func(cmd *cobra.Command, c *bootstrap.Container) error {
			standing, err := c.Insights.CrowdStanding(cmd.Context(), crowdApp)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), standing)
		}),
	}
	crowdCmd.Flags().StringVar(&crowdApp, "app", "", "App name")
	_ = crowdCmd.MarkFlagRequired("app")

	reputationCmd.AddCommand(trustCmd, crowdCmd)
	return reputationCmd
}
