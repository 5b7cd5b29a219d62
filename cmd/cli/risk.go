package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/bootstrap"
	"github.com/turtacn/pdmews/pkg/utils"
)

// riskCmd groups the analysis commands.
func (a *app) riskCmd() *cobra.Command {
	riskCmd := &cobra.Command{
		Use:   "risk",
		Short: "Run and inspect risk analyses",
	}

	var userID string
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one user and persist the ranked assessments",
		RunE: a.with(func(cmd *cobra.Command, c *bootstrap.Container) error {
			id, perr := utils.ParseUUID("user", userID)
			if perr != nil {
				return perr
			}
			assessments, err := c.Engine.AnalyzeUserRisk(cmd.Context(), id)
			if err != nil && assessments == nil {
				return err
			}
			resp := &dto.AnalysisResponse{UserID: id.String(), Assessments: assessments}
			if err != nil {
				resp.Warnings = []string{err.Error()}
			}
			return printJSON(cmd.OutOrStdout(), resp)
		}),
	}
	analyzeCmd.Flags().StringVar(&userID, "user", "", "User ID")
	_ = analyzeCmd.MarkFlagRequired("user")

	var listUserID string
	listCmd := &cobra.Command{
		Use:   "assessments",
		Short: "List a user's stored assessments, highest score first",
		RunE: a.with(func(cmd *cobra.Command, c *bootstrap.Container) error {
			id, perr := utils.ParseUUID("user", listUserID)
			if perr != nil {
				return perr
			}
			assessments, err := c.Insights.ListAssessments(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), assessments)
		}),
	}
	listCmd.Flags().StringVar(&listUserID, "user", "", "User ID")
	_ = listCmd.MarkFlagRequired("user")

	reevaluateCmd := &cobra.Command{
		Use:   "reevaluate",
		Short: "Re-analyze every registered user once",
		RunE: a.with(func(cmd *cobra.Command, c *bootstrap.Container) error {
			res, err := c.Job.ReevaluateAllUsers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users=%d failures=%d duration=%s\n", res.Users, res.Failures, res.Duration)
			return nil
		}),
	}

	riskCmd.AddCommand(analyzeCmd, listCmd, reevaluateCmd)
	return riskCmd
}
