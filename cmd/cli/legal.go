package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/bootstrap"
	"github.com/turtacn/pdmews/pkg/utils"
)

func (a *app) legalCmd() *cobra.Command {
	legalCmd := &cobra.Command{
		Use:   "legal",
		Short: "Preserve and verify forensic evidence",
	}

	var preserveID string
	preserveCmd := &cobra.Command{
		Use:   "preserve",
		Short: "Seal an assessment and print its evidence record",
		RunE: a.with(func(cmd *cobra.Command, c *bootstrap.Container) error {
			id, perr := utils.ParseUUID("assessment", preserveID)
			if perr != nil {
				return perr
			}
			record, err := c.Forensic.PreserveEvidence(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), record)
		}),
	}
	preserveCmd.Flags().StringVar(&preserveID, "assessment", "", "Assessment ID")
	_ = preserveCmd.MarkFlagRequired("assessment")

	var verifyID string
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an assessment against its sealed hash",
		RunE: a.with(func(cmd *cobra.Command, c *bootstrap.Container) error {
			id, perr := utils.ParseUUID("assessment", verifyID)
			if perr != nil {
				return perr
			}
			valid, err := c.Forensic.VerifyEvidence(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), &dto.VerificationResponse{AssessmentID: id.String(), Valid: valid})
		}),
	}
	verifyCmd.Flags().StringVar(&verifyID, "assessment", "", "Assessment ID")
	_ = verifyCmd.MarkFlagRequired("assessment")

	legalCmd.AddCommand(preserveCmd, verifyCmd)
	return legalCmd
}
