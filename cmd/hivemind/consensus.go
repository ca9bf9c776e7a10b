package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

var consensusLimit int

var consensusCmd = &cobra.Command{
	Use:   "consensus",
	Short: "Show recent consensus proposals",
	Long: `Display persisted consensus proposals and their outcomes:
how many participants each round had, the required threshold, and the
confidence-weighted approval mass it ended with.`,
	RunE: runConsensus,
}

func init() {
	consensusCmd.Flags().IntVar(&consensusLimit, "limit", 20, "Maximum proposals to show")
}

func runConsensus(cmd *cobra.Command, args []string) error {
	db, err := openStateDB()
	if err != nil {
		return err
	}
	if db == nil {
		fmt.Println("No consensus history. Run 'hivemind run <task-file>' to start.")
		return nil
	}
	defer db.Close()

	proposals, err := db.Proposals(consensusLimit)
	if err != nil {
		return fmt.Errorf("load proposals: %w", err)
	}
	if len(proposals) == 0 {
		fmt.Println("No consensus proposals recorded.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Println("consensus proposals")
	for _, p := range proposals {
		status := string(p.Status)
		switch p.Status {
		case models.ProposalReached:
			status = color.GreenString(status)
		case models.ProposalFailed:
			status = color.RedString(status)
		case models.ProposalExpired:
			status = color.YellowString(status)
		}
		fmt.Printf("  %s  %-30q %s  %.1f/%.1f of %d voters\n",
			p.ID, p.Topic, status,
			p.Approvals, p.Required*float64(p.Participants), p.Participants)
	}
	return nil
}
