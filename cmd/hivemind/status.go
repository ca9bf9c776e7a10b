package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hivemind/internal/state"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

var statusTaskID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted coordination state",
	Long: `Display the persisted coordination state for this project.

Shows:
  - Plan history (every revision of every task's plan)
  - Resolved conflicts and their outcomes
  - Recent performance snapshots`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusTaskID, "task", "", "Limit output to one task id")
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openStateDB()
	if err != nil {
		return err
	}
	if db == nil {
		fmt.Println("No coordination history. Run 'hivemind run <task-file>' to start.")
		return nil
	}
	defer db.Close()

	if statusTaskID != "" {
		return displayTask(db, statusTaskID)
	}

	snaps, err := db.RecentSnapshots(5)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No coordination history yet.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Println("recent performance")
	for _, snap := range snaps {
		fmt.Printf("  %s  throughput=%.1f/min latency=%s quality=%.2f errors=%.0f%%\n",
			snap.Timestamp.Format("2006-01-02 15:04:05"),
			snap.Throughput, snap.Latency, snap.QualityScore, snap.ErrorRate*100)
	}
	return nil
}

// displayTask prints a single task's plan history and conflicts.
func displayTask(db *state.DB, taskID string) error {
	history, err := db.PlanHistory(taskID)
	if err != nil {
		return fmt.Errorf("load plan history: %w", err)
	}
	if len(history) == 0 {
		fmt.Printf("No plans recorded for task %s.\n", taskID)
		return nil
	}

	bold := color.New(color.Bold)
	bold.Printf("plan history for task %s\n", taskID)
	for _, rev := range history {
		status := string(rev.Status)
		switch rev.Status {
		case models.PlanCompleted:
			status = color.GreenString(status)
		case models.PlanFailed:
			status = color.RedString(status)
		case models.PlanTerminated:
			status = color.YellowString(status)
		}
		fmt.Printf("  #%d  plan=%s strategy=%s status=%s saved=%s\n",
			rev.Seq, rev.PlanID, rev.Strategy, status, rev.SavedAt.Format("15:04:05"))
	}

	conflicts, err := db.Conflicts(taskID)
	if err != nil {
		return fmt.Errorf("load conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		bold.Println("conflicts")
		for _, rec := range conflicts {
			fmt.Printf("  %s  %q -> %s (%s)\n", rec.ID, rec.Issue, rec.Outcome, rec.Resolution)
		}
	}
	return nil
}

// openStateDB opens the project database if one exists, then the
// global one. Returns nil when neither exists.
func openStateDB() (*state.DB, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
