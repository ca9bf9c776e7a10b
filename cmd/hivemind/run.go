package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/hivemind/internal/api"
	"github.com/ShayCichocki/hivemind/internal/config"
	"github.com/ShayCichocki/hivemind/internal/directory"
	"github.com/ShayCichocki/hivemind/internal/orchestrator"
	"github.com/ShayCichocki/hivemind/internal/specialist"
	"github.com/ShayCichocki/hivemind/internal/state"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

var (
	runPlanOnly bool
	runPersist  bool
	runWatch    bool
)

var runCmd = &cobra.Command{
	Use:   "run <task-file>",
	Short: "Plan and execute a composite task",
	Long: `Plan and execute a composite task described in a YAML file.

The task file declares the task's priority, complexity, dependencies
and sub-units. Hivemind selects a coordination strategy, assigns each
sub-unit to a specialist, budgets capacity, and executes through
quality gates.

With --plan-only the plan is printed without executing anything.
Without an Anthropic API key, execution uses a canned specialist
backend useful for dry runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runPlanOnly, "plan-only", false, "Create and print the plan without executing")
	runCmd.Flags().BoolVar(&runPersist, "persist", true, "Persist plan history to the project database")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Hot-reload the specialist catalogue on changes")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	task, err := loadTask(args[0])
	if err != nil {
		return err
	}

	dir := loadDirectory(cfg)
	if runWatch {
		watcher, err := directory.Watch(dir, cfg.Specialists.CataloguePath)
		if err != nil {
			return fmt.Errorf("watch catalogue: %w", err)
		}
		defer watcher.Close()
	}

	opts := orchestrator.Options{Capability: buildCapability(cfg)}
	if runPersist {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		db, err := state.OpenProject(cwd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		opts.DB = db
	}

	orch := orchestrator.New(cfg, dir, opts)
	defer orch.Close()

	plan, err := orch.Orchestrate(task)
	if err != nil {
		return err
	}
	printPlan(plan, task)

	if runPlanOnly {
		orch.Cancel(task.ID)
		return nil
	}

	if err := orch.Execute(cmd.Context(), task.ID, nil); err != nil {
		color.Red("task %s failed: %v", task.ID, err)
		return err
	}

	color.Green("task %s delivered", task.ID)
	return nil
}

// loadTask reads a composite task from YAML and fills in runtime
// fields the file does not carry.
func loadTask(path string) (*models.CompositeTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file %s: %w", path, err)
	}

	var task models.CompositeTask
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", path, err)
	}

	task.Status = models.TaskStatusPending
	for _, su := range task.SubUnits {
		su.TaskID = task.ID
		su.Status = models.SubUnitPending
	}
	return &task, nil
}

// loadDirectory loads the configured catalogue, falling back to the
// built-in one.
func loadDirectory(cfg *config.Config) *directory.Directory {
	dir, err := directory.LoadCatalogue(cfg.Specialists.CataloguePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalogue unavailable (%v), using built-in\n", err)
		return directory.DefaultCatalogue()
	}
	return dir
}

// buildCapability wires the API-backed specialist when credentials are
// configured, and the canned backend otherwise.
func buildCapability(cfg *config.Config) specialist.Capability {
	if cfg.Anthropic.APIKey == "" && !cfg.Anthropic.UseAWSBedrock {
		return &specialist.Scripted{
			Output: "dry-run output",
			Scores: map[string]float64{"correctness": 0.9, "completeness": 0.9, "style": 0.9},
		}
	}

	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "api client unavailable (%v), using canned backend\n", err)
		return &specialist.Scripted{
			Output: "dry-run output",
			Scores: map[string]float64{"correctness": 0.9, "completeness": 0.9, "style": 0.9},
		}
	}
	return specialist.NewClaude(client, 4096)
}

// printPlan renders a plan summary.
func printPlan(plan *models.OrchestrationPlan, task *models.CompositeTask) {
	bold := color.New(color.Bold)
	bold.Printf("plan %s for task %s\n", plan.ID, task.ID)
	fmt.Printf("  strategy:  %s\n", plan.Strategy)
	fmt.Printf("  capacity:  %d guaranteed, %d burst, %d reserved\n",
		plan.Allocation.GuaranteedTotal(), plan.Allocation.BurstPool, plan.Allocation.ReservedPool)

	types := make([]models.SpecialistType, 0, len(plan.Assignments))
	for st := range plan.Assignments {
		types = append(types, st)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	fmt.Println("  assignments:")
	for _, st := range types {
		share := plan.Allocation.Shares[st]
		fmt.Printf("    %-14s %v (slots %d-%d)\n", st, plan.Assignments[st], share.Guaranteed, share.Cap)
	}

	fmt.Printf("  timeline:  %d phase(s)\n", len(plan.Timeline))
}
