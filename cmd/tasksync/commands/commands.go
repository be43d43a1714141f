package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	httpHandlers "github.com/taskmaster/tasksync/internal/adapters/http"
	"github.com/taskmaster/tasksync/internal/adapters/repository"
	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/infrastructure/database"
	"github.com/taskmaster/tasksync/internal/infrastructure/server"
	"github.com/taskmaster/tasksync/internal/ports"
)

const migrationsDir = "migrations"

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskSync API server",
		Long:  "Start the HTTP API, including the server-sent event feed and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(a.cfg, server.Handlers{
				Tasks:  httpHandlers.NewTaskHandler(a.tasks, a.directory, a.logger),
				Events: httpHandlers.NewEventsHandler(a.bus, a.tasks, a.logger),
			}, a.db, a.metrics, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the remote store schema (up, down, version)",
	}

	for _, direction := range []string{"up", "down"} {
		direction := direction
		migrateCmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: fmt.Sprintf("Run all %s migrations", direction),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd, func(db *database.DB) error {
					if err := db.Migrate(repository.Migrations, migrationsDir, direction); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
					return nil
				})
			},
		})
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, func(db *database.DB) error {
				version, dirty, err := db.MigrationVersion(repository.Migrations, migrationsDir)
				if err != nil {
					return fmt.Errorf("failed to get migration version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\nDirty: %t\n", version, dirty)
				return nil
			})
		},
	})

	return migrateCmd
}

// NewTasksCommand creates the task management command
func NewTasksCommand() *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task management commands",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active tasks, or the trash with --deleted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				deleted, _ := cmd.Flags().GetBool("deleted")
				var (
					tasks []entities.Task
					err   error
				)
				if deleted {
					tasks, err = a.tasks.ListDeletedTasks(ctx)
				} else {
					query := ports.TaskQuery{}
					query.Tag, _ = cmd.Flags().GetString("tag")
					query.Category, _ = cmd.Flags().GetString("category")
					if s, _ := cmd.Flags().GetString("status"); s != "" {
						status := entities.TaskStatus(s)
						query.Status = &status
					}
					tasks, err = a.tasks.ListTasks(ctx, query)
				}
				if err != nil {
					return err
				}
				printTasks(cmd, tasks)
				return nil
			})
		},
	}
	listCmd.Flags().Bool("deleted", false, "List soft-deleted tasks")
	listCmd.Flags().String("status", "", "Filter by status")
	listCmd.Flags().String("tag", "", "Filter by tag")
	listCmd.Flags().String("category", "", "Filter by category")

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ports.CreateTaskRequest{}
			req.Title, _ = cmd.Flags().GetString("title")
			req.Description, _ = cmd.Flags().GetString("description")
			req.Category, _ = cmd.Flags().GetString("category")
			req.Tags, _ = cmd.Flags().GetStringSlice("tag")
			priority, _ := cmd.Flags().GetString("priority")
			req.Priority = entities.Priority(priority)

			if req.Title == "" {
				return errors.New("--title is required")
			}
			if due, _ := cmd.Flags().GetString("due"); due != "" {
				t, err := time.ParseInLocation(time.DateOnly, due, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --due %q: %w", due, err)
				}
				req.DueDate = &t
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				task, err := a.tasks.CreateTask(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %d created\n", task.ID)
				return nil
			})
		},
	}
	addCmd.Flags().String("title", "", "Task title (required)")
	addCmd.Flags().String("description", "", "Task description")
	addCmd.Flags().String("priority", "", "low, medium or high")
	addCmd.Flags().String("due", "", "Due date, YYYY-MM-DD")
	addCmd.Flags().String("category", "", "Category")
	addCmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")

	tasksCmd.AddCommand(listCmd, addCmd,
		idCommand("delete", "Move a task to the trash", "deleted", func(ctx context.Context, a *app, id int) (*entities.Task, error) {
			return a.tasks.DeleteTask(ctx, id)
		}),
		idCommand("restore", "Restore a task from the trash", "restored", func(ctx context.Context, a *app, id int) (*entities.Task, error) {
			return a.tasks.RestoreTask(ctx, id)
		}),
	)
	return tasksCmd
}

// NewStatsCommand prints the derived statistics as JSON
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print task statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				snapshot, err := a.tasks.Stats(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snapshot)
			})
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print TaskSync version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", cfg.App.Name, cfg.App.Version)
			return nil
		},
	}
}

func idCommand(use, short, verb string, op func(ctx context.Context, a *app, id int) (*entities.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				task, err := op(ctx, a, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %d %s\n", task.ID, verb)
				return nil
			})
		},
	}
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func withDatabase(cmd *cobra.Command, fn func(db *database.DB) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return errors.New("database is disabled; set DB_ENABLED=true")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func printTasks(cmd *cobra.Command, tasks []entities.Task) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tPROGRESS\tTAGS")
	for _, t := range tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d%%\t%v\n",
			t.ID, t.Title, t.Status.Label(), t.Priority, due, t.Progress, t.Tags)
	}
	w.Flush()
}
