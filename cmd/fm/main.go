package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flowmetric/internal/app"
	"flowmetric/internal/config"
	"flowmetric/internal/db"
	"flowmetric/internal/domain"
	"flowmetric/internal/engine"
	"flowmetric/internal/migrate"
	"flowmetric/internal/repo"
	"flowmetric/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "fm",
	Short: "FlowMetric CLI",
	Long: `FlowMetric tracks projects, tasks and resources for a team and turns them
into productivity analytics.
- Workspace: a directory holding .flowmetric/flowmetric.db and an optional flowmetric.yml.
- Users: team members identified by their farcaster id.
- Projects and tasks: work with due dates, estimates and a status lifecycle.
- Resources: people, equipment, software or space with an availability percentage.
- Dashboard: efficiency, utilization and alerts derived from the current data.
- Activity: the append-only log of what happened, also pushed to webhooks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FLOWMETRIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "user id recorded on activity entries")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(resourceCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
}

func userCmd() *cobra.Command {
	usr := &cobra.Command{Use: "user", Short: "Manage team members"}
	usr.AddCommand(userRegisterCmd())
	usr.AddCommand(userListCmd())
	usr.AddCommand(userShowCmd())
	return usr
}

func userRegisterCmd() *cobra.Command {
	var opts engine.RegisterUserOptions
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user by farcaster id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterUser(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&opts.FarcasterID, "farcaster-id", "", "farcaster id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Role, "role", "", "role, e.g. Developer")
	cmd.Flags().StringArrayVar(&opts.Skills, "skill", nil, "skill (repeatable)")
	cmd.Flags().StringVar(&opts.Avatar, "avatar", "", "avatar url")
	_ = cmd.MarkFlagRequired("farcaster-id")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				renderUsers(users)
				return nil
			})
		},
	}
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <farcaster-id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.UserByFarcasterID(ctx, args[0])
				if err != nil {
					return fmt.Errorf("user %s: %w", args[0], err)
				}
				return printJSONOrTable(u)
			})
		},
	}
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var opts engine.CreateProjectOptions
	var status string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Status = domain.ProjectStatus(status)
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectName, "name", "", "project name")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&opts.AssignedUsers, "assign", nil, "assigned user id (repeatable)")
	cmd.Flags().StringVar(&status, "status", "", "active|completed|delayed|idle")
	cmd.Flags().Float64Var(&opts.Progress, "progress", 0, "progress percentage")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProjects(ctx, userID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				renderProjects(items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "only projects assigned to this user id")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.GetProject(ctx, args[0])
				if err != nil {
					return fmt.Errorf("project %s: %w", args[0], err)
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var name, due, status string
	var progress float64
	var assign []string
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update project fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.UpdateProjectOptions{ProjectID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("name") {
				opts.ProjectName = &name
			}
			if flags.Changed("due") {
				opts.DueDate = &due
			}
			if flags.Changed("status") {
				s := domain.ProjectStatus(status)
				opts.Status = &s
			}
			if flags.Changed("progress") {
				opts.Progress = &progress
			}
			if flags.Changed("assign") {
				opts.AssignedUsers = assign
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "active|completed|delayed|idle")
	cmd.Flags().Float64Var(&progress, "progress", 0, "progress percentage")
	cmd.Flags().StringArrayVar(&assign, "assign", nil, "replace assigned user ids (repeatable)")
	return cmd
}

func taskCmd() *cobra.Command {
	tsk := &cobra.Command{Use: "task", Short: "Manage tasks"}
	tsk.AddCommand(taskCreateCmd())
	tsk.AddCommand(taskListCmd())
	tsk.AddCommand(taskShowCmd())
	tsk.AddCommand(taskStatusCmd())
	return tsk
}

func taskCreateCmd() *cobra.Command {
	var opts engine.CreateTaskOptions
	var priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Priority = domain.Priority(priority)
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.AssignedUserID, "assignee", "", "assigned user id")
	cmd.Flags().StringVar(&opts.Description, "description", "", "task description")
	cmd.Flags().Float64Var(&opts.EstimatedEffort, "estimate", 0, "estimated effort in hours")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.TaskStatus(status)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				renderTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.UserID, "assignee", "", "assignee filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, args[0])
				if err != nil {
					return fmt.Errorf("task %s: %w", args[0], err)
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <pending|in-progress|completed|blocked>",
		Short: "Change task status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetTaskStatus(ctx, engine.SetTaskStatusOptions{
					TaskID:  args[0],
					Status:  domain.TaskStatus(args[1]),
					ActorID: viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func resourceCmd() *cobra.Command {
	res := &cobra.Command{Use: "resource", Short: "Manage resources"}
	res.AddCommand(resourceCreateCmd())
	res.AddCommand(resourceListCmd())
	res.AddCommand(resourceAssignCmd())
	return res
}

func resourceCreateCmd() *cobra.Command {
	var opts engine.CreateResourceOptions
	var kind string
	var availability float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ResourceType = domain.ResourceType(kind)
			if cmd.Flags().Changed("availability") {
				opts.Availability = &availability
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.CreateResource(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ResourceName, "name", "", "resource name")
	cmd.Flags().StringVar(&kind, "type", "human", "human|equipment|software|space")
	cmd.Flags().Float64Var(&availability, "availability", 0, "availability percentage")
	cmd.Flags().StringArrayVar(&opts.Skills, "skill", nil, "skill (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("availability")
	return cmd
}

func resourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListResources(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				renderResources(items)
				return nil
			})
		},
	}
}

func resourceAssignCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:   "assign <resource-id>",
		Short: "Assign a resource to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.AssignResource(ctx, engine.AssignResourceOptions{
					ResourceID: args[0],
					TaskID:     taskID,
					ActorID:    viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "task id")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func dashboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show headline metrics and alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.Dashboard(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				renderDashboard(os.Stdout, d)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "recent activity entries (config default when 0)")
	return cmd
}

func analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "analytics <tasks-status|projects-progress|resources-utilization>",
		Short:     "Show chart data",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"tasks-status", "projects-progress", "resources-utilization"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				switch args[0] {
				case "tasks-status":
					b, err := e.TaskStatusBreakdown(ctx)
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(b)
					}
					renderBreakdown(b)
				case "projects-progress":
					p, err := e.ProjectProgress(ctx)
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(p)
					}
					renderProgress(p)
				case "resources-utilization":
					u, err := e.ResourceUtilization(ctx)
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(u)
					}
					renderUtilization(u)
				default:
					return fmt.Errorf("unknown analytics type %q", args[0])
				}
				return nil
			})
		},
	}
}

func activityCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent activity, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.RecentActivity(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				renderActivity(items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	return cmd
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import seed data (the demo team when --file is not given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := engine.DemoSeed()
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if data, err = engine.ParseSeed(raw); err != nil {
					return err
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sum, err := e.Import(ctx, data)
				if err != nil {
					return err
				}
				return printJSONOrTable(sum)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed JSON file")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage flowmetric.yml",
		Long:  "flowmetric.yml sits in the workspace root and holds server, analytics threshold, frame limit, metrics and webhook settings. Defaults apply when it is missing.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default flowmetric.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate flowmetric.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	mig := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Open(cmd.Context(), viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer ws.Close()
			if viper.GetBool("json") {
				return printJSON(map[string]any{"applied": ws.Applied})
			}
			if len(ws.Applied) == 0 {
				fmt.Println("schema up to date")
			}
			for _, name := range ws.Applied {
				fmt.Println("applied", name)
			}
			return nil
		},
	}
	mig.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			current, err := migrate.CurrentVersion(cmd.Context(), conn)
			if err != nil {
				return err
			}
			latest, err := migrate.Latest()
			if err != nil {
				return err
			}
			return printJSONOrTable(map[string]any{"current": current, "latest": latest, "pending": latest - current})
		},
	})
	return mig
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

			ws, err := app.Open(ctx, viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer ws.Close()
			for _, name := range ws.Applied {
				logger.Info("migration applied", slog.String("name", name))
			}

			cfg := server.ConfigFromEngine(ws.Engine, logger)
			if cmd.Flags().Changed("base-path") || cfg.BasePath == "" {
				cfg.BasePath = basePath
			}
			if secret := viper.GetString("jwt-secret"); secret != "" {
				cfg.Auth.JWTSecret = secret
			}
			if cfg.Auth.JWTSecret == "" {
				cfg.Auth.JWTSecret = uuid.NewString()
				logger.Warn("no JWT secret configured; using a random one, tokens will not survive a restart")
			}
			if !cmd.Flags().Changed("addr") && ws.Config.Server.Addr != "" {
				addr = ws.Config.Server.Addr
			}
			cfg.Metrics = server.NewMetrics()
			handler, err := server.New(cfg)
			if err != nil {
				return err
			}
			if err := cfg.Metrics.StartRefresher(ctx, ws.Engine, ws.Config.Metrics.Refresh, logger); err != nil {
				return err
			}
			go server.NewWebhookDispatcher(ws.Engine.Repo, ws.Config.Webhooks, logger).Run(ctx)

			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			logger.Info("serving FlowMetric API",
				slog.String("addr", addr),
				slog.String("base_path", cfg.BasePath),
				slog.String("docs", "/docs"),
				slog.String("metrics", "/metrics"),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	ws, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws.Engine)
}
