package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hylla/stageboard/internal/adapters/server"
	"github.com/hylla/stageboard/internal/adapters/server/common"
	"github.com/hylla/stageboard/internal/app"
	"github.com/hylla/stageboard/internal/collision"
	"github.com/hylla/stageboard/internal/config"
	"github.com/hylla/stageboard/internal/domain"
	"github.com/hylla/stageboard/internal/tui"
	"github.com/spf13/cobra"
)

// session bundles the runtime env with an open backend for commands that touch the board.
type session struct {
	*runtimeEnv
	stages  domain.StageSet
	backend boardBackend
	close   func() error
}

func openSession(cmd *cobra.Command, opts *globalOptions, command string) (*session, error) {
	env, err := loadRuntime(cmd, opts, command)
	if err != nil {
		return nil, err
	}
	if err := env.cfg.Validate(); err != nil {
		env.Close(cmd.ErrOrStderr())
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	stages, err := env.cfg.Board.StageSet()
	if err != nil {
		env.Close(cmd.ErrOrStderr())
		return nil, err
	}
	backend, closeBackend, err := openBackend(env.cfg, stages, env.logger)
	if err != nil {
		env.Close(cmd.ErrOrStderr())
		return nil, err
	}
	return &session{runtimeEnv: env, stages: stages, backend: backend, close: closeBackend}, nil
}

// Finish closes the backend and log sinks.
func (s *session) Finish(stderr io.Writer) {
	_ = s.close()
	s.Close(stderr)
}

// engineConfig returns the board engine settings shared by the TUI and the move command.
func (s *session) engineConfig() app.EngineConfig {
	return app.EngineConfig{
		Scope:            s.cfg.Board.Scope,
		Stages:           s.stages,
		Store:            s.backend,
		DragThreshold:    s.cfg.Board.DragThreshold,
		StrictInvariants: s.cfg.Board.StrictInvariants,
		Logger:           s.logger,
	}
}

func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	s, err := openSession(cmd, opts, "tui")
	if err != nil {
		return err
	}
	defer s.Finish(cmd.ErrOrStderr())
	// Runtime logs stay in the dev-file sink while the board owns the terminal.
	s.logger.SetConsoleEnabled(false)

	m, err := tui.NewModel(s.engineConfig(),
		tui.WithContext(cmd.Context()),
		tui.WithGroupBy(s.cfg.Board.GroupBy),
		tui.WithDueSoon(s.cfg.Board.DueSoon()),
		tui.WithHistory(historyReader{backend: s.backend}),
		tui.WithCardFieldConfig(tui.CardFieldConfig{
			ShowTags:       s.cfg.UI.ShowTags,
			ShowPriority:   s.cfg.UI.ShowPriority,
			ShowTargetDate: s.cfg.UI.ShowTargetDate,
		}),
		tui.WithKeyConfig(tui.KeyConfig{
			PickUp:  s.cfg.UI.Keys.PickUp,
			GroupBy: s.cfg.UI.Keys.GroupBy,
			CopyID:  s.cfg.UI.Keys.CopyID,
		}),
	)
	if err != nil {
		return fmt.Errorf("build board: %w", err)
	}
	s.logger.Info("command flow start", "command", "tui")
	if _, err := programFactory(m).Run(); err != nil {
		s.logger.Error("command flow failed", "command", "tui", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	s.logger.Info("command flow complete", "command", "tui")
	return nil
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	var bind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over REST and MCP",
		Long: `Serve the local sqlite board over HTTP.

Examples:
  stageboard serve
  stageboard serve --bind 0.0.0.0:9000
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(cmd, opts, "serve")
			if err != nil {
				return err
			}
			defer env.Close(cmd.ErrOrStderr())
			if env.cfg.Store.Mode == config.StoreModeRemote {
				return errors.New("serve requires store.mode = \"local\"")
			}
			if err := env.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			stages, err := env.cfg.Board.StageSet()
			if err != nil {
				return err
			}
			svc, closeRepo, err := openLocalService(env.cfg, stages, env.logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeRepo() }()

			serverCfg := server.Config{
				HTTPBind:      firstNonEmpty(bind, env.cfg.Server.Bind),
				APIEndpoint:   firstNonEmpty(apiEndpoint, env.cfg.Server.APIEndpoint),
				MCPEndpoint:   firstNonEmpty(mcpEndpoint, env.cfg.Server.MCPEndpoint),
				ServerName:    opts.appName,
				ServerVersion: version,
			}
			env.logger.Info("command flow start", "command", "serve")
			if err := server.Run(cmd.Context(), serverCfg, server.Dependencies{Board: svc, Logger: env.logger}); err != nil {
				env.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run server: %w", err)
			}
			env.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (overrides server.bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api", "", "REST mount path (overrides server.api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp", "", "MCP endpoint path (overrides server.mcp_endpoint)")
	return cmd
}

func newPathsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, configPath, dbPath, _, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", dbPath)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	var in common.CreateTaskRequest
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Long: `Create a task on the configured board scope.

Examples:
  stageboard add "Write release notes"
  stageboard add "Fix login" --priority high --tag auth --status TODO --due 2026-03-01
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, "add")
			if err != nil {
				return err
			}
			defer s.Finish(cmd.ErrOrStderr())

			in.Title = strings.Join(args, " ")
			rec, err := s.backend.CreateTask(cmd.Context(), s.cfg.Board.Scope, in)
			if err != nil {
				s.logger.Error("command flow failed", "command", "add", "err", err)
				return fmt.Errorf("create task: %w", err)
			}
			s.logger.Info("task created", "id", rec.ID, "status", rec.Status)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s in %s\n", rec.ID, rec.Status)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&in.Description, "description", "", "markdown description")
	flags.StringSliceVar(&in.Tags, "tag", nil, "tag (repeatable)")
	flags.StringVar(&in.Priority, "priority", "", "low, medium or high")
	flags.StringVar(&in.TargetDate, "due", "", "target date (YYYY-MM-DD)")
	flags.StringVar(&in.Status, "status", "", "initial status (defaults to the first stage)")
	flags.StringVar(&in.Category, "category", "", "category label")
	flags.StringVar(&in.Area, "area", "", "area label")
	return cmd
}

func newListCommand(opts *globalOptions) *cobra.Command {
	var groupBy string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the board",
		Long: `Print the board grouped by stage or by a projection key.

Examples:
  stageboard list
  stageboard list --group priority
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, opts, "list")
			if err != nil {
				return err
			}
			defer s.Finish(cmd.ErrOrStderr())

			key, err := app.ParseGroupKey(firstNonEmpty(groupBy, s.cfg.Board.GroupBy))
			if err != nil {
				return err
			}
			records, err := s.backend.ListTasks(cmd.Context(), s.cfg.Board.Scope)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			board, skipped, err := app.BoardFromRecords(s.stages, records)
			if err != nil {
				return fmt.Errorf("build board: %w", err)
			}
			for _, skip := range skipped {
				s.logger.Warn("record skipped", "id", skip.Record.ID, "status", skip.Record.Status, "err", skip.Err)
			}
			printGroups(cmd.OutOrStdout(), app.NewProjector().Project(board, key))
			return nil
		},
	}
	cmd.Flags().StringVar(&groupBy, "group", "", "stage, category, area, priority or tag")
	return cmd
}

// printGroups writes one headed block per group.
func printGroups(w io.Writer, groups []app.Group) {
	title := color.New(color.Bold, color.Underline)
	count := color.New(color.Faint)
	warn := color.New(color.FgHiYellow, color.Bold)
	id := color.New(color.FgHiYellow, color.Faint)
	empty := color.New(color.Faint, color.Italic)

	for _, g := range groups {
		_, _ = title.Fprint(w, g.Label)
		if g.WIPLimit > 0 {
			_, _ = count.Fprintf(w, " %d/%d", len(g.Items), g.WIPLimit)
		} else {
			_, _ = count.Fprintf(w, " %d", len(g.Items))
		}
		if g.OverWIP {
			_, _ = warn.Fprint(w, " over WIP limit")
		}
		_, _ = fmt.Fprintln(w)
		if len(g.Items) == 0 {
			_, _ = empty.Fprintln(w, "  none")
		}
		for _, item := range g.Items {
			_, _ = id.Fprintf(w, "  %s", item.ID)
			_, _ = fmt.Fprintf(w, "  %s [%s]", item.Title, item.Priority)
			if len(item.Tags) > 0 {
				_, _ = count.Fprintf(w, " #%s", strings.Join(item.Tags, " #"))
			}
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintln(w)
	}
}

func newMoveCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <item-id> <stage>",
		Short: "Move an item to another stage",
		Long: `Move an item by stage id or status label. The move runs through the same drag
engine as the board and waits for the store to confirm it.

Examples:
  stageboard move 5f0c... done
  stageboard move 5f0c... IN_PROGRESS
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, "move")
			if err != nil {
				return err
			}
			defer s.Finish(cmd.ErrOrStderr())

			dest, ok := resolveStage(s.stages, args[1])
			if !ok {
				return fmt.Errorf("stage %q: %w", args[1], app.ErrInvalidStatus)
			}
			res, err := headlessMove(cmd.Context(), s.engineConfig(), args[0], dest)
			if err != nil {
				s.logger.Error("command flow failed", "command", "move", "err", err)
				return err
			}
			if !res.Moved {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is already in %s\n", res.Item.ID, res.To.Name)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "moved %s from %s to %s\n", res.Item.ID, res.From.Name, res.To.Name)
			return nil
		},
	}
}

// resolveStage matches a stage id first, then a status label.
func resolveStage(stages domain.StageSet, raw string) (domain.StageID, bool) {
	raw = strings.TrimSpace(raw)
	if id := domain.StageID(raw); stages.Contains(id) {
		return id, true
	}
	return stages.StageForStatus(raw)
}

// moveResult reports a headless move.
type moveResult struct {
	Item  domain.Item
	From  domain.Stage
	To    domain.Stage
	Moved bool
}

// headlessMove loads the board on an app.Loop, carries itemID to dest with keyboard steps and
// waits for the commit to settle.
func headlessMove(ctx context.Context, cfg app.EngineConfig, itemID string, dest domain.StageID) (moveResult, error) {
	loop := app.NewLoop(ctx)
	cfg.Dispatcher = loop
	engine, err := app.NewEngine(cfg)
	if err != nil {
		return moveResult{}, err
	}
	var notices []app.SyncNotice
	engine.OnSyncNotice(func(n app.SyncNotice) {
		notices = append(notices, n)
	})

	engine.Refresh()
	if err := loop.Drain(ctx); err != nil {
		return moveResult{}, fmt.Errorf("load board: %w", err)
	}
	if len(notices) > 0 {
		return moveResult{}, fmt.Errorf("load board: %w", notices[0].Err)
	}

	board := engine.Board()
	item, ok := board.Item(itemID)
	if !ok {
		return moveResult{}, fmt.Errorf("item %q: %w", itemID, app.ErrNotFound)
	}
	stages := board.StageSet()
	from, _ := stages.Stage(item.Stage)
	to, _ := stages.Stage(dest)
	res := moveResult{Item: item, From: from, To: to}
	if item.Stage == dest {
		return res, nil
	}

	if !engine.BeginKeyboardDrag(itemID) {
		return moveResult{}, fmt.Errorf("pick up %q: drag already active", itemID)
	}
	dir := collision.DirectionRight
	steps := stages.Index(dest) - stages.Index(item.Stage)
	if steps < 0 {
		dir = collision.DirectionLeft
		steps = -steps
	}
	for range steps {
		engine.StepDrag(dir)
	}
	if out := engine.EndDrag(); out.Transition == nil {
		return moveResult{}, fmt.Errorf("drop %q: no transition to %s", itemID, dest)
	}
	if err := loop.Drain(ctx); err != nil {
		return moveResult{}, fmt.Errorf("commit move: %w", err)
	}
	for _, n := range notices {
		if n.Kind == app.NoticeCommitFailed {
			return moveResult{}, fmt.Errorf("commit move: %w", n.Err)
		}
	}
	res.Moved = true
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
