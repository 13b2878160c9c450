package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/app"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/chat"
	"github.com/vadiminshakov/folio/internal/setup"
	"github.com/vadiminshakov/folio/internal/storage/prefs"
	"github.com/vadiminshakov/folio/internal/views"
	"github.com/vadiminshakov/folio/pkg/logger"
)

const (
	historyRows    = 10
	transcriptWrap = 80
)

type cli struct {
	configPath string
	debug      bool

	logger *zap.Logger
	app    *app.App
	cancel context.CancelFunc
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "folio",
		Short:         "folio - portfolio simulation client",
		Long:          "folio places simulated orders against your cached balance and holdings, routes questions to the backend agents and serves the order journal dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(c.newTradeCmd())
	rootCmd.AddCommand(c.newChatCmd())
	rootCmd.AddCommand(c.newUsernameCmd())
	rootCmd.AddCommand(c.newDashboardCmd())
	rootCmd.AddCommand(newSetupCmd())

	return rootCmd
}

// open loads the configuration and starts the session shared by the subcommand.
func (c *cli) open(cmd *cobra.Command) error {
	conf, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.debug {
		conf.Log.Level = "debug"
	}

	c.logger, err = logger.New(logger.Config{
		Level:      conf.Log.Level,
		File:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
	})
	if err != nil {
		return errors.Wrap(err, "init logger")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	c.cancel = cancel
	cmd.SetContext(ctx)

	c.app, err = app.New(ctx, conf, c.logger)
	if err != nil {
		return errors.Wrap(err, "start session")
	}

	return nil
}

// done closes the session after a subcommand and reports an expired token ahead of err.
func (c *cli) done(err error) error {
	if cerr := c.close(); cerr != nil && (err == nil || errors.Is(cerr, domain.ErrAuthExpired)) {
		return cerr
	}
	return err
}

func (c *cli) close() error {
	defer func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.logger != nil {
			_ = c.logger.Sync()
		}
	}()

	if c.app == nil {
		return nil
	}
	expired := c.app.Session.Expired()
	a := c.app
	c.app = nil
	if err := a.Close(); err != nil {
		return err
	}
	if expired {
		return domain.ErrAuthExpired
	}

	return nil
}

// expired surfaces a backend signature rejection as the command result.
func (c *cli) expired(err error) error {
	if errors.Is(err, domain.ErrAuthExpired) || c.app.Session.Expired() {
		return domain.ErrAuthExpired
	}
	return nil
}

func (c *cli) loadPrefs() prefs.Prefs {
	p, err := c.app.Prefs.Load()
	if err != nil {
		c.logger.Warn("failed to load preferences", zap.Error(err))
	}
	return p
}

func (c *cli) savePrefs(fn func(*prefs.Prefs)) {
	if err := c.app.Prefs.Update(fn); err != nil {
		c.logger.Warn("failed to save preferences", zap.Error(err))
	}
}

func (c *cli) newTradeCmd() *cobra.Command {
	var (
		symbol string
		side   string
		qty    string
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Buy or sell a whole number of units at the current quote",
		Long: `Shows the quote, your cash and holdings and the largest order you can place,
then submits the order after confirmation.
Example: folio trade --symbol AAPL --side buy --qty 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.done(c.runTrade(cmd.Context(), cmd.OutOrStdout(), symbol, side, qty, yes))
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "Symbol to trade (last used when empty)")
	cmd.Flags().StringVar(&side, "side", "", "buy or sell")
	cmd.Flags().StringVar(&qty, "qty", "", "Whole number of units")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Submit without confirmation")

	return cmd
}

func (c *cli) runTrade(ctx context.Context, out io.Writer, symbol, sideStr, qty string, yes bool) error {
	p := c.loadPrefs()
	if symbol == "" {
		symbol = p.Symbol
	}
	if sideStr == "" {
		sideStr = string(p.Side)
	}
	if qty == "" && p.Quantity > 0 {
		qty = strconv.FormatInt(p.Quantity, 10)
	}

	if symbol == "" || qty == "" {
		if sideStr == "" {
			sideStr = string(domain.SideBuy)
		}
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Symbol").
					Value(&symbol).
					Validate(func(s string) error {
						if domain.NormalizeSymbol(s) == "" {
							return fmt.Errorf("symbol cannot be empty")
						}
						return nil
					}),
				huh.NewSelect[string]().
					Title("Side").
					Options(
						huh.NewOption("Buy", string(domain.SideBuy)),
						huh.NewOption("Sell", string(domain.SideSell)),
					).
					Value(&sideStr),
				huh.NewInput().
					Title("Quantity").
					Description("Whole units; fractions are truncated").
					Value(&qty),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	side, err := domain.ParseSide(sideStr)
	if err != nil {
		return err
	}

	desk, err := c.app.Desk(ctx)
	if err != nil {
		if expired := c.expired(err); expired != nil {
			return expired
		}
		return err
	}

	conf := c.app.Config
	panel := views.NewTradePanel(ctx, desk, conf.Trade.NoticeTTL, conf.Trade.QuantityDebounce, c.logger)
	defer panel.Close()

	if err := panel.SelectSymbol(ctx, symbol); err != nil {
		fmt.Fprintln(out, views.ErrorStyle.Render(domain.UserMessage(err)))
		return c.expired(err)
	}
	panel.SetSide(side)
	quantity := panel.SetQuantity(qty)

	fmt.Fprintln(out, panel.Render(ctx))

	if !yes {
		var confirm bool
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Place %s %d %s?", side, quantity, panel.Symbol())).
					Affirmative("Place order").
					Negative("Cancel").
					Value(&confirm),
			),
		).Run()
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if _, err := panel.Submit(ctx); err != nil {
		fmt.Fprintln(out, views.ErrorStyle.Render(panel.Notice()))
		return c.expired(err)
	}
	fmt.Fprintln(out, views.NoticeStyle.Render(panel.Notice()))
	fmt.Fprintln(out, panel.Render(ctx))

	c.savePrefs(func(p *prefs.Prefs) {
		p.Symbol = panel.Symbol()
		p.Side = side
		p.Quantity = quantity
	})

	return nil
}

func (c *cli) newChatCmd() *cobra.Command {
	var (
		agentName string
		style     string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the backend agents",
		Long: `Starts an interactive chat. Replies may open a price chart, a quick trade or your
transaction history.
Commands: /agent <general|market|trade|portfolio>, /transcript, /close, /quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.done(c.runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), agentName, style))
		},
	}

	cmd.Flags().StringVar(&agentName, "agent", "", "Agent to talk to (last used when empty)")
	cmd.Flags().StringVar(&style, "style", "dark", "Markdown style for /transcript (dark, light, notty)")

	return cmd
}

func (c *cli) runChat(ctx context.Context, in io.Reader, out io.Writer, agentName, style string) error {
	session, err := c.app.Chat()
	if err != nil {
		return err
	}
	defer session.Close()

	transcript, err := views.NewTranscript(style, transcriptWrap)
	if err != nil {
		return err
	}

	agent := c.loadPrefs().Agent
	if agentName != "" {
		if agent, err = parseAgent(agentName); err != nil {
			return err
		}
	}
	session.SelectAgent(agent)

	printer := newStreamPrinter(out, session)
	session.OnChange(printer.update)

	fmt.Fprintln(out, views.AgentLabel(agent))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var shown domain.ToolInvocation
	for {
		fmt.Fprint(out, "> ")

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/agent"):
			agent, err := parseAgent(strings.TrimSpace(strings.TrimPrefix(line, "/agent")))
			if err != nil {
				fmt.Fprintln(out, views.ErrorStyle.Render(err.Error()))
				continue
			}
			session.SelectAgent(agent)
			c.savePrefs(func(p *prefs.Prefs) { p.Agent = agent })
			fmt.Fprintln(out, views.AgentLabel(agent))
			continue
		case line == "/transcript":
			fmt.Fprintln(out, transcript.Render(session.Messages()))
			continue
		case line == "/close":
			session.DismissTool()
			shown = domain.ToolInvocation{}
			continue
		}

		if err := session.Submit(line); err != nil {
			if !errors.Is(err, chat.ErrEmptyMessage) {
				fmt.Fprintln(out, views.ErrorStyle.Render(domain.UserMessage(err)))
			}
			continue
		}
		if err := session.Wait(ctx); err != nil {
			return nil
		}
		printer.end()

		if expired := c.expired(nil); expired != nil {
			return expired
		}

		tool := session.ActiveTool()
		if tool.Active() && !reflect.DeepEqual(tool, shown) {
			shown = tool
			if err := c.showTool(ctx, out, tool); err != nil {
				return err
			}
		}
	}
}

// showTool renders the panel selected by the latest reply.
func (c *cli) showTool(ctx context.Context, out io.Writer, tool domain.ToolInvocation) error {
	switch tool.Tool {
	case domain.ToolGraph:
		symbol, days := views.ChartRequest(tool)
		if symbol == "" {
			fmt.Fprintln(out, views.MutedStyle.Render("No symbol to chart."))
			return nil
		}
		ch, err := c.app.Charts.Build(ctx, symbol, days)
		if err != nil {
			fmt.Fprintln(out, views.ErrorStyle.Render(domain.UserMessage(err)))
			return c.expired(err)
		}
		fmt.Fprintln(out, views.RenderChart(ch))

	case domain.ToolTransactions:
		rendered, err := views.History(ctx, c.app.Backend, historyRows)
		if err != nil {
			fmt.Fprintln(out, views.ErrorStyle.Render(domain.UserMessage(err)))
			return c.expired(err)
		}
		fmt.Fprintln(out, rendered)

	case domain.ToolExecute:
		desk, err := c.app.Desk(ctx)
		if err != nil {
			fmt.Fprintln(out, views.ErrorStyle.Render(domain.UserMessage(err)))
			return c.expired(err)
		}
		qt := views.NewQuickTrade(desk, tool)
		fmt.Fprintln(out, qt.Render(ctx))
		if qt.Symbol == "" || qt.Quantity < 1 {
			return nil
		}

		var confirm bool
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Place %s %d %s?", qt.Side, qt.Quantity, qt.Symbol)).
					Value(&confirm),
			),
		).Run()
		if err != nil || !confirm {
			return nil
		}

		ack, err := qt.Submit(ctx)
		if err != nil {
			fmt.Fprintln(out, views.ErrorStyle.Render(domain.UserMessage(err)))
			return c.expired(err)
		}
		message := ack.Message
		if message == "" {
			message = fmt.Sprintf("Order placed: %s %d %s", qt.Side, qt.Quantity, qt.Symbol)
		}
		fmt.Fprintln(out, views.NoticeStyle.Render(message))
	}

	return nil
}

func (c *cli) newUsernameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "username [NAME]",
		Short: "Check whether a username is available",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return c.done(c.runUsername(cmd.Context(), cmd.OutOrStdout(), name))
		},
	}
}

func (c *cli) runUsername(ctx context.Context, out io.Writer, name string) error {
	checker, err := c.app.Availability()
	if err != nil {
		return err
	}
	defer checker.Close()

	states := make(chan domain.AvailabilityState, 16)
	checker.OnChange(func(s domain.AvailabilityState) {
		select {
		case states <- s:
		default:
		}
	})

	if name == "" {
		name = c.loadPrefs().Username
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Username").
					Value(&name).
					Validate(func(s string) error {
						if state := checker.Check(s); state.Status == domain.AvailabilityInvalid {
							return errors.New(state.Message)
						}
						return nil
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	for drained := false; !drained; {
		select {
		case <-states:
		default:
			drained = true
		}
	}

	state := checker.Check(name)
	wait := time.NewTimer(c.app.Config.Availability.Debounce + c.app.Config.API.Timeout)
	defer wait.Stop()

	if state.Status == domain.AvailabilityChecking {
		fmt.Fprintln(out, views.MutedStyle.Render(state.Message))
	}
	for state.Status == domain.AvailabilityChecking {
		select {
		case <-ctx.Done():
			return nil
		case <-wait.C:
			return errors.Wrap(domain.ErrNetwork, "availability check timed out")
		case s := <-states:
			if s.Input == state.Input {
				state = s
			}
		}
	}

	switch state.Status {
	case domain.AvailabilityAvailable:
		fmt.Fprintln(out, views.NoticeStyle.Render(state.Message))
		c.savePrefs(func(p *prefs.Prefs) { p.Username = state.Input })
	case domain.AvailabilityIdle:
		fmt.Fprintln(out, views.MutedStyle.Render("Enter a username."))
	default:
		fmt.Fprintln(out, views.ErrorStyle.Render(state.Message))
	}

	return c.expired(nil)
}

func (c *cli) newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the order journal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.done(c.runDashboard(cmd.Context()))
		},
	}
}

func (c *cli) runDashboard(ctx context.Context) error {
	srv, err := c.app.Dashboard()
	if err != nil {
		return err
	}

	conf := c.app.Config.Dashboard
	c.logger.Info("dashboard starting", zap.String("addr", conf.Addr), zap.Strings("domains", conf.Domains))
	if len(conf.Domains) > 0 {
		return srv.StartWithAutoTLS(ctx, conf.Domains, conf.CertCache)
	}
	return srv.Start(ctx)
}

func newSetupCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create a configuration file interactively",
		// no session is needed to write the config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return setup.RunTUI(output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "folio.yaml", "Where to write the configuration")

	return cmd
}

func parseAgent(name string) (domain.Agent, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "general", "none":
		return domain.AgentGeneral, nil
	}
	for _, agent := range domain.Agents() {
		if strings.EqualFold(agent.String(), strings.TrimSpace(name)) {
			return agent, nil
		}
	}
	return "", errors.Errorf("unknown agent %q (general, market, trade or portfolio)", name)
}
