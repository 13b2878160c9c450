package setup

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/folio/config"
)

const wizardTitle = "FOLIO CONFIG WIZARD"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Answers collected by the wizard.
type Answers struct {
	BaseURL       string
	TokenEnv      string
	QuoteSource   string
	Reconcile     bool
	NoticeTTL     string
	DashboardAddr string
	LogFile       string
}

// DefaultAnswers prefills the wizard from the built-in configuration.
func DefaultAnswers() Answers {
	def := config.Default()
	return Answers{
		BaseURL:       def.API.BaseURL,
		TokenEnv:      def.API.TokenEnv,
		QuoteSource:   def.QuoteSource,
		NoticeTTL:     def.Trade.NoticeTTL.String(),
		DashboardAddr: def.Dashboard.Addr,
	}
}

// ConfigTmp converts answers into the yaml representation read by config.Parse.
func (a Answers) ConfigTmp() (config.ConfigTmp, error) {
	var tmp config.ConfigTmp

	if err := validateURL(a.BaseURL); err != nil {
		return tmp, errors.Wrap(err, "base url")
	}
	tmp.API.BaseURL = strings.TrimRight(a.BaseURL, "/")
	tmp.API.TokenEnv = strings.TrimSpace(a.TokenEnv)
	tmp.QuoteSource = a.QuoteSource

	tmp.Trade.ReconcileAfterTradeStr = strconv.FormatBool(a.Reconcile)
	if a.NoticeTTL != "" {
		ttl, err := time.ParseDuration(a.NoticeTTL)
		if err != nil {
			return tmp, errors.Wrap(err, "notice ttl")
		}
		tmp.Trade.NoticeTTL = ttl
	}

	tmp.Dashboard.Addr = a.DashboardAddr
	tmp.Log.File = a.LogFile

	return tmp, nil
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	answers := DefaultAnswers()
	var confirm bool

	// step 1: welcome
	clearScreen()
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point folio at your portfolio backend.\n"))

	fmt.Println(stepStyle.Render("STEP 1: BACKEND"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend base URL").
				Description("e.g. http://localhost:8000/api").
				Value(&answers.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Token environment variable").
				Description("The bearer token is read from this variable (or .env)").
				Value(&answers.TokenEnv).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("variable name cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(stepStyle.Render("STEP 2: QUOTES"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Quote source").
				Options(
					huh.NewOption("Backend quote endpoint", config.QuoteSourceBackend),
					huh.NewOption("Binance last price", config.QuoteSourceBinance),
				).
				Value(&answers.QuoteSource),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(stepStyle.Render("STEP 3: TRADING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Refetch balance and holdings after each order?").
				Value(&answers.Reconcile),
			huh.NewInput().
				Title("Notice duration").
				Description("How long validation messages stay visible (e.g. 4s)").
				Value(&answers.NoticeTTL).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(stepStyle.Render("STEP 4: DASHBOARD & LOGS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dashboard listen address").
				Value(&answers.DashboardAddr),
			huh.NewInput().
				Title("Log file").
				Description("Leave empty to log to stderr only").
				Value(&answers.LogFile),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	clearScreen()
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Backend: %s\nToken: $%s\nQuotes: %s\nReconcile: %t\nDashboard: %s\n",
		answers.BaseURL, answers.TokenEnv, answers.QuoteSource, answers.Reconcile, answers.DashboardAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := Write(path, answers); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

// Write renders answers as yaml and saves them to path.
func Write(path string, answers Answers) error {
	tmp, err := answers.ConfigTmp()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}

	return nil
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(wizardTitle))
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}
