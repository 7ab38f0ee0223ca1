package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"bilancio/internal/amqp"
	"bilancio/internal/auth"
	"bilancio/internal/backend"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/session"
	"bilancio/internal/timeseries"
)

// app is the state shared by every command after PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

var (
	state app

	flagConfig   string
	flagEnvFile  string
	flagEmail    string
	flagPassword string
)

var rootCmd = &cobra.Command{
	Use:   "bilancio",
	Short: "Personal income and expense ledger with spending forecasts",
	Long: `bilancio records dated income and expense transactions, answers totals,
balance and per-category questions, and predicts next period's spending
with a linear trend over the history.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "TOML configuration file (overrides BILANCIO_CONFIG)")
	pf.StringVar(&flagEnvFile, "env-file", "", "dotenv file to load before reading the environment")
	pf.StringVar(&flagEmail, "email", "", "login email (or BILANCIO_EMAIL)")
	pf.StringVar(&flagPassword, "password", "", "login password (or BILANCIO_PASSWORD)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if flagEnvFile != "" {
		LoadEnvFile(flagEnvFile)
	} else {
		LoadEnvFile()
	}
	if flagConfig != "" {
		os.Setenv("BILANCIO_CONFIG", flagConfig)
	}
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	state = app{cfg: cfg, logger: SetupLogger(cfg.LogLevel)}
	return nil
}

// login authenticates the command line user against svc, or returns the
// local principal when authentication is disabled.
func login(ctx context.Context, svc *auth.Service) (auth.Principal, error) {
	if state.cfg.AuthDisabled {
		return auth.Local, nil
	}
	email, password := Credentials(flagEmail, flagPassword)
	if email == "" || password == "" {
		return auth.Principal{}, errLoginRequired
	}
	return svc.Authenticate(ctx, email, password)
}

var errLoginRequired = errors.New("login required: pass --email and --password or set BILANCIO_EMAIL and BILANCIO_PASSWORD")

// openSession authenticates, opens the configured record store and loads it.
// The returned function releases the store and the AMQP connection.
func openSession(ctx context.Context) (*session.Session, func(), error) {
	var svc *auth.Service
	if !state.cfg.AuthDisabled {
		var closeDB func() error
		var err error
		svc, closeDB, err = UserService(state.cfg, state.logger)
		if err != nil {
			return nil, nil, err
		}
		defer closeDB()
	}
	p, err := login(ctx, svc)
	if err != nil {
		return nil, nil, err
	}
	return openSessionAs(ctx, p)
}

func openSessionAs(ctx context.Context, p auth.Principal) (*session.Session, func(), error) {
	bcfg, err := backend.FromAppConfig(state.cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.NewFactory(state.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}

	opts := session.Options{
		Logger:      state.logger,
		AlertRatio:  state.cfg.BudgetAlertRatio,
		Granularity: timeseries.Granularity(state.cfg.ForecastGranularity),
	}
	var amqpClient *amqp.Client
	if state.cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(state.cfg.AMQPURL, state.cfg.AMQPExchange, state.cfg.AMQPQueue)
		if err != nil {
			state.logger.Warn("Failed to initialize AMQP client, budget alerts will only be logged", log.FieldError, err)
		} else {
			opts.Publisher = amqpClient
			state.logger.Info("Initialized AMQP client",
				"exchange", state.cfg.AMQPExchange,
				"queue", state.cfg.AMQPQueue)
		}
	}

	cleanup := func() {
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := result.Close(); err != nil {
			state.logger.Error("Failed to close record store", log.FieldError, err)
		}
	}

	s, err := session.Open(ctx, p, result.Store, opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, cleanup, nil
}
