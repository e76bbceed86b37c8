package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/ashureev/campus-assistant/internal/chatstate"
	"github.com/ashureev/campus-assistant/internal/config"
	"github.com/ashureev/campus-assistant/internal/retry"
	"github.com/ashureev/campus-assistant/internal/session"
	"github.com/ashureev/campus-assistant/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *assistant.Client

	baseURL   string
	userID    string
	storeKind string
	useRetry  bool

	openStore func(ctx context.Context, cfg config.StoreConfig) (store.Store, error)
	store     store.Store
}

func newApp() *app {
	return &app{openStore: store.Open}
}

// execute runs the command line in args and closes whatever store the
// command opened, whether or not it succeeded.
func execute(ctx context.Context, a *app, args []string, out io.Writer) error {
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close store: %w", closeErr))
	}
	return err
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "campus-assistant",
		Short:         "Chat with the campus assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "base-url", "", "backend base URL (overrides CAMPUS_BASE_URL)")
	flags.StringVar(&a.userID, "user", "", "user id to chat as (overrides CAMPUS_USER_ID)")
	flags.StringVar(&a.storeKind, "store", "", "session store: memory, sqlite or redis (overrides CAMPUS_STORE)")
	flags.BoolVar(&a.useRetry, "retry", false, "retry failed chat calls with exponential backoff")

	root.AddCommand(
		newAskCommand(a),
		newChatCommand(a),
		newHistoryCommand(a),
		newResetCommand(a),
		newWhoamiCommand(a),
		newServeCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.userID != "" {
		cfg.UserID = a.userID
	}
	if a.storeKind != "" {
		cfg.Store.Kind = config.StoreKind(a.storeKind)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = cfg.NewLogger()
	slog.SetDefault(a.logger)

	a.client, err = assistant.NewClient(assistant.ClientConfig{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout,
	}, a.logger)
	if err != nil {
		return err
	}

	a.logger.Debug("Configured", "command", cmd.Name(), "base_url", cfg.BaseURL, "store", cfg.Store.Kind, "local_backend", cfg.IsLocalBackend())
	return nil
}

// explain adds a hint to transport failures against a backend on this
// machine, the usual cause being that it is not running.
func (a *app) explain(err error) error {
	if err == nil || !errors.Is(err, assistant.ErrTransport) || !a.cfg.IsLocalBackend() {
		return err
	}
	return fmt.Errorf("%w (is the backend running at %s? mock-backend serves one locally)", err, a.cfg.BaseURL)
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// openSession opens the configured store and builds a session on it.
func (a *app) openSession(ctx context.Context) (*session.Session, error) {
	st, err := a.openStore(ctx, a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Kind, err)
	}
	a.store = st

	return session.New(ctx, a.client, st,
		session.WithUserID(a.cfg.UserID),
		session.WithLogger(a.logger),
	)
}

// policy is the retry policy described by the configuration.
func (a *app) policy() retry.Policy {
	p := retry.Policy{
		MaxAttempts: a.cfg.Retry.MaxAttempts,
		BaseDelay:   a.cfg.Retry.BaseDelay,
		MaxDelay:    a.cfg.Retry.MaxDelay,
	}
	if a.cfg.Retry.Jitter {
		p.Jitter = retry.FullJitter
	}
	return p
}

// sessioner returns sess, or a wrapper that retries Send when --retry is set.
func (a *app) sessioner(sess *session.Session) chatstate.Sessioner {
	if !a.useRetry {
		return sess
	}
	return &retryingSession{Session: sess, policy: a.policy()}
}

type retryingSession struct {
	*session.Session
	policy retry.Policy
}

func (r *retryingSession) Send(ctx context.Context, message string) (*assistant.AssistantResponse, error) {
	return r.SendWithRetry(ctx, message, r.policy)
}
