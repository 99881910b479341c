// Package cli contains the Cobra commands of the lmstfy tool.
package cli

import (
	"fmt"
	"log/slog"

	lmstfy "github.com/lmstfy/lmstfy-go"
	"github.com/lmstfy/lmstfy-go/internal/config"
	"github.com/spf13/cobra"
)

// app carries state shared by every command of one invocation.
type app struct {
	configPath string
	flags      config.Config

	logger *slog.Logger
	client *lmstfy.Client
}

// NewRoot constructs the root command and registers every subcommand.
func NewRoot() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lmstfy",
		Short:         "lmstfy job queue client",
		Long:          "Publish, consume and inspect jobs on an lmstfy server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.client == nil {
				return nil
			}
			return a.client.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a JSON config file")
	pf.StringVar(&a.flags.Addr, "addr", "", "Server address (env LMSTFY_ADDR)")
	pf.StringVarP(&a.flags.Namespace, "namespace", "n", "", "Namespace (env LMSTFY_NAMESPACE)")
	pf.StringVar(&a.flags.Token, "token", "", "Namespace token (env LMSTFY_TOKEN)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error (env LMSTFY_LOG_LEVEL)")
	pf.StringVar(&a.flags.LogFormat, "log-format", "", "Log format: text|json (env LMSTFY_LOG_FORMAT)")

	root.AddCommand(
		newPublishCommand(a),
		newConsumeCommand(a),
		newAckCommand(a),
		newGetCommand(a),
		newSizeCommand(a),
		newPeekCommand(a),
		newDeadLetterCommand(a),
	)
	return root
}

// setup resolves configuration (defaults, file, env, flags) and opens
// the client.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.FromEnv(&cfg)

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = a.flags.Addr
	}
	if flags.Changed("namespace") {
		cfg.Namespace = a.flags.Namespace
	}
	if flags.Changed("token") {
		cfg.Token = a.flags.Token
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.flags.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.logger, err = cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.client, err = lmstfy.NewClient(cfg.Addr, cfg.Namespace, cfg.Token,
		lmstfy.WithLogger(a.logger),
	)
	return err
}
