package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat-server/internal/app"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/log"
	"github.com/vovakirdan/roomchat-server/internal/store/sqlite"
)

type rootOptions struct {
	configPath string
	logLevel   string
	addr       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "roomchat-server",
		Short:         "Multi-room real-time chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	serve.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address")

	root.AddCommand(serve, newRoomCmd(opts), newMemberCmd(opts))
	return root
}

func loadConfig(opts *rootOptions) (config.Config, *zerolog.Logger, error) {
	bootLogger := log.New("info", "console")
	cfg, path, err := config.Load(bootLogger, opts.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("config_path", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func runServe(parent context.Context, opts *rootOptions) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting roomchat server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newRoomCmd(opts *rootOptions) *cobra.Command {
	room := &cobra.Command{
		Use:   "room",
		Short: "Manage rooms",
	}

	var name, creator string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a room; the creator becomes its first member",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := app.CreateRoom(cmd.Context(), st, name, creator)
			if err != nil {
				return err
			}
			logger.Info().Int64("room_id", r.ID).Str("room", r.Name).Str("creator", creator).Msg("room created")
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "room name")
	create.Flags().StringVar(&creator, "creator", "", "username of the creator")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("creator")

	room.AddCommand(create)
	return room
}

func newMemberCmd(opts *rootOptions) *cobra.Command {
	member := &cobra.Command{
		Use:   "member",
		Short: "Manage room membership",
	}

	var roomName, username string
	add := &cobra.Command{
		Use:   "add",
		Short: "Grant a user membership in a room",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := app.AddMember(cmd.Context(), st, roomName, username); err != nil {
				return err
			}
			logger.Info().Str("room", roomName).Str("user", username).Msg("member added")
			return nil
		},
	}
	add.Flags().StringVar(&roomName, "room", "", "room name")
	add.Flags().StringVar(&username, "user", "", "username to add")
	_ = add.MarkFlagRequired("room")
	_ = add.MarkFlagRequired("user")

	member.AddCommand(add)
	return member
}
