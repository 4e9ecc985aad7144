package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/spf13/cobra"

	cfgr "github.com/xmidt-org/talaria/configurator"
	"github.com/xmidt-org/talaria/configurator/internal/server"
	"github.com/xmidt-org/talaria/configurator/runtime"
	"github.com/xmidt-org/talaria/configurator/session"
)

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func buildRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "configurator",
		Short:         "Keep a local view of a device's configuration and status",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIGURATOR_CONFIG"), "Path to YAML options file")
	cmd.AddCommand(
		buildWatchCmd(),
		buildConfigCmd(),
		buildUploadCmd(),
		buildInterfacesCmd(),
		buildScanCmd(),
		buildCredsCmd(),
		buildLoginCmd(),
		buildFactoryResetCmd(),
	)
	return cmd
}

// =============================================================================
// Watch
// =============================================================================

func buildWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the device socket and serve the session state locally",
		Long: `Dial the device message socket, apply every log and status message to
the session and serve the result on the inspect address:

  GET /api/state    configuration, status, logs and connection state
  GET /api/events   websocket stream of changes
  GET /metrics      Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, appFrom(cmd))
		},
	}
}

func runWatch(ctx context.Context, a *app) error {
	sess, err := a.newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	_, errCh, err := server.StartInspectServer(ctx, server.InspectConfig{
		ListenAddr: a.opts.InspectAddr,
		Session:    sess,
		Gatherer:   a.registry,
		Logger:     a.log.With().Str("component", "inspect").Logger(),
	})
	if err != nil {
		return fmt.Errorf("start inspect API: %w", err)
	}
	go func() {
		if err := <-errCh; err != nil {
			a.log.Error().Err(err).Msg("inspect API stopped")
		}
	}()

	sock := runtime.NewDeviceSocket(a.opts.SocketURL, a.opts.Auth(), a.log)
	defer sock.Close()
	sub := sock.Subscribe(256)
	defer sub.Close()
	pumpDone := make(chan error, 1)
	go func() { pumpDone <- sess.Pump(ctx, sub) }()

	for {
		if err := dial(ctx, a, sess, sock); err != nil {
			return err
		}
		a.log.Info().Str("session", sess.ID()).Msg("following device")
		if err := waitDisconnect(ctx, sess, pumpDone); err != nil {
			return err
		}
		if ctx.Err() != nil {
			a.log.Info().Msg("shutdown signal received; stopping")
			return nil
		}
		a.log.Warn().Msg("device socket dropped; dialing again")
	}
}

// dial connects the socket, walking the session through Connecting. The
// socket's own connected event moves the session to Connected.
func dial(ctx context.Context, a *app, sess *session.Session, sock *runtime.DeviceSocket) error {
	_ = sess.SetConnectionState(cfgr.Connecting)
	err := retry.Do(func() error {
		return sock.Connect(ctx)
	},
		retry.Context(ctx),
		retry.Attempts(a.opts.Dial.Attempts),
		retry.Delay(a.opts.Dial.InitialDelay),
		retry.MaxDelay(a.opts.Dial.MaxDelay),
		retry.OnRetry(func(n uint, err error) {
			a.log.Warn().Err(err).Uint("attempt", n+1).Msg("socket dial failed")
		}),
	)
	if err != nil {
		_ = sess.SetConnectionState(cfgr.Disconnected)
		return fmt.Errorf("dial %s: %w", a.opts.SocketURL, err)
	}
	return nil
}

// waitDisconnect returns nil once the session is disconnected or ctx ends,
// and an error when the pump stops.
func waitDisconnect(ctx context.Context, sess *session.Session, pumpDone <-chan error) error {
	changes := sess.Subscribe(16)
	defer changes.Close()
	for {
		if sess.State() == cfgr.Disconnected {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case err := <-pumpDone:
			if err == nil {
				err = errors.New("device socket closed")
			}
			return err
		case <-changes.C():
		}
	}
}

// =============================================================================
// One-shot device operations
// =============================================================================

// connectedSession returns a session that has completed its connect-time
// fetches.
func connectedSession(ctx context.Context, a *app) (*session.Session, error) {
	sess, err := a.newSession()
	if err != nil {
		return nil, err
	}
	if err := sess.SetConnectionState(cfgr.Connected); err != nil {
		sess.Close()
		return nil, err
	}
	if err := sess.Wait(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

func commandContext(cmd *cobra.Command, a *app) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 2*a.opts.RequestTimeout+time.Second)
}

func buildConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Fetch and print the device configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			sess, err := connectedSession(ctx, a)
			if err != nil {
				return err
			}
			defer sess.Close()
			return printJSON(cmd.OutOrStdout(), sess.View())
		},
	}
}

func buildUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a configuration file to the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var cfg cfgr.Configuration
			if err := json.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			sess, err := a.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := await(ctx, sess.UploadConfigFile(cfg)); err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), sess.Config())
		},
	}
}

func buildInterfacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List the network adapters the device reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			sess, err := a.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := await(ctx, sess.EnumerateInterfaces()); err != nil {
				return fmt.Errorf("enumerate interfaces: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), sess.PossibleInterfaces())
		},
	}
}

func buildScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [iface]",
		Short: "Scan for WiFi networks visible from an interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			sess, err := a.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := await(ctx, sess.ScanWiFi(args[0])); err != nil {
				return fmt.Errorf("scan %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), sess.SSIDs())
		},
	}
}

func buildCredsCmd() *cobra.Command {
	var email, password, serverURL string
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Send account credentials to the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			sess, err := a.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			if err := await(ctx, sess.SetCredentials(email, password, serverURL)); err != nil {
				return fmt.Errorf("upload credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "credentials sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&serverURL, "server", "https://my.farm.bot", "Web app server URL")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func buildLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Ask the device to log in with its stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			sess, err := a.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			return await(ctx, sess.TryLogIn())
		},
	}
}

func buildFactoryResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "factory-reset",
		Short: "Wipe the device back to factory settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			a := appFrom(cmd)
			sess, err := a.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := commandContext(cmd, a)
			defer cancel()
			// The device often drops the connection before it answers.
			if err := await(ctx, sess.FactoryReset()); err != nil {
				a.log.Warn().Err(err).Msg("factory reset request did not complete cleanly")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "factory reset requested")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
