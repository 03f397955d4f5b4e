package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/ddz-client/internal/app"
	"github.com/DoyleJ11/ddz-client/internal/config"
	"github.com/DoyleJ11/ddz-client/internal/httpapi"
	"github.com/DoyleJ11/ddz-client/internal/logging"
	"github.com/DoyleJ11/ddz-client/internal/session"
)

var (
	envFile string
	cfg     config.Config
	logger  *zap.Logger
	client  *app.App

	name    string
	players int
	seat    int
	watch   bool
)

var rootCmd = &cobra.Command{
	Use:           "ddzclient",
	Short:         "Dou Dizhu session client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(envFile); err != nil {
			return err
		}
		if logger, err = logging.New(cfg.LogLevel); err != nil {
			return err
		}
		client, err = app.Build(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeClient()
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session and take the first seat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := client.Create(cmd.Context(), name, players)
		if err != nil {
			return err
		}
		fmt.Printf("session %s  join code %s  player %s\n", j.SessionID, j.JoinCode, j.PlayerID)
		if watch {
			return serve(cmd.Context(), j.SessionID)
		}
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <session-id>",
	Short: "Join a session as a player",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := client.Join(cmd.Context(), args[0], name, seat)
		if err != nil {
			return err
		}
		fmt.Printf("session %s  player %s\n", j.SessionID, j.PlayerID)
		if watch {
			return serve(cmd.Context(), j.SessionID)
		}
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start <session-id>",
	Short: "Start the round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.Start(cmd.Context(), args[0])
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart <session-id>",
	Short: "Start another round in the same session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.Restart(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("round %d  game %s\n", res.RoundNumber, res.GameID)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Enter a session, serve the renderer bridge and log changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), args[0])
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <session-id>",
	Short: "Print the session leaderboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		standings, err := client.Summary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, s := range standings {
			name := s.DisplayName
			if name == "" {
				name = s.Username
			}
			fmt.Printf("%2d. %-20s %6d pts  %3d wins  %3d games\n", s.Rank, name, s.TotalPoints, s.TotalWins, s.GamesPlayed)
		}
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <session-id>",
	Short: "Drop the stored identity for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.Forget(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "env file to load before DDZ_* variables")

	createCmd.Flags().StringVar(&name, "name", "", "display name")
	createCmd.Flags().IntVar(&players, "players", 3, "number of players (3-12)")
	createCmd.Flags().BoolVar(&watch, "watch", false, "keep running and serve the bridge")
	_ = createCmd.MarkFlagRequired("name")

	joinCmd.Flags().StringVar(&name, "name", "", "display name")
	joinCmd.Flags().IntVar(&seat, "seat", -1, "seat position (0-6), negative lets the server choose")
	joinCmd.Flags().BoolVar(&watch, "watch", false, "keep running and serve the bridge")
	_ = joinCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(createCmd, joinCmd, startCmd, restartCmd, watchCmd, summaryCmd, forgetCmd)
}

// serve enters the session, exposes it on the bridge and logs transitions
// until ctx is cancelled.
func serve(ctx context.Context, sessionID string) error {
	entry, err := client.Enter(ctx, sessionID)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.BridgeAddr, Handler: httpapi.SetupRoutes(client, logger.Named("bridge"))}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("bridge listening", zap.String("addr", cfg.BridgeAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return follow(ctx, entry.Session)
	})
	return g.Wait()
}

// follow logs connection, phase, turn and notice transitions.
func follow(ctx context.Context, s *session.Session) error {
	updates, err := s.Subscribe(ctx, "cli", 64)
	if err != nil {
		return err
	}
	log := logger.With(zap.String("session_id", s.ID()))

	var last session.Snapshot
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				log.Warn("snapshot stream ended")
				return nil
			}
			if snap.Status != last.Status {
				log.Info("connection", zap.Stringer("status", snap.Status), zap.Bool("stale", snap.Stale))
			}
			if snap.View.Phase != last.View.Phase {
				log.Info("phase", zap.String("phase", string(snap.View.Phase)))
			}
			if cur := snap.View.CurrentPlayer(); cur != last.View.CurrentPlayer() && cur != "" {
				log.Info("turn",
					zap.String("player", snap.Names[cur]),
					zap.Bool("mine", snap.Permissions.MyTurn))
			}
			if snap.Notice != nil && (last.Notice == nil || *snap.Notice != *last.Notice) {
				log.Info("notice", zap.String("kind", string(snap.Notice.Kind)), zap.String("text", snap.Notice.Text))
			}
			if scores := snap.View.FinalScores(); scores != nil && last.View.FinalScores() == nil {
				log.Info("round over", zap.Any("scores", scores))
			}
			last = snap
		}
	}
}

func closeClient() error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := client.Close(ctx)
	client = nil
	_ = logger.Sync()
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		_ = closeClient()
		os.Exit(1)
	}
}
