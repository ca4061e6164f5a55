package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP clarification server",
	Long: `Starts the REST and WebSocket API: POST /api/scene, POST /api/answer,
/api/sessions for server-held dialogues and /api/dialogue/ws for streaming turns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:           port,
			AllowAll:       a.cfg.Server.AllowAllOrigins,
			RequestTimeout: a.cfg.RequestTimeout(),
			Logger:         logger,
		})
		dialogue.RegisterRoutes(srv.Router(), a.svc, a.extractor)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		logger.Info("server starting",
			zap.String("version", Version),
			zap.Int("port", port),
			zap.String("provider", string(a.cfg.Provider)),
			zap.String("model", a.cfg.Model),
			zap.String("session_backend", a.cfg.Session.Backend),
		)
		fmt.Fprintf(os.Stderr, "clarify server %s listening on :%d\n", Version, port)

		return g.Wait()
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
