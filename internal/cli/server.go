package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contest-quiz-service/internal/app"
	"contest-quiz-service/internal/auth"
	"contest-quiz-service/internal/config"
	"contest-quiz-service/internal/jobs"
	transport "contest-quiz-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server (same as running without a subcommand)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Printf("startup failed: %v", err)
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, 30*time.Second)
	st, err := openStack(connectCtx, cfg)
	cancelConnect()
	if err != nil {
		log.Printf("startup failed: %v", err)
		return err
	}
	defer st.Close(context.Background())

	admin, err := app.NewAdminService(app.AdminCredentials{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	}, st.store, st.sets, st.settings)
	if err != nil {
		return err
	}
	students := app.NewStudentService(st.store, st.sessions, st.sets, st.settings)

	sweeper, err := jobs.NewSweeper(students, cfg.Quiz.SweepEvery)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	web, err := transport.NewServer(admin, students, auth.NewIssuer(cfg.SecretKey), transport.Options{
		AdminTokenTTL: config.TTLDuration(cfg.Admin.TokenTTL, 12*time.Hour),
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      web.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("starting contest quiz on :%s (store=%s, quiz=%s)", finalPort, cfg.Store.Backend, st.settings.Duration)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	case err := <-serveErr:
		log.Printf("failed to start server: %v", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
