package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/merliot/sonar"
	"github.com/merliot/sonar/metrics"
	"github.com/merliot/sonar/publish"
	"github.com/merliot/sonar/ranger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the range finder with its web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cfg.bindServe(cmd)
	return cmd
}

func serve(ctx context.Context, cfg *Config) error {
	log := sonar.NewLogger(os.Stdout, cfg.Verbose)

	sensor, closeSensor, err := openSensor(cfg, log)
	if err != nil {
		return err
	}
	defer closeSensor()

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	opts := []ranger.Option{
		ranger.WithLogger(log),
		ranger.WithObserver(metrics.Observer{}),
		ranger.WithPeriod(cfg.Period, cfg.Timeout),
	}
	if cfg.Broker != "" {
		pub, err := publish.NewPaho(publish.Config{
			Broker:   cfg.Broker,
			ClientID: "sonar-" + cfg.Id,
			User:     cfg.User,
			Passwd:   cfg.Passwd,
		})
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, ranger.WithPublisher(pub))
	}

	sonar.StoreDir = cfg.StoreDir
	r := ranger.New(cfg.Id, "ranger", cfg.Name, sensor, opts...)

	server := sonar.NewServer(r)
	server.BasicAuth(cfg.User, cfg.Passwd)
	server.Mount("/metrics", promhttp.Handler())
	if err := server.ServeUI(ranger.UI()); err != nil {
		return err
	}
	server.Addr = cfg.Addr

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx)
	})

	g.Go(func() error {
		var err error
		if cfg.TLSHost != "" {
			log.Info("serving https", "host", cfg.TLSHost)
			err = server.ServeTLS(cfg.TLSHost)
		} else {
			log.Info("serving http", "addr", cfg.Addr)
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Dial != "" {
		g.Go(func() error {
			err := server.Dial(ctx, cfg.User, cfg.Passwd, cfg.Dial)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}
