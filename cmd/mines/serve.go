package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/cfoust/mines/pkg/config"
	"github.com/cfoust/mines/pkg/server"
	"github.com/cfoust/mines/pkg/server/ingress"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func serveCommand(configs []string) error {
	conf, err := config.Process(configs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	serverConfig := conf.Server

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.NewServer(ctx, serverConfig, clockwork.NewRealClock())

	newConnections := make(chan ingress.Connection)

	tcpIngress := ingress.NewTCPIngress(newConnections)
	err = tcpIngress.Serve(serverConfig.Ingress.TCP.Port)
	if err != nil {
		return err
	}
	go tcpIngress.Poll(ctx)

	go srv.PollUsers(ctx, newConnections)
	go srv.PollResults(ctx)

	errc := make(chan error, 1)

	var wsIngress *ingress.WSIngress
	if serverConfig.Ingress.Web.Enabled {
		wsIngress = ingress.NewWSIngress(newConnections)

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/ws", wsIngress)

			errc <- http.ListenAndServe(
				fmt.Sprintf("0.0.0.0:%d", serverConfig.Ingress.Web.Port),
				mux,
			)
		}()

		log.Info().Msgf("listening for ws clients on port %d", serverConfig.Ingress.Web.Port)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	select {
	case err := <-errc:
		log.Error().Err(err).Msg("failed to serve")
	case sig := <-sigs:
		log.Info().Msgf("terminating: %v", sig)
	}

	tcpIngress.Shutdown()
	if wsIngress != nil {
		wsIngress.Shutdown()
	}
	srv.Shutdown()

	return nil
}
