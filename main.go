package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elijahnyp/smart_office/office"
	"github.com/elijahnyp/smart_office/state"
	. "github.com/elijahnyp/smart_office/util"
	"github.com/spf13/pflag"
)

func newOffice(sinks ...state.Sink) *office.Office {
	return office.New(office.Options{
		Clock:           office.SystemClock{},
		Sink:            state.Fanout(append([]state.Sink{state.LogSink{Logger: Logger}}, sinks...)),
		Logger:          Logger.With().Str("component", "office").Logger(),
		DefaultCapacity: Config.GetInt("default_capacity"),
		ActiveThreshold: Config.GetInt("active_threshold"),
		ReleaseAfter:    Config.GetDuration("release_after"),
	})
}

// reconfigureOnChange rebuilds the rooms only when the configured count
// moves away from the last one it saw. Rooms resized through the API
// survive unrelated config edits.
func reconfigureOnChange(o *office.Office) func() {
	applied := Config.GetInt("rooms")
	return func() {
		count := Config.GetInt("rooms")
		if count == applied {
			return
		}
		applied = count
		if err := o.ConfigureRooms(count); err != nil {
			Logger.Error().Msgf("Error reconfiguring rooms: %v", err)
		}
	}
}

func main() {
	LogInit("info")
	if err := SetupConfig(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		Logger.Fatal().Msgf("bad command line: %v", err)
	}
	LogInit(Config.GetString("log_level"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := NewHub()
	go hub.Run(ctx)

	smartOffice := newOffice(hub, mqttSink{})
	if err := smartOffice.ConfigureRooms(Config.GetInt("rooms")); err != nil {
		Logger.Fatal().Msgf("Error configuring rooms: %v", err)
	}

	RegisterNewConfigListener(func() { LogInit(Config.GetString("log_level")) })
	RegisterNewConfigListener(reconfigureOnChange(smartOffice))

	sweeper := office.NewSweeper(smartOffice, Config.GetDuration("sweep_interval"), Logger.With().Str("component", "sweeper").Logger())
	go func() {
		if err := sweeper.Start(ctx); err != nil {
			Logger.Error().Msgf("sweeper stopped: %v", err)
		}
	}()

	monitor := NewMonitorServer(nil)
	NewAPI(smartOffice, hub).Register(monitor)
	if err := monitor.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
	RegisterNewConfigListener(monitor.Restart)

	if Config.GetBool("mqtt_enabled") {
		setupMQTT(ctx, smartOffice)
	}

	WatchConfig()
	Logger.Info().Msg("ready")
	<-ctx.Done()

	Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := monitor.Stop(shutdownCtx); err != nil {
		Logger.Error().Msgf("Error stopping monitor server: %v", err)
	}
	if Client != nil && Client.IsConnected() {
		Client.Disconnect(1000)
	}
}
