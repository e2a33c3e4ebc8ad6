package util

import (
	"crypto/rand"
	"fmt"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "OFFICE"

const CONFIG_NAME = "smart_office"

var Config = viper.New()

var config_listeners []func()

func RegisterNewConfigListener(new_listener func()) {
	for _, listener := range config_listeners {
		if reflect.ValueOf(new_listener).Pointer() == reflect.ValueOf(listener).Pointer() {
			Logger.Warn().Msg("config listener already registered")
			return
		}
	}
	config_listeners = append(config_listeners, new_listener)
}

func OnNewConfig() {
	for _, listener := range config_listeners {
		listener()
	}
}

func GetRandString(n int) string {
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		randBytes := make([]byte, 1)
		if _, err := rand.Read(randBytes); err != nil {
			b[i] = letterBytes[i%len(letterBytes)]
		} else {
			b[i] = letterBytes[int(randBytes[0])%len(letterBytes)]
		}
	}
	return string(b)
}

func setDefaults() {
	Config.SetDefault("log_level", "info")
	Config.SetDefault("rooms", 2)
	Config.SetDefault("default_capacity", 10)
	Config.SetDefault("active_threshold", 2)
	Config.SetDefault("sweep_interval", 30*time.Second)
	Config.SetDefault("release_after", 5*time.Minute)
	Config.SetDefault("details_port", 8080)

	Config.SetDefault("mqtt_enabled", false)
	Config.SetDefault("broker_uri", "tcp://mqtt")
	Config.SetDefault("cleansess", false)
	Config.SetDefault("id_base", "smart_office")
	Config.SetDefault("username", "")
	Config.SetDefault("password", "")
	Config.SetDefault("topic_prefix", "office")
}

// NewFlagSet describes the command line. Flag names match config keys so
// they bind straight into Config.
func NewFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(CONFIG_NAME, pflag.ContinueOnError)
	flags.String("config", "", "path to config file (default: search for "+CONFIG_NAME+".{yaml,json,toml})")
	flags.String("log_level", "info", "trace, debug, info, warn or error")
	flags.Int("rooms", 2, "number of meeting rooms")
	flags.Int("details_port", 8080, "HTTP API port")
	flags.Duration("sweep_interval", 30*time.Second, "how often stale bookings are checked")
	flags.Bool("mqtt_enabled", false, "connect to the MQTT broker")
	flags.String("broker_uri", "tcp://mqtt", "MQTT broker")
	return flags
}

// SetupConfig layers defaults, config file, environment and flags into
// Config. A missing config file is logged, not fatal.
func SetupConfig(args []string) error {
	Config.SetEnvPrefix(ENV_PREFIX)
	setDefaults()

	// flags
	flags := NewFlagSet()
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := Config.BindPFlags(flags); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// config file
	if path := Config.GetString("config"); path != "" {
		Config.SetConfigFile(path)
	} else {
		Config.SetConfigName(CONFIG_NAME)
		Config.AddConfigPath("/")
		Config.AddConfigPath("./")
		Config.AddConfigPath("./config")
		Config.AddConfigPath("/etc")
		Config.AddConfigPath("/" + CONFIG_NAME)
		Config.AddConfigPath("/" + CONFIG_NAME + "/config")
	}
	if err := Config.ReadInConfig(); err != nil {
		Logger.Error().Msgf("unable to read config file: %v", err)
	}

	// environment variables
	Config.AutomaticEnv()
	return nil
}

// WatchConfig fires the config listeners whenever the config file changes.
func WatchConfig() {
	if Config.ConfigFileUsed() == "" {
		Logger.Debug().Msg("no config file in use, not watching")
		return
	}
	Config.OnConfigChange(func(e fsnotify.Event) {
		Logger.Info().Msgf("Config file changed: %v", e.Name)
		Logger.Debug().Msgf("Config Additional Info: %v", e.String())
		OnNewConfig()
	})
	Config.WatchConfig()
}
