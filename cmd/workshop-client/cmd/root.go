package cmd

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-workshop-client/internal/config"
	"go-workshop-client/internal/models"
	"go-workshop-client/internal/native"
	"go-workshop-client/internal/native/sim"
	"go-workshop-client/internal/workshop"
)

// cfgFile holds the path to the config file specified by the user
var cfgFile string

// fixturesFlag holds the value of the --fixtures flag
var fixturesFlag string

// logNativeFlag holds the value of the --log-native flag
var logNativeFlag bool

// cachePathFlag holds the value of the --cache-path flag
var cachePathFlag string

// personaTimeoutFlag holds the value of the --persona-timeout flag (ms)
var personaTimeoutFlag int

// globalConfig holds the loaded configuration
var globalConfig models.Config

// globalLoggingService holds the native-call logging wrapper, if enabled,
// so its file can be closed after the command finishes.
var globalLoggingService *native.LoggingService

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "workshop-client",
	Short: "A client for a workshop-style content distribution service",
	Long: `Workshop Client exposes the native content-distribution SDK as ordinary
request/response commands: metadata lookup, dependency resolution, download
management and a local searchable cache of fetched records.

Commands that talk to the service run against the bundled in-memory backend,
seeded from a JSON fixtures file (--fixtures or FixturesPath in config.toml).
Cache, index, search and torrent commands work entirely offline.`,
	PersistentPreRunE: loadGlobalConfig, // Load config before any command runs
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Flush and close the native call log if a command enabled it
	defer func() {
		if globalLoggingService != nil {
			if err := globalLoggingService.Close(); err != nil {
				log.WithError(err).Error("Error closing native call log")
			}
		}
	}()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.toml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&fixturesFlag, "fixtures", "", "JSON fixtures file seeding the simulated native service (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&logNativeFlag, "log-native", false, "Log native boundary calls to native.log (overrides config)")
	rootCmd.PersistentFlags().StringVar(&cachePathFlag, "cache-path", "", "Detail cache directory (overrides config)")
	rootCmd.PersistentFlags().IntVar(&personaTimeoutFlag, "persona-timeout", -1, "Display-name refresh timeout in ms (overrides config, -1 uses config default)")
}

// loadGlobalConfig attempts to load the configuration and applies flag overrides.
func loadGlobalConfig(cmd *cobra.Command, args []string) error {
	var err error
	globalConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		// Not fatal: most commands can run on flags alone. Commands check
		// the fields they actually need.
		log.WithError(err).Warnf("Failed to load configuration from %s", cfgFile)
	}

	if cmd.Flags().Changed("fixtures") {
		globalConfig.FixturesPath = fixturesFlag
		log.Debugf("Overriding FixturesPath based on --fixtures flag: %s", fixturesFlag)
	}
	if cmd.Flags().Changed("log-native") {
		globalConfig.LogNativeCalls = logNativeFlag
		log.Debugf("Overriding LogNativeCalls based on --log-native flag: %t", logNativeFlag)
	}
	if cmd.Flags().Changed("cache-path") {
		if cachePathFlag != "" {
			globalConfig.CachePath = cachePathFlag
		} else {
			log.Warn("--cache-path flag provided but value is empty, ignoring.")
		}
	}
	if cmd.Flags().Changed("persona-timeout") {
		if personaTimeoutFlag > 0 {
			globalConfig.PersonaTimeoutMs = personaTimeoutFlag
		} else {
			log.Warnf("--persona-timeout flag provided with invalid value %d, using config value: %d ms", personaTimeoutFlag, globalConfig.PersonaTimeoutMs)
		}
	}
	if globalConfig.CachePath == "" {
		globalConfig.CachePath = "workshop-cache"
		log.Debugf("CachePath not set, defaulting to %s", globalConfig.CachePath)
	}
	if globalConfig.IndexPath == "" {
		globalConfig.IndexPath = "workshop.bleve"
	}

	return nil
}

// openService builds the native service for this invocation: the in-memory
// backend seeded from the fixtures file, optionally wrapped with the
// native-call logger.
func openService() (native.Service, *sim.Service, error) {
	backend := sim.New()
	if globalConfig.FixturesPath != "" {
		if err := backend.LoadFixtures(globalConfig.FixturesPath); err != nil {
			return nil, nil, fmt.Errorf("loading fixtures: %w", err)
		}
	} else {
		log.Warn("No fixtures file configured; the native service starts empty (--fixtures or FixturesPath).")
	}

	var svc native.Service = backend
	if globalConfig.LogNativeCalls {
		logged, err := native.NewLoggingService(svc, "native.log")
		if err != nil {
			log.WithError(err).Error("Failed to initialize native call logging, continuing without it.")
		} else {
			log.Info("Native call logging to native.log")
			globalLoggingService = logged
			svc = logged
		}
	}
	return svc, backend, nil
}

// newClient wires a workshop client over the configured service. The
// returned cleanup tears down the service stream and waits for the client's
// dispatch loop to exit.
func newClient() (*workshop.Client, func(), error) {
	svc, backend, err := openService()
	if err != nil {
		return nil, nil, err
	}

	var opts []workshop.Option
	if globalConfig.PersonaTimeoutMs > 0 {
		opts = append(opts, workshop.WithPersonaTimeout(time.Duration(globalConfig.PersonaTimeoutMs)*time.Millisecond))
	}
	client := workshop.New(svc, opts...)
	cleanup := func() {
		backend.Close()
		client.Close()
	}
	return client, cleanup, nil
}
