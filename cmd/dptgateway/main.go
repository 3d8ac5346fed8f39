// Gray Logic DPT Gateway
//
// This is the main entry point for the KNX datapoint gateway. It bridges raw
// group telegrams on the MQTT bus topics to decoded datapoint values:
//   - Datapoint type codec with a standard and configurable catalogue
//   - Group address bindings persisted in SQLite
//   - Optional InfluxDB history for numeric values
//   - REST and WebSocket API for codec calls, bindings and group writes
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-dpt/internal/api"
	"github.com/nerrad567/gray-logic-dpt/internal/auth"
	"github.com/nerrad567/gray-logic-dpt/internal/bridges/knx"
	"github.com/nerrad567/gray-logic-dpt/internal/datapoint"
	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dpt/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/dptgateway.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic DPT gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
		Migrations:  migrations.FS,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	stats := &knx.Stats{}
	registry, err := buildRegistry(cfg, stats, log)
	if err != nil {
		return err
	}

	bindings := datapoint.NewSQLiteRepository(db.DB)
	if cfg.Bridge.BindingsFile != "" {
		n, loadErr := datapoint.LoadBindingsFile(ctx, cfg.Bridge.BindingsFile, registry, bindings)
		if loadErr != nil {
			return fmt.Errorf("loading bindings: %w", loadErr)
		}
		log.Info("bindings file loaded", "path", cfg.Bridge.BindingsFile, "bindings", n)
	}

	mqttClient, err := connectMQTT(cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// The hub exists before the bridge so states reach WebSocket clients
	// whether or not the API is enabled.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	opts := knx.BridgeOptions{
		Config: knx.Config{
			ID:             cfg.Bridge.ID,
			Version:        version,
			PayloadFormat:  cfg.Bridge.PayloadFormat,
			HealthInterval: cfg.GetHealthInterval(),
		},
		MQTTClient: mqttClient,
		Bindings:   bindings,
		Registry:   registry,
		Stats:      stats,
		OnState:    hub.PublishState,
		Logger:     log,
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	bridge, err := knx.NewBridge(opts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()

	if cfg.API.Enabled {
		server, apiErr := startAPI(ctx, cfg, registry, bindings, bridge, hub, log)
		if apiErr != nil {
			return apiErr
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: API, bridge, InfluxDB, MQTT, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildRegistry creates the datapoint registry from the codec section.
// Range diagnostics are counted in stats and logged at debug level.
func buildRegistry(cfg *config.Config, stats *knx.Stats, log *logging.Logger) (*dpt.Registry, error) {
	opts := append(cfg.CodecOptions(), dpt.WithDiagnostics(stats.RecordDiagnostic))
	registry := dpt.NewStandardRegistry(opts...)
	registry.SetLogger(log)

	if cfg.Codec.CatalogueFile != "" {
		n, err := registry.LoadCatalogueFile(cfg.Codec.CatalogueFile)
		if err != nil {
			return nil, fmt.Errorf("loading datapoint catalogue: %w", err)
		}
		log.Info("datapoint catalogue loaded", "path", cfg.Codec.CatalogueFile, "types", n)
	}

	log.Info("datapoint registry initialised",
		"types", len(registry.IDs()),
		"float_mode", cfg.Codec.FloatMode,
		"range_policy", cfg.Codec.RangePolicy,
	)
	return registry, nil
}

// connectMQTT connects to the broker with the bridge's health topic as the
// last will, so subscribers see the bridge go offline on an unclean exit.
func connectMQTT(cfg *config.Config) (*mqtt.Client, error) {
	codec, err := knx.NewPayloadCodec(cfg.Bridge.PayloadFormat)
	if err != nil {
		return nil, fmt.Errorf("bridge payload format: %w", err)
	}
	will, err := codec.Marshal(knx.NewLWTMessage(cfg.Bridge.ID))
	if err != nil {
		return nil, fmt.Errorf("encoding last will: %w", err)
	}

	client, err := mqtt.Connect(cfg.MQTT,
		mqtt.WithWill(mqtt.Topics{}.BridgeHealth(knx.Protocol), will, 1, true))
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	return client, nil
}

// startAPI creates and starts the HTTP API server.
//
// Parameters:
//   - ctx: Context bounding the server's background work
//   - cfg: Application configuration
//   - registry: Datapoint registry for the catalogue and codec endpoints
//   - bindings: Binding repository
//   - bridge: Running bridge for group writes and reads
//   - hub: WebSocket hub already fed by the bridge
//   - log: Logger instance
//
// Returns:
//   - *api.Server: Running server
//   - error: If the accounts or server are invalid
func startAPI(ctx context.Context, cfg *config.Config, registry *dpt.Registry, bindings datapoint.Repository,
	bridge *knx.Bridge, hub *api.Hub, log *logging.Logger) (*api.Server, error) {
	accounts, err := auth.NewAccounts(cfg.AuthAccounts())
	if err != nil {
		return nil, fmt.Errorf("loading API accounts: %w", err)
	}
	if accounts.Len() == 0 {
		log.Warn("no API accounts configured, only public endpoints are usable")
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Registry: registry,
		Bindings: bindings,
		Bridge:   bridge,
		Accounts: accounts,
		Hub:      hub,
		Version:  version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return server, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Bridge health is established by Start: bindings are loaded and the
	// bus and command subscriptions are in place before it returns.
	return nil
}
