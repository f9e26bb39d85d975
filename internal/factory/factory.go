package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vsgifts-api/internal/client"
	"vsgifts-api/internal/config"
	"vsgifts-api/internal/events"
	"vsgifts-api/internal/hashing"
	"vsgifts-api/internal/notify"
	"vsgifts-api/internal/otp"
	"vsgifts-api/internal/repository"
	"vsgifts-api/internal/repository/memory"
	"vsgifts-api/internal/repository/mongo"
	redisrepo "vsgifts-api/internal/repository/redis"
	"vsgifts-api/internal/repository/scylla"
	"vsgifts-api/internal/service"
	"vsgifts-api/internal/session"
	"vsgifts-api/internal/tls"
	"vsgifts-api/internal/util"
)

const eventPublishTimeout = 3 * time.Second

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Storage
	mongoClient  *mongo.MongoClient
	scyllaClient *scylla.ScyllaClient
	accountRepo  repository.AccountRepository
	productRepo  repository.ProductRepository

	// Optional clients
	redisClient      *client.RedisClient
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient
	esClient         *client.ESClient
	s3Client         *client.S3Client

	rateLimitCache *redisrepo.RateLimitCache
	dispatcher     *events.Dispatcher
	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
}

// NewFactory loads configuration and connects every enabled backend.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return New(cfg)
}

// New builds a factory from an already loaded configuration.
func New(cfg *config.Config) (*Factory, error) {
	f := &Factory{config: cfg}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewTLSManager(cfg.Server, util.Get())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.initializeStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := f.initializeClients(ctx); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}
	f.initializeEvents()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.String("storage", cfg.Storage.Driver),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("rate_limit", f.rateLimitCache != nil),
		util.Bool("search", f.esClient != nil),
		util.Bool("image_upload", f.s3Client != nil),
	)
	return f, nil
}

// initializeStorage connects the configured primary store. Storage is
// required, so any error is returned regardless of environment.
func (f *Factory) initializeStorage() error {
	switch f.config.Storage.Driver {
	case config.StorageMongo:
		mc, err := mongo.NewMongoClient(f.config, util.Named("mongo"))
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		f.mongoClient = mc
		f.accountRepo = mongo.NewAccountRepository(mc)
		f.productRepo = mongo.NewProductRepository(mc)
	case config.StorageScylla:
		sc, err := scylla.NewScyllaClient(f.config, util.Named("scylla"))
		if err != nil {
			return fmt.Errorf("scylla: %w", err)
		}
		f.scyllaClient = sc
		f.accountRepo = scylla.NewAccountRepository(sc)
		f.productRepo = scylla.NewProductRepository(sc)
	case config.StorageMemory:
		if f.config.IsProduction() {
			return errors.New("memory storage is not allowed in production")
		}
		util.Warn("Using in-memory storage; data is lost on restart")
		f.accountRepo = memory.NewAccountRepository()
		f.productRepo = memory.NewProductRepository()
	default:
		return fmt.Errorf("unknown storage driver %q", f.config.Storage.Driver)
	}
	return nil
}

// initializeClients connects the optional backends. Outside production a
// failing backend is logged and its feature disabled.
func (f *Factory) initializeClients(ctx context.Context) error {
	var initErrors []error
	logger := util.Get()

	if f.config.Redis.Enabled {
		if rc, err := client.NewRedisClient(f.config, logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else {
			f.redisClient = rc
			f.rateLimitCache = redisrepo.NewRateLimitCache(rc)
			util.Info("Redis client initialized")
		}
	}

	if f.config.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(f.config, logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("kafka: %w", err))
		} else {
			f.kafkaProducer = producer
		}
	}

	if f.config.Clickhouse.Enabled {
		if ch, err := client.NewClickHouseClient(f.config, logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else {
			f.clickhouseClient = ch
		}
	}

	if f.config.Elasticsearch.Enabled {
		if es, err := client.NewElasticsearchClient(f.config, logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else {
			f.esClient = es
		}
	}

	if f.config.S3.Enabled {
		if s3c, err := client.NewS3Client(ctx, f.config, logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("s3: %w", err))
		} else {
			f.s3Client = s3c
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %w", errors.Join(initErrors...))
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}
	return nil
}

func (f *Factory) initializeEvents() {
	var sinks []events.Sink
	if f.kafkaProducer != nil {
		sinks = append(sinks, events.NewKafkaSink(f.kafkaProducer))
	}
	if f.clickhouseClient != nil {
		sinks = append(sinks, events.NewClickHouseSink(f.clickhouseClient))
	}
	f.dispatcher = events.NewDispatcher(util.Get(), eventPublishTimeout, sinks...)
}

// ==============================
// Service Factory
// ==============================

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		deps := service.Dependencies{
			Accounts:  f.accountRepo,
			Products:  f.productRepo,
			Hasher:    hashing.NewHasher(f.config),
			OTP:       otp.NewNumericGenerator(f.config.Auth.OTPLength),
			Notifier:  notify.New(f.config, util.Get()),
			Issuer:    session.NewIssuer(f.config),
			Publisher: f.dispatcher,
		}
		// Assigned only when present so the interfaces stay nil otherwise.
		if f.esClient != nil {
			deps.SearchIndex = f.esClient
		}
		if f.s3Client != nil {
			deps.Uploader = f.s3Client
		}
		f.serviceFactory = service.NewServiceFactory(deps, f.config.Auth, util.Get())
	}
	return f.serviceFactory
}

// RateLimitCache is nil when Redis is disabled or unreachable at startup.
func (f *Factory) RateLimitCache() *redisrepo.RateLimitCache {
	return f.rateLimitCache
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if err := f.accountRepo.HealthCheck(ctx); err != nil {
		healthErrors["storage"] = err
	}

	if f.config.Redis.Enabled {
		if f.redisClient == nil {
			healthErrors["redis"] = errors.New("redis client not initialized")
		} else if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	}

	if f.config.Elasticsearch.Enabled {
		if f.esClient == nil {
			healthErrors["elasticsearch"] = errors.New("elasticsearch client not initialized")
		} else if err := f.esClient.HealthCheck(ctx); err != nil {
			healthErrors["elasticsearch"] = err
		}
	}

	if f.config.Clickhouse.Enabled {
		if f.clickhouseClient == nil {
			healthErrors["clickhouse"] = errors.New("clickhouse client not initialized")
		} else if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

// IsHealthy runs HealthCheck and reports readiness alongside the failures.
// Kafka failures are reported but never fail readiness, since events are
// best-effort.
func (f *Factory) IsHealthy(ctx context.Context) (bool, map[string]error) {
	healthErrors := f.HealthCheck(ctx)
	for name := range healthErrors {
		if name != "kafka" {
			return false, healthErrors
		}
	}
	return true, healthErrors
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.mongoClient != nil {
			f.mongoClient.Close()
			util.Info("MongoDB client closed")
		}

		util.Info("Factory shutdown completed")
		util.Sync()
	})

	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}
