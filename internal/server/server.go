package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Rain-kl/cyber-kb/internal/config"
	"github.com/Rain-kl/cyber-kb/internal/converter"
	"github.com/Rain-kl/cyber-kb/internal/db"
	"github.com/Rain-kl/cyber-kb/internal/embedding"
	"github.com/Rain-kl/cyber-kb/internal/handlers"
	"github.com/Rain-kl/cyber-kb/internal/queue"
	"github.com/Rain-kl/cyber-kb/internal/repositories"
	"github.com/Rain-kl/cyber-kb/internal/routes"
	"github.com/Rain-kl/cyber-kb/internal/services"
)

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Server owns the HTTP listener and the processing pipeline behind it.
type Server struct {
	httpServer *http.Server
	manager    *services.ProcessingManager
	metadata   *repositories.SQLiteMetadataRepository
	vectors    repositories.VectorRepositoryProvider
	redis      *db.RedisClient // nil with the in-memory queue
	logger     *log.Logger
}

// New wires repositories, services and handlers into a runnable server.
func New(cfg *config.Config) (*Server, error) {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)

	blobRepo, err := repositories.NewFSBlobRepository(cfg.DataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	metadataRepo, err := repositories.NewSQLiteMetadataRepository(cfg.DataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("init metadata store: %w", err)
	}

	logger.Printf("Embedding backend: %s (model %s)", cfg.OllamaAPIURL, cfg.OllamaModel)
	embedder := embedding.NewOllamaClient(embedding.OllamaConfig{
		BaseURL:   cfg.OllamaAPIURL,
		Model:     cfg.OllamaModel,
		Dimension: cfg.EmbeddingDim,
	})

	var vectorProvider repositories.VectorRepositoryProvider
	switch cfg.VectorBackend {
	case "", "sqlite":
		logger.Printf("Vector backend: embedded sqlite under %s", cfg.DataDir)
		vectorProvider = repositories.NewSQLiteVectorProvider(cfg.DataDir, embedder, nil)
	case "chroma":
		logger.Printf("Vector backend: chroma at %s", cfg.ChromaURL)
		chroma := db.NewChromaDBClient(db.ChromaDBConfig{URL: cfg.ChromaURL})
		hbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := chroma.Heartbeat(hbCtx); err != nil {
			return nil, fmt.Errorf("chroma unreachable: %w", err)
		}
		vectorProvider = repositories.NewChromaVectorProvider(chroma, embedder, nil)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}

	logger.Printf("Extraction backend: %s", cfg.TikaServerURL)
	tika := converter.NewTikaConverter(converter.TikaConfig{
		ServerURL: cfg.TikaServerURL,
	})

	var taskQueue queue.DocumentQueue
	var redisClient *db.RedisClient
	switch cfg.QueueBackend {
	case "", "memory":
		taskQueue = queue.NewMemoryQueue()
	case "redis":
		logger.Printf("Queue backend: redis at %s:%d", cfg.RedisHost, cfg.RedisPort)
		redisClient = db.NewRedisClient(db.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		taskQueue = queue.NewRedisQueue(redisClient, "kb")
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}

	manager := services.NewProcessingManager(services.ProcessingManagerConfig{
		MetadataRepo:      metadataRepo,
		BlobRepo:          blobRepo,
		Queue:             taskQueue,
		VectorProvider:    vectorProvider,
		Converter:         tika,
		Embedder:          embedder,
		Logger:            logger,
		MaxWorkers:        cfg.MaxWorkers,
		ChunkSize:         cfg.ChunkSize,
		ChunkOverlap:      cfg.ChunkOverlap,
		EnableVectorIndex: cfg.EnableVectorIndex,
		StrictEmbedding:   cfg.EmbeddingStrict,
	})

	collectionService := services.NewCollectionService(metadataRepo, logger)
	searchService := services.NewSearchService(metadataRepo, vectorProvider, logger)

	h := &routes.Handlers{
		Health:            handlers.HealthCheckHandler,
		DocHandler:        handlers.NewDocumentHandler(manager, logger),
		SearchHandler:     handlers.NewSearchHandler(searchService, logger),
		CollectionHandler: handlers.NewCollectionHandler(collectionService, logger),
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	// Add Swagger endpoints
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // The url pointing to API definition
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.ServerAddr,
			Handler: corsMiddleware(router),
		},
		manager:  manager,
		metadata: metadataRepo,
		vectors:  vectorProvider,
		redis:    redisClient,
		logger:   logger,
	}, nil
}

// Run starts the workers and the HTTP listener, then blocks until SIGINT or
// SIGTERM arrives or the listener fails. Shutdown drains in-flight requests
// and tasks within a bounded window before releasing storage handles.
func (s *Server) Run() error {
	ctx := context.Background()

	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("start processing manager: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		s.logger.Printf("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("HTTP shutdown: %v", err)
	}
	if err := s.manager.Stop(shutdownCtx); err != nil {
		s.logger.Printf("Worker shutdown: %v", err)
	}
	if err := s.vectors.Close(); err != nil {
		s.logger.Printf("Vector index close: %v", err)
	}
	if err := s.metadata.Close(); err != nil {
		s.logger.Printf("Metadata store close: %v", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Printf("Redis close: %v", err)
		}
	}

	s.logger.Println("Shutdown complete")
	return nil
}
