// Package server exposes the HTTP API: upload initiation and confirmation,
// question answering, job inspection, and memory browsing.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/heirloom-app/heirloom-go/internal/llm"
	"github.com/heirloom-app/heirloom-go/internal/metrics"
	"github.com/heirloom-app/heirloom-go/internal/models"
	"github.com/heirloom-app/heirloom-go/internal/retrieval"
)

// Store is the subset of database operations the API needs.
type Store interface {
	CreateMediaAsset(ctx context.Context, in models.MediaAssetInput) (*models.MediaAsset, error)
	CreateJob(ctx context.Context, assetID surrealmodels.RecordID) (*models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	RequeueJob(ctx context.Context, id surrealmodels.RecordID) (*models.Job, error)
	MemoryUnitsByProfile(ctx context.Context, profileID string, limit int) ([]models.MemoryUnit, error)
}

// ObjectStore is the subset of object storage operations the API needs.
type ObjectStore interface {
	Head(ctx context.Context, key string) (int64, error)
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
}

// Retriever runs the retrieval pipeline for ask requests.
type Retriever interface {
	Retrieve(ctx context.Context, profileID, question string) (*retrieval.ContextPack, error)
	ResolveSourceURLs(pack *retrieval.ContextPack, citedIDs []string) []string
}

// Answerer generates a grounded answer from a context pack.
type Answerer interface {
	Answer(ctx context.Context, pack *retrieval.ContextPack) (llm.Answer, error)
}

// Options configures a Server.
type Options struct {
	MaxObjectBytes int64
	UploadExpiry   time.Duration
	MemoryPageSize int
	Logger         *slog.Logger
	Metrics        *metrics.Collector
}

// Server wires the HTTP routes to the backing components.
type Server struct {
	app       *fiber.App
	validate  *validator.Validate
	store     Store
	objects   ObjectStore
	retriever Retriever
	answerer  Answerer

	maxObjectBytes int64
	uploadExpiry   time.Duration
	memoryPageSize int
	logger         *slog.Logger
	metrics        *metrics.Collector
}

// New creates the API server. Zero option fields fall back to production
// defaults.
func New(store Store, objects ObjectStore, retriever Retriever, answerer Answerer, opts Options) *Server {
	if opts.MaxObjectBytes <= 0 {
		opts.MaxObjectBytes = 500 * 1024 * 1024
	}
	if opts.UploadExpiry <= 0 {
		opts.UploadExpiry = 15 * time.Minute
	}
	if opts.MemoryPageSize <= 0 {
		opts.MemoryPageSize = 100
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           30 * time.Second,
		}),
		validate:       validator.New(),
		store:          store,
		objects:        objects,
		retriever:      retriever,
		answerer:       answerer,
		maxObjectBytes: opts.MaxObjectBytes,
		uploadExpiry:   opts.UploadExpiry,
		memoryPageSize: opts.MemoryPageSize,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api/v1")
	api.Post("/uploads/init", s.handleUploadInit)
	api.Post("/uploads/confirm", s.handleUploadConfirm)
	api.Get("/jobs/:id", s.handleGetJob)
	api.Post("/jobs/:id/requeue", s.handleRequeueJob)
	api.Post("/profiles/:profileID/ask", s.handleAsk)
	api.Get("/profiles/:profileID/memories", s.handleListMemories)
	api.Get("/stats", s.handleStats)
}

// Listen blocks serving HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests, bounded by the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
