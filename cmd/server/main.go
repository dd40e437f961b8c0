/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the inventory validation service: catalog load,
  ledger construction, snapshot restore, the queue consumer, and the
  dashboard HTTP server.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load and validate the catalog rules (invalid rules are fatal)
  3. Open the SQLite snapshot store and restore last committed amounts
  4. Build the ledger store and validation engine
  5. Start the Kafka consumer (when brokers are configured)
  6. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port          HTTP server port (default: 8080)
  -db            SQLite snapshot path (default: inventory.db)
                 Use ":memory:" for an in-memory snapshot store
  -catalog       Catalog rules JSON path (default: catalog.json)
  -brokers       Comma-separated Kafka brokers; empty disables the queue
  -topic         Request topic (default: validation-requests)
  -group         Consumer group id (default: validation)
  -dedup-window  Idempotency retention window (default: 10m)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new HTTP connections, drain with a 30s timeout
  2. Close the Kafka reader and writers
  3. Close the snapshot store
  4. Exit

EXAMPLES:
  # HTTP only, file-backed snapshots
  ./server -db="./data/inventory.db"

  # Full deployment with the queue
  ./server -brokers="localhost:9092" -catalog="./catalog.json"

SEE ALSO:
  - api/server.go: Router configuration
  - queue/consumer.go: Kafka loop
  - ledger/catalog.go: Rules file format
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/brewbot/validation-engine/api"
	"github.com/brewbot/validation-engine/ledger"
	"github.com/brewbot/validation-engine/queue"
	"github.com/brewbot/validation-engine/store/sqlite"
	"github.com/brewbot/validation-engine/validation"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "inventory.db", "SQLite snapshot path")
	catalogPath := flag.String("catalog", "catalog.json", "catalog rules JSON path")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers (empty disables the queue)")
	topic := flag.String("topic", "validation-requests", "request topic")
	group := flag.String("group", "validation", "consumer group id")
	dedupWindow := flag.Duration("dedup-window", validation.DefaultDedupWindow, "idempotency retention window")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// An invalid catalog must keep the service from accepting requests.
	// There is no runtime fallback.
	catalog, err := ledger.LoadRules(*catalogPath)
	if err != nil {
		logger.Fatal("catalog load failed", zap.String("path", *catalogPath), zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.String("path", *catalogPath),
		zap.Int("entries", len(catalog.Keys())),
	)

	// Initialize snapshot store and resume from last committed amounts
	snap, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to open snapshot store", zap.Error(err))
	}
	defer snap.Close()

	amounts, err := snap.LoadAmounts()
	if err != nil {
		logger.Fatal("failed to restore snapshots", zap.Error(err))
	}
	if len(amounts) > 0 {
		logger.Info("restored ledger amounts", zap.Int("entries", len(amounts)))
	}

	store := ledger.NewStore(catalog,
		ledger.WithSnapshotter(snap),
		ledger.WithAmounts(amounts),
	)
	engine := validation.NewEngine(catalog, store,
		validation.WithDeduplicator(validation.NewDeduplicator(*dedupWindow)),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Queue consumer
	var consumer *queue.Consumer
	if *brokers != "" {
		consumer = queue.NewConsumer(queue.Config{
			Brokers:        strings.Split(*brokers, ","),
			RequestTopic:   *topic,
			GroupID:        *group,
			ResponseTopics: queue.DefaultResponseTopics(),
		}, queue.NewDispatcher(engine), logger)

		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("no brokers configured, queue consumer disabled")
	}

	// HTTP server
	handler := api.NewHandler(engine, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("consumer close failed", zap.Error(err))
		}
	}
	logger.Info("server stopped")
}
