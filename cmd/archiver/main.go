package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/restkeep/stockfeed/internal/adapter/identity"
	"github.com/restkeep/stockfeed/internal/adapter/storage"
	"github.com/restkeep/stockfeed/internal/config"
	"github.com/restkeep/stockfeed/internal/core/domain"
	"github.com/restkeep/stockfeed/internal/core/service"
	"github.com/restkeep/stockfeed/internal/port"
)

const (
	workerCount = 2
	queueSize   = 64
)

func main() {
	var (
		appID      = flag.String("app-id", "", "application id (env APP_ID)")
		blob       = flag.String("config", "", "backend configuration JSON (env BACKEND_CONFIG)")
		token      = flag.String("token", "", "pre-issued auth token (env INITIAL_AUTH_TOKEN)")
		exportOnly = flag.Bool("export", false, "write the archived items as CSV to stdout and exit")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.FromEnv(*appID, *blob, *token)
	if err != nil {
		log.Fatalf("resolve config: %v", err)
	}
	if cfg.MySQLDSN == "" {
		log.Fatalf("mysqlDSN not configured")
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	archive := storage.NewMySQLArchive(db)

	if *exportOnly {
		if err := exportCSV(ctx, archive, os.Stdout); err != nil {
			log.Fatalf("export failed: %v", err)
		}
		db.Close()
		return
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	store := storage.NewRedisStore(rdb)
	provider := identity.NewLocalProvider(cfg.Raw["authSecret"])

	archiveSvc := service.NewArchiveService(queueSize)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, archiveSvc.Queue(), archive)
		}(i)
	}
	log.Printf("started %d workers", workerCount)

	// The archiver is an ordinary client of the feed: it authenticates,
	// gates the subscription on readiness, and consumes full snapshots.
	feed := service.NewFeedService(store, cfg.CollectionPath(),
		func(items []domain.InventoryItem) { archiveSvc.Enqueue(items) },
		func(err error) { log.Printf("subscription error: %v", err) },
	)

	var mu sync.Mutex
	var feedUnsub port.Unsubscribe

	sessionMgr := service.NewSessionManager(provider, cfg.AuthToken, service.SessionEvents{
		OnChange: func(s domain.Session) {
			log.Printf("session ready as %s", s.UserID)

			mu.Lock()
			defer mu.Unlock()
			if feedUnsub != nil {
				feedUnsub()
				feedUnsub = nil
			}
			unsub, err := feed.Subscribe(s)
			if err != nil {
				log.Printf("subscribe failed: %v", err)
				return
			}
			feedUnsub = unsub
		},
		OnError: func(err error) { log.Printf("auth error: %v", err) },
	})

	stop := sessionMgr.Start(ctx)
	log.Printf("archiving %s", cfg.CollectionPath())

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	stop()
	mu.Lock()
	if feedUnsub != nil {
		feedUnsub()
		feedUnsub = nil
	}
	mu.Unlock()

	// Close queue and wait for workers
	archiveSvc.Close()
	wg.Wait()
	log.Println("workers stopped")

	rdb.Close()
	db.Close()
	log.Println("connections closed")
}

func workerLoop(id int, queue <-chan []domain.InventoryItem, db port.ArchiveRepository) {
	for items := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := db.SaveItems(ctx, items); err != nil {
			log.Printf("worker %d: failed to archive snapshot of %d items: %v", id, len(items), err)
		} else {
			log.Printf("worker %d: archived %d items", id, len(items))
		}

		cancel()
	}
}

func exportCSV(ctx context.Context, archive port.ArchiveRepository, out *os.File) error {
	items, err := archive.ListItems(ctx)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"date", "item", "item_size", "quantity", "added_by", "committed_at"}); err != nil {
		return err
	}
	for _, item := range items {
		committed := ""
		if item.Timestamp != nil {
			committed = item.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		record := []string{item.Date, item.Item, item.ItemSize, strconv.Itoa(item.Quantity), item.AddedBy, committed}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
