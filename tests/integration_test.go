package tests

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/restkeep/stockfeed/internal/adapter/identity"
	"github.com/restkeep/stockfeed/internal/adapter/storage"
	"github.com/restkeep/stockfeed/internal/config"
	"github.com/restkeep/stockfeed/internal/core/domain"
	"github.com/restkeep/stockfeed/internal/core/service"
	"github.com/restkeep/stockfeed/internal/port"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/stockfeed?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS inventory_items (
			id        VARCHAR(64) PRIMARY KEY,
			date      VARCHAR(32)  NOT NULL,
			item      VARCHAR(255) NOT NULL,
			item_size VARCHAR(255) NOT NULL,
			quantity  INT          NOT NULL,
			added_by  VARCHAR(128) NOT NULL,
			ts        DATETIME(6)  NULL
		)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	return &testEnv{
		redis: rdb,
		mysql: db,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func cleanCollection(env *testEnv, collection string) {
	ctx := context.Background()
	ids, _ := env.redis.ZRange(ctx, "col:"+collection, 0, -1).Result()
	for _, id := range ids {
		env.redis.Del(ctx, "doc:"+collection+":"+id)
	}
	env.redis.Del(ctx, "col:"+collection)
}

func TestIntegration_FullFeedFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	appID := fmt.Sprintf("itest-%d", time.Now().UnixNano())

	cfg, err := config.Resolve(appID, `{"projectId":"itest"}`, "")
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	collection := cfg.CollectionPath()
	defer cleanCollection(env, collection)

	store := storage.NewRedisStore(env.redis)
	archive := storage.NewMySQLArchive(env.mysql)
	provider := identity.NewLocalProvider("")

	// Archiver side: snapshots flow through the queue into MySQL.
	archiveSvc := service.NewArchiveService(16)
	var workerWg sync.WaitGroup
	workerWg.Add(1)
	go func() {
		defer workerWg.Done()
		for items := range archiveSvc.Queue() {
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := archive.SaveItems(saveCtx, items); err != nil {
				t.Errorf("archive save failed: %v", err)
			}
			cancel()
		}
	}()

	snapshots := make(chan []domain.InventoryItem, 16)
	feed := service.NewFeedService(store, collection,
		func(items []domain.InventoryItem) {
			archiveSvc.Enqueue(items)
			snapshots <- items
		},
		func(err error) { t.Logf("subscription error: %v", err) },
	)

	var mu sync.Mutex
	var feedUnsub port.Unsubscribe
	mgr := service.NewSessionManager(provider, cfg.AuthToken, service.SessionEvents{
		OnChange: func(s domain.Session) {
			mu.Lock()
			defer mu.Unlock()
			if feedUnsub != nil {
				feedUnsub()
			}
			unsub, err := feed.Subscribe(s)
			if err != nil {
				t.Errorf("subscribe failed: %v", err)
				return
			}
			feedUnsub = unsub
		},
	})

	stop := mgr.Start(ctx)
	defer stop()

	sess := mgr.Session()
	if !sess.Ready {
		t.Fatal("expected ready session")
	}
	defer env.mysql.ExecContext(ctx, `DELETE FROM inventory_items WHERE added_by = ?`, sess.UserID)

	submitter := service.NewSubmitter(store, mgr, collection)
	want := []domain.ItemFields{
		{Date: "2024-01-01", Item: "Flour", ItemSize: "5kg", Quantity: "10"},
		{Date: "2024-01-02", Item: "Sugar", ItemSize: "2kg", Quantity: "3"},
		{Date: "2024-01-03", Item: "Olive Oil", ItemSize: "1.75L", Quantity: "6"},
	}
	for _, f := range want {
		if err := submitter.Submit(ctx, f); err != nil {
			t.Fatalf("submit %s failed: %v", f.Item, err)
		}
	}

	// Wait for the snapshot that reflects all three committed writes.
	deadline := time.After(10 * time.Second)
	var final []domain.InventoryItem
	for final == nil {
		select {
		case items := <-snapshots:
			if len(items) == len(want) {
				final = items
			}
		case <-deadline:
			t.Fatal("never observed a snapshot with all submitted items")
		}
	}

	for i, item := range final {
		if item.Timestamp == nil {
			t.Errorf("item %s has no server timestamp", item.ID)
		}
		if item.AddedBy != sess.UserID {
			t.Errorf("item %s: expected addedBy %s, got %s", item.ID, sess.UserID, item.AddedBy)
		}
		if i > 0 && final[i-1].Timestamp != nil && item.Timestamp != nil &&
			item.Timestamp.After(*final[i-1].Timestamp) {
			t.Error("display list is not descending by timestamp")
		}
	}

	// Drain the archive queue and verify the MySQL mirror.
	archiveSvc.Close()
	workerWg.Wait()

	var count int
	env.mysql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_items WHERE added_by = ?`, sess.UserID).Scan(&count)
	if count != len(want) {
		t.Errorf("expected %d archived rows, got %d", len(want), count)
	}
}

func TestIntegration_CustomTokenIdentity(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	secret := "integration-secret"
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "chef-7"})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	provider := identity.NewLocalProvider(secret)
	mgr := service.NewSessionManager(provider, signed, service.SessionEvents{})
	stop := mgr.Start(context.Background())
	defer stop()

	sess := mgr.Session()
	if !sess.Ready || sess.UserID != "chef-7" {
		t.Errorf("expected ready session as chef-7, got %+v", sess)
	}
}
