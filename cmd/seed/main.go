package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/restkeep/stockfeed/internal/adapter/identity"
	"github.com/restkeep/stockfeed/internal/adapter/storage"
	"github.com/restkeep/stockfeed/internal/config"
	"github.com/restkeep/stockfeed/internal/core/domain"
	"github.com/restkeep/stockfeed/internal/core/service"
)

var sampleItems = []struct {
	name string
	size string
}{
	{"Flour", "5kg"},
	{"Sugar", "2kg"},
	{"Olive Oil", "1.75L"},
	{"Tomatoes", "Case"},
	{"Chicken Breast", "10lb"},
	{"Rice", "25lb"},
	{"Butter", "1lb"},
	{"Mozzarella", "5lb"},
}

func main() {
	var (
		appID = flag.String("app-id", "", "application id (env APP_ID)")
		blob  = flag.String("config", "", "backend configuration JSON (env BACKEND_CONFIG)")
		count = flag.Int("n", 25, "number of items to submit")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.FromEnv(*appID, *blob, "")
	if err != nil {
		log.Fatalf("resolve config: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	store := storage.NewRedisStore(rdb)
	provider := identity.NewLocalProvider("")

	sessionMgr := service.NewSessionManager(provider, "", service.SessionEvents{
		OnError: func(err error) { log.Fatalf("sign-in failed: %v", err) },
	})
	stop := sessionMgr.Start(ctx)
	defer stop()

	sess := sessionMgr.Session()
	if !sess.Ready {
		log.Fatalf("session did not become ready")
	}
	log.Printf("seeding as %s", sess.UserID)

	submitter := service.NewSubmitter(store, sessionMgr, cfg.CollectionPath())
	today := time.Now().Format("2006-01-02")

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sample := sampleItems[i%len(sampleItems)]
			err := submitter.Submit(ctx, domain.ItemFields{
				Date:     today,
				Item:     sample.name,
				ItemSize: sample.size,
				Quantity: fmt.Sprintf("%d", 1+i%20),
			})
			if err == nil {
				successCount.Add(1)
			} else {
				log.Printf("submit failed: %v", err)
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== SEED RESULTS ==========")
	fmt.Printf("Collection:  %s\n", cfg.CollectionPath())
	fmt.Printf("Submitted:   %d\n", *count)
	fmt.Printf("Successful:  %d\n", successCount.Load())
	fmt.Printf("Failed:      %d\n", failCount.Load())
	fmt.Printf("Duration:    %v\n", elapsed)
	fmt.Println("==================================")
}
