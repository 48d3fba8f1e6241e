package storage

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/restkeep/stockfeed/internal/core/domain"
	"github.com/restkeep/stockfeed/internal/port"
)

const (
	collectionKeyPrefix = "col:"
	documentKeyPrefix   = "doc:"
	channelPrefix       = "ch:"
)

// addItemScript commits a document atomically: the ordering timestamp comes
// from the Redis server clock (TIME), so every writer shares one global
// ordering regardless of client clock skew.
var addItemScript = redis.NewScript(`
local colKey = KEYS[1]
local docKey = KEYS[2]
local channel = ARGV[1]
local id = ARGV[2]

local t = redis.call('TIME')
local ts = t[1] * 1000000 + t[2]

redis.call('HSET', docKey,
	'date', ARGV[3],
	'item', ARGV[4],
	'itemSize', ARGV[5],
	'quantity', ARGV[6],
	'addedBy', ARGV[7],
	'ts', ts)
redis.call('ZADD', colKey, ts, id)
redis.call('PUBLISH', channel, id)

return ts
`)

// RedisStore implements the document store over Redis: one ZSET per
// collection scored by the server-assigned timestamp, one hash per document,
// and a pub/sub channel that triggers a full refetch on every remote write.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) AddItem(ctx context.Context, collection string, item domain.InventoryItem) (string, error) {
	id := uuid.New().String()

	colKey := collectionKeyPrefix + collection
	docKey := documentKeyPrefix + collection + ":" + id
	channel := channelPrefix + collection

	err := addItemScript.Run(ctx, s.client,
		[]string{colKey, docKey},
		channel, id,
		item.Date, item.Item, item.ItemSize,
		strconv.Itoa(item.Quantity), item.AddedBy,
	).Err()
	if err != nil {
		return "", fmt.Errorf("add item: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Subscribe(collection string, onNext func([]domain.InventoryItem), onErr func(error)) (port.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := s.client.Subscribe(ctx, channelPrefix+collection)

	// Force the subscription onto the wire before the initial fetch so no
	// write can land between the two unobserved.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := &redisSubscription{
		store:      s,
		collection: collection,
		onNext:     onNext,
		onErr:      onErr,
	}
	go sub.run(ctx, pubsub)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
			cancel()
			pubsub.Close()
		})
	}, nil
}

// FetchAll returns the full current result set for the collection.
func (s *RedisStore) FetchAll(ctx context.Context, collection string) ([]domain.InventoryItem, error) {
	colKey := collectionKeyPrefix + collection

	ids, err := s.client.ZRevRange(ctx, colKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, documentKeyPrefix+collection+":"+id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	items := make([]domain.InventoryItem, 0, len(ids))
	for i, id := range ids {
		fields, err := cmds[i].Result()
		if err != nil || len(fields) == 0 {
			continue // document evicted between ZREVRANGE and HGETALL
		}
		items = append(items, decodeItem(id, fields))
	}
	return items, nil
}

func decodeItem(id string, fields map[string]string) domain.InventoryItem {
	item := domain.InventoryItem{
		ID:       id,
		Date:     fields["date"],
		Item:     fields["item"],
		ItemSize: fields["itemSize"],
		AddedBy:  fields["addedBy"],
	}
	item.Quantity, _ = strconv.Atoi(fields["quantity"])
	if raw := fields["ts"]; raw != "" {
		if micros, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ts := time.UnixMicro(micros).UTC()
			item.Timestamp = &ts
		}
	}
	return item
}

type redisSubscription struct {
	store      *RedisStore
	collection string
	onNext     func([]domain.InventoryItem)
	onErr      func(error)

	mu     sync.Mutex
	closed bool
}

func (sub *redisSubscription) run(ctx context.Context, pubsub *redis.PubSub) {
	sub.refetch(ctx)

	for range pubsub.Channel() {
		sub.refetch(ctx)
	}
}

func (sub *redisSubscription) refetch(ctx context.Context) {
	items, err := sub.store.FetchAll(ctx, sub.collection)

	sub.mu.Lock()
	closed := sub.closed
	sub.mu.Unlock()
	if closed {
		return
	}

	if err != nil {
		sub.onErr(err)
		return
	}
	sub.onNext(items)
}
