package store

import (
	"context"
	"encoding/json"
	"sync"

	"mvdham/bolwatch/logger"
	errs "mvdham/bolwatch/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the state in a redis hash, one field per chat, with a
// write-through in-memory mirror so snapshots stay cheap during sweeps.
type RedisStore struct {
	mu     sync.Mutex
	client *redis.Client
	ctx    context.Context
	key    string
	state  State
	log    *logger.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redis and loads the persisted state. Like the
// file backend, a read failure yields an empty state and a log line.
func NewRedisStore(ctx context.Context, addr string, db int, key string) *RedisStore {
	s := &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		ctx:   ctx,
		key:   key,
		state: make(State),
		log:   logger.ForStore(),
	}

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Failed to load state from redis, starting empty")
		return s
	}
	for chatID, raw := range fields {
		var products ChatProducts
		if err := json.Unmarshal([]byte(raw), &products); err != nil {
			s.log.Error().Err(err).Str("chat_id", chatID).Msg("Failed to decode chat record, skipping")
			continue
		}
		s.state[chatID] = products
	}
	return s
}

// Snapshot returns a deep copy of the full state
func (s *RedisStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.state)
}

// Products returns a copy of one chat's records
func (s *RedisStore) Products(chatID string) ChatProducts {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(ChatProducts, len(s.state[chatID]))
	for url, p := range s.state[chatID] {
		products[url] = p
	}
	return products
}

// Get returns one record
func (s *RedisStore) Get(chatID, url string) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state[chatID][url]
	return p, ok
}

// Upsert creates or replaces a record and writes the chat's field through
func (s *RedisStore) Upsert(chatID, url string, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state[chatID] == nil {
		s.state[chatID] = make(ChatProducts)
	}
	s.state[chatID][url] = p
	return s.persistChatLocked(chatID)
}

// Delete removes a record and writes the chat's field through
func (s *RedisStore) Delete(chatID, url string) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state[chatID][url]
	if !ok {
		return Product{}, false, nil
	}
	delete(s.state[chatID], url)
	if len(s.state[chatID]) == 0 {
		delete(s.state, chatID)
		if err := s.client.HDel(s.ctx, s.key, chatID).Err(); err != nil {
			return p, true, errs.NewPersistence("store", "failed to delete chat record", err)
		}
		return p, true, nil
	}
	return p, true, s.persistChatLocked(chatID)
}

// Close closes the redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) persistChatLocked(chatID string) error {
	data, err := json.Marshal(s.state[chatID])
	if err != nil {
		return errs.NewPersistence("store", "failed to encode chat record", err)
	}
	if err := s.client.HSet(s.ctx, s.key, chatID, data).Err(); err != nil {
		return errs.NewPersistence("store", "failed to write chat record", err)
	}
	return nil
}
