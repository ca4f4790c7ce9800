package redisstore

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const captchaTTL = 10 * time.Minute

// Store wraps the redis client for the two concerns this service caches:
// signup captchas and queue-entry status polls.
type Store struct {
	rdb       *redis.Client
	statusTTL time.Duration
}

func New(addr, password string, db int, statusTTL time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb, statusTTL: statusTTL}
}

func (s *Store) Close() error { return s.rdb.Close() }

func captchaKey(email string) string { return "captcha:" + email }

func (s *Store) SetCaptcha(ctx context.Context, email, code string) error {
	return s.rdb.Set(ctx, captchaKey(email), code, captchaTTL).Err()
}

// GetCaptcha returns redis.Nil when the captcha expired or was never sent.
func (s *Store) GetCaptcha(ctx context.Context, email string) (string, error) {
	return s.rdb.Get(ctx, captchaKey(email)).Result()
}

func (s *Store) DeleteCaptcha(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, captchaKey(email)).Err()
}

func entryKey(id string) string { return "queue:entry:" + id }

// GetEntryStatus implements queue.StatusCache. Failures are a cache miss;
// the caller falls back to the database.
func (s *Store) GetEntryStatus(ctx context.Context, id string) (string, int, bool) {
	if s.statusTTL <= 0 {
		return "", 0, false
	}
	v, err := s.rdb.Get(ctx, entryKey(id)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis queue status get failed id=%s err=%v", id, err)
		}
		return "", 0, false
	}
	status, posStr, found := strings.Cut(v, "|")
	if !found {
		return "", 0, false
	}
	position, err := strconv.Atoi(posStr)
	if err != nil {
		return "", 0, false
	}
	return status, position, true
}

func (s *Store) SetEntryStatus(ctx context.Context, id, status string, position int) {
	if s.statusTTL <= 0 {
		return
	}
	v := fmt.Sprintf("%s|%d", status, position)
	if err := s.rdb.Set(ctx, entryKey(id), v, s.statusTTL).Err(); err != nil {
		log.Printf("redis queue status set failed id=%s err=%v", id, err)
	}
}
