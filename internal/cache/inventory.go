package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chronicle/internal/observability"

	"github.com/google/uuid"
)

const (
	UserKeyPrefix     = "user:%s"
	PostKeyPrefix     = "post:%d"
	PostsListPrefix   = "posts:list:%d"
	CategoryTreeName  = "categories:tree:%d"
	CategoryKeyPrefix = "category:%d"
)

const (
	UserTTL     = 5 * time.Minute
	PostTTL     = 30 * time.Minute
	ListTTL     = 2 * time.Minute
	CategoryTTL = 10 * time.Minute
)

func UserKey(userID uuid.UUID) string {
	return fmt.Sprintf(UserKeyPrefix, userID.String())
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// PostsListKey keys the cached first page per page size so a request with
// a different limit never sees another request's page.
func PostsListKey(limit int) string {
	return fmt.Sprintf(PostsListPrefix, limit)
}

func CategoryKey(categoryID uint) string {
	return fmt.Sprintf(CategoryKeyPrefix, categoryID)
}

func CategoryTreeKey(limit int) string {
	return fmt.Sprintf(CategoryTreeName, limit)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePattern removes every key matching the glob pattern. Used for
// key families that embed a caller-controlled page size.
func InvalidatePattern(ctx context.Context, match string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}

func InvalidateUser(ctx context.Context, userID uuid.UUID) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	InvalidatePostsList(ctx)
}

func InvalidatePostsList(ctx context.Context) {
	InvalidatePattern(ctx, "posts:list:*")
}

func InvalidateCategories(ctx context.Context) {
	InvalidatePattern(ctx, "categories:tree:*")
}

// Aside implements the cache-aside pattern: on a hit the cached JSON is
// unmarshalled into dest, otherwise fetch populates dest and the result is
// stored. Redis being unavailable degrades to a plain fetch.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client != nil {
		raw, err := client.Get(ctx, key).Result()
		if err == nil {
			if jsonErr := json.Unmarshal([]byte(raw), dest); jsonErr == nil {
				observability.CacheHits.WithLabelValues(keyClass(key)).Inc()
				return nil
			}
			// Corrupt entry, drop it and fall through to the source.
			client.Del(ctx, key)
		}
		observability.CacheMisses.WithLabelValues(keyClass(key)).Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	if client != nil {
		if raw, jsonErr := json.Marshal(dest); jsonErr == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}

	return nil
}

// keyClass strips the variable suffix so metrics stay low-cardinality.
func keyClass(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
