// Package lookup keeps id → name maps of reference data (categories, brands)
// so product rows can show names instead of ids. Maps live in memory and,
// when a Redis client is given, are mirrored to one Redis hash per resource.
package lookup

import (
	"context"
	"sort"
	"sync"
	"time"

	"catalogadmin/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "catalogadmin:names:"

type Names struct {
	redis *redis.Client
	ttl   time.Duration
	log   logrus.FieldLogger

	mu   sync.RWMutex
	maps map[string]map[string]string
}

// New returns a lookup backed by client; a nil client keeps everything in memory.
func New(client *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *Names {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Names{
		redis: client,
		ttl:   ttl,
		log:   logger.WithField("component", "lookup"),
		maps:  make(map[string]map[string]string),
	}
}

func Key(resource string) string {
	return keyPrefix + resource
}

// Index builds the id → name map of a freshly loaded list.
func Index[T models.Entity](items []T, name func(T) string) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		if id := item.EntityID(); id != "" {
			out[id] = name(item)
		}
	}
	return out
}

// Store replaces the map of resource. Redis errors are logged only.
func (n *Names) Store(ctx context.Context, resource string, names map[string]string) {
	n.mu.Lock()
	n.maps[resource] = copyMap(names)
	n.mu.Unlock()

	if n.redis == nil {
		return
	}

	key := Key(resource)
	if err := n.redis.Del(ctx, key).Err(); err != nil {
		n.log.WithField("key", key).Errorf("Failed to clear names: %v", err)
		return
	}
	if len(names) == 0 {
		return
	}

	if err := n.redis.HSet(ctx, key, pairs(names)...).Err(); err != nil {
		n.log.WithField("key", key).Errorf("Failed to store names: %v", err)
		return
	}
	if n.ttl > 0 {
		if err := n.redis.Expire(ctx, key, n.ttl).Err(); err != nil {
			n.log.WithField("key", key).Errorf("Failed to set names ttl: %v", err)
		}
	}
}

// Resolve returns the name of id, looking at memory first and Redis second.
func (n *Names) Resolve(ctx context.Context, resource, id string) (string, bool) {
	n.mu.RLock()
	name, ok := n.maps[resource][id]
	n.mu.RUnlock()
	if ok {
		return name, true
	}
	if n.redis == nil || id == "" {
		return "", false
	}

	name, err := n.redis.HGet(ctx, Key(resource), id).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		n.log.WithField("key", Key(resource)).Errorf("Failed to resolve %s: %v", id, err)
		return "", false
	}
	return name, true
}

// Map returns a copy of the in-memory map of resource.
func (n *Names) Map(resource string) map[string]string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return copyMap(n.maps[resource])
}

// Warm loads the map of resource from Redis unless memory already has one.
// It returns the number of names loaded.
func (n *Names) Warm(ctx context.Context, resource string) (int, error) {
	if n.redis == nil {
		return 0, nil
	}

	n.mu.RLock()
	_, loaded := n.maps[resource]
	n.mu.RUnlock()
	if loaded {
		return 0, nil
	}

	names, err := n.redis.HGetAll(ctx, Key(resource)).Result()
	if err != nil {
		return 0, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.maps[resource]; ok {
		return 0, nil
	}
	n.maps[resource] = names
	return len(names), nil
}

// pairs flattens the map into sorted field/value arguments for HSET.
func pairs(names map[string]string) []interface{} {
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]interface{}, 0, len(ids)*2)
	for _, id := range ids {
		out = append(out, id, names[id])
	}
	return out
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
