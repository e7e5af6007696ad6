package rdx

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"jobconnect/models"
)

const nameTTL = 6 * time.Hour

func nameKey(userID string) string {
	return "users:" + userID + ":name"
}

// CacheName stores a user's display name for message composition.
func CacheName(ctx context.Context, kv KV, userID, name string) error {
	return kv.Set(ctx, nameKey(userID), name, nameTTL)
}

// CachedName returns the cached display name, or "" on a miss or error.
func CachedName(ctx context.Context, kv KV, userID string) string {
	name, err := kv.Get(ctx, nameKey(userID))
	if err != nil {
		return ""
	}
	return name
}

func ForgetName(ctx context.Context, kv KV, userID string) error {
	return kv.Del(ctx, nameKey(userID))
}

// UserGetter is the user lookup NameOf falls back to.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// NameOf resolves a display name through the cache, loading and caching on a miss.
// A nil kv skips the cache.
func NameOf(ctx context.Context, kv KV, users UserGetter, userID string) (string, error) {
	if kv != nil {
		if name := CachedName(ctx, kv, userID); name != "" {
			return name, nil
		}
	}
	u, err := users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	name := u.DisplayName()
	if kv != nil {
		if err := CacheName(ctx, kv, userID, name); err != nil {
			log.Debug().Err(err).Str("userId", userID).Msg("rdx: cache name")
		}
	}
	return name, nil
}
