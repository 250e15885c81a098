package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/clone-service/internal/repository"
	"github.com/user/clone-service/pkg/utils"
)

const inFlightPrefix = "clone:inflight:"

// releaseScript deletes the mark only while it still names the releasing
// clone. A mark that expired and was taken by a newer clone is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// InFlightRepoImpl marks URLs that are being cloned. Marks expire after ttl so
// a crashed pipeline cannot block a URL forever.
type InFlightRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.InFlightRepository = (*InFlightRepoImpl)(nil)

// NewInFlightRepo creates a new instance of InFlightRepoImpl.
func NewInFlightRepo(client *redis.Client, ttl time.Duration) *InFlightRepoImpl {
	return &InFlightRepoImpl{client: client, ttl: ttl}
}

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *InFlightRepoImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", inFlightPrefix, utils.HashURL(url))
}

// Acquire sets the mark with SET NX; an existing mark means another clone of
// url is running.
func (r *InFlightRepoImpl) Acquire(ctx context.Context, url, cloneID string) error {
	ok, err := r.client.SetNX(ctx, r.generateKey(url), cloneID, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrCloneInFlight
	}
	return nil
}

// Release removes the mark if cloneID still holds it.
func (r *InFlightRepoImpl) Release(ctx context.Context, url, cloneID string) error {
	return releaseScript.Run(ctx, r.client, []string{r.generateKey(url)}, cloneID).Err()
}
