package memory

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// FlightRepository tracks in-flight operations. It backs two gates: one send
// per session and one deletion per user at any time. Entries expire on their
// own as a safety net against a crash between acquire and release.
type FlightRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewFlightRepository() *FlightRepository {
	// Gates are released explicitly; the 5 minute expiry only covers leaked
	// entries, well beyond any provider timeout.
	c := cache.New(5*time.Minute, 10*time.Minute)
	return &FlightRepository{
		cache: c,
	}
}

func (r *FlightRepository) acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.cache.Get(key); found {
		return false
	}
	r.cache.Set(key, struct{}{}, cache.DefaultExpiration)
	return true
}

// TryAcquireSend reserves the send gate for a session. Returns false when a
// send is already in flight.
func (r *FlightRepository) TryAcquireSend(sessionID string) bool {
	return r.acquire("send:" + sessionID)
}

func (r *FlightRepository) ReleaseSend(sessionID string) {
	r.cache.Delete("send:" + sessionID)
}

// TryAcquireDelete reserves the single deletion slot for a user.
func (r *FlightRepository) TryAcquireDelete(userID string) bool {
	return r.acquire("delete:" + userID)
}

func (r *FlightRepository) ReleaseDelete(userID string) {
	r.cache.Delete("delete:" + userID)
}
