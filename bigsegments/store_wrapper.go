package bigsegments

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation"
)

// Defaults for StoreWrapperConfig fields that are left at their zero values.
const (
	DefaultUserCacheSize      = 1000
	DefaultUserCacheTime      = 5 * time.Second
	DefaultStatusPollInterval = 5 * time.Second
	DefaultStaleAfter         = 2 * time.Minute
)

// StoreWrapperConfig holds the caching and status-monitoring parameters for a
// StoreWrapper. Zero values mean the corresponding defaults.
type StoreWrapperConfig struct {
	// UserCacheSize is the maximum number of user memberships held in memory at once.
	UserCacheSize int

	// UserCacheTime is how long a cached membership remains usable before the store
	// is queried again for that user.
	UserCacheTime time.Duration

	// StatusPollInterval is how often the store metadata is polled to determine
	// whether the data is still being synchronized.
	StatusPollInterval time.Duration

	// StaleAfter is the age of the last synchronization time beyond which the data
	// is reported as stale.
	StaleAfter time.Duration
}

// StoreWrapper adapts a BigSegmentStore to the evaluator's BigSegmentProvider
// interface. It caches user memberships with a TTL, coalesces concurrent queries for
// the same user, and polls the store's synchronization timestamp in the background to
// decide whether evaluations should report a healthy or stale status.
type StoreWrapper struct {
	store       BigSegmentStore
	userCache   *lru.Cache
	cacheTTL    time.Duration
	staleAfter  time.Duration
	flightGroup singleflight.Group
	loggers     ldlog.Loggers

	available  bool
	stale      bool
	haveStatus bool
	statusLock sync.RWMutex

	pollCloser chan struct{}
	closeOnce  sync.Once
}

type cachedMembership struct {
	membership evaluation.BigSegmentMembership
	expiration time.Time
}

// NewStoreWrapper creates a StoreWrapper around the given store and starts its status
// polling task. The wrapper takes ownership of the store: closing the wrapper closes
// the store.
func NewStoreWrapper(
	store BigSegmentStore,
	config StoreWrapperConfig,
	loggers ldlog.Loggers,
) (*StoreWrapper, error) {
	cacheSize := config.UserCacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultUserCacheSize
	}
	cacheTTL := config.UserCacheTime
	if cacheTTL <= 0 {
		cacheTTL = DefaultUserCacheTime
	}
	pollInterval := config.StatusPollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultStatusPollInterval
	}
	staleAfter := config.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	userCache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	w := &StoreWrapper{
		store:      store,
		userCache:  userCache,
		cacheTTL:   cacheTTL,
		staleAfter: staleAfter,
		loggers:    loggers,
		pollCloser: make(chan struct{}),
	}
	w.pollStoreAndUpdateStatus() // so the first evaluation sees a real status
	go w.runPollTask(pollInterval)
	return w, nil
}

// GetUserMembership queries the big segment state for the given user key, using the
// cache when possible. A query failure is reported as a STORE_ERROR status for this
// evaluation only; the overall store status is governed by the polling task.
func (w *StoreWrapper) GetUserMembership(
	userKey string,
) (evaluation.BigSegmentMembership, evaluation.BigSegmentsStatus) {
	membership, err := w.getMembership(HashForUserKey(userKey))
	if err != nil {
		w.loggers.Errorf("Big segment store query returned error: %s", err)
		return nil, evaluation.BigSegmentsStoreError
	}

	w.statusLock.RLock()
	available, stale := w.available, w.stale
	w.statusLock.RUnlock()

	switch {
	case !available:
		return membership, evaluation.BigSegmentsStoreError
	case stale:
		return membership, evaluation.BigSegmentsStale
	default:
		return membership, evaluation.BigSegmentsHealthy
	}
}

// Close stops the polling task and closes the underlying store.
func (w *StoreWrapper) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.pollCloser)
		err = w.store.Close()
	})
	return err
}

func (w *StoreWrapper) getMembership(userHash string) (evaluation.BigSegmentMembership, error) {
	if cached := w.getCachedMembership(userHash); cached != nil {
		return cached.membership, nil
	}

	// The singleflight group guarantees that if multiple goroutines miss the cache for
	// the same user at the same time, only one store query happens.
	value, err, _ := w.flightGroup.Do(userHash, func() (interface{}, error) {
		if cached := w.getCachedMembership(userHash); cached != nil {
			return cached.membership, nil
		}
		membership, err := w.store.GetMembership(userHash)
		if err != nil {
			return nil, err
		}
		w.userCache.Add(userHash, &cachedMembership{
			membership: membership,
			expiration: time.Now().Add(w.cacheTTL),
		})
		return membership, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(evaluation.BigSegmentMembership), nil
}

func (w *StoreWrapper) getCachedMembership(userHash string) *cachedMembership {
	if value, ok := w.userCache.Get(userHash); ok {
		if cached := value.(*cachedMembership); time.Now().Before(cached.expiration) {
			return cached
		}
	}
	return nil
}

func (w *StoreWrapper) runPollTask(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.pollCloser:
			return
		case <-ticker.C:
			w.pollStoreAndUpdateStatus()
		}
	}
}

func (w *StoreWrapper) pollStoreAndUpdateStatus() {
	available, stale := true, false
	synchronizedOn, err := w.store.GetSynchronizedOn()
	if err != nil {
		available = false
	} else {
		stale = w.isStale(synchronizedOn)
	}

	w.statusLock.Lock()
	changed := w.haveStatus && (available != w.available || stale != w.stale)
	w.available, w.stale, w.haveStatus = available, stale, true
	w.statusLock.Unlock()

	if changed {
		w.loggers.Warnf("Big segment store status changed (available: %t, stale: %t)", available, stale)
	}
}

func (w *StoreWrapper) isStale(synchronizedOn ldtime.UnixMillisecondTime) bool {
	if synchronizedOn == 0 {
		return true // store has never been synchronized
	}
	now := ldtime.UnixMillisNow()
	if now <= synchronizedOn {
		return false
	}
	return time.Duration(now-synchronizedOn)*time.Millisecond > w.staleAfter
}
