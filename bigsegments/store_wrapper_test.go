package bigsegments

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation"
)

const testUserKey = "userkey"

type fakeBigSegmentStore struct {
	memberships    map[string]evaluation.BigSegmentMembership
	membershipErr  error
	syncTime       ldtime.UnixMillisecondTime
	syncErr        error
	queryCount     int
	lastQueriedKey string
	closed         bool
	lock           sync.Mutex
}

func (f *fakeBigSegmentStore) GetMembership(userHash string) (evaluation.BigSegmentMembership, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.queryCount++
	f.lastQueriedKey = userHash
	if f.membershipErr != nil {
		return nil, f.membershipErr
	}
	return f.memberships[userHash], nil
}

func (f *fakeBigSegmentStore) GetSynchronizedOn() (ldtime.UnixMillisecondTime, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.syncTime, f.syncErr
}

func (f *fakeBigSegmentStore) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBigSegmentStore) getQueryCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.queryCount
}

func (f *fakeBigSegmentStore) getLastQueriedKey() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.lastQueriedKey
}

func (f *fakeBigSegmentStore) setSyncError(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.syncErr = err
}

func upToDateStore() *fakeBigSegmentStore {
	return &fakeBigSegmentStore{syncTime: ldtime.UnixMillisNow()}
}

func withWrapper(
	t *testing.T,
	store *fakeBigSegmentStore,
	config StoreWrapperConfig,
	action func(*StoreWrapper),
) {
	if config.StatusPollInterval == 0 {
		config.StatusPollInterval = time.Hour // tests drive polling explicitly
	}
	w, err := NewStoreWrapper(store, config, ldlog.NewDisabledLoggers())
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck
	action(w)
}

func TestWrapperReturnsMembershipWithHealthyStatus(t *testing.T) {
	store := upToDateStore()
	store.memberships = map[string]evaluation.BigSegmentMembership{
		HashForUserKey(testUserKey): NewMembershipFromSegmentRefs([]string{"seg1.g1"}, nil),
	}
	withWrapper(t, store, StoreWrapperConfig{}, func(w *StoreWrapper) {
		membership, status := w.GetUserMembership(testUserKey)
		assert.Equal(t, evaluation.BigSegmentsHealthy, status)
		require.NotNil(t, membership)
		value, found := membership.CheckMembership("seg1.g1")
		assert.True(t, found)
		assert.True(t, value)
		assert.Equal(t, HashForUserKey(testUserKey), store.getLastQueriedKey())
	})
}

func TestWrapperCachesMembershipPerUser(t *testing.T) {
	store := upToDateStore()
	withWrapper(t, store, StoreWrapperConfig{}, func(w *StoreWrapper) {
		_, _ = w.GetUserMembership(testUserKey)
		_, _ = w.GetUserMembership(testUserKey)
		assert.Equal(t, 1, store.getQueryCount())

		_, _ = w.GetUserMembership("otherkey")
		assert.Equal(t, 2, store.getQueryCount())
	})
}

func TestWrapperCacheEntriesExpire(t *testing.T) {
	store := upToDateStore()
	config := StoreWrapperConfig{UserCacheTime: 10 * time.Millisecond}
	withWrapper(t, store, config, func(w *StoreWrapper) {
		_, _ = w.GetUserMembership(testUserKey)
		assert.Equal(t, 1, store.getQueryCount())

		<-time.After(20 * time.Millisecond)

		_, _ = w.GetUserMembership(testUserKey)
		assert.Equal(t, 2, store.getQueryCount())
	})
}

func TestWrapperReturnsStoreErrorStatusForFailedQuery(t *testing.T) {
	store := upToDateStore()
	store.membershipErr = errors.New("sorry")
	withWrapper(t, store, StoreWrapperConfig{}, func(w *StoreWrapper) {
		membership, status := w.GetUserMembership(testUserKey)
		assert.Equal(t, evaluation.BigSegmentsStoreError, status)
		assert.Nil(t, membership)
	})
}

func TestWrapperReportsStaleStatusForOldData(t *testing.T) {
	store := &fakeBigSegmentStore{
		syncTime: ldtime.UnixMillisFromTime(time.Now().Add(-time.Hour)),
	}
	withWrapper(t, store, StoreWrapperConfig{}, func(w *StoreWrapper) {
		_, status := w.GetUserMembership(testUserKey)
		assert.Equal(t, evaluation.BigSegmentsStale, status)
	})
}

func TestWrapperReportsStaleStatusForNeverSynchronizedStore(t *testing.T) {
	store := &fakeBigSegmentStore{} // syncTime is zero
	withWrapper(t, store, StoreWrapperConfig{}, func(w *StoreWrapper) {
		_, status := w.GetUserMembership(testUserKey)
		assert.Equal(t, evaluation.BigSegmentsStale, status)
	})
}

func TestWrapperReportsStoreErrorStatusWhenMetadataIsUnavailable(t *testing.T) {
	store := upToDateStore()
	store.setSyncError(errors.New("sorry"))
	withWrapper(t, store, StoreWrapperConfig{}, func(w *StoreWrapper) {
		_, status := w.GetUserMembership(testUserKey)
		assert.Equal(t, evaluation.BigSegmentsStoreError, status)
	})
}

func TestWrapperStatusTracksChangesInStoreState(t *testing.T) {
	store := upToDateStore()
	withWrapper(t, store, StoreWrapperConfig{}, func(w *StoreWrapper) {
		_, status := w.GetUserMembership(testUserKey)
		assert.Equal(t, evaluation.BigSegmentsHealthy, status)

		store.setSyncError(errors.New("sorry"))
		w.pollStoreAndUpdateStatus()

		_, status = w.GetUserMembership(testUserKey)
		assert.Equal(t, evaluation.BigSegmentsStoreError, status)

		store.setSyncError(nil)
		w.pollStoreAndUpdateStatus()

		_, status = w.GetUserMembership(testUserKey)
		assert.Equal(t, evaluation.BigSegmentsHealthy, status)
	})
}

func TestWrapperCloseClosesStore(t *testing.T) {
	store := upToDateStore()
	w, err := NewStoreWrapper(store, StoreWrapperConfig{StatusPollInterval: time.Hour},
		ldlog.NewDisabledLoggers())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.True(t, store.closed)
	require.NoError(t, w.Close()) // safe to call again
}
