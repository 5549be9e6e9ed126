package bigsegments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"

	"gopkg.in/launchdarkly/go-sdk-core.v1/evaluation"
)

// BigSegmentStore is the interface for reading big segment data from a database. The
// data is maintained by an external synchronizer; the SDK only ever reads it.
type BigSegmentStore interface {
	// GetMembership queries the inclusion and exclusion lists for the given user hash.
	// A user that appears in neither list produces an empty membership, not an error.
	GetMembership(userHash string) (evaluation.BigSegmentMembership, error)

	// GetSynchronizedOn returns the timestamp of the last successful synchronization,
	// or zero if the store has never been synchronized.
	GetSynchronizedOn() (ldtime.UnixMillisecondTime, error)

	// Close releases any resources held by the store.
	Close() error
}

func bigSegmentsIncludeKey(prefix string, userHashKey string) string {
	return fmt.Sprintf("%s:big_segment_include:%s", prefix, userHashKey)
}

func bigSegmentsExcludeKey(prefix string, userHashKey string) string {
	return fmt.Sprintf("%s:big_segment_exclude:%s", prefix, userHashKey)
}

func bigSegmentsSynchronizedKey(prefix string) string {
	return fmt.Sprintf("%s:big_segments_synchronized_on", prefix)
}

// redisBigSegmentStore implements BigSegmentStore for redis.
type redisBigSegmentStore struct {
	client  redis.UniversalClient
	prefix  string
	loggers ldlog.Loggers
}

// NewRedisBigSegmentStore creates a BigSegmentStore backed by redis. The URL uses the
// standard redis:// or rediss:// syntax. If checkOnStartup is true, the connection is
// verified with a ping before the store is returned.
func NewRedisBigSegmentStore(
	url string,
	prefix string,
	checkOnStartup bool,
	loggers ldlog.Loggers,
) (BigSegmentStore, error) {
	opts := redis.UniversalOptions{}

	parsed, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DB = parsed.DB
	opts.Addrs = []string{parsed.Addr}
	opts.Username = parsed.Username
	opts.Password = parsed.Password
	opts.TLSConfig = parsed.TLSConfig

	store := &redisBigSegmentStore{
		client:  redis.NewUniversalClient(&opts),
		prefix:  prefix,
		loggers: loggers,
	}

	if checkOnStartup {
		err := store.client.Ping(context.Background()).Err()
		if err != nil {
			return nil, err
		}
	}

	store.loggers.SetPrefix("RedisBigSegmentStore:")

	return store, nil
}

func (r *redisBigSegmentStore) GetMembership(userHash string) (evaluation.BigSegmentMembership, error) {
	ctx := context.Background()

	includedRefs, err := r.client.SMembers(ctx, bigSegmentsIncludeKey(r.prefix, userHash)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	excludedRefs, err := r.client.SMembers(ctx, bigSegmentsExcludeKey(r.prefix, userHash)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	return NewMembershipFromSegmentRefs(includedRefs, excludedRefs), nil
}

func (r *redisBigSegmentStore) GetSynchronizedOn() (ldtime.UnixMillisecondTime, error) {
	value, err := r.client.Get(context.Background(), bigSegmentsSynchronizedKey(r.prefix)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	unixMilliseconds, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return ldtime.UnixMillisecondTime(unixMilliseconds), nil
}

func (r *redisBigSegmentStore) Close() error {
	return r.client.Close()
}
