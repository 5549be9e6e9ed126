package ldstore

import (
	"sync"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

// inMemoryDataStore is a memory based DataStore implementation, backed by a
// lock-striped map.
//
// These methods do not use defer to manage the lock, because defer adds a small but
// consistent overhead and Get/IsInitialized may be called with very high frequency.
// To make it safe to hold a lock without deferring the unlock, each method has only
// one return point and performs no operation that could panic while the lock is held.
type inMemoryDataStore struct {
	allData       map[DataKind]map[string]ItemDescriptor
	isInitialized bool
	sync.RWMutex
	loggers ldlog.Loggers
}

// NewInMemoryDataStore creates an instance of the in-memory data store.
func NewInMemoryDataStore(loggers ldlog.Loggers) DataStore {
	return &inMemoryDataStore{
		allData:       make(map[DataKind]map[string]ItemDescriptor),
		isInitialized: false,
		loggers:       loggers,
	}
}

func (store *inMemoryDataStore) Init(allData []Collection) error {
	store.Lock()

	store.allData = make(map[DataKind]map[string]ItemDescriptor)

	for _, coll := range allData {
		items := make(map[string]ItemDescriptor)
		for _, item := range coll.Items {
			items[item.Key] = item.Item
		}
		store.allData[coll.Kind] = items
	}

	store.isInitialized = true

	store.Unlock()

	return nil
}

func (store *inMemoryDataStore) Get(kind DataKind, key string) (ItemDescriptor, error) {
	store.RLock()

	var coll map[string]ItemDescriptor
	var item ItemDescriptor
	var ok bool
	coll, ok = store.allData[kind]
	if ok {
		item, ok = coll[key]
	}

	store.RUnlock()

	if ok {
		return item, nil
	}
	if store.loggers.IsDebugEnabled() {
		store.loggers.Debugf(`Key %s not found in "%s"`, key, kind)
	}
	return ItemDescriptor{}.NotFound(), nil
}

func (store *inMemoryDataStore) GetAll(kind DataKind) ([]KeyedItemDescriptor, error) {
	store.RLock()

	var itemsOut []KeyedItemDescriptor
	if itemsMap, ok := store.allData[kind]; ok {
		if len(itemsMap) > 0 {
			itemsOut = make([]KeyedItemDescriptor, 0, len(itemsMap))
			for key, item := range itemsMap {
				itemsOut = append(itemsOut, KeyedItemDescriptor{Key: key, Item: item})
			}
		}
	}

	store.RUnlock()

	return itemsOut, nil
}

func (store *inMemoryDataStore) Upsert(kind DataKind, key string, newItem ItemDescriptor) (bool, error) {
	store.Lock()

	var coll map[string]ItemDescriptor
	var ok bool
	shouldUpdate := true
	updated := false
	if coll, ok = store.allData[kind]; ok {
		if item, ok := coll[key]; ok {
			if item.Version >= newItem.Version {
				shouldUpdate = false
			}
		}
	} else {
		store.allData[kind] = map[string]ItemDescriptor{key: newItem}
		shouldUpdate = false // because we already initialized the map with the new item
		updated = true
	}
	if shouldUpdate {
		coll[key] = newItem
		updated = true
	}

	store.Unlock()

	return updated, nil
}

func (store *inMemoryDataStore) Delete(kind DataKind, key string, version int) (bool, error) {
	return store.Upsert(kind, key, ItemDescriptor{Version: version, Item: nil})
}

func (store *inMemoryDataStore) IsInitialized() bool {
	store.RLock()
	ret := store.isInitialized
	store.RUnlock()
	return ret
}

func (store *inMemoryDataStore) Close() error {
	return nil
}
