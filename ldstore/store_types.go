package ldstore

// ItemDescriptor is a versioned item (or placeholder) storable in a DataStore.
type ItemDescriptor struct {
	// Version is the version number of this data, provided by the data source.
	Version int
	// Item is the data item, or nil if this is a placeholder for a deleted item.
	//
	// A placeholder is stored rather than actually removing the item, so that
	// out-of-order updates for a deleted item can still be rejected by version.
	Item interface{}
}

// NotFound is a convenience method to return a value indicating no such item exists.
func (i ItemDescriptor) NotFound() ItemDescriptor {
	return ItemDescriptor{Version: -1, Item: nil}
}

// KeyedItemDescriptor is a key-value pair containing an ItemDescriptor.
type KeyedItemDescriptor struct {
	// Key is the unique key of this item within its DataKind.
	Key string
	// Item is the versioned item.
	Item ItemDescriptor
}

// Collection is a list of data store items for a DataKind, used with DataStore.Init.
type Collection struct {
	Kind  DataKind
	Items []KeyedItemDescriptor
}

// DataStore is an interface for a store that holds feature flags and segments as
// ItemDescriptors, keyed by DataKind and item key.
//
// Implementations must be safe for concurrent access by multiple goroutines.
type DataStore interface {
	// Init overwrites the store's contents with a set of items for each collection.
	//
	// All previous data is discarded, regardless of versioning. The store is
	// considered initialized after this is called.
	Init(allData []Collection) error

	// Get retrieves an item from the specified collection, if available.
	//
	// If the key is unknown, it returns an ItemDescriptor with Version -1. If the item
	// was deleted, it returns the deleted-item placeholder with a nil Item; the caller
	// is responsible for treating that as "not found".
	Get(kind DataKind, key string) (ItemDescriptor, error)

	// GetAll retrieves all items from the specified collection, including any
	// deleted-item placeholders.
	GetAll(kind DataKind) ([]KeyedItemDescriptor, error)

	// Upsert updates or inserts an item in the specified collection. The update only
	// happens if the version is greater than the version of any current item with the
	// same key; the return value indicates whether it did.
	Upsert(kind DataKind, key string, item ItemDescriptor) (bool, error)

	// Delete stores a deleted-item placeholder for the specified key. Like Upsert,
	// the operation is version-gated and the return value indicates whether the
	// placeholder was stored.
	Delete(kind DataKind, key string, version int) (bool, error)

	// IsInitialized returns true if the data store contains a data set, meaning that
	// Init has been called at least once.
	IsInitialized() bool

	// Close releases any resources held by the store.
	Close() error
}
