package state

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("ledger")

// Keys of the ledger bucket, one JSON value per collection.
const (
	keyProducts          = "products"
	keyOrders            = "orders"
	keyPurchaseOrders    = "purchaseOrders"
	keyPendingInventory  = "pendingInventory"
	keyCompanyConfig     = "companyConfig"
	keySupplierMappings  = "supplierMappings"
	keyWattMappings      = "wattMappings"
	keyLowStockThreshold = "lowStockThreshold"
	keyUsers             = "users"
	keySession           = "session"
)

// BoltPersister stores State in a bbolt file.
type BoltPersister struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltPersister, error) {
	const op = "OpenBolt"

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open %s: %w", op, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to create bucket: %w", op, err)
	}
	return &BoltPersister{db: db}, nil
}

func (b *BoltPersister) fields(st *State) map[string]interface{} {
	return map[string]interface{}{
		keyProducts:          &st.Products,
		keyOrders:            &st.Orders,
		keyPurchaseOrders:    &st.PurchaseOrders,
		keyPendingInventory:  &st.PendingInventory,
		keyCompanyConfig:     &st.Company,
		keySupplierMappings:  &st.SupplierMappings,
		keyWattMappings:      &st.WattMappings,
		keyLowStockThreshold: &st.LowStockThreshold,
		keyUsers:             &st.Users,
		keySession:           &st.Session,
	}
}

// Load returns nil, nil for an empty database.
func (b *BoltPersister) Load() (*State, error) {
	const op = "Load"

	st := &State{}
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for key, dst := range b.fields(st) {
			raw := bucket.Get([]byte(key))
			if raw == nil {
				continue
			}
			found = true
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	return st, nil
}

// Save writes every collection in one transaction.
func (b *BoltPersister) Save(st *State) error {
	const op = "Save"

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for key, src := range b.fields(st) {
			raw, err := json.Marshal(src)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", key, err)
			}
			if err := bucket.Put([]byte(key), raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (b *BoltPersister) Close() error {
	return b.db.Close()
}
