package cache

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var bucketCache = []byte("cache")

// BoltCache implements Cache on a BoltDB file, giving the email session
// slot durability across process restarts without touching the main
// relational database.
type BoltCache struct {
	db *bolt.DB
}

// NewBoltCache creates a BoltCache using the provided BoltDB instance.
// PRE: db is open
// POST: The cache bucket exists
func NewBoltCache(db *bolt.DB) (*BoltCache, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCache)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return &BoltCache{db: db}, nil
}

// Get returns the value for key.
// POST: Second return is false if the key is absent
func (c *BoltCache) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketCache).Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	return value, found, err
}

// Set stores a value under key, replacing any existing value.
func (c *BoltCache) Set(_ context.Context, key, value string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCache).Put([]byte(key), []byte(value))
	})
}

// Remove deletes a key. Removing an absent key is not an error.
func (c *BoltCache) Remove(_ context.Context, key string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCache).Delete([]byte(key))
	})
}
