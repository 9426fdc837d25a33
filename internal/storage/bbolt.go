package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // KDF params (salt, iterations), timestamps - unencrypted
	IndexBucket   = []byte("index")   // Node summaries for status - unencrypted
	NodesBucket   = []byte("nodes")   // Encrypted nodes
	PrivateBucket = []byte("private") // Encrypted password check
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigIters    = []byte("iterations")
	ConfigVaultID  = []byte("vault_id")
)

var ErrNotFound = errors.New("not found")

// Storage provides BBolt-based storage for a stash
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a stash database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Initialize creates the bucket structure for a new stash
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, NodesBucket, PrivateBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// SetSalt stores the KDF salt
func (s *Storage) SetSalt(salt []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigBucket).Put(ConfigSalt, salt)
	})
}

// GetSalt retrieves the KDF salt
func (s *Storage) GetSalt() ([]byte, error) {
	var salt []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		salt = config.Get(ConfigSalt)
		if salt == nil {
			return fmt.Errorf("salt %w", ErrNotFound)
		}
		// Make a copy since the slice is only valid during the transaction
		salt = append([]byte(nil), salt...)
		return nil
	})
	return salt, err
}

// SetIterations stores the KDF iterations
func (s *Storage) SetIterations(iterations uint32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		iters := make([]byte, 4)
		binary.BigEndian.PutUint32(iters, iterations)
		return tx.Bucket(ConfigBucket).Put(ConfigIters, iters)
	})
}

// GetIterations retrieves the KDF iterations
func (s *Storage) GetIterations() (uint32, error) {
	var iterations uint32
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		iters := config.Get(ConfigIters)
		if len(iters) != 4 {
			return fmt.Errorf("iterations %w", ErrNotFound)
		}
		iterations = binary.BigEndian.Uint32(iters)
		return nil
	})
	return iterations, err
}

// UpdateModified updates the last modified timestamp
func (s *Storage) UpdateModified() error {
	return s.db.Update(touch)
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time %w", ErrNotFound)
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetVaultID retrieves the vault ID from config bucket
func (s *Storage) GetVaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id %w", ErrNotFound)
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *Storage) GetOrCreateVaultID() (string, error) {
	vaultID, err := s.GetVaultID()
	if err == nil {
		return vaultID, nil
	}

	vaultID = uuid.NewString()
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigBucket).Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}

	return vaultID, nil
}

// Tx is a write transaction over the index and nodes buckets.
// Everything written through one Tx is committed together or not at all.
type Tx struct {
	tx *bolt.Tx
}

// PutIndex stores the public summary of a node
func (t *Tx) PutIndex(entry IndexEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return t.tx.Bucket(IndexBucket).Put([]byte(entry.ID), data)
}

// StoreNode stores an encrypted node under its id
func (t *Tx) StoreNode(id string, encrypted []byte) error {
	return t.tx.Bucket(NodesBucket).Put([]byte(id), encrypted)
}

// StorePrivate stores encrypted private data
func (t *Tx) StorePrivate(key string, encrypted []byte) error {
	return t.tx.Bucket(PrivateBucket).Put([]byte(key), encrypted)
}

// SetKDF replaces the KDF salt and iterations
func (t *Tx) SetKDF(salt []byte, iterations uint32) error {
	config := t.tx.Bucket(ConfigBucket)
	if err := config.Put(ConfigSalt, salt); err != nil {
		return err
	}
	iters := make([]byte, 4)
	binary.BigEndian.PutUint32(iters, iterations)
	return config.Put(ConfigIters, iters)
}

// Update runs fn in a single write transaction and bumps the modified
// timestamp. If fn returns an error nothing is written.
func (s *Storage) Update(fn func(*Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := fn(&Tx{tx: tx}); err != nil {
			return err
		}
		return touch(tx)
	})
}

// PutIndex stores the public summary of a node
func (s *Storage) PutIndex(entry IndexEntry) error {
	return s.Update(func(tx *Tx) error {
		return tx.PutIndex(entry)
	})
}

// GetIndex returns the summary of a node
func (s *Storage) GetIndex(id string) (*IndexEntry, error) {
	var entry *IndexEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		data := index.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("node %s %w", id, ErrNotFound)
		}
		entry = &IndexEntry{}
		return json.Unmarshal(data, entry)
	})
	return entry, err
}

// ListIndex returns all node summaries ordered by id
func (s *Storage) ListIndex() ([]IndexEntry, error) {
	var entries []IndexEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		return index.ForEach(func(k, v []byte) error {
			var entry IndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt index entry %s: %w", k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// StoreNode stores an encrypted node under its id
func (s *Storage) StoreNode(id string, encrypted []byte) error {
	return s.Update(func(tx *Tx) error {
		return tx.StoreNode(id, encrypted)
	})
}

// GetNode retrieves an encrypted node
func (s *Storage) GetNode(id string) ([]byte, error) {
	return s.get(NodesBucket, []byte(id), "node "+id)
}

// ListNodeIDs returns the ids of all stored nodes in key order
func (s *Storage) ListNodeIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		nodes := tx.Bucket(NodesBucket)
		if nodes == nil {
			return nil
		}
		return nodes.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// StorePrivate stores encrypted private data
func (s *Storage) StorePrivate(key string, encrypted []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(PrivateBucket).Put([]byte(key), encrypted)
	})
}

// GetPrivate retrieves encrypted private data
func (s *Storage) GetPrivate(key string) ([]byte, error) {
	return s.get(PrivateBucket, []byte(key), key)
}

func (s *Storage) get(bucket, key []byte, what string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return fmt.Errorf("%s bucket not found", bucket)
		}
		data = b.Get(key)
		if data == nil {
			return fmt.Errorf("%s %w", what, ErrNotFound)
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

// Compact creates a compacted copy of the database, removing unused space
// left behind by rewritten nodes.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
