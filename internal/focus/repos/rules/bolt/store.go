package bolt

import (
	"encoding/binary"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/studywith/focuslink/internal/focus/repos/rules"
)

var (
	bucketRules = []byte("rules")
	bucketMeta  = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// boltStore implements rules.Store using bbolt. Rules are keyed by their
// big-endian position so a cursor walk returns them in saved order.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (rules.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open rules db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRules); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// Save drops and rebuilds the rules bucket in a single transaction, then
// bumps the version.
func (s *boltStore) Save(list []string, updatedAt time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketRules) != nil {
			if err := tx.DeleteBucket(bucketRules); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucketRules)
		if err != nil {
			return err
		}
		for i, r := range list {
			if err := b.Put(u64(uint64(i)), []byte(r)); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		var version uint64
		if v := meta.Get(keyVersion); len(v) == 8 {
			version = binary.BigEndian.Uint64(v)
		}
		if err := meta.Put(keyVersion, u64(version+1)); err != nil {
			return err
		}
		return meta.Put(keyUpdated, u64(uint64(updatedAt.Unix())))
	})
}

func (s *boltStore) Load() ([]string, error) {
	out := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRules)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			out = append(out, string(v))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *boltStore) Stats() rules.StoreStats {
	st := rules.StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketRules); b != nil {
			st.Count = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(keyVersion); len(v) == 8 {
				st.Version = binary.BigEndian.Uint64(v)
			}
			if v := b.Get(keyUpdated); len(v) == 8 {
				st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
			}
		}
		return nil
	})
	return st
}

func u64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

var _ rules.Store = (*boltStore)(nil)
