package bolt

import (
	"encoding/binary"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/studywith/focuslink/internal/focus/domain"
	"github.com/studywith/focuslink/internal/focus/repos/alarms"
)

var (
	bucketAlarms  = []byte("alarms")
	bucketInstall = []byte("install")

	keyInstalledAt = []byte("installed_at")
	keyVersion     = []byte("version")
)

// alarmValueLen is period (8 bytes) followed by scheduled-at unix nanos (8 bytes).
const alarmValueLen = 16

// boltStore implements alarms.Store using bbolt.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (alarms.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open agent db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketAlarms); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketInstall)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

func (s *boltStore) PutAlarm(a domain.Alarm) error {
	if err := a.Validate(); err != nil {
		return err
	}
	val := make([]byte, alarmValueLen)
	binary.BigEndian.PutUint64(val[:8], uint64(a.Period))
	if !a.ScheduledAt.IsZero() {
		binary.BigEndian.PutUint64(val[8:], uint64(a.ScheduledAt.UnixNano()))
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAlarms).Put([]byte(a.Name), val)
	})
}

func (s *boltStore) DeleteAlarm(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAlarms).Delete([]byte(name))
	})
}

// Alarms returns every persisted alarm ordered by name. Records with a
// corrupt value are skipped.
func (s *boltStore) Alarms() ([]domain.Alarm, error) {
	var out []domain.Alarm
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAlarms).ForEach(func(k, v []byte) error {
			if len(v) != alarmValueLen {
				return nil
			}
			a := domain.Alarm{
				Name:   string(k),
				Period: time.Duration(binary.BigEndian.Uint64(v[:8])),
			}
			if ns := int64(binary.BigEndian.Uint64(v[8:])); ns != 0 {
				a.ScheduledAt = time.Unix(0, ns)
			}
			out = append(out, a)
			return nil
		})
	})
	return out, err
}

// MarkInstalled stores the install timestamp on first call and always
// records the running version.
func (s *boltStore) MarkInstalled(version string, at time.Time) (bool, error) {
	var first bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketInstall)
		if b.Get(keyInstalledAt) == nil {
			first = true
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, uint64(at.Unix()))
			if err := b.Put(keyInstalledAt, buf); err != nil {
				return err
			}
		}
		return b.Put(keyVersion, []byte(version))
	})
	return first, err
}

var _ alarms.Store = (*boltStore)(nil)
