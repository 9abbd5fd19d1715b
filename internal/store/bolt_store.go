package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/song"
)

var bucketSongs = []byte("songs")

// BoltStore is a RecordStore backed by a bbolt file. Records are JSON
// values keyed by big-endian IDs, so iteration follows ID order.
type BoltStore struct {
	db *bolt.DB
}

var _ RecordStore = (*BoltStore)(nil)

// NewBoltStore opens or creates the bbolt file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, sberrors.StoreUnavailable("failed to open bolt db", err).WithDetail("path", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSongs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, sberrors.StoreUnavailable("failed to create songs bucket", err)
	}
	return &BoltStore{db: db}, nil
}

// Backend returns "bolt".
func (s *BoltStore) Backend() string { return "bolt" }

// RunUnitOfWork runs fn inside one read-write bolt transaction.
func (s *BoltStore) RunUnitOfWork(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var fnErr error
	err := s.db.Update(func(tx *bolt.Tx) error {
		fnErr = fn(&boltTx{bucket: tx.Bucket(bucketSongs)})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return sberrors.StoreUnavailable("failed to commit transaction", err)
	}
	return nil
}

// Close closes the bolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltTx struct {
	bucket *bolt.Bucket
}

func boltKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func decodeBoltRecord(k, v []byte) *song.Record {
	r := &song.Record{}
	if err := json.Unmarshal(v, r); err != nil {
		r = &song.Record{Err: err}
	}
	r.ID = int64(binary.BigEndian.Uint64(k))
	return r
}

func (t *boltTx) FetchAll(ctx context.Context) ([]*song.Record, error) {
	var records []*song.Record
	err := t.bucket.ForEach(func(k, v []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		records = append(records, decodeBoltRecord(k, v))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (t *boltTx) FetchByID(ctx context.Context, id int64) (*song.Record, error) {
	v := t.bucket.Get(boltKey(id))
	if v == nil {
		return nil, sberrors.NotFound(id)
	}
	return decodeBoltRecord(boltKey(id), v), nil
}

func (t *boltTx) Save(ctx context.Context, r *song.Record) error {
	seq, err := t.bucket.NextSequence()
	if err != nil {
		return sberrors.StoreUnavailable("failed to allocate song ID", err)
	}
	r.ID = int64(seq)
	return t.put(r)
}

func (t *boltTx) Update(ctx context.Context, r *song.Record) error {
	if t.bucket.Get(boltKey(r.ID)) == nil {
		return sberrors.NotFound(r.ID)
	}
	return t.put(r)
}

func (t *boltTx) Delete(ctx context.Context, r *song.Record) error {
	key := boltKey(r.ID)
	if t.bucket.Get(key) == nil {
		return sberrors.NotFound(r.ID)
	}
	if err := t.bucket.Delete(key); err != nil {
		return sberrors.StoreUnavailable("failed to delete song", err)
	}
	return nil
}

func (t *boltTx) put(r *song.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return sberrors.InternalError("failed to encode song", err)
	}
	if err := t.bucket.Put(boltKey(r.ID), data); err != nil {
		return sberrors.StoreUnavailable("failed to write song", err)
	}
	return nil
}
