package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"deltaLens/internal/model"
	"deltaLens/internal/storage"
)

var bucketState = []byte("state")

// Store persists session and pool state in a BoltDB file.
type Store struct {
	db *bbolt.DB
}

// NewStore opens (and initialises) the database at path.
func NewStore(path string, options *bbolt.Options) (*Store, error) {
	if options == nil {
		options = &bbolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bolt dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NextSequence allocates from the bucket sequence, which survives restarts.
func (s *Store) NextSequence(ctx context.Context) (uint64, error) {
	var seq uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		seq, err = tx.Bucket(bucketState).NextSequence()
		return err
	})
	return seq, err
}

func (s *Store) SavePools(ctx context.Context, snapshot model.PoolSnapshot) error {
	if snapshot.Pools == nil {
		snapshot.Pools = []model.Pool{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal pools: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		if raw := bucket.Get(seqKey()); raw != nil {
			if err := storage.CheckSequence(binary.BigEndian.Uint64(raw), snapshot.Seq); err != nil {
				return err
			}
		}
		if err := bucket.Put([]byte(model.KeyPools), data); err != nil {
			return err
		}
		return bucket.Put(seqKey(), encodeSeq(snapshot.Seq))
	})
}

func (s *Store) LoadPools(ctx context.Context) (model.PoolSnapshot, error) {
	var snapshot model.PoolSnapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketState).Get([]byte(model.KeyPools))
		if raw == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrSchemaMismatch, err)
		}
		return storage.CheckSchema(snapshot)
	})
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	return snapshot, nil
}

func (s *Store) LoadSession(ctx context.Context) (model.Session, error) {
	var session model.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		session.WalletAddress = string(bucket.Get([]byte(model.KeyWalletAddress)))
		session.SelectedPool = string(bucket.Get([]byte(model.KeySelectedPool)))
		session.SelectedToken = string(bucket.Get([]byte(model.KeySelectedToken)))
		return nil
	})
	return session, err
}

func (s *Store) SaveSession(ctx context.Context, session model.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		values := map[string]string{
			model.KeyWalletAddress: session.WalletAddress,
			model.KeySelectedPool:  session.SelectedPool,
			model.KeySelectedToken: session.SelectedToken,
		}
		for key, value := range values {
			if err := bucket.Put([]byte(key), []byte(value)); err != nil {
				return err
			}
		}
		return nil
	})
}

func seqKey() []byte {
	return []byte("pools_seq")
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}
