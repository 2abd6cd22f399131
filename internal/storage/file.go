package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"deltaLens/internal/model"
)

// lockRetry is the polling interval while waiting for the state lock.
const lockRetry = 10 * time.Millisecond

// FileStore keeps session and pool state in a single local JSON document.
// Every read-modify-write holds an OS lock on <path>.lock, so several
// processes may share one state file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileDocument struct {
	WalletAddress string          `json:"wallet_address"`
	SelectedPool  string          `json:"selected_pool"`
	SelectedToken string          `json:"selected_token"`
	LastSeq       uint64          `json:"last_seq"`
	Pools         json.RawMessage `json:"pools,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) NextSequence(ctx context.Context) (uint64, error) {
	unlock, err := s.lock(ctx, true)
	if err != nil {
		return 0, err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return 0, err
	}
	doc.LastSeq++
	if err := s.write(doc); err != nil {
		return 0, err
	}
	return doc.LastSeq, nil
}

func (s *FileStore) SavePools(ctx context.Context, snapshot model.PoolSnapshot) error {
	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if len(doc.Pools) > 0 {
		var current model.PoolSnapshot
		if err := json.Unmarshal(doc.Pools, &current); err == nil {
			if err := CheckSequence(current.Seq, snapshot.Seq); err != nil {
				return err
			}
		}
	}

	if snapshot.Pools == nil {
		snapshot.Pools = []model.Pool{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal pools: %w", err)
	}
	doc.Pools = data
	if snapshot.Seq > doc.LastSeq {
		doc.LastSeq = snapshot.Seq
	}
	return s.write(doc)
}

func (s *FileStore) LoadPools(ctx context.Context) (model.PoolSnapshot, error) {
	unlock, err := s.lock(ctx, false)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if len(doc.Pools) == 0 {
		return model.PoolSnapshot{}, ErrNotFound
	}
	var snapshot model.PoolSnapshot
	if err := json.Unmarshal(doc.Pools, &snapshot); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if err := CheckSchema(snapshot); err != nil {
		return model.PoolSnapshot{}, err
	}
	return snapshot, nil
}

func (s *FileStore) LoadSession(ctx context.Context) (model.Session, error) {
	unlock, err := s.lock(ctx, false)
	if err != nil {
		return model.Session{}, err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{
		WalletAddress: doc.WalletAddress,
		SelectedPool:  doc.SelectedPool,
		SelectedToken: doc.SelectedToken,
	}, nil
}

func (s *FileStore) SaveSession(ctx context.Context, session model.Session) error {
	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.WalletAddress = session.WalletAddress
	doc.SelectedPool = session.SelectedPool
	doc.SelectedToken = session.SelectedToken
	return s.write(doc)
}

func (s *FileStore) read() (fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileDocument{}, nil
		}
		return fileDocument{}, fmt.Errorf("read state: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("parse state: %w", err)
	}
	return doc, nil
}

// lock takes the in-process mutex and the OS file lock, exclusive for
// writers and shared for readers.
func (s *FileStore) lock(ctx context.Context, exclusive bool) (func(), error) {
	if err := ensureDir(s.path); err != nil {
		return nil, err
	}

	s.mu.Lock()
	fileLock := flock.New(s.path + ".lock")
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = fileLock.TryLockContext(ctx, lockRetry)
	} else {
		locked, err = fileLock.TryRLockContext(ctx, lockRetry)
	}
	if err != nil || !locked {
		s.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("state lock not acquired")
		}
		return nil, fmt.Errorf("lock state: %w", err)
	}

	return func() {
		_ = fileLock.Unlock()
		s.mu.Unlock()
	}, nil
}

// write replaces the state file through a uniquely named temp file.
func (s *FileStore) write(doc fileDocument) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create state tmp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return nil
}
