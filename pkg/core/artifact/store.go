// Package artifact provides the content-addressed cache of generated audio.
// Artifacts outlive the call that produced them and are evicted by age; the
// index is sharded so the periodic sweep never stalls concurrent puts and
// gets behind a single store-wide lock.
package artifact

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-scale/talkline/pkg/core"
)

const shardCount = 16

// Artifact is the metadata of one generated audio file.
type Artifact struct {
	ID          string
	OwnerCallID string
	Producer    string
	Format      string
	CreatedAt   time.Time

	// Path is set when the store is directory-backed; data holds the bytes
	// otherwise.
	Path string
	data []byte
}

type shard struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact
}

// Store is a concurrency-safe audio artifact cache. With a directory
// configured, payloads live on disk and the index holds paths; without one,
// payloads stay in memory.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	shards [shardCount]*shard
}

// NewStore creates an artifact store. dir may be empty for a fully
// in-memory store; otherwise it is created if missing.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create artifact dir %q: %w", dir, err)
		}
	}
	st := &Store{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
	for i := range st.shards {
		st.shards[i] = &shard{artifacts: make(map[string]*Artifact)}
	}
	return st, nil
}

func (st *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return st.shards[h.Sum32()%shardCount]
}

// Put stores synthesized audio and returns the new artifact id.
func (st *Store) Put(data []byte, ownerCallID, producer, format string) (string, error) {
	id := uuid.NewString()
	a := &Artifact{
		ID:          id,
		OwnerCallID: ownerCallID,
		Producer:    producer,
		Format:      format,
		CreatedAt:   st.now(),
	}

	if st.dir != "" {
		a.Path = filepath.Join(st.dir, id+"."+format)
		if err := os.WriteFile(a.Path, data, 0o644); err != nil {
			return "", fmt.Errorf("write artifact %s: %w", id, err)
		}
	} else {
		a.data = data
	}

	sh := st.shardFor(id)
	sh.mu.Lock()
	sh.artifacts[id] = a
	sh.mu.Unlock()
	return id, nil
}

// Get returns artifact metadata, or a not found error for unknown or
// already evicted ids.
func (st *Store) Get(id string) (*Artifact, error) {
	sh := st.shardFor(id)
	sh.mu.RLock()
	a, ok := sh.artifacts[id]
	sh.mu.RUnlock()
	if !ok {
		return nil, core.NewArtifactNotFoundError(id)
	}
	return a, nil
}

// Open returns a reader over the artifact payload.
func (st *Store) Open(id string) (io.ReadCloser, *Artifact, error) {
	a, err := st.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if a.Path == "" {
		return io.NopCloser(bytes.NewReader(a.data)), a, nil
	}
	f, err := os.Open(a.Path)
	if err != nil {
		// Index entry without backing bytes; treat as evicted.
		return nil, nil, core.NewArtifactNotFoundError(id)
	}
	return f, a, nil
}

// Len returns the number of indexed artifacts.
func (st *Store) Len() int {
	n := 0
	for _, sh := range st.shards {
		sh.mu.RLock()
		n += len(sh.artifacts)
		sh.mu.RUnlock()
	}
	return n
}

// SweepExpired removes every artifact older than the retention window and
// returns the count removed. The index entry always goes; a failure to
// unlink the backing file is logged and not retried, since an orphaned file
// is a lesser failure than unbounded index growth.
func (st *Store) SweepExpired(now time.Time, retention time.Duration) int {
	cutoff := now.Add(-retention)
	removed := 0

	for _, sh := range st.shards {
		var expired []*Artifact
		sh.mu.Lock()
		for id, a := range sh.artifacts {
			if a.CreatedAt.Before(cutoff) {
				delete(sh.artifacts, id)
				expired = append(expired, a)
			}
		}
		sh.mu.Unlock()

		for _, a := range expired {
			removed++
			if a.Path == "" {
				continue
			}
			if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
				st.logger.Warn("failed to remove expired artifact file",
					"artifact_id", a.ID, "path", a.Path, "error", err)
			}
		}
	}
	return removed
}
