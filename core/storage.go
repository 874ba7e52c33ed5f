// core/storage.go
package core

// Content-addressed blob gateway: pins and retrieves off-chain payloads
// that are too large for a StateValue Cell (CellBound) or that a contract
// only needs to reference by commitment - Ricardian-style deployment
// metadata, bulk proof artifacts, archived transcripts. Backed by a
// disk-resident LRU cache in front of an IPFS-compatible HTTP gateway, the
// same two-tier shape the arena uses for its in-memory cache over the KV
// backend (see arena.go).

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

const defaultCacheEntries = 10_000

type diskEntry struct {
	path string
	size int64
	at   time.Time
}

type diskLRU struct {
	mu    sync.Mutex
	dir   string
	max   int
	index map[string]*diskEntry
	order []*diskEntry
}

func newDiskLRU(dir string, maxEntries int) (*diskLRU, error) {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &diskLRU{dir: dir, max: maxEntries, index: make(map[string]*diskEntry)}, nil
}

func (l *diskLRU) put(cidStr string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ent, ok := l.index[cidStr]; ok {
		ent.at = time.Now()
		return nil
	}
	if len(l.index) >= l.max && len(l.order) > 0 {
		oldestIdx := 0
		for i, e := range l.order {
			if e.at.Before(l.order[oldestIdx].at) {
				oldestIdx = i
			}
		}
		oldest := l.order[oldestIdx]
		_ = os.Remove(oldest.path)
		delete(l.index, filepath.Base(oldest.path))
		l.order = append(l.order[:oldestIdx], l.order[oldestIdx+1:]...)
	}
	p := filepath.Join(l.dir, cidStr)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	ent := &diskEntry{path: p, size: int64(len(data)), at: time.Now()}
	l.index[cidStr] = ent
	l.order = append(l.order, ent)
	return nil
}

func (l *diskLRU) get(cidStr string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ent, ok := l.index[cidStr]
	if !ok {
		return nil, false
	}
	ent.at = time.Now()
	b, err := os.ReadFile(ent.path)
	if err != nil {
		return nil, false
	}
	return b, true
}

// StorageConfig configures the blob gateway's cache and upstream.
type StorageConfig struct {
	CacheDir         string
	CacheSizeEntries int
	IPFSGateway      string
	GatewayTimeout   time.Duration
}

// Storage is the content-addressed blob gateway: disk LRU cache in front
// of an IPFS-compatible HTTP endpoint, logging through both the teacher's
// logrus (structured request logs) and zap (hot-path sugar logger).
type Storage struct {
	cfg    *StorageConfig
	logger *logrus.Logger
	client *http.Client
	cache  *diskLRU

	pinEndpoint string
	getEndpoint string
}

func NewStorage(cfg *StorageConfig, lg *logrus.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, wrapErr(KindInvalidState, "storage_config_nil", ErrInvalidArgs)
	}
	cache, err := newDiskLRU(cfg.CacheDir, cfg.CacheSizeEntries)
	if err != nil {
		return nil, fmt.Errorf("storage: cache init: %w", err)
	}
	s := &Storage{
		cfg:         cfg,
		logger:      lg,
		client:      &http.Client{Timeout: cfg.GatewayTimeout},
		cache:       cache,
		pinEndpoint: cfg.IPFSGateway + "/api/v0/add?pin=true",
		getEndpoint: cfg.IPFSGateway + "/ipfs/",
	}
	lg.WithFields(logrus.Fields{"gateway": cfg.IPFSGateway, "cache": cfg.CacheDir}).Info("storage: initialized")
	return s, nil
}

// Pin uploads data to the gateway and returns its CIDv1 (raw codec,
// sha2-256) - the same digest scheme arena.go uses for storage keys, so a
// pinned blob's CID and a StorageKey derived from the same bytes always
// agree.
func (s *Storage) Pin(ctx context.Context, data []byte, payer Address) (string, int64, error) {
	encodedMH, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", 0, err
	}
	c := cid.NewCidV1(cid.Raw, encodedMH)
	cidStr := c.String()

	if _, ok := s.cache.get(cidStr); ok {
		return cidStr, int64(len(data)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pinEndpoint, bytes.NewReader(data))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", 0, fmt.Errorf("storage: gateway pin %d: %s", resp.StatusCode, string(b))
	}

	var meta struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", 0, fmt.Errorf("storage: decode pin response: %w", err)
	}
	if meta.Hash != cidStr {
		return "", 0, wrapErr(KindBackend, "cid_mismatch", nil)
	}

	_ = s.cache.put(cidStr, data)
	zap.L().Sugar().Infow("storage: pinned", "cid", cidStr, "bytes", len(data), "payer", payer.Short())
	return cidStr, int64(len(data)), nil
}

// Retrieve fetches data for cidStr, preferring the local cache and falling
// back to the gateway.
func (s *Storage) Retrieve(ctx context.Context, cidStr string) ([]byte, error) {
	if b, ok := s.cache.get(cidStr); ok {
		return b, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.getEndpoint+cidStr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 128))
		return nil, fmt.Errorf("storage: gateway fetch %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	_ = s.cache.put(cidStr, data)
	zap.L().Sugar().Infow("storage: retrieved", "cid", cidStr, "bytes", len(data))
	return data, nil
}
