package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

// ErrSnapshotTooLarge is returned when a snapshot exceeds Config.MaxSize.
var ErrSnapshotTooLarge = errors.New("snapshot too large")

// Config controls where snapshots for an event are found.
type Config struct {
	Prefix string `mapstructure:"prefix"`
	Suffix string `mapstructure:"suffix"`
	// MaxSize caps how many bytes of a single snapshot are read.
	MaxSize int64 `mapstructure:"max_size"`
}

// StorageSource lists and loads snapshots kept in object storage. Snapshot
// keys look like {prefix}/{eventID}_{sequence}{suffix}; sequences must sort
// lexicographically in chronological order.
type StorageSource struct {
	store  storage.Storage
	config Config
}

// NewStorageSource creates a snapshot source over the given storage backend.
func NewStorageSource(store storage.Storage, cfg Config) *StorageSource {
	if cfg.Suffix == "" {
		cfg.Suffix = ".json"
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 4 << 20
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &StorageSource{store: store, config: cfg}
}

// List returns the sorted snapshot handles for an event. It returns
// ErrNoSnapshots when none exist.
func (s *StorageSource) List(ctx context.Context, eventID string) ([]string, error) {
	if eventID == "" {
		return nil, domain.ErrMissingEventID
	}

	files, err := s.store.List(ctx, s.config.Prefix, eventID+"_")
	if err != nil {
		return nil, fmt.Errorf("list snapshots for %s: %w", eventID, err)
	}

	handles := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f.Key, s.config.Suffix) {
			handles = append(handles, f.Key)
		}
	}

	if len(handles) == 0 {
		return nil, fmt.Errorf("%w for event %s", domain.ErrNoSnapshots, eventID)
	}

	sort.Strings(handles)
	return handles, nil
}

// Load reads the raw bytes of one snapshot.
func (s *StorageSource) Load(ctx context.Context, handle string) ([]byte, error) {
	r, err := s.store.Read(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", handle, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, s.config.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", handle, err)
	}
	if int64(len(data)) > s.config.MaxSize {
		return nil, fmt.Errorf("snapshot %s: %w", handle, ErrSnapshotTooLarge)
	}
	return data, nil
}
