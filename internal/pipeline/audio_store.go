package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/oklog/ulid/v2"

	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

// audioStore persists synthesized audio under time-sortable keys.
type audioStore struct {
	store  storage.Storage
	prefix string
}

func newAudioStore(store storage.Storage, prefix string) *audioStore {
	if prefix == "" {
		prefix = "audio"
	}
	return &audioStore{store: store, prefix: prefix}
}

// save writes WAV bytes and returns the storage key.
func (a *audioStore) save(ctx context.Context, wav []byte, style string) (string, error) {
	key := path.Join(a.prefix, fmt.Sprintf("%s_%s.wav", ulid.Make().String(), style))
	if err := a.store.Write(ctx, key, bytes.NewReader(wav), int64(len(wav)), "audio/wav"); err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}
	return key, nil
}
