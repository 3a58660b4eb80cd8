package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/mapview/internal/core/ports"
)

const profilesKey = "connection:profiles"

// ProfileRepository implements ports.ProfileRepository on top of the cache.
// The state is stored as one JSON document without expiry.
type ProfileRepository struct {
	cache *Cache
}

// NewProfileRepository creates a ProfileRepository sharing cache's client.
func NewProfileRepository(cache *Cache) *ProfileRepository {
	return &ProfileRepository{cache: cache}
}

// Load returns the stored state, or nil when nothing was saved yet.
func (r *ProfileRepository) Load(ctx context.Context) (*ports.ProfileState, error) {
	data, err := r.cache.Get(ctx, profilesKey)
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("valkey get profiles: %w", err)
	}
	return decodeState(data)
}

// Save replaces the stored state.
func (r *ProfileRepository) Save(ctx context.Context, state *ports.ProfileState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := r.cache.Set(ctx, profilesKey, data, 0); err != nil {
		return fmt.Errorf("valkey set profiles: %w", err)
	}
	return nil
}

func decodeState(data []byte) (*ports.ProfileState, error) {
	var state ports.ProfileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return &state, nil
}
