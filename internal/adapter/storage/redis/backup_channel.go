package redis

import (
	"context"
	"fmt"
	"time"

	"ecash-billing-engine/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const (
	fieldCiphertext = "ciphertext"
	fieldUpdatedAt  = "updated_at"
)

// BackupChannel implements ports.BackupChannel: one hash per logical name
// holding the latest ciphertext and its timestamp.
type BackupChannel struct {
	client goredis.UniversalClient
	prefix string
}

// NewBackupChannel creates a new Redis-backed backup channel.
func NewBackupChannel(client goredis.UniversalClient) *BackupChannel {
	return &BackupChannel{
		client: client,
		prefix: "backup:",
	}
}

// Put replaces the snapshot stored under name.
func (b *BackupChannel) Put(ctx context.Context, name string, blob ports.BackupBlob) error {
	err := b.client.HSet(ctx, b.prefix+name,
		fieldCiphertext, blob.Ciphertext,
		fieldUpdatedAt, blob.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis backup put: %w", err)
	}
	return nil
}

// Get returns the snapshot stored under name, or nil if none.
func (b *BackupChannel) Get(ctx context.Context, name string) (*ports.BackupBlob, error) {
	vals, err := b.client.HGetAll(ctx, b.prefix+name).Result()
	if err != nil {
		return nil, fmt.Errorf("redis backup get: %w", err)
	}
	ciphertext, ok := vals[fieldCiphertext]
	if !ok {
		return nil, nil
	}
	blob := &ports.BackupBlob{Ciphertext: []byte(ciphertext)}
	if ts, ok := vals[fieldUpdatedAt]; ok {
		updated, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("redis backup timestamp: %w", err)
		}
		blob.UpdatedAt = updated
	}
	return blob, nil
}
