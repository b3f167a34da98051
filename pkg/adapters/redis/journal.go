package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/picloud/picloud/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Journal implements ports.Journal as one Redis list per stream.
type Journal struct {
	client *backend.Client
	prefix string
}

// NewJournal creates a journal from an existing client. WithTTL is ignored.
func NewJournal(client *backend.Client, opts ...Option) *Journal {
	o := buildOptions(opts)
	return &Journal{
		client: client,
		prefix: o.prefix + "journal:",
	}
}

func (j *Journal) key(stream string) string {
	return j.prefix + stream
}

// Append pushes sig to the tail of the stream list.
func (j *Journal) Append(ctx context.Context, stream string, sig domain.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	if err := j.client.RPush(ctx, j.key(stream), data).Err(); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Read returns the whole stream in append order.
func (j *Journal) Read(ctx context.Context, stream string) ([]domain.Signal, error) {
	vals, err := j.client.LRange(ctx, j.key(stream), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}

	sigs := make([]domain.Signal, 0, len(vals))
	for i, val := range vals {
		var sig domain.Signal
		if err := json.Unmarshal([]byte(val), &sig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signal %d: %w", i, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// Truncate deletes the stream.
func (j *Journal) Truncate(ctx context.Context, stream string) error {
	return j.client.Del(ctx, j.key(stream)).Err()
}
