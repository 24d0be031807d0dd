package redis

import (
	"context"
	"hash/crc32"
	"hash/fnv"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/newsfeed/domain"
)

const (
	KeyArticleBloom = "bloom:article:ids"

	// DefaultBloomHashes gives about 1% false positives at 10 bits per id
	DefaultBloomHashes = 7
)

// redisBloomRepo keeps a bloom filter of article ids in one redis bitmap.
// Ids are never removed, so a deleted article still passes Exists and is
// rejected later by the repository.
type redisBloomRepo struct {
	client *redis.Client
	bits   uint64
	hashes int
}

var _ domain.BloomRepository = (*redisBloomRepo)(nil)

func NewRedisBloomRepo(client *redis.Client, bitSize uint64) *redisBloomRepo {
	if bitSize == 0 {
		bitSize = 1 << 20
	}
	return &redisBloomRepo{
		client: client,
		bits:   bitSize,
		hashes: DefaultBloomHashes,
	}
}

// offsets uses double hashing, bit i = h1 + i*h2
func (r *redisBloomRepo) offsets(id string) []int64 {
	data := []byte(id)

	h := fnv.New64a()
	_, _ = h.Write(data)
	h1 := h.Sum64()
	h2 := uint64(crc32.ChecksumIEEE(data)) | 1

	res := make([]int64, r.hashes)
	for i := range res {
		res[i] = int64((h1 + uint64(i)*h2) % r.bits)
	}
	return res
}

func (r *redisBloomRepo) Add(ctx context.Context, id string) error {
	return r.BulkAdd(ctx, []string{id})
}

func (r *redisBloomRepo) BulkAdd(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, id := range ids {
		for _, off := range r.offsets(id) {
			pipe.SetBit(ctx, KeyArticleBloom, off, 1)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisBloomRepo) Exists(ctx context.Context, id string) (bool, error) {
	pipe := r.client.Pipeline()
	cmds := make([]*redis.IntCmd, 0, r.hashes)
	for _, off := range r.offsets(id) {
		cmds = append(cmds, pipe.GetBit(ctx, KeyArticleBloom, off))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	for _, cmd := range cmds {
		if cmd.Val() == 0 {
			return false, nil
		}
	}
	return true, nil
}
