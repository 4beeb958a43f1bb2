// Package codec implements the erasure codec collaborator (§4.4) on top of
// klauspost/reedsolomon, the direct Go analogue of the longhair Cauchy Reed-Solomon
// library the source this spec distills from uses.
package codec

import (
	"encoding/binary"

	"github.com/klauspost/reedsolomon"

	"github.com/agar-cache/agar/pkg/errors"
)

// ReedSolomon is a systematic (k,m) erasure codec: Encode splits data into k data
// shards plus m parity shards; Decode reconstructs the original bytes from any k of
// the k+m shards.
type ReedSolomon struct {
	k, m int
	enc  reedsolomon.Encoder
}

// New builds a ReedSolomon codec for the given (k, m), validating the bounds from
// the longhair.k / longhair.m configuration keys (0 < k < 256, 0 <= m <= 256-k).
func New(k, m int) (*ReedSolomon, error) {
	if k <= 0 || k >= 256 {
		return nil, errors.NewError(errors.ErrCodeConfig, "k must satisfy 0 < k < 256").
			WithComponent("codec").WithDetail("k", k)
	}
	if m < 0 || m > 256-k {
		return nil, errors.NewError(errors.ErrCodeConfig, "m must satisfy 0 <= m <= 256-k").
			WithComponent("codec").WithDetail("m", m)
	}

	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeCodec, "failed to construct reed-solomon encoder").
			WithComponent("codec").WithCause(err)
	}

	return &ReedSolomon{k: k, m: m, enc: enc}, nil
}

func (r *ReedSolomon) K() int { return r.k }
func (r *ReedSolomon) M() int { return r.m }

// Encode splits data into k equal-length data shards (zero-padded to a common
// length, with the original length prepended so Decode can trim the padding) plus
// m parity shards, returned as a map keyed by block index 0..k+m-1.
func (r *ReedSolomon) Encode(data []byte) (map[int][]byte, error) {
	prefixed := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(prefixed, uint64(len(data)))
	copy(prefixed[8:], data)

	shards, err := r.enc.Split(prefixed)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeCodec, "failed to split data into shards").
			WithComponent("codec").WithOperation("Encode").WithCause(err)
	}

	if err := r.enc.Encode(shards); err != nil {
		return nil, errors.NewError(errors.ErrCodeCodec, "failed to compute parity shards").
			WithComponent("codec").WithOperation("Encode").WithCause(err)
	}

	blocks := make(map[int][]byte, r.k+r.m)
	for i, shard := range shards {
		blocks[i] = shard
	}
	return blocks, nil
}

// Decode reconstructs the original bytes from a set of >= k valid, distinct blocks.
// No partial decoding: if fewer than k blocks are present, decoding fails.
func (r *ReedSolomon) Decode(blocks map[int][]byte) ([]byte, error) {
	present := 0
	for i := 0; i < r.k+r.m; i++ {
		if blocks[i] != nil {
			present++
		}
	}
	if present < r.k {
		return nil, errors.NewError(errors.ErrCodeDecodeFailed, "fewer than k blocks present").
			WithComponent("codec").WithOperation("Decode").
			WithDetail("present", present).WithDetail("k", r.k)
	}

	shards := make([][]byte, r.k+r.m)
	shardSize := 0
	for i := 0; i < r.k+r.m; i++ {
		if b, ok := blocks[i]; ok {
			shards[i] = b
			if shardSize == 0 {
				shardSize = len(b)
			}
		}
	}

	if err := r.enc.Reconstruct(shards); err != nil {
		return nil, errors.NewError(errors.ErrCodeDecodeFailed, "reconstruction failed").
			WithComponent("codec").WithOperation("Decode").WithCause(err)
	}

	buf := make([]byte, 0, shardSize*r.k)
	for i := 0; i < r.k; i++ {
		buf = append(buf, shards[i]...)
	}

	if len(buf) < 8 {
		return nil, errors.NewError(errors.ErrCodeDecodeFailed, "reconstructed buffer too short").
			WithComponent("codec").WithOperation("Decode")
	}

	length := binary.BigEndian.Uint64(buf[:8])
	if int(length) > len(buf)-8 {
		return nil, errors.NewError(errors.ErrCodeDecodeFailed, "encoded length exceeds reconstructed buffer").
			WithComponent("codec").WithOperation("Decode")
	}

	return buf[8 : 8+length], nil
}
