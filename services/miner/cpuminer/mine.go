// Package cpuminer searches for a nonce that satisfies a block's proof of work.
package cpuminer

import (
	"context"
	"math"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"go.uber.org/atomic"
)

var totalHashes = atomic.NewUint64(0)

// TotalHashes returns the number of hashes computed by this process.
func TotalHashes() uint64 {
	return totalHashes.Load()
}

// Solution is the first nonce found for a block and the hash it produces.
type Solution struct {
	Nonce    uint64
	Hash     chainhash.Hash
	Attempts uint64
	Duration time.Duration
}

// Mine scans nonces from 0 upward until the block hash meets the target. It returns
// ErrContextCanceled as soon as ctx is done; no partial state is kept.
func Mine(ctx context.Context, block *model.Block) (*Solution, error) {
	initPrometheusMetrics()

	pow, err := model.NewProofOfWork(block)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var (
		nonce    uint64
		attempts uint64
		hash     chainhash.Hash
	)

	defer func() {
		totalHashes.Add(attempts)
		prometheusHashes.Add(float64(attempts))
	}()

miningLoop:
	for {
		select {
		case <-ctx.Done():
			prometheusMiningAborted.Inc()
			return nil, errors.NewContextCanceledError("mining block at height %d aborted after %d attempts", block.Height, attempts, ctx.Err())
		default:
			hash = pow.HashWithNonce(nonce)
			attempts++

			if pow.MeetsTarget(hash) {
				break miningLoop
			}

			if nonce == math.MaxUint64 {
				return nil, errors.NewThresholdExceededError("nonce space exhausted for block at height %d", block.Height)
			}

			nonce++
		}
	}

	duration := time.Since(start)

	prometheusBlocksFound.Inc()
	prometheusMineDuration.Observe(duration.Seconds())

	return &Solution{
		Nonce:    nonce,
		Hash:     hash,
		Attempts: attempts,
		Duration: duration,
	}, nil
}

// MineBlock runs Mine and stores the solution in block.
func MineBlock(ctx context.Context, block *model.Block) error {
	solution, err := Mine(ctx, block)
	if err != nil {
		return err
	}

	block.Nonce = solution.Nonce
	block.Hash = solution.Hash

	return nil
}
