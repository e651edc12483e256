package readplan

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lizardfs/lizardfs-sub007/internal/parttype"
)

// FetchFunc performs one Operation against the named part and returns the
// bytes it read (length RequestSize) or an error.
type FetchFunc func(ctx context.Context, part parttype.Type, op Operation) ([]byte, error)

// Execute runs every Basic-wave operation of plan concurrently via fetch,
// following the teacher's goroutines-plus-errgroup concurrency idiom
// instead of hand-rolled channel fan-out. If any Basic op fails, the
// corresponding Additional op (if the plan has one for that part) is
// attempted next; Execute still returns the first error if no Additional
// fallback exists or the fallback also fails.
//
// The returned map has one entry per part type that was successfully
// read, keyed by part type; Apply looks parts up by the same key.
func Execute(ctx context.Context, plan *Plan, fetch FetchFunc) (map[parttype.Type][]byte, error) {
	return ExecuteWithLimiter(ctx, plan, fetch, nil)
}

// ExecuteWithLimiter is Execute with an optional token-bucket limiter
// throttling how fast Basic-wave requests are issued, so a caller can cap
// the request rate against a single chunkserver instead of letting every
// fetch of the wave fire at once. BuildPlan does not over-fetch (it does
// not consult BandwidthOveruse), so the limiter spaces out only the parts
// the plan strictly needs. A nil limiter disables throttling entirely,
// matching Execute's behavior.
func ExecuteWithLimiter(ctx context.Context, plan *Plan, fetch FetchFunc, limiter *rate.Limiter) (map[parttype.Type][]byte, error) {
	results := make(map[parttype.Type][]byte, len(plan.Basic))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for part, op := range plan.Basic {
		part, op := part, op
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			data, err := fetch(gctx, part, op)
			if err != nil {
				if fallback, ok := plan.Additional[part]; ok {
					data, err = fetch(gctx, part, fallback)
				}
			}
			if err != nil {
				return err
			}
			mu.Lock()
			results[part] = data
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Apply runs plan.PostProcessing against the part bytes Execute fetched,
// producing the client's requested byte range (spec §4.7's "output
// contract": bit-identical reconstruction whether or not recovery ran).
// It seeds a slot-index accumulator from parts as each step consumes it,
// so a recovered data slot is available to a later CopyInterleave step
// without ever round-tripping through the parts map.
func Apply(plan *Plan, parts map[parttype.Type][]byte) ([]byte, error) {
	slots := map[int][]byte{}

	for _, op := range plan.PostProcessing {
		for i, src := range op.Sources {
			idx := op.SourceIndices[i]
			if _, ok := slots[idx]; ok {
				continue
			}
			data, ok := parts[src]
			if !ok {
				return nil, fmt.Errorf("readplan: apply: missing fetched part %s", src)
			}
			slots[idx] = data
		}

		switch op.Kind {
		case XorRecover:
			if len(op.MissingIndices) != 1 {
				return nil, fmt.Errorf("readplan: apply: xor recovery expects exactly one missing part, got %d", len(op.MissingIndices))
			}
			slots[op.MissingIndices[0]] = xorRecoverOne(slots)

		case RSRecover:
			recovered, err := rsRecover(slots, op.MissingIndices, op.DataParts)
			if err != nil {
				return nil, fmt.Errorf("readplan: apply: rs recover: %w", err)
			}
			for idx, buf := range recovered {
				slots[idx] = buf
			}

		case CopyInterleave:
			return copyInterleave(slots, op), nil
		}
	}

	return nil, fmt.Errorf("readplan: apply: plan has no terminal CopyInterleave step")
}

// xorRecoverOne reconstructs the one missing xor data part: parity is the
// XOR of every data part, so XORing the parity block together with every
// other present data block cancels out every term but the missing one.
func xorRecoverOne(present map[int][]byte) []byte {
	var out []byte
	for _, b := range present {
		if out == nil {
			out = make([]byte, len(b))
		}
		for i, v := range b {
			out[i] ^= v
		}
	}
	return out
}

// copyInterleave re-assembles the client's requested byte range from
// slots 0..op.DataParts-1, each containing op.BlockSize bytes (a whole
// number of MFS blocks starting at part-local block op.PartFirstBlock).
// Chunk blocks are striped round-robin across data parts in global block
// order (spec §4.4), so block b belongs to slot b%DataParts at part-local
// block b/DataParts - PartFirstBlock.
func copyInterleave(slots map[int][]byte, op PostOp) []byte {
	out := make([]byte, op.SliceSize)
	sliceEnd := op.SliceOffset + op.SliceSize

	firstBlock := op.SliceOffset / parttype.MFSBlockSize
	lastBlock := (sliceEnd - 1) / parttype.MFSBlockSize

	for b := firstBlock; b <= lastBlock; b++ {
		slot := int(b % int64(op.DataParts))
		localBlock := b/int64(op.DataParts) - op.PartFirstBlock
		buf := slots[slot]

		blockStart := localBlock * parttype.MFSBlockSize
		blockEnd := blockStart + parttype.MFSBlockSize
		if blockEnd > int64(len(buf)) {
			blockEnd = int64(len(buf))
		}
		if blockStart >= blockEnd {
			continue
		}
		block := buf[blockStart:blockEnd]

		globalBlockStart := b * parttype.MFSBlockSize
		copyStart := globalBlockStart
		srcOffset := int64(0)
		if copyStart < op.SliceOffset {
			srcOffset = op.SliceOffset - copyStart
			copyStart = op.SliceOffset
		}
		copyEndAbs := globalBlockStart + int64(len(block))
		if copyEndAbs > sliceEnd {
			copyEndAbs = sliceEnd
		}
		if copyEndAbs <= copyStart {
			continue
		}
		n := copyEndAbs - copyStart
		outOffset := copyStart - op.SliceOffset
		copy(out[outOffset:outOffset+n], block[srcOffset:srcOffset+n])
	}

	return out
}
