// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package apa

import (
	"context"
	"encoding/binary"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/apa/encoding/hicslice"
	"golang.org/x/sync/errgroup"
)

const (
	// batchSize is the number of records sent to a worker at once.
	batchSize = 4096
	// batchQueueLen is the number of batches that can be queued per worker.
	batchQueueLen = 4
)

// shardRouter assigns chromosome pairs to workers.  All records of a pair go
// to the same worker.
type shardRouter struct {
	nShard int
	cache  map[uint32]int
}

func newShardRouter(nShard int) *shardRouter {
	return &shardRouter{nShard: nShard, cache: make(map[uint32]int)}
}

func (r *shardRouter) shard(chr1, chr2 hicslice.ChromKey) int {
	key := hicslice.PairKey(chr1, chr2)
	if s, ok := r.cache[key]; ok {
		return s
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	s := int(seahash.Sum64(buf[:]) % uint64(r.nShard))
	r.cache[key] = s
	return s
}

// streamParallel is Stream with one reader goroutine routing records to
// nWorker workers by chromosome pair.  Each worker owns private accumulators;
// they are summed once the stream is exhausted.  Since floating-point sums
// are then associated differently, results can differ from streamSerial in
// the last bits.
func (p *Processor) streamParallel(ctx context.Context, sc *hicslice.Scanner, nWorker int) error {
	workers := make([]*worker, nWorker)
	queues := make([]chan []hicslice.Record, nWorker)
	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		w := p.newWorker()
		q := make(chan []hicslice.Record, batchQueueLen)
		workers[i], queues[i] = w, q
		g.Go(func() error {
			for batch := range q {
				for j := range batch {
					w.process(&batch[j])
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		router := newShardRouter(nWorker)
		batches := make([][]hicslice.Record, nWorker)
		for i := range batches {
			batches[i] = make([]hicslice.Record, 0, batchSize)
		}
		send := func(i int) error {
			select {
			case queues[i] <- batches[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			batches[i] = make([]hicslice.Record, 0, batchSize)
			return nil
		}
		pr := newProgress(p.opts.ProgressInterval)
		done := gctx.Done()
		var (
			rec  hicslice.Record
			nRec int64
		)
		for sc.Scan(&rec) {
			select {
			case <-done:
				return gctx.Err()
			default:
			}
			nRec++
			pr.update(nRec)
			i := router.shard(rec.Chr1, rec.Chr2)
			batches[i] = append(batches[i], rec)
			if len(batches[i]) == batchSize {
				if err := send(i); err != nil {
					return err
				}
			}
		}
		if err := sc.Err(); err != nil {
			return err
		}
		for i := range batches {
			if len(batches[i]) > 0 {
				if err := send(i); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	for _, w := range workers {
		w.finishStats()
	}
	for _, w := range workers[1:] {
		if err := workers[0].merge(w); err != nil {
			return err
		}
	}
	p.main = workers[0]
	return nil
}
