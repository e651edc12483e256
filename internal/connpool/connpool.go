// Package connpool implements a bounded, per-(ip, port) LIFO connection
// cache (spec §4.12): chunkservers and clients reuse recently-used TCP
// connections instead of reconnecting for every read.
//
// Grounded on spec §4.12's description of the original mapping plus
// gastrolog's constructor-with-defaults/dependency-injected-logger
// idiom (`internal/server`'s pooled-resource handling). The teacher has
// no connection pool of its own to adapt, so the mutex/LIFO-stack shape
// here is built directly from the spec text in that idiom.
package connpool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lizardfs/lizardfs-sub007/internal/logging"
)

// Conn is the minimal surface the pool needs from a pooled connection:
// callers provide their own net.Conn (or test double) satisfying it.
type Conn interface {
	Close() error
}

type key struct {
	ip   uint32
	port uint16
}

type entry struct {
	conn      Conn
	validTill time.Time
}

// Pool is a thread-safe (ip, port) -> LIFO<entry> connection cache.
// Its mutex is never held while closing a socket (spec §4.12/§5).
type Pool struct {
	mu    sync.Mutex
	stack map[key][]entry
	log   *slog.Logger
}

// New returns an empty pool. log may be nil (defaults to discard).
func New(log *slog.Logger) *Pool {
	log = logging.Default(log)
	return &Pool{
		stack: map[key][]entry{},
		log:   log.With("component", "connpool"),
	}
}

// Put records conn as available for reuse against (ip, port) for ttl,
// pushing it onto that address's LIFO stack.
func (p *Pool) Put(conn Conn, ip uint32, port uint16, ttl time.Duration, now time.Time) {
	k := key{ip, port}
	p.mu.Lock()
	p.stack[k] = append(p.stack[k], entry{conn: conn, validTill: now.Add(ttl)})
	p.mu.Unlock()
}

// Get pops the most recently pushed connection for (ip, port). Entries
// whose TTL has expired are discarded (and their sockets closed,
// without holding the pool's mutex) until a valid one is found or the
// stack is exhausted, in which case Get returns (nil, false).
func (p *Pool) Get(ip uint32, port uint16, now time.Time) (Conn, bool) {
	k := key{ip, port}

	for {
		p.mu.Lock()
		stack := p.stack[k]
		if len(stack) == 0 {
			p.mu.Unlock()
			return nil, false
		}
		top := stack[len(stack)-1]
		p.stack[k] = stack[:len(stack)-1]
		p.mu.Unlock()

		if now.Before(top.validTill) {
			return top.conn, true
		}
		p.log.Debug("discarding expired pooled connection", "ip", ip, "port", port)
		_ = top.conn.Close()
	}
}

// Len reports how many connections are currently pooled for (ip, port),
// for tests and diagnostics.
func (p *Pool) Len(ip uint32, port uint16) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stack[key{ip, port}])
}

// RunSweeper runs a background eviction loop, closing any connection
// whose TTL has lapsed across every pooled address every interval, until
// ctx is canceled. Call it inside an errgroup.Group.Go alongside the
// process's other background loops, following the teacher's
// goroutines-plus-errgroup shutdown style rather than an ad hoc done
// channel per loop.
func (p *Pool) RunSweeper(ctx context.Context, interval time.Duration, now func() time.Time) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.sweep(now())
		}
	}
}

// sweep closes every expired connection across all addresses. Sockets
// are closed after the mutex is released, matching Get's rule.
func (p *Pool) sweep(now time.Time) {
	var expired []Conn
	p.mu.Lock()
	for k, stack := range p.stack {
		kept := stack[:0]
		for _, e := range stack {
			if now.Before(e.validTill) {
				kept = append(kept, e)
			} else {
				expired = append(expired, e.conn)
			}
		}
		if len(kept) == 0 {
			delete(p.stack, k)
		} else {
			p.stack[k] = kept
		}
	}
	p.mu.Unlock()

	for _, c := range expired {
		_ = c.Close()
	}
}

// RunSweepers starts RunSweeper for each pool under one errgroup, stopping
// all of them as soon as any fails or ctx is canceled.
func RunSweepers(ctx context.Context, interval time.Duration, now func() time.Time, pools ...*Pool) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, pool := range pools {
		pool := pool
		g.Go(func() error {
			return pool.RunSweeper(gctx, interval, now)
		})
	}
	return g.Wait()
}
