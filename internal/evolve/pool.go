package evolve

import (
	"sync"

	"github.com/quantfall/xasim/internal/process"
)

// drawPool recycles innovation buffers across paths.
type drawPool struct {
	pool sync.Pool
	size int
}

func newDrawPool(n int) *drawPool {
	return &drawPool{
		size: n,
		pool: sync.Pool{
			New: func() interface{} {
				return make(process.State, n)
			},
		},
	}
}

func (p *drawPool) Get() process.State {
	return p.pool.Get().(process.State)
}

func (p *drawPool) Put(s process.State) {
	if len(s) == p.size {
		for i := range s {
			s[i] = 0
		}
		p.pool.Put(s)
	}
}
