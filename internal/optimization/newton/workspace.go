package newton

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// workspace holds the per-iteration buffers of a Newton run.
type workspace struct {
	n         int
	lu        mat.LU
	direction *mat.VecDense
	negGrad   *mat.VecDense
	next      *mat.VecDense
}

// workspacePool hands out workspaces keyed by dimension so that runs of a
// shared Minimizer do not reallocate their buffers.
type workspacePool struct {
	mu   sync.Mutex
	free map[int][]*workspace
}

func newWorkspacePool() *workspacePool {
	return &workspacePool{free: make(map[int][]*workspace)}
}

// get returns a workspace for dimension n from the pool or creates a new one.
func (p *workspacePool) get(n int) *workspace {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ws := p.free[n]; len(ws) > 0 {
		w := ws[len(ws)-1]
		p.free[n] = ws[:len(ws)-1]
		return w
	}
	return &workspace{
		n:         n,
		direction: mat.NewVecDense(n, nil),
		negGrad:   mat.NewVecDense(n, nil),
		next:      mat.NewVecDense(n, nil),
	}
}

// put returns w to the pool.
func (p *workspacePool) put(w *workspace) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free[w.n] = append(p.free[w.n], w)
}
