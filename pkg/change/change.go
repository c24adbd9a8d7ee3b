// Package change decides whether two table snapshots should be treated as
// the same for re-render purposes.
//
// The rule is ShapeEquality: two tables are the same when their row count and
// column count match. Cell values and column names are deliberately not
// compared. Callers that need content equality use (*core.Table).Equal.
package change

import (
	"sync"

	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// ShapeEquality compares optional tables by shape only:
//   - both absent: same
//   - one absent: not same
//   - both present: same iff rows and columns are equal
type ShapeEquality struct{}

// Same applies the shape rule. A nil table is absent.
func (ShapeEquality) Same(a, b *core.Table) bool {
	sa, okA := Shape(a)
	sb, okB := Shape(b)
	if !okA || !okB {
		return okA == okB
	}
	return sa == sb
}

// Same is ShapeEquality{}.Same.
func Same(a, b *core.Table) bool {
	return ShapeEquality{}.Same(a, b)
}

// Shape returns t's shape, or false when t is absent.
func Shape(t *core.Table) (core.Shape, bool) {
	if t == nil {
		return core.Shape{}, false
	}
	return t.Shape(), true
}

type observation struct {
	shape   core.Shape
	present bool
}

// Detector remembers the last snapshot observed per dataset.
// The zero value is ready to use and safe for concurrent use.
type Detector struct {
	mu   sync.Mutex
	last map[core.DatasetID]observation
}

// Changed reports whether t differs from the previous snapshot of the dataset
// under ShapeEquality, and records t as the new previous snapshot. With no
// previous snapshot the dataset counts as absent.
func (d *Detector) Changed(id core.DatasetID, t *core.Table) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		d.last = make(map[core.DatasetID]observation)
	}

	prev := d.last[id]
	shape, present := Shape(t)
	d.last[id] = observation{shape: shape, present: present}

	if !prev.present || !present {
		return prev.present != present
	}
	return prev.shape != shape
}

// Forget drops the remembered snapshot of the dataset.
func (d *Detector) Forget(id core.DatasetID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.last, id)
}
