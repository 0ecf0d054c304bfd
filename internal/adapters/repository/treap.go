package repository

import (
	"math/rand/v2"
)

// Treap-based order-statistic multiset of float64 values.
//
// Ordering: value ASC. Equal values share one node with a count, so
// size(n) counts values, not nodes, and CountLess is O(log n).

type node struct {
	value float64
	count int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = n.count + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, v float64) *node {
	if n == nil {
		return &node{value: v, count: 1, prio: rand.Uint64(), size: 1} //nolint:gosec // balance only
	}
	switch {
	case v == n.value:
		n.count++
	case v < n.value:
		n.left = insert(n.left, v)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	default:
		n.right = insert(n.right, v)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// multiset is not safe for concurrent use; owners lock around it.
type multiset struct {
	root *node
}

func newMultiset(values []float64) *multiset {
	m := &multiset{}
	for _, v := range values {
		m.Insert(v)
	}
	return m
}

func (m *multiset) Insert(v float64) {
	m.root = insert(m.root, v)
}

func (m *multiset) Len() int {
	return nsize(m.root)
}

// CountLess returns how many values are strictly less than v.
func (m *multiset) CountLess(v float64) int {
	count := 0
	for n := m.root; n != nil; {
		if v <= n.value {
			n = n.left
			continue
		}
		count += nsize(n.left) + n.count
		n = n.right
	}
	return count
}
