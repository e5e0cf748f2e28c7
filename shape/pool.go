package shape

import (
	"github.com/wippyai/selfwire/errors"
)

// Pool is an append-only interning table from ID to Node. Ids are handed
// out in intern order, so a node's children always have smaller ids than
// the node itself when interned bottom-up.
//
// A new pool starts with Unit pre-interned as id 0. Unit doubles as the
// payload of payload-less enum variants and as the placeholder for inner
// shapes that were never observed (an option only seen as None, the
// element of an empty sequence).
type Pool struct {
	nodes []Node
	index map[string]ID
}

// NewPool creates a pool holding only the Unit node
func NewPool() *Pool {
	p := &Pool{index: make(map[string]ID)}
	p.Intern(Node{Kind: KindUnit})
	return p
}

// FromNodes builds a pool from an already-ordered node list, keeping the
// list's ids verbatim. Used when reconstructing a pool from decoded schema
// bytes; no deduplication is applied.
func FromNodes(nodes []Node) *Pool {
	p := &Pool{nodes: nodes, index: make(map[string]ID, len(nodes))}
	for i := range nodes {
		key := string(nodes[i].appendKey(nil))
		if _, ok := p.index[key]; !ok {
			p.index[key] = ID(i)
		}
	}
	return p
}

// Intern returns the id of a node structurally identical to n, allocating
// the next sequential id if none exists yet
func (p *Pool) Intern(n Node) ID {
	key := string(n.appendKey(nil))
	if id, ok := p.index[key]; ok {
		return id
	}
	id := ID(len(p.nodes))
	p.nodes = append(p.nodes, n)
	p.index[key] = id
	return id
}

// Resolve returns the node for id. An out of range id is only reachable
// through corrupt schema bytes.
func (p *Pool) Resolve(id ID) (*Node, error) {
	if int(id) >= len(p.nodes) {
		return nil, errors.IDOutOfRange(errors.PhaseDecode, uint32(id), uint32(len(p.nodes)))
	}
	return &p.nodes[id], nil
}

// Len returns the number of interned nodes
func (p *Pool) Len() int {
	return len(p.nodes)
}

// At returns the node at id without range checking helpers; it panics on
// an invalid id. Intended for iteration up to Len.
func (p *Pool) At(id ID) *Node {
	return &p.nodes[id]
}

// Equal reports whether two pools hold identical node lists
func (p *Pool) Equal(o *Pool) bool {
	if len(p.nodes) != len(o.nodes) {
		return false
	}
	for i := range p.nodes {
		if !p.nodes[i].Equal(&o.nodes[i]) {
			return false
		}
	}
	return true
}
