// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkle tree for committing
// to an ordered set of values inside a block header.
package merkle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() digest.Digest
	Equals(other T) bool
}

// Proof order values. A proof hash is either concatenated before or after
// the running hash.
const (
	ProofLeft  int64 = 0
	ProofRight int64 = 1
)

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint. Leaf order is significant.
type Tree[T Hashable[T]] struct {
	root  *Node[T]
	Leafs []*Node[T]
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface. An empty set of
// values produces an empty tree with the zero digest as its root.
func NewTree[T Hashable[T]](values []T) *Tree[T] {
	var t Tree[T]
	t.Generate(values)

	return &t
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch.
func (t *Tree[T]) Generate(values []T) {
	t.root = nil
	t.Leafs = nil

	if len(values) == 0 {
		return
	}

	leafs := make([]*Node[T], len(values))
	for i, value := range values {
		leafs[i] = &Node[T]{
			Hash:  value.Hash(),
			Value: value,
			leaf:  true,
		}
	}

	t.Leafs = leafs
	t.root = buildIntermediate(leafs)
}

// Rebuild is a helper function that will rebuild the tree reusing only the
// data that it currently holds in the leaves.
func (t *Tree[T]) Rebuild() {
	t.Generate(t.Values())
}

// Root returns the merkle root. An empty tree returns the zero digest and a
// single leaf tree returns the hash of that leaf.
func (t *Tree[T]) Root() digest.Digest {
	if t.root == nil {
		return digest.Zero
	}

	return t.root.Hash
}

// Len returns the number of leafs in the tree.
func (t *Tree[T]) Len() int {
	return len(t.Leafs)
}

// IsEmpty reports whether the tree was built without any values.
func (t *Tree[T]) IsEmpty() bool {
	return len(t.Leafs) == 0
}

// Values returns the values stored in the leafs, in order.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.Leafs))
	for i, node := range t.Leafs {
		values[i] = node.Value
	}

	return values
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. Process the hash of the value
// against the proof like this.
//
// For each proof hash p with order o:
//
//	o == ProofLeft:  h = HashPair(p, h)
//	o == ProofRight: h = HashPair(h, p)
//
// The final h should match the merkle root.
func (t *Tree[T]) Proof(data T) ([]digest.Digest, []int64, error) {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		var proof []digest.Digest
		var order []int64
		nodeParent := node.Parent

		for nodeParent != nil {
			if nodeParent.Left == node {
				proof = append(proof, nodeParent.Right.Hash)
				order = append(order, ProofRight)
			} else {
				proof = append(proof, nodeParent.Left.Hash)
				order = append(order, ProofLeft)
			}
			node = nodeParent
			nodeParent = nodeParent.Parent
		}

		return proof, order, nil
	}

	return nil, nil, errors.New("unable to find data in tree")
}

// Verify validates the hashes at each level of the tree and returns an error
// if the resulting hash at the root of the tree doesn't match the stored root.
func (t *Tree[T]) Verify() error {
	if t.root == nil {
		return nil
	}

	calculated := t.root.verify()
	if calculated != t.root.Hash {
		return errors.New("root hash invalid")
	}

	return nil
}

// VerifyData indicates whether a given piece of data is in the tree and if the
// hashes are valid for that data along the path to the root.
func (t *Tree[T]) VerifyData(data T) error {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		if node.Value.Hash() != node.Hash {
			return errors.New("leaf hash does not match data")
		}

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			if digest.HashPair(parent.Left.Hash, parent.Right.Hash) != parent.Hash {
				return errors.New("merkle root is not equivalent to the merkle root calculated on the critical path")
			}
		}

		return nil
	}

	return errors.New("unable to find data in tree")
}

// String returns a string representation of the tree. Only leaf nodes are
// included in the output.
func (t *Tree[T]) String() string {
	var b strings.Builder
	for _, l := range t.Leafs {
		b.WriteString(l.String())
		b.WriteString("\n")
	}

	return b.String()
}

// MarshalText implements the TextMarshaler interface and refuses to marshal
// the tree. Use the Values function to return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	return nil, errors.New("merkle tree can't be marshaled, use Values")
}

// =============================================================================

// VerifyProof recomputes the root from the leaf hash and a proof produced by
// Tree.Proof and compares it to the expected root.
func VerifyProof(leaf digest.Digest, proof []digest.Digest, order []int64, root digest.Digest) bool {
	if len(proof) != len(order) {
		return false
	}

	h := leaf
	for i, p := range proof {
		switch order[i] {
		case ProofLeft:
			h = digest.HashPair(p, h)
		case ProofRight:
			h = digest.HashPair(h, p)
		default:
			return false
		}
	}

	return h == root
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to its
// immediate relationships, a hash, the data if it is a leaf, and other metadata.
// When a level has an odd number of nodes the last node is both the Left and
// Right child of its parent.
type Node[T Hashable[T]] struct {
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   digest.Digest
	Value  T
	leaf   bool
}

// verify walks down the tree until hitting a leaf, calculating the hash at
// each level and returning the resulting hash of the node.
func (n *Node[T]) verify() digest.Digest {
	if n.leaf {
		return n.Value.Hash()
	}

	return digest.HashPair(n.Left.verify(), n.Right.verify())
}

// String returns a string representation of the node.
func (n *Node[T]) String() string {
	return fmt.Sprintf("%t %s %v", n.leaf, n.Hash, n.Value)
}

// =============================================================================

// buildIntermediate constructs the intermediate and root levels of the tree
// from a level of nodes and returns the root. A single node is its own root.
func buildIntermediate[T Hashable[T]](nl []*Node[T]) *Node[T] {
	for len(nl) > 1 {
		next := make([]*Node[T], 0, (len(nl)+1)/2)

		for i := 0; i < len(nl); i += 2 {
			left, right := nl[i], nl[i]
			if i+1 < len(nl) {
				right = nl[i+1]
			}

			n := Node[T]{
				Left:  left,
				Right: right,
				Hash:  digest.HashPair(left.Hash, right.Hash),
			}

			left.Parent = &n
			right.Parent = &n
			next = append(next, &n)
		}

		nl = next
	}

	return nl[0]
}
