// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

package merkle_test

import (
	"encoding/json"
	"testing"

	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/merkle"
)

// Data hashes a string value with the chain hash function.
type Data struct {
	x string
}

// Hash hashes the value.
func (d Data) Hash() digest.Digest {
	return digest.Hash([]byte(d.x))
}

// Equals tests for equality of two piece of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

// =============================================================================

func Test_EmptyTree(t *testing.T) {
	tree := merkle.NewTree[Data](nil)

	if !tree.IsEmpty() {
		t.Errorf("error: expected tree to be empty")
	}
	if tree.Len() != 0 {
		t.Errorf("error: expected zero leafs, got %d", tree.Len())
	}
	if tree.Root() != digest.Zero {
		t.Errorf("error: expected zero root, got %s", tree.Root())
	}
	if err := tree.Verify(); err != nil {
		t.Errorf("error: unexpected error: %v", err)
	}
}

func Test_SingleLeaf(t *testing.T) {
	leaf := digest.Digest{1}
	tree := merkle.NewTree([]digest.Digest{leaf})

	if tree.Root() != leaf {
		t.Errorf("error: expected root equal to the leaf %s, got %s", leaf, tree.Root())
	}
	if tree.Len() != 1 {
		t.Errorf("error: expected one leaf, got %d", tree.Len())
	}
	if tree.IsEmpty() {
		t.Errorf("error: expected tree not to be empty")
	}
}

func Test_TwoAndThreeLeaves(t *testing.T) {
	a := digest.Hash([]byte("a"))
	b := digest.Hash([]byte("b"))
	c := digest.Hash([]byte("c"))

	two := merkle.NewTree([]digest.Digest{a, b})
	if exp := digest.HashPair(a, b); two.Root() != exp {
		t.Errorf("error: expected root %s, got %s", exp, two.Root())
	}

	three := merkle.NewTree([]digest.Digest{a, b, c})
	exp := digest.HashPair(digest.HashPair(a, b), digest.HashPair(c, c))
	if three.Root() != exp {
		t.Errorf("error: expected root %s, got %s", exp, three.Root())
	}
}

func Test_OddLevelAboveLeaves(t *testing.T) {
	var leaves []digest.Digest
	for i := 0; i < 5; i++ {
		leaves = append(leaves, digest.Hash([]byte{byte(i)}))
	}

	l1 := []digest.Digest{
		digest.HashPair(leaves[0], leaves[1]),
		digest.HashPair(leaves[2], leaves[3]),
		digest.HashPair(leaves[4], leaves[4]),
	}
	l2 := []digest.Digest{
		digest.HashPair(l1[0], l1[1]),
		digest.HashPair(l1[2], l1[2]),
	}
	exp := digest.HashPair(l2[0], l2[1])

	tree := merkle.NewTree(leaves)
	if tree.Root() != exp {
		t.Errorf("error: expected root %s, got %s", exp, tree.Root())
	}
}

func Test_Deterministic(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree1 := merkle.NewTree(table[i].data)
		tree2 := merkle.NewTree(table[i].data)

		if tree1.Root() != tree2.Root() {
			t.Errorf("[case:%d] error: expected the same root, got %s and %s", table[i].testCaseId, tree1.Root(), tree2.Root())
		}
	}
}

func Test_OrderMatters(t *testing.T) {
	a := digest.Hash([]byte("a"))
	b := digest.Hash([]byte("b"))

	ab := merkle.NewTree([]digest.Digest{a, b})
	ba := merkle.NewTree([]digest.Digest{b, a})

	if ab.Root() == ba.Root() {
		t.Errorf("error: expected leaf order to change the root")
	}
}

func Test_RebuildTree(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree := merkle.NewTree(table[i].data)
		root := tree.Root()

		tree.Rebuild()
		if tree.Root() != root {
			t.Errorf("[case:%d] error: expected hash equal to %s got %s", table[i].testCaseId, root, tree.Root())
		}
	}
}

func Test_GenerateWith(t *testing.T) {
	for i := 0; i < len(table)-1; i++ {
		tree := merkle.NewTree(table[i].data)
		tree.Generate(table[i+1].data)

		exp := merkle.NewTree(table[i+1].data).Root()
		if tree.Root() != exp {
			t.Errorf("[case:%d] error: expected hash equal to %s got %s", table[i].testCaseId, exp, tree.Root())
		}
	}
}

func Test_Values(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree := merkle.NewTree(table[i].data)

		values := tree.Values()
		if len(values) != len(table[i].data) {
			t.Fatalf("[case:%d] error: expected %d values, got %d", table[i].testCaseId, len(table[i].data), len(values))
		}
		for j := range values {
			if !values[j].Equals(table[i].data[j]) {
				t.Errorf("[case:%d] error: expected value %d to be %v, got %v", table[i].testCaseId, j, table[i].data[j], values[j])
			}
		}
	}
}

func Test_VerifyTree(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree := merkle.NewTree(table[i].data)
		if err := tree.Verify(); err != nil {
			t.Errorf("[case:%d] error: expected tree to be valid: %v", table[i].testCaseId, err)
		}
	}
}

func Test_VerifyData(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree := merkle.NewTree(table[i].data)

		for _, d := range table[i].data {
			if err := tree.VerifyData(d); err != nil {
				t.Errorf("[case:%d] error: expected valid content %v: %v", table[i].testCaseId, d, err)
			}
		}

		if err := tree.VerifyData(table[i].notInContents); err == nil {
			t.Errorf("[case:%d] error: expected invalid content", table[i].testCaseId)
		}
	}
}

func Test_Proof(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree := merkle.NewTree(table[i].data)

		for _, d := range table[i].data {
			proof, order, err := tree.Proof(d)
			if err != nil {
				t.Fatalf("[case:%d] error: unexpected error: %v", table[i].testCaseId, err)
			}

			if !merkle.VerifyProof(d.Hash(), proof, order, tree.Root()) {
				t.Errorf("[case:%d] error: expected proof for %v to verify", table[i].testCaseId, d)
			}

			if merkle.VerifyProof(table[i].notInContents.Hash(), proof, order, tree.Root()) {
				t.Errorf("[case:%d] error: expected proof to fail for other content", table[i].testCaseId)
			}
		}

		if _, _, err := tree.Proof(table[i].notInContents); err == nil {
			t.Errorf("[case:%d] error: expected an error for content not in the tree", table[i].testCaseId)
		}
	}
}

func Test_MarshalText(t *testing.T) {
	tree := merkle.NewTree(table[0].data)

	if _, err := json.Marshal(tree); err == nil {
		t.Errorf("error: expected the tree to refuse marshaling")
	}

	if _, err := json.Marshal(tree.Values()); err != nil {
		t.Errorf("error: expected the values to marshal: %v", err)
	}
}

func Test_String(t *testing.T) {
	for i := 0; i < len(table); i++ {
		tree := merkle.NewTree(table[i].data)
		if tree.String() == "" {
			t.Errorf("[case:%d] error: expected not empty string", table[i].testCaseId)
		}
	}
}

// =============================================================================

var table = []struct {
	testCaseId    int
	data          []Data
	notInContents Data
}{
	{
		testCaseId:    1,
		data:          []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}, {x: "Hola"}},
		notInContents: Data{x: "NotInTestTable"},
	},
	{
		testCaseId:    2,
		data:          []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}},
		notInContents: Data{x: "NotInTestTable"},
	},
	{
		testCaseId:    3,
		data:          []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}, {x: "Greetings"}, {x: "Hola"}},
		notInContents: Data{x: "NotInTestTable"},
	},
	{
		testCaseId:    4,
		data:          []Data{{x: "123"}, {x: "234"}, {x: "345"}, {x: "456"}, {x: "1123"}, {x: "2234"}, {x: "3345"}, {x: "4456"}},
		notInContents: Data{x: "NotInTestTable"},
	},
	{
		testCaseId:    5,
		data:          []Data{{x: "123"}, {x: "234"}, {x: "345"}, {x: "456"}, {x: "1123"}, {x: "2234"}, {x: "3345"}, {x: "4456"}, {x: "5567"}},
		notInContents: Data{x: "NotInTestTable"},
	},
}
