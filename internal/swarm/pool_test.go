package swarm

import "testing"

func TestRandomPoolAddSampleRemove(t *testing.T) {
	p := NewRandomPool()
	if !p.IsEmpty() {
		t.Fatal("new pool should be empty")
	}

	a := ServiceNode{Address: "https://1.1.1.1", Port: 1}
	b := ServiceNode{Address: "https://2.2.2.2", Port: 2}
	p.Add(a, b)

	if p.IsEmpty() {
		t.Fatal("pool should not be empty after Add")
	}
	if p.Len() != 2 {
		t.Fatalf("len = %d, want 2", p.Len())
	}

	node, ok := p.Sample()
	if !ok {
		t.Fatal("sample should succeed on non-empty pool")
	}
	if node != a && node != b {
		t.Fatalf("sampled node %v not in pool", node)
	}

	p.Remove(a)
	if p.Len() != 1 {
		t.Fatalf("len after remove = %d, want 1", p.Len())
	}
}

func TestRandomPoolSampleEmpty(t *testing.T) {
	p := NewRandomPool()
	if _, ok := p.Sample(); ok {
		t.Fatal("expected sample to fail on empty pool")
	}
}

func TestCryptoShuffleIsPermutation(t *testing.T) {
	nodes := []ServiceNode{
		{Address: "https://1.1.1.1", Port: 1},
		{Address: "https://2.2.2.2", Port: 2},
		{Address: "https://3.3.3.3", Port: 3},
	}
	shuffled := CryptoShuffle(nodes)
	if len(shuffled) != len(nodes) {
		t.Fatalf("len = %d, want %d", len(shuffled), len(nodes))
	}
	seen := make(map[ServiceNode]bool)
	for _, n := range shuffled {
		seen[n] = true
	}
	for _, n := range nodes {
		if !seen[n] {
			t.Fatalf("shuffled result missing %v", n)
		}
	}
	// Original slice must be untouched.
	if nodes[0].Port != 1 {
		t.Fatal("CryptoShuffle mutated its input")
	}
}
