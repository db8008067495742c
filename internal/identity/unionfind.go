package identity

// unionFind is a disjoint-set forest over row indices with path halving.
type unionFind struct {
	parent []int
	rank   []uint8
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]uint8, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// tokenUnion unions every row that registers the same token.
type tokenUnion struct {
	uf    *unionFind
	first map[string]int
}

func newTokenUnion(n int) *tokenUnion {
	return &tokenUnion{uf: newUnionFind(n), first: make(map[string]int)}
}

func (tu *tokenUnion) add(row int, token string) {
	if prev, ok := tu.first[token]; ok {
		tu.uf.union(prev, row)
		return
	}
	tu.first[token] = row
}
