package proof

// buildMerkleTree and proofForLeaf construct a binary Merkle tree over
// leaves using the same duplicate-last-on-odd pairing rule VerifyInclusion
// expects, so tests can generate proofs without depending on a server.

func buildMerkleTree(leaves [][32]byte) [32]byte {
	level := leaves
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

func nextLevel(level [][32]byte) [][32]byte {
	next := make([][32]byte, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			next = append(next, hashNode(level[i], level[i+1]))
		} else {
			next = append(next, hashNode(level[i], level[i]))
		}
	}
	return next
}

func proofForLeaf(leaves [][32]byte, idx int) InclusionProof {
	terms := make([][32]byte, 0)
	level := leaves
	cur := idx

	for len(level) > 1 {
		switch {
		case cur%2 == 1:
			terms = append(terms, level[cur-1])
		case cur+1 < len(level):
			terms = append(terms, level[cur+1])
		}
		level = nextLevel(level)
		cur /= 2
	}

	return InclusionProof{Leaf: idx, Width: len(leaves), Terms: terms}
}
