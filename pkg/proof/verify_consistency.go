package proof

// VerifyConsistency checks that newRoot (a tree of newSize leaves) is a
// legitimate append-only extension of oldRoot (a tree of oldSize leaves),
// following the standard RFC 6962 consistency-proof verification algorithm
// named in spec.md §4.2.
func VerifyConsistency(p ConsistencyProof, oldRoot, newRoot [32]byte, oldSize, newSize uint64) bool {
	if oldSize == 0 {
		// Nothing to be consistent with yet; any newSize is trivially fine
		// as long as no spurious terms were supplied.
		return len(p.Terms) == 0
	}

	if oldSize > newSize {
		return false
	}

	if oldSize == newSize {
		return len(p.Terms) == 0 && oldRoot == newRoot
	}

	terms := p.Terms
	fn := oldSize - 1
	sn := newSize - 1

	for fn%2 == 1 {
		fn >>= 1
		sn >>= 1
	}

	var fr, sr [32]byte
	var start int

	if fn > 0 {
		if len(terms) == 0 {
			return false
		}
		fr, sr = terms[0], terms[0]
		start = 1
	} else {
		fr, sr = oldRoot, oldRoot
		start = 0
	}

	for _, c := range terms[start:] {
		if sn == 0 {
			return false
		}

		if fn%2 == 1 || fn == sn {
			fr = hashNode(c, fr)
			sr = hashNode(c, sr)

			for fn != 0 && fn%2 == 0 {
				fn >>= 1
				sn >>= 1
			}
		} else {
			sr = hashNode(sr, c)
		}

		fn >>= 1
		sn >>= 1
	}

	if sn != 0 {
		return false
	}

	return fr == oldRoot && sr == newRoot
}
