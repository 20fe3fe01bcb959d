package proof

import "crypto/sha256"

// nodePrefix distinguishes internal Merkle tree nodes from leaves in the
// hash domain, preventing second-preimage attacks across node kinds.
const nodePrefix = byte(1)

// hashNode combines two sibling digests into their parent, per the binary
// tree shape spec.md §4.2 describes for both the inclusion and consistency
// verifiers: SHA256(0x01 ‖ left ‖ right).
func hashNode(left, right [32]byte) [32]byte {
	buf := make([]byte, 0, 1+64)
	buf = append(buf, nodePrefix)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return sha256.Sum256(buf)
}
