package proof

import "github.com/ledgerdb/ledgerdb-go/pkg/digest"

// VerifyDualProof checks that a target transaction legitimately succeeds a
// source transaction, combining header-hash checks, binary-linked-tree
// inclusion/consistency and a linear chain proof (spec.md §4.2).
//
// Callers are expected to have already handled the sourceId == 0 ("no
// prior trust") tie-break by skipping this call entirely; VerifyDualProof
// itself still honors it defensively.
func VerifyDualProof(p *DualProof, sourceID, targetID uint64, sourceAlh, targetAlh [32]byte) bool {
	if p == nil {
		return false
	}

	if sourceID == 0 {
		return true
	}

	if sourceID > targetID {
		return false
	}

	sourceHeaderAlh, err := digest.Alh(&p.SourceTxHeader)
	if err != nil || sourceHeaderAlh != sourceAlh {
		return false
	}

	targetHeaderAlh, err := digest.Alh(&p.TargetTxHeader)
	if err != nil || targetHeaderAlh != targetAlh {
		return false
	}

	if p.SourceTxHeader.ID != sourceID || p.TargetTxHeader.ID != targetID {
		return false
	}

	if sourceID == targetID {
		return sourceAlh == targetAlh
	}

	if sourceID < p.TargetTxHeader.BlTxID {
		if !VerifyInclusion(p.InclusionProof, sourceAlh, p.TargetTxHeader.BlRoot) {
			return false
		}

		if !VerifyConsistency(p.ConsistencyProof, p.SourceTxHeader.BlRoot, p.TargetTxHeader.BlRoot,
			p.SourceTxHeader.BlTxID, p.TargetTxHeader.BlTxID) {
			return false
		}
	}

	if p.TargetTxHeader.BlTxID > 0 {
		lastProof := p.LastInclusionProof
		lastProof.Leaf = int(p.TargetTxHeader.BlTxID - 1)
		lastProof.Width = int(p.TargetTxHeader.BlTxID)

		if !VerifyInclusion(lastProof, p.TargetBlTxAlh, p.TargetTxHeader.BlRoot) {
			return false
		}
	}

	linearStart := sourceID
	startAlh := sourceAlh
	if p.TargetTxHeader.BlTxID > linearStart {
		linearStart = p.TargetTxHeader.BlTxID
		startAlh = p.TargetBlTxAlh
	}

	if p.LinearProof.SourceTxID != linearStart || p.LinearProof.TargetTxID != targetID {
		return false
	}

	if !VerifyLinear(p.LinearProof, startAlh, targetAlh) {
		return false
	}

	if p.LinearAdvanceProof != nil {
		if !verifyLinearAdvance(p.LinearAdvanceProof, linearStart, targetID, startAlh, p.TargetTxHeader.BlTxID, p.TargetTxHeader.BlRoot) {
			return false
		}
	}

	return true
}

// verifyLinearAdvance validates the optional LinearAdvanceProof described in
// SPEC_FULL.md §3: each intermediate transaction between source and target
// must itself be included in the target's binary-linked tree. It
// reconstructs each intermediate alh by chaining LinearTerms from startAlh,
// the same fold VerifyLinear performs, then checks each one's inclusion
// proof against the target's blRoot.
func verifyLinearAdvance(p *LinearAdvanceProof, sourceID, targetID uint64, startAlh [32]byte, blRootSize uint64, blRoot [32]byte) bool {
	if targetID <= sourceID+1 {
		return len(p.LinearTerms) == 0 && len(p.InclusionProofs) == 0
	}

	expected := int(targetID - sourceID - 1)
	if len(p.InclusionProofs) != expected || len(p.LinearTerms) != expected {
		return false
	}

	acc := startAlh
	for i, ip := range p.InclusionProofs {
		txID := sourceID + 1 + uint64(i)

		acc = foldLinearTerm(txID, acc, p.LinearTerms[i])

		want := InclusionProof{Leaf: int(txID), Width: int(blRootSize), Terms: ip.Terms}
		if !VerifyInclusion(want, acc, blRoot) {
			return false
		}
	}

	return true
}
