package state

import "github.com/iotaledger/hive.go/kvstore/mapdb"

// NewMemoryHolder returns a Holder backed by an in-memory kvstore, the same
// backend the teacher uses for its own ephemeral key/value indices
// (e.g. components/debugapi's debug trees). Suitable for short-lived
// processes or tests; state does not survive a restart.
func NewMemoryHolder() Holder {
	return newKVHolder(mapdb.NewMapDB())
}
