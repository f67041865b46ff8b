// Package id generates ticket folios. Snowflake IDs are time-ordered and
// unique across instances, so a folio doubles as a rough creation
// timestamp and is safe to assign at commit time without coordination.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the snowflake node. Call once at startup; the node ID
// distinguishes replicas.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new globally unique int64 ID.
func New() int64 {
	return node.Generate().Int64()
}
