package aggregates

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	PrefixIntervention        = "inv_"
	PrefixInterventionSpecies = "isp_"
	PrefixTree                = "tree_"
)

// IDGenerator mints the three identifier families an intervention carries.
type IDGenerator interface {
	UID(prefix string) string
	HID() string
	IdempotencyKey() string
}

type snowflakeIDs struct {
	node *snowflake.Node
}

// NewIDGenerator returns UIDs from uuid and base58 snowflake HIDs. node must be
// unique per running process (0-1023).
func NewIDGenerator(node int64) (IDGenerator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &snowflakeIDs{node: n}, nil
}

func (g *snowflakeIDs) UID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (g *snowflakeIDs) HID() string {
	return g.node.Generate().Base58()
}

func (g *snowflakeIDs) IdempotencyKey() string {
	return uuid.NewString()
}

func defaultIDGenerator() IDGenerator {
	g, err := NewIDGenerator(1)
	if err != nil {
		panic(err)
	}
	return g
}
