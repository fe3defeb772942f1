package bus

import (
	"context"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

// Bus fans committed change events out to other processes.
type Bus interface {
	Publish(ctx context.Context, ev domainagg.ChangeEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev domainagg.ChangeEvent)) error
	Close() error
}
