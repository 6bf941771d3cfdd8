package core

import (
	"context"

	"github.com/nabilhamdi/waraqa/internal/models"
)

// Notifier delivers a notification to its user: persisted for the REST
// feed and pushed to any open websocket connections.
type Notifier interface {
	Publish(ctx context.Context, n *models.Notification) error
}
