package notify

import (
	"context"
	"fmt"

	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/models"
)

var _ core.Notifier = (*Service)(nil)

// Service persists notifications and pushes them over the hub.
type Service struct {
	store core.Store
	hub   *Hub
}

func NewService(store core.Store, hub *Hub) *Service {
	return &Service{store: store, hub: hub}
}

// Publish writes the notification row first; the websocket push is
// best-effort on top of it.
func (s *Service) Publish(ctx context.Context, n *models.Notification) error {
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	if s.hub != nil {
		s.hub.Push(n.UserID, map[string]any{
			"event":        "notification",
			"notification": n,
		})
	}
	return nil
}
