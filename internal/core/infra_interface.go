package core

import (
	"context"

	"github.com/nabilhamdi/waraqa/internal/models"
)

// ChatSummary is the list-view shape for a chat.
type ChatSummary struct {
	models.Chat
	MessageCount int `json:"message_count"`
}

// SourceRef is the citation shape attached to a bot message: the chunk's
// provenance resolved through its parent file.
type SourceRef struct {
	FileContentID  string  `json:"file_content_id"`
	File           string  `json:"file"`
	Page           int     `json:"page"`
	Paragraph      int     `json:"paragraph"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Store defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB;
// an in-memory implementation backs tests and credential-less dev runs.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	CreateFile(ctx context.Context, file *models.File) error
	GetFileByID(ctx context.Context, id string) (*models.File, error)
	ListFilesByUser(ctx context.Context, userID string, page, limit int) ([]models.File, int, error)
	UpdateFileStatus(ctx context.Context, id, status, errorMessage string, metadata map[string]any) error
	DeleteFile(ctx context.Context, id string) error

	InsertFileContents(ctx context.Context, chunks []models.FileContent) error
	ListFileContents(ctx context.Context, fileID string) ([]models.FileContent, error)

	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	ListChatsByUser(ctx context.Context, userID string, page, limit int) ([]ChatSummary, int, error)
	UpdateChat(ctx context.Context, chat *models.Chat) error
	DeleteChat(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessagesByChat(ctx context.Context, chatID string, page, limit int) ([]models.Message, int, error)
	ListRecentMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error)
	InsertMessageSources(ctx context.Context, sources []models.MessageSource) error
	ListMessageSources(ctx context.Context, messageID string) ([]SourceRef, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string, page, limit int) ([]models.Notification, int, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error

	Close() error
}

// ObjectStore holds the raw bytes of uploaded files. The S3 implementation
// is the default; a local-disk one serves dev setups without AWS credentials.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
