package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// File statuses. A file never leaves a terminal state; a retry is a new upload.
const (
	FileStatusUploading  = "uploading"
	FileStatusProcessing = "processing"
	FileStatusCompleted  = "completed"
	FileStatusError      = "error"
)

// File represents one uploaded document.
type File struct {
	ID               string         `db:"id" json:"id"`
	UserID           string         `db:"user_id" json:"user_id"`
	Filename         string         `db:"filename" json:"filename"`
	OriginalFilename string         `db:"original_filename" json:"original_filename"`
	FileType         string         `db:"file_type" json:"file_type"` // lower-cased extension, e.g. ".pdf"
	FileSize         int64          `db:"file_size" json:"file_size"`
	StoragePath      string         `db:"storage_path" json:"-"` // object-store key
	Status           string         `db:"status" json:"status"`
	ErrorMessage     string         `db:"error_message" json:"error_message,omitempty"`
	Metadata         map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// FileContent is one retrievable chunk of extracted text.
// Chunks are immutable once written and are deleted with their parent file.
type FileContent struct {
	ID              string         `db:"id" json:"id"`
	FileID          string         `db:"file_id" json:"file_id"`
	PageNumber      int            `db:"page_number" json:"page_number"`
	ParagraphNumber int            `db:"paragraph_number" json:"paragraph_number"`
	Content         string         `db:"content" json:"content"`
	Metadata        map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// ChatSettings are the per-chat generation controls.
type ChatSettings struct {
	CreativityLevel int  `json:"creativity_level"`
	SearchMode      bool `json:"search_mode"`
}

// DefaultChatSettings mirrors what the UI starts a new chat with.
func DefaultChatSettings() ChatSettings {
	return ChatSettings{CreativityLevel: 50, SearchMode: false}
}

// Chat is a conversation session, optionally bound to one file.
type Chat struct {
	ID        string       `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"user_id"`
	Title     string       `db:"title" json:"title"`
	FileID    string       `db:"file_id" json:"file_id,omitempty"` // empty when the chat has no bound file
	Settings  ChatSettings `db:"settings" json:"settings"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Message types.
const (
	MessageTypeUser = "user"
	MessageTypeBot  = "bot"
)

// Message is one turn in a chat, ordered by creation time.
type Message struct {
	ID          string         `db:"id" json:"id"`
	ChatID      string         `db:"chat_id" json:"chat_id"`
	MessageType string         `db:"message_type" json:"message_type"`
	Content     string         `db:"content" json:"content"`
	Metadata    map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// MessageSource links a bot message to a chunk that grounded its answer.
type MessageSource struct {
	ID             string  `db:"id" json:"id"`
	MessageID      string  `db:"message_id" json:"message_id"`
	FileContentID  string  `db:"file_content_id" json:"file_content_id"`
	RelevanceScore float64 `db:"relevance_score" json:"relevance_score"`
}

// Notification is a user-facing event (e.g. a file finished processing),
// delivered over REST and pushed to open websocket connections.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Notification types emitted by the ingestion pipeline.
const (
	NotificationFileProcessed = "file_processed"
	NotificationFileFailed    = "file_failed"
)
