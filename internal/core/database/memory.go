package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/models"
)

var _ core.Store = (*MemoryStore)(nil)

// MemoryStore keeps all rows in-process. It backs tests and dev runs
// without a DATABASE_URL, with the same semantics as the Postgres store
// (owner scoping stays the caller's job, cascades happen on delete,
// terminal file statuses never regress).
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	emails        map[string]string // email -> user id
	files         map[string]*models.File
	fileOrder     []string
	contents      map[string][]models.FileContent // file id -> chunks in insert order
	contentByID   map[string]models.FileContent
	chats         map[string]*models.Chat
	chatOrder     []string
	messages      map[string][]models.Message // chat id -> messages in insert order
	sources       map[string][]models.MessageSource
	notifications map[string][]models.Notification // user id -> newest first
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*models.User),
		emails:        make(map[string]string),
		files:         make(map[string]*models.File),
		contents:      make(map[string][]models.FileContent),
		contentByID:   make(map[string]models.FileContent),
		chats:         make(map[string]*models.Chat),
		messages:      make(map[string][]models.Message),
		sources:       make(map[string][]models.MessageSource),
		notifications: make(map[string][]models.Notification),
	}
}

func (m *MemoryStore) Close() error { return nil }

// ---- users ----

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.emails[user.Email]; taken {
		return fmt.Errorf("email already registered: %s", user.Email)
	}
	u := *user
	m.users[u.ID] = &u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return nil, nil
	}
	u := *m.users[id]
	return &u, nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// ---- files ----

func (m *MemoryStore) CreateFile(ctx context.Context, file *models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := *file
	m.files[f.ID] = &f
	m.fileOrder = append(m.fileOrder, f.ID)
	return nil
}

func (m *MemoryStore) GetFileByID(ctx context.Context, id string) (*models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (m *MemoryStore) ListFilesByUser(ctx context.Context, userID string, page, limit int) ([]models.File, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []models.File
	// Newest first, like the Postgres ORDER BY created_at DESC.
	for i := len(m.fileOrder) - 1; i >= 0; i-- {
		if f, ok := m.files[m.fileOrder[i]]; ok && f.UserID == userID {
			all = append(all, *f)
		}
	}
	paged := paginate(all, page, limit)
	return paged, len(all), nil
}

func (m *MemoryStore) UpdateFileStatus(ctx context.Context, id, status, errorMessage string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return fmt.Errorf("%w: file %s", core.ErrNotFound, id)
	}
	if f.Status == models.FileStatusCompleted || f.Status == models.FileStatusError {
		return nil
	}
	f.Status = status
	f.ErrorMessage = errorMessage
	if metadata != nil {
		f.Metadata = metadata
	}
	f.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteFile(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return fmt.Errorf("%w: file %s", core.ErrNotFound, id)
	}
	for _, ch := range m.contents[id] {
		delete(m.contentByID, ch.ID)
	}
	delete(m.contents, id)
	delete(m.files, id)
	for _, c := range m.chats {
		if c.FileID == id {
			c.FileID = ""
		}
	}
	return nil
}

// ---- file contents ----

func (m *MemoryStore) InsertFileContents(ctx context.Context, chunks []models.FileContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range chunks {
		m.contents[ch.FileID] = append(m.contents[ch.FileID], ch)
		m.contentByID[ch.ID] = ch
	}
	return nil
}

func (m *MemoryStore) ListFileContents(ctx context.Context, fileID string) ([]models.FileContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.FileContent, len(m.contents[fileID]))
	copy(out, m.contents[fileID])
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].PageNumber != out[b].PageNumber {
			return out[a].PageNumber < out[b].PageNumber
		}
		return out[a].ParagraphNumber < out[b].ParagraphNumber
	})
	return out, nil
}

// ---- chats ----

func (m *MemoryStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *chat
	m.chats[c.ID] = &c
	m.chatOrder = append(m.chatOrder, c.ID)
	return nil
}

func (m *MemoryStore) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) ListChatsByUser(ctx context.Context, userID string, page, limit int) ([]core.ChatSummary, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []core.ChatSummary
	for _, id := range m.chatOrder {
		c, ok := m.chats[id]
		if !ok || c.UserID != userID {
			continue
		}
		all = append(all, core.ChatSummary{Chat: *c, MessageCount: len(m.messages[id])})
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].UpdatedAt.After(all[b].UpdatedAt)
	})
	paged := paginate(all, page, limit)
	return paged, len(all), nil
}

func (m *MemoryStore) UpdateChat(ctx context.Context, chat *models.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chat.ID]
	if !ok {
		return fmt.Errorf("%w: chat %s", core.ErrNotFound, chat.ID)
	}
	c.Title = chat.Title
	c.Settings = chat.Settings
	c.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteChat(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chats[id]; !ok {
		return fmt.Errorf("%w: chat %s", core.ErrNotFound, id)
	}
	for _, msg := range m.messages[id] {
		delete(m.sources, msg.ID)
	}
	delete(m.messages, id)
	delete(m.chats, id)
	return nil
}

// ---- messages ----

func (m *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], *msg)
	if c, ok := m.chats[msg.ChatID]; ok {
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MemoryStore) ListMessagesByChat(ctx context.Context, chatID string, page, limit int) ([]models.Message, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[chatID]
	paged := paginate(all, page, limit)
	out := make([]models.Message, len(paged))
	copy(out, paged)
	return out, len(all), nil
}

func (m *MemoryStore) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[chatID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]models.Message, len(all))
	copy(out, all)
	return out, nil
}

func (m *MemoryStore) InsertMessageSources(ctx context.Context, sources []models.MessageSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, src := range sources {
		m.sources[src.MessageID] = append(m.sources[src.MessageID], src)
	}
	return nil
}

func (m *MemoryStore) ListMessageSources(ctx context.Context, messageID string) ([]core.SourceRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.SourceRef
	for _, src := range m.sources[messageID] {
		ch, ok := m.contentByID[src.FileContentID]
		if !ok {
			continue
		}
		filename := ""
		if f, ok := m.files[ch.FileID]; ok {
			filename = f.OriginalFilename
		}
		out = append(out, core.SourceRef{
			FileContentID:  src.FileContentID,
			File:           filename,
			Page:           ch.PageNumber,
			Paragraph:      ch.ParagraphNumber,
			RelevanceScore: src.RelevanceScore,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].RelevanceScore > out[b].RelevanceScore
	})
	return out, nil
}

// ---- notifications ----

func (m *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.UserID] = append([]models.Notification{*n}, m.notifications[n.UserID]...)
	return nil
}

func (m *MemoryStore) ListNotificationsByUser(ctx context.Context, userID string, page, limit int) ([]models.Notification, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.notifications[userID]
	paged := paginate(all, page, limit)
	out := make([]models.Notification, len(paged))
	copy(out, paged)
	return out, len(all), nil
}

func (m *MemoryStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.notifications[userID]
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("%w: notification %s", core.ErrNotFound, id)
}

func paginate[T any](all []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return nil
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
