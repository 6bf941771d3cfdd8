package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nabilhamdi/waraqa/internal/config"
	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/models"
)

var _ core.Store = (*PostgresStore)(nil)

// PostgresStore implements core.Store on Postgres via the pgx stdlib
// driver. Cascades (file -> chunks, chat -> messages -> sources) are
// enforced by foreign keys in the schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	if cfg == nil || cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &PostgresStore{db: sqlDB}, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($6, now()))
	`
	_, err := s.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, nullTime(user.CreatedAt), nullTime(user.UpdatedAt))
	return err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := s.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`
	var u models.User
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ---- files ----

func (s *PostgresStore) CreateFile(ctx context.Context, file *models.File) error {
	if file == nil {
		return errors.New("nil file")
	}
	meta, err := marshalMeta(file.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO files
			(id, user_id, filename, original_filename, file_type, file_size, storage_path, status, error_message, metadata, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()), COALESCE($12, now()))
	`
	_, err = s.db.ExecContext(ctx, q,
		file.ID, file.UserID, file.Filename, file.OriginalFilename, file.FileType, file.FileSize,
		file.StoragePath, file.Status, file.ErrorMessage, meta, nullTime(file.CreatedAt), nullTime(file.UpdatedAt))
	return err
}

const fileColumns = `id, user_id, filename, original_filename, file_type, file_size, storage_path, status, error_message, metadata, created_at, updated_at`

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	var f models.File
	var meta []byte
	err := row.Scan(
		&f.ID, &f.UserID, &f.Filename, &f.OriginalFilename, &f.FileType, &f.FileSize,
		&f.StoragePath, &f.Status, &f.ErrorMessage, &meta, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Metadata = unmarshalMeta(meta)
	return &f, nil
}

func (s *PostgresStore) GetFileByID(ctx context.Context, id string) (*models.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

func (s *PostgresStore) ListFilesByUser(ctx context.Context, userID string, page, limit int) ([]models.File, int, error) {
	offset := pageOffset(page, limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateFileStatus flips the ingestion state. Terminal states never
// regress: updating a completed or errored file is a silent no-op.
func (s *PostgresStore) UpdateFileStatus(ctx context.Context, id, status, errorMessage string, metadata map[string]any) error {
	meta, err := marshalMeta(metadata)
	if err != nil {
		return err
	}
	const q = `
		UPDATE files
		SET status = $2, error_message = $3, metadata = COALESCE($4, metadata), updated_at = now()
		WHERE id = $1 AND status NOT IN ('completed', 'error')
	`
	res, err := s.db.ExecContext(ctx, q, id, status, errorMessage, meta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM files WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: file %s", core.ErrNotFound, id)
		}
	}
	return nil
}

func (s *PostgresStore) DeleteFile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: file %s", core.ErrNotFound, id)
	}
	return nil
}

// ---- file contents ----

// InsertFileContents writes chunks in a single transaction so a failed
// ingestion attempt leaves no partial rows behind.
func (s *PostgresStore) InsertFileContents(ctx context.Context, chunks []models.FileContent) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO file_contents (id, file_id, page_number, paragraph_number, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		meta, err := marshalMeta(ch.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.FileID, ch.PageNumber, ch.ParagraphNumber, ch.Content, meta, nullTime(ch.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListFileContents(ctx context.Context, fileID string) ([]models.FileContent, error) {
	const q = `
		SELECT id, file_id, page_number, paragraph_number, content, metadata, created_at
		FROM file_contents
		WHERE file_id = $1
		ORDER BY page_number ASC, paragraph_number ASC, created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, q, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FileContent
	for rows.Next() {
		var ch models.FileContent
		var meta []byte
		if err := rows.Scan(
			&ch.ID, &ch.FileID, &ch.PageNumber, &ch.ParagraphNumber, &ch.Content, &meta, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		ch.Metadata = unmarshalMeta(meta)
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ---- chats ----

func (s *PostgresStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	if chat == nil {
		return errors.New("nil chat")
	}
	settings, err := json.Marshal(chat.Settings)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO chats (id, user_id, title, file_id, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), COALESCE($7, now()))
	`
	_, err = s.db.ExecContext(ctx, q,
		chat.ID, chat.UserID, chat.Title, nullString(chat.FileID), settings, nullTime(chat.CreatedAt), nullTime(chat.UpdatedAt))
	return err
}

func (s *PostgresStore) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	const q = `
		SELECT id, user_id, title, file_id, settings, created_at, updated_at
		FROM chats WHERE id = $1
	`
	var c models.Chat
	var fileID sql.NullString
	var settings []byte
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.UserID, &c.Title, &fileID, &settings, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.FileID = fileID.String
	if err := json.Unmarshal(settings, &c.Settings); err != nil {
		return nil, fmt.Errorf("decode chat settings: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListChatsByUser(ctx context.Context, userID string, page, limit int) ([]core.ChatSummary, int, error) {
	offset := pageOffset(page, limit)
	const q = `
		SELECT c.id, c.user_id, c.title, c.file_id, c.settings, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id) AS message_count
		FROM chats c
		WHERE c.user_id = $1
		ORDER BY c.updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []core.ChatSummary
	for rows.Next() {
		var cs core.ChatSummary
		var fileID sql.NullString
		var settings []byte
		if err := rows.Scan(
			&cs.ID, &cs.UserID, &cs.Title, &fileID, &settings, &cs.CreatedAt, &cs.UpdatedAt, &cs.MessageCount,
		); err != nil {
			return nil, 0, err
		}
		cs.FileID = fileID.String
		if err := json.Unmarshal(settings, &cs.Settings); err != nil {
			return nil, 0, fmt.Errorf("decode chat settings: %w", err)
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) UpdateChat(ctx context.Context, chat *models.Chat) error {
	settings, err := json.Marshal(chat.Settings)
	if err != nil {
		return err
	}
	const q = `
		UPDATE chats SET title = $2, settings = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, chat.ID, chat.Title, settings)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: chat %s", core.ErrNotFound, chat.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: chat %s", core.ErrNotFound, id)
	}
	return nil
}

// ---- messages ----

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	meta, err := marshalMeta(msg.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO messages (id, chat_id, message_type, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	if _, err := s.db.ExecContext(ctx, q,
		msg.ID, msg.ChatID, msg.MessageType, msg.Content, meta, nullTime(msg.CreatedAt)); err != nil {
		return err
	}
	// Keep the chat's updated_at fresh so the list view sorts by activity.
	_, err = s.db.ExecContext(ctx, `UPDATE chats SET updated_at = now() WHERE id = $1`, msg.ChatID)
	return err
}

const messageColumns = `id, chat_id, message_type, content, metadata, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	var m models.Message
	var meta []byte
	if err := row.Scan(&m.ID, &m.ChatID, &m.MessageType, &m.Content, &meta, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Metadata = unmarshalMeta(meta)
	return &m, nil
}

func (s *PostgresStore) ListMessagesByChat(ctx context.Context, chatID string, page, limit int) ([]models.Message, int, error) {
	offset := pageOffset(page, limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`,
		chatID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE chat_id = $1`, chatID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	const q = `
		SELECT id, chat_id, message_type, content, metadata, created_at FROM (
			SELECT id, chat_id, message_type, content, metadata, created_at
			FROM messages WHERE chat_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, q, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertMessageSources(ctx context.Context, sources []models.MessageSource) error {
	if len(sources) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO message_sources (id, message_id, file_content_id, relevance_score)
		VALUES ($1, $2, $3, $4)
	`
	for _, src := range sources {
		if _, err := tx.ExecContext(ctx, q, src.ID, src.MessageID, src.FileContentID, src.RelevanceScore); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListMessageSources(ctx context.Context, messageID string) ([]core.SourceRef, error) {
	const q = `
		SELECT ms.file_content_id, f.original_filename, fc.page_number, fc.paragraph_number, ms.relevance_score
		FROM message_sources ms
		JOIN file_contents fc ON fc.id = ms.file_content_id
		JOIN files f ON f.id = fc.file_id
		WHERE ms.message_id = $1
		ORDER BY ms.relevance_score DESC
	`
	rows, err := s.db.QueryContext(ctx, q, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.SourceRef
	for rows.Next() {
		var ref core.SourceRef
		if err := rows.Scan(&ref.FileContentID, &ref.File, &ref.Page, &ref.Paragraph, &ref.RelevanceScore); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// ---- notifications ----

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return errors.New("nil notification")
	}
	const q = `
		INSERT INTO notifications (id, user_id, type, title, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	_, err := s.db.ExecContext(ctx, q, n.ID, n.UserID, n.Type, n.Title, n.Body, n.Read, nullTime(n.CreatedAt))
	return err
}

func (s *PostgresStore) ListNotificationsByUser(ctx context.Context, userID string, page, limit int) ([]models.Notification, int, error) {
	offset := pageOffset(page, limit)
	const q = `
		SELECT id, user_id, type, title, body, read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: notification %s", core.ErrNotFound, id)
	}
	return nil
}

// ---- helpers ----

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func marshalMeta(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalMeta(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
