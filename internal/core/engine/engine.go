package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/models"
)

// generationTimeout bounds the outbound completion call.
const generationTimeout = 30 * time.Second

// maxOutputTokens caps answer length to bound latency and cost.
const maxOutputTokens = 2000

// generationFallback is the bot message written when the gateway fails,
// so a user turn is never left without a reply.
const generationFallback = "Sorry, something went wrong while generating a response. Please try again."

// ChatEngine runs the retrieval-augmented send-message operation:
// persist the user turn, select grounding chunks, assemble the prompt,
// call the completion gateway, and persist the cited bot turn.
type ChatEngine struct {
	store     core.Store
	retriever core.Retriever
	gateway   core.CompletionGateway
	prompts   PromptAssembler
	modelName string
}

func NewChatEngine(store core.Store, retriever core.Retriever, gateway core.CompletionGateway, prompts PromptAssembler, modelName string) *ChatEngine {
	return &ChatEngine{
		store:     store,
		retriever: retriever,
		gateway:   gateway,
		prompts:   prompts,
		modelName: modelName,
	}
}

// SendResult is the outcome of one send-message operation.
type SendResult struct {
	UserMessage models.Message   `json:"userMessage"`
	BotMessage  models.Message   `json:"botMessage"`
	Sources     []core.SourceRef `json:"sources,omitempty"`
}

// SendMessage handles one user turn in a chat owned by userID.
//
// The user message is persisted first and survives any later failure.
// A gateway failure still writes a bot message with a fixed error text so
// the conversation stays usable. Caller cancellation before the gateway
// resolves persists no bot message and returns the context error.
func (e *ChatEngine) SendMessage(ctx context.Context, userID, chatID, content string) (*SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", core.ErrValidation)
	}

	chat, err := e.store.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if chat == nil || chat.UserID != userID {
		return nil, fmt.Errorf("%w: chat %s", core.ErrNotFound, chatID)
	}

	userMsg := models.Message{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		MessageType: models.MessageTypeUser,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	if err := e.store.CreateMessage(ctx, &userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	answer, scored, file, genErr := e.generate(ctx, chat, content)
	if genErr != nil {
		// Caller cancellation: stop without a bot message; the user
		// message stays persisted.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("engine: generation for chat %s failed: %v", chatID, genErr)
		answer = generationFallback
		scored = nil
	}

	botMsg := models.Message{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		MessageType: models.MessageTypeBot,
		Content:     answer,
		Metadata: map[string]any{
			"model":            e.modelName,
			"creativity_level": chat.Settings.CreativityLevel,
			"timestamp":        time.Now().Format(time.RFC3339),
		},
		CreatedAt: time.Now(),
	}
	if genErr != nil {
		botMsg.Metadata["error"] = true
	}
	if err := e.store.CreateMessage(ctx, &botMsg); err != nil {
		return nil, fmt.Errorf("save bot message: %w", err)
	}

	refs := FormatSources(file, scored)
	if len(refs) > 0 {
		sources := make([]models.MessageSource, len(refs))
		for i, ref := range refs {
			sources[i] = models.MessageSource{
				ID:             uuid.NewString(),
				MessageID:      botMsg.ID,
				FileContentID:  ref.FileContentID,
				RelevanceScore: ref.RelevanceScore,
			}
		}
		if err := e.store.InsertMessageSources(ctx, sources); err != nil {
			return nil, fmt.Errorf("save message sources: %w", err)
		}
	}

	return &SendResult{UserMessage: userMsg, BotMessage: botMsg, Sources: refs}, nil
}

// generate runs retrieval, prompt assembly, and the gateway call.
// History is read before the user turn was appended would be ideal, but
// the just-saved user message is excluded by matching its ID.
func (e *ChatEngine) generate(ctx context.Context, chat *models.Chat, question string) (string, []core.ScoredChunk, *models.File, error) {
	var (
		scored []core.ScoredChunk
		file   *models.File
		err    error
	)
	if chat.FileID != "" {
		file, err = e.store.GetFileByID(ctx, chat.FileID)
		if err != nil {
			return "", nil, nil, fmt.Errorf("load bound file: %w", err)
		}
		scored, err = e.retriever.Select(ctx, chat.FileID, question)
		if err != nil {
			return "", nil, nil, fmt.Errorf("select chunks: %w", err)
		}
	}

	history, err := e.store.ListRecentMessages(ctx, chat.ID, historyWindow+1)
	if err != nil {
		return "", nil, nil, fmt.Errorf("load history: %w", err)
	}
	// Drop the user turn persisted a moment ago; it enters the prompt as
	// the question line, not as history.
	if n := len(history); n > 0 && history[n-1].MessageType == models.MessageTypeUser && history[n-1].Content == question {
		history = history[:n-1]
	}

	prompt := e.prompts.Assemble(scored, history, question, chat.Settings.CreativityLevel)

	genCtx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	answer, err := e.gateway.Complete(genCtx, prompt, core.GenerationOptions{
		Temperature:     float32(chat.Settings.CreativityLevel) / 100,
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", core.ErrGenerationFailed, err)
	}
	return answer, scored, file, nil
}
