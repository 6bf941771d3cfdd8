package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/nabilhamdi/waraqa/internal/core"
	db "github.com/nabilhamdi/waraqa/internal/core/database"
	"github.com/nabilhamdi/waraqa/internal/models"
)

func seedChunks(t *testing.T, store core.Store, fileID string, contents []string) {
	t.Helper()
	rows := make([]models.FileContent, len(contents))
	for i, c := range contents {
		rows[i] = models.FileContent{
			ID:              uuid.NewString(),
			FileID:          fileID,
			PageNumber:      1,
			ParagraphNumber: i + 1,
			Content:         c,
		}
	}
	if err := store.InsertFileContents(context.Background(), rows); err != nil {
		t.Fatalf("InsertFileContents: %v", err)
	}
}

func TestKeywordRetriever_ScoresAndOrders(t *testing.T) {
	store := db.NewMemoryStore()
	fileID := uuid.NewString()
	seedChunks(t, store, fileID, []string{
		"the weather report mentions heavy rainfall tomorrow",   // rainfall + weather = 2
		"rainfall statistics for the last decade",               // rainfall = 1
		"weather rainfall climate overview for the whole region", // rainfall + weather + climate = 3
		"completely unrelated cooking recipe",                   // 0
	})

	r := NewKeywordRetriever(store)
	scored, err := r.Select(context.Background(), fileID, "weather rainfall climate")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if len(scored) != 3 {
		t.Fatalf("got %d chunks, want 3", len(scored))
	}
	wantScores := []float64{3, 2, 1}
	for i, sc := range scored {
		if sc.Score != wantScores[i] {
			t.Errorf("chunk %d score = %v, want %v", i, sc.Score, wantScores[i])
		}
		if sc.Score == 0 {
			t.Errorf("chunk %d has zero score in selection", i)
		}
	}
	if scored[0].Chunk.ParagraphNumber != 3 {
		t.Errorf("top chunk is paragraph %d, want 3", scored[0].Chunk.ParagraphNumber)
	}
}

func TestKeywordRetriever_TopThreeCap(t *testing.T) {
	store := db.NewMemoryStore()
	fileID := uuid.NewString()
	var contents []string
	for i := 0; i < 10; i++ {
		contents = append(contents, fmt.Sprintf("chunk %d mentions rainfall somewhere", i))
	}
	seedChunks(t, store, fileID, contents)

	r := NewKeywordRetriever(store)
	scored, err := r.Select(context.Background(), fileID, "rainfall")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(scored) != 3 {
		t.Errorf("got %d chunks, want the cap of 3", len(scored))
	}
	// Ties keep storage order.
	for i, sc := range scored {
		if sc.Chunk.ParagraphNumber != i+1 {
			t.Errorf("tied chunk %d is paragraph %d, want %d", i, sc.Chunk.ParagraphNumber, i+1)
		}
	}
}

func TestKeywordRetriever_NoMatches(t *testing.T) {
	store := db.NewMemoryStore()
	fileID := uuid.NewString()
	seedChunks(t, store, fileID, []string{"alpha beta", "gamma delta"})

	r := NewKeywordRetriever(store)
	scored, err := r.Select(context.Background(), fileID, "unrelated question entirely")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(scored) != 0 {
		t.Errorf("got %d chunks, want none", len(scored))
	}
}

func TestKeywordRetriever_ShortTokensIgnored(t *testing.T) {
	store := db.NewMemoryStore()
	fileID := uuid.NewString()
	seedChunks(t, store, fileID, []string{"the cat sat on a mat"})

	r := NewKeywordRetriever(store)
	// every token is 3 runes or fewer, so nothing qualifies as a keyword
	scored, err := r.Select(context.Background(), fileID, "the cat sat")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(scored) != 0 {
		t.Errorf("got %d chunks for a query of short tokens, want none", len(scored))
	}
}

func TestKeywordRetriever_CaseInsensitive(t *testing.T) {
	store := db.NewMemoryStore()
	fileID := uuid.NewString()
	seedChunks(t, store, fileID, []string{"The Quarterly REPORT covers revenue"})

	r := NewKeywordRetriever(store)
	scored, err := r.Select(context.Background(), fileID, "report REVENUE")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(scored) != 1 || scored[0].Score != 2 {
		t.Errorf("scored = %+v, want one chunk with score 2", scored)
	}
}

func TestTokenizeQuery(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 0},
		{"a an the", 0},
		{"weather", 1},
		{"Weather RAINFALL", 2},
		{"  spaced   tokens  ", 2},
	}
	for _, tt := range tests {
		if got := tokenizeQuery(tt.query); len(got) != tt.want {
			t.Errorf("tokenizeQuery(%q) = %v, want %d keywords", tt.query, got, tt.want)
		}
	}
}
