package config

import "testing"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")

	cfg := LoadConfig()
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.MaxFileSizeMB != 50 {
		t.Errorf("MaxFileSizeMB = %d, want 50", cfg.MaxFileSizeMB)
	}
	if cfg.MaxChunkChars != 1000 {
		t.Errorf("MaxChunkChars = %d, want 1000", cfg.MaxChunkChars)
	}
	if cfg.AnswerLanguage != "Arabic" {
		t.Errorf("AnswerLanguage = %q, want Arabic", cfg.AnswerLanguage)
	}
	if len(cfg.AllowedFileTypes) != 5 {
		t.Errorf("AllowedFileTypes = %v", cfg.AllowedFileTypes)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_CHUNK_CHARS", "500")
	t.Setenv("ALLOWED_FILE_TYPES", ".txt,.md")
	t.Setenv("INGEST_WORKERS", "not-a-number")

	cfg := LoadConfig()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.MaxChunkChars != 500 {
		t.Errorf("MaxChunkChars = %d, want 500", cfg.MaxChunkChars)
	}
	if len(cfg.AllowedFileTypes) != 2 || cfg.AllowedFileTypes[0] != ".txt" {
		t.Errorf("AllowedFileTypes = %v", cfg.AllowedFileTypes)
	}
	// bad ints fall back to the default
	if cfg.IngestWorkers != 2 {
		t.Errorf("IngestWorkers = %d, want default 2", cfg.IngestWorkers)
	}
}
