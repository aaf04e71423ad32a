package storagefactory

import (
	"context"
	"io"
	"strings"
	"testing"

	"pomelo/internal/config"
)

func TestNewStorage_Local(t *testing.T) {
	tmpDir := t.TempDir()
	baseURL := "http://localhost:8080/artifacts"

	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr bool
	}{
		{
			name: "valid local storage config",
			cfg: &config.StorageConfig{
				Type: "local",
				Local: &config.LocalConfig{
					BasePath:      tmpDir,
					BaseURL:       baseURL,
					PresignExpiry: 3600,
				},
			},
			wantErr: false,
		},
		{
			name: "missing local config",
			cfg: &config.StorageConfig{
				Type:  "local",
				Local: nil,
			},
			wantErr: true,
		},
		{
			name: "missing oss config",
			cfg: &config.StorageConfig{
				Type: "oss",
				OSS:  nil,
			},
			wantErr: true,
		},
		{
			name: "unsupported storage type",
			cfg: &config.StorageConfig{
				Type: "invalid",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, err := NewStorage(ctx, tt.cfg)

			if tt.wantErr {
				if err == nil {
					t.Errorf("NewStorage() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("NewStorage() unexpected error: %v", err)
				return
			}
			if store == nil {
				t.Errorf("NewStorage() expected storage instance, got nil")
			}
		})
	}
}

func TestLocalStorage_UploadDownload(t *testing.T) {
	tmpDir := t.TempDir()
	baseURL := "http://localhost:8080/artifacts"

	cfg := &config.StorageConfig{
		Type: "local",
		Local: &config.LocalConfig{
			BasePath:      tmpDir,
			BaseURL:       baseURL,
			PresignExpiry: 3600,
		},
	}

	ctx := context.Background()
	store, err := NewStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	testKey := "projects/p1/final.mp4"
	testContent := "fake mp4 bytes"

	url, err := store.Upload(ctx, testKey, strings.NewReader(testContent), "video/mp4")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.Contains(url, baseURL) {
		t.Errorf("Upload() url = %v, should contain %v", url, baseURL)
	}

	exists, err := store.Exists(ctx, testKey)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Errorf("Exists() = false, want true")
	}

	reader, err := store.Download(ctx, testKey)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != testContent {
		t.Errorf("Download() content = %v, want %v", string(got), testContent)
	}
}
