package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "console output",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: "console",
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: &Config{
				Level:  "verbose",
				Format: "json",
				Output: "console",
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			config: &Config{
				Level:  "info",
				Format: "xml",
				Output: "console",
			},
			wantErr: true,
		},
		{
			name: "file output without filename",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "file",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestFileOutput(t *testing.T) {
	cfg := &Config{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File: FileConfig{
			Filename:   filepath.Join(t.TempDir(), "test.log"),
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
		},
	}

	log, err := New(cfg)
	require.NoError(t, err)

	log.Info("hello")
	require.NoError(t, log.Sync())
}

func TestWithContext(t *testing.T) {
	log, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, 42)

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.NotNil(t, log.WithContext(ctx))

	// a context without fields returns the same logger
	assert.Same(t, log, log.WithContext(context.Background()))
}

func TestFromContext(t *testing.T) {
	log, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := ToContext(context.Background(), log)
	assert.NotNil(t, FromContext(ctx))
	assert.NotNil(t, FromContext(nil))
}
