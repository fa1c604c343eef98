package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	p := &Profile{Port: 8000, DSN: "postgres://localhost/ragline"}
	require.NoError(t, p.Validate())

	require.Equal(t, "dev", p.Mode)
	require.Equal(t, "uploads", p.UploadDir)
	require.Equal(t, "gpt-4o-mini", p.ChatModel)
	require.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	require.Equal(t, 1536, p.EmbeddingDimensions)
	require.Equal(t, 900*time.Second, p.ActivityTTL)
	require.Equal(t, 5, p.MaxToolIterations)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	require.Error(t, (&Profile{Port: 0, DSN: "x"}).Validate())
	require.Error(t, (&Profile{Port: 70000, DSN: "x"}).Validate())
	require.Error(t, (&Profile{Port: 8000}).Validate())
}

func TestListenAddr(t *testing.T) {
	p := &Profile{Addr: "127.0.0.1", Port: 8000}
	require.Equal(t, "127.0.0.1:8000", p.ListenAddr())

	p = &Profile{Port: 8000}
	require.Equal(t, ":8000", p.ListenAddr())
}

func TestIsDev(t *testing.T) {
	require.True(t, (&Profile{Mode: "dev"}).IsDev())
	require.False(t, (&Profile{Mode: "prod"}).IsDev())
}
