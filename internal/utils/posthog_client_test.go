package utils_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestPosthogClientWrapper_DisabledIsNoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := utils.InitializePosthogClient("", logger)

	assert.False(t, w.IsInitialized())
	assert.NotPanics(t, func() {
		w.Enqueue("user-1", "login", map[string]any{"method": "password"})
		w.Close()
	})

	var nilWrapper *utils.PosthogClientWrapper
	assert.False(t, nilWrapper.IsInitialized())
	assert.NotPanics(t, func() { nilWrapper.Enqueue("x", "y", nil) })
}
