package evidence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/failure"
	"github.com/xkilldash9x/uiverify/internal/mocks"
)

func TestCapture(t *testing.T) {
	ctx := context.Background()

	t.Run("writes a png under the output dir", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		dir := t.TempDir()
		c := NewCapturer(zap.New(core), dir, false)
		page := mocks.NewFakePage()

		art, err := c.Capture(ctx, page, "shots/checkout_form.png", schemas.CaptureSuccess)
		require.NoError(t, err)

		want := filepath.Join(dir, "shots", "checkout_form.png")
		assert.Equal(t, want, art.Path)
		assert.Equal(t, schemas.CaptureSuccess, art.State)
		assert.Equal(t, len(mocks.PNG), art.Bytes)
		assert.False(t, art.CapturedAt.IsZero())

		got, err := os.ReadFile(want)
		require.NoError(t, err)
		assert.Equal(t, mocks.PNG, got)
		assert.Equal(t, 1, logs.FilterMessage("Screenshot taken successfully.").Len())
	})

	t.Run("overwrites an existing file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "error.png")
		require.NoError(t, os.WriteFile(path, []byte("stale contents that are longer than the png"), 0644))

		c := NewCapturer(zap.NewNop(), "", false)
		art, err := c.Capture(ctx, mocks.NewFakePage(), path, schemas.CaptureFailure)
		require.NoError(t, err)
		assert.Equal(t, path, art.Path)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, mocks.PNG, got)
	})

	t.Run("screenshot error", func(t *testing.T) {
		page := mocks.NewFakePage()
		page.ScreenshotErr = errors.New("target crashed")
		c := NewCapturer(zap.NewNop(), t.TempDir(), false)

		_, err := c.Capture(ctx, page, "x.png", schemas.CaptureFailure)
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Capture))
		assert.Contains(t, err.Error(), "target crashed")
	})

	t.Run("unwritable directory", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))
		c := NewCapturer(zap.NewNop(), dir, false)

		_, err := c.Capture(ctx, mocks.NewFakePage(), "blocker/nested/shot.png", schemas.CaptureSuccess)
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Capture))
		assert.Contains(t, err.Error(), "failed to create directory")
	})

	t.Run("empty path", func(t *testing.T) {
		c := NewCapturer(zap.NewNop(), t.TempDir(), false)
		_, err := c.Capture(ctx, mocks.NewFakePage(), "", schemas.CaptureSuccess)
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Capture))
	})

	t.Run("full page flag is forwarded", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("Screenshot", ctx, true).Return(mocks.PNG, nil).Once()
		c := NewCapturer(zap.NewNop(), t.TempDir(), true)

		_, err := c.Capture(ctx, page, "full.png", schemas.CaptureIntermediate)
		require.NoError(t, err)
		page.AssertExpectations(t)
	})
}

func TestResolve(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	c := NewCapturer(zap.NewNop(), "out", false)
	tests := []struct {
		in   string
		want string
	}{
		{in: "a.png", want: filepath.Join("out", "a.png")},
		{in: "./shots/../a.png", want: filepath.Join("out", "a.png")},
		{in: "/tmp/a.png", want: "/tmp/a.png"},
		{in: "~/a.png", want: filepath.Join(home, "a.png")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := c.Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
