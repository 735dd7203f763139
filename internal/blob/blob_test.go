package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocurate/internal/models"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "originals/p1.jpg", OriginalKey("p1"))
	assert.Equal(t, "variations/p1/v1.jpg", VariationKey("p1", "v1"))
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "originals/a.jpg", want: "originals/a.jpg"},
		{in: "/originals/a.jpg", want: "originals/a.jpg"},
		{in: "../../etc/passwd", want: "etc/passwd"},
		{in: "a/../../b", want: "b"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
	}
	for _, tt := range tests {
		got, err := cleanKey(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLocal_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	key := VariationKey("p1", "v1")
	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, key, []byte("jpeg bytes")))

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, s.Put(ctx, key, []byte("replaced")))
	data, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, key), ErrNotFound)
}

func TestLocal_StaysInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "../escape.jpg", []byte("x")))

	data, err := s.Get(ctx, "escape.jpg")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), models.BlobConfig{Driver: "s3"})
	assert.Error(t, err)
}
