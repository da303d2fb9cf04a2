package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		filename string
		wantExt  string
		wantCT   string
		wantErr  error
	}{
		{"photo.JPG", ".jpg", "image/jpeg", nil},
		{"a.b.png", ".png", "image/png", nil},
		{"anim.gif", ".gif", "image/gif", nil},
		{"pic.webp", ".webp", "image/webp", nil},
		{"script.sh", "", "", ErrUnsupportedType},
		{"noext", "", "", ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			name, ct, err := objectName("image", tt.filename)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(name, "image-"))
			require.True(t, strings.HasSuffix(name, tt.wantExt))
			require.Equal(t, tt.wantCT, ct)
		})
	}
}

func TestLocalStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir, "/uploads", testLogger())
	require.NoError(t, err)

	path, err := store.Save(context.Background(), "avatar", "me.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "/uploads/avatar-"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(path, "/uploads/")))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	_, err = store.Save(context.Background(), "avatar", "me.exe", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLocalStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads", testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Save(ctx, "image", "car.png", strings.NewReader("png"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, path))
	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(path, "/uploads/")))
	require.ErrorIs(t, err, os.ErrNotExist)

	// already gone is fine
	require.NoError(t, store.Delete(ctx, path))

	for _, foreign := range []string{"/elsewhere/car.png", "/uploads/../etc/passwd", "/uploads/"} {
		require.ErrorIs(t, store.Delete(ctx, foreign), ErrForeignPath, foreign)
	}
}

type fakePutter struct {
	in      *s3.PutObjectInput
	deleted *s3.DeleteObjectInput
	err     error
}

func (f *fakePutter) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3StoreWithClient(putter, "ads", "http://minio:9000/ads", testLogger())

	url, err := store.Save(context.Background(), "image", "car.jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	require.Equal(t, "ads", *putter.in.Bucket)
	require.Equal(t, "image/jpeg", *putter.in.ContentType)
	require.Equal(t, "http://minio:9000/ads/"+*putter.in.Key, url)
}

func TestS3Store_SaveError(t *testing.T) {
	putter := &fakePutter{err: errors.New("bucket missing")}
	store := NewS3StoreWithClient(putter, "ads", "http://minio:9000/ads", testLogger())

	_, err := store.Save(context.Background(), "image", "car.png", strings.NewReader("png"))
	require.ErrorContains(t, err, "bucket missing")

	_, err = store.Save(context.Background(), "image", "car.txt", strings.NewReader("txt"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestS3Store_Delete(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3StoreWithClient(putter, "ads", "http://minio:9000/ads", testLogger())

	require.NoError(t, store.Delete(context.Background(), "http://minio:9000/ads/image-01.png"))
	require.Equal(t, "ads", *putter.deleted.Bucket)
	require.Equal(t, "image-01.png", *putter.deleted.Key)

	require.ErrorIs(t, store.Delete(context.Background(), "/uploads/image-01.png"), ErrForeignPath)
}
