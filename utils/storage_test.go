package utils_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-rewards-system/utils"
)

func fileHeader(t *testing.T, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="video"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["video"][0]
}

func TestDiskStorageUpload(t *testing.T) {
	root := t.TempDir()
	d, err := utils.NewDiskStorage(root, "http://localhost:5200/uploads/")
	require.NoError(t, err)

	url, err := d.Upload(context.Background(), "videos/u1/clip.mp4", fileHeader(t, "clip.mp4", "video/mp4", []byte("frames")))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5200/uploads/videos/u1/clip.mp4", url)

	got, err := os.ReadFile(filepath.Join(root, "videos", "u1", "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "frames", string(got))
}

func TestDiskStorageRejectsEscapingKeys(t *testing.T) {
	d, err := utils.NewDiskStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	fh := fileHeader(t, "clip.mp4", "video/mp4", []byte("x"))

	for _, key := range []string{"../clip.mp4", "/etc/clip.mp4", "..", "."} {
		_, err := d.Upload(context.Background(), key, fh)
		assert.Error(t, err, key)
	}
}

func TestR2StorageUpload(t *testing.T) {
	var (
		mu          sync.Mutex
		gotPath     string
		gotBody     []byte
		contentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	r2, err := utils.NewR2Storage(context.Background(), utils.R2Config{
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		Bucket:          "videos",
		CDNBaseURL:      "https://cdn.example.com/",
		Endpoint:        srv.URL,
	})
	require.NoError(t, err)

	url, err := r2.Upload(context.Background(), "campaigns/u1/clip.mp4", fileHeader(t, "clip.mp4", "video/mp4", []byte("frames")))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/campaigns/u1/clip.mp4", url)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/videos/campaigns/u1/clip.mp4", gotPath)
	assert.Equal(t, "video/mp4", contentType)
	assert.Contains(t, string(gotBody), "frames")
}

func TestR2StorageRequiresBucket(t *testing.T) {
	_, err := utils.NewR2Storage(context.Background(), utils.R2Config{AccountID: "acct"})
	assert.Error(t, err)
}
