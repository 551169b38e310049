package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

func TestUnavailable(t *testing.T) {
	e := New(domain.OCRConfig{})
	assert.False(t, e.Available())
	assert.Equal(t, "", e.Extract(context.Background(), []byte("png")))
}

func TestRemoteExtractor(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		got, _ = io.ReadAll(f)
		_, _ = w.Write([]byte(`{"text":"  Transaction ID: TX123\n"}`))
	}))
	defer srv.Close()

	e := New(domain.OCRConfig{URL: srv.URL, Timeout: time.Second})
	assert.True(t, e.Available())
	assert.Equal(t, "Transaction ID: TX123", e.Extract(context.Background(), []byte("image-bytes")))
	assert.Equal(t, []byte("image-bytes"), got)
}

func TestRemoteExtractorFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewRemote(srv.URL, time.Second)
	assert.Equal(t, "", e.Extract(context.Background(), []byte("x")))
	assert.Equal(t, "", e.Extract(context.Background(), nil))

	closed := NewRemote("http://127.0.0.1:1", 50*time.Millisecond)
	assert.Equal(t, "", closed.Extract(context.Background(), []byte("x")))
}
