package reel

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHTTPFetcher(t *testing.T) {
	pngData := encodePNG(t, solid(4, 3, color.RGBA{G: 255, A: 255}))
	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, solid(2, 2, color.RGBA{B: 255, A: 255})))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write(pngData)
		case "/ok.bmp":
			_, _ = w.Write(bmpBuf.Bytes())
		case "/garbage.jpg":
			_, _ = w.Write([]byte("definitely not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0)
	ctx := context.Background()

	img, err := f.Fetch(ctx, srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

	img, err = f.Fetch(ctx, srv.URL+"/ok.bmp")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	_, err = f.Fetch(ctx, srv.URL+"/missing.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = f.Fetch(ctx, srv.URL+"/garbage.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}

func TestHTTPFetcherBadURL(t *testing.T) {
	_, err := NewHTTPFetcher(0).Fetch(context.Background(), "http://127.0.0.1:0/nothing.png")
	assert.Error(t, err)
}
