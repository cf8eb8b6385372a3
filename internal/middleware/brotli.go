package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// Responses below this size are sent uncompressed; the brotli header
// overhead outweighs any gain on small envelopes.
const brotliMinLength = 1024

type brotliWriter struct {
	gin.ResponseWriter
	br         *brotli.Writer
	buf        []byte
	compressed bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	if w.compressed {
		return w.br.Write(data)
	}

	w.buf = append(w.buf, data...)
	if len(w.buf) < brotliMinLength {
		return len(data), nil
	}

	w.compressed = true
	w.Header().Set("Content-Encoding", "br")
	w.Header().Del("Content-Length")
	if _, err := w.br.Write(w.buf); err != nil {
		return 0, err
	}
	w.buf = nil
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush keeps a streaming handler working if one slips past the skip
// checks: pending bytes go out uncompressed instead of sitting in the
// buffer until the handler returns.
func (w *brotliWriter) Flush() {
	if w.compressed {
		_ = w.br.Flush()
	} else if len(w.buf) > 0 {
		_, _ = w.ResponseWriter.Write(w.buf)
		w.buf = nil
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) finish() {
	if w.compressed {
		w.br.Close()
		return
	}
	if len(w.buf) > 0 {
		_, _ = w.ResponseWriter.Write(w.buf)
		w.buf = nil
	}
}

// Brotli compresses API responses for clients that advertise support.
// SSE and WebSocket traffic passes through untouched; both break under
// buffered compression.
func Brotli() gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipCompression(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		w := &brotliWriter{
			ResponseWriter: c.Writer,
			br:             brotli.NewWriterLevel(c.Writer, brotli.DefaultCompression),
		}
		c.Writer = w
		defer w.finish()

		c.Next()
	}
}

func skipCompression(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.ToLower(enc)) == "br" {
			return true
		}
	}
	return false
}
