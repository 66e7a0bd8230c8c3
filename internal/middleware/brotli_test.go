package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

func brotliTestRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{Quality: 5, MinLength: 32}))
	r.GET("/payload", handler)
	return r
}

func brotliGet(t *testing.T, r *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/payload", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// A small write landing after the stream has switched to brotli must go
// through the compressor too; emitting it raw would corrupt the response.
func TestBrotliCompressesMultiWriteResponses(t *testing.T) {
	head := strings.Repeat("a", 64)
	tail := "tail"

	r := brotliTestRouter(func(c *gin.Context) {
		c.Status(http.StatusOK)
		if _, err := c.Writer.WriteString(head); err != nil {
			t.Errorf("write head: %v", err)
		}
		if _, err := c.Writer.WriteString(tail); err != nil {
			t.Errorf("write tail: %v", err)
		}
	})
	w := brotliGet(t, r)

	if got := w.Header().Get("Content-Encoding"); got != "br" {
		t.Fatalf("Content-Encoding = %q, want br", got)
	}
	decoded, err := io.ReadAll(brotli.NewReader(w.Body))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if string(decoded) != head+tail {
		t.Errorf("decoded body = %q, want %q", decoded, head+tail)
	}
}

func TestBrotliLeavesSmallResponsesUncompressed(t *testing.T) {
	r := brotliTestRouter(func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	w := brotliGet(t, r)

	if got := w.Header().Get("Content-Encoding"); got != "" {
		t.Fatalf("Content-Encoding = %q, want none", got)
	}
	if w.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", w.Body.String(), "ok")
	}
}
