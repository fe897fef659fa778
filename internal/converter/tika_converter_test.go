package converter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// ============================================================================
// Test Helpers
// ============================================================================

func setupTestConverter(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *TikaConverter) {
	server := httptest.NewServer(handler)
	converter := NewTikaConverter(TikaConfig{
		ServerURL: server.URL,
		Logger:    log.New(io.Discard, "", 0),
	})
	return server, converter
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

// ============================================================================
// Convert Tests
// ============================================================================

func TestConvertPlainTextBypassesServer(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("Expected no server call for plain text, got %s %s", r.Method, r.URL.Path)
	})
	defer server.Close()

	path := writeTempFile(t, "a.txt", []byte("Hello world. This is a test. Goodbye."))
	content, err := converter.Convert(context.Background(), path)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if content != "Hello world. This is a test. Goodbye." {
		t.Errorf("Expected identity conversion, got %q", content)
	}
}

func TestConvertGBKEncodedText(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {})
	defer server.Close()

	// "中文" encoded as GBK, which is invalid UTF-8.
	path := writeTempFile(t, "legacy.txt", []byte{0xd6, 0xd0, 0xce, 0xc4})
	content, err := converter.Convert(context.Background(), path)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if content != "中文" {
		t.Errorf("Expected GBK decoding to 中文, got %q", content)
	}
}

func TestConvertLatin1LastResort(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {})
	defer server.Close()

	// 0xFF is invalid in both UTF-8 and GBK.
	path := writeTempFile(t, "legacy.txt", []byte{'H', 'i', 0xff})
	content, err := converter.Convert(context.Background(), path)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if content != "Hiÿ" {
		t.Errorf("Expected Latin-1 decoding, got %q", content)
	}
}

func TestConvertWithTika(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tika" {
			t.Errorf("Expected path /tika, got %s", r.URL.Path)
		}
		if r.Method != "PUT" {
			t.Errorf("Expected PUT, got %s", r.Method)
		}
		if accept := r.Header.Get("Accept"); accept != "text/plain" {
			t.Errorf("Expected Accept text/plain, got %s", accept)
		}

		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			t.Error("Expected raw file bytes in request body")
		}

		w.Write([]byte("extracted text"))
	})
	defer server.Close()

	path := writeTempFile(t, "report.pdf", []byte("%PDF-1.4 fake"))
	content, err := converter.Convert(context.Background(), path)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if content != "extracted text" {
		t.Errorf("Expected extracted text, got %q", content)
	}
}

func TestConvert502FallsBackForTextFormats(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer server.Close()

	path := writeTempFile(t, "page.html", []byte("<html>content</html>"))
	content, err := converter.Convert(context.Background(), path)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if content != "<html>content</html>" {
		t.Errorf("Expected direct read fallback, got %q", content)
	}
}

func TestConvert502NoFallbackForBinaryFormats(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer server.Close()

	path := writeTempFile(t, "doc.docx", []byte{0x50, 0x4b, 0x03, 0x04})
	content, err := converter.Convert(context.Background(), path)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if !strings.Contains(content, "no fallback available for .docx format") {
		t.Errorf("Expected explanatory message, got %q", content)
	}
}

func TestConvertServerErrorSurfaces(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("tika exploded"))
	})
	defer server.Close()

	path := writeTempFile(t, "report.pdf", []byte("%PDF-1.4 fake"))
	_, err := converter.Convert(context.Background(), path)
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestConvertUnreachableServerFallsBack(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close() // connection refused from here on

	path := writeTempFile(t, "data.csv", []byte("a,b,c"))
	content, err := converter.Convert(context.Background(), path)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if content != "a,b,c" {
		t.Errorf("Expected direct read fallback, got %q", content)
	}
}

func TestConvertMissingFile(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {})
	defer server.Close()

	_, err := converter.Convert(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !errors.Is(err, models.ErrFileMissing) {
		t.Errorf("Expected ErrFileMissing, got %v", err)
	}
}

// ============================================================================
// Metadata Tests
// ============================================================================

func TestExtractMetadata(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meta" {
			t.Errorf("Expected path /meta, got %s", r.URL.Path)
		}
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Expected Accept application/json, got %s", accept)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Content-Type": "application/pdf",
			"dc:creator":   "tester",
		})
	})
	defer server.Close()

	path := writeTempFile(t, "report.pdf", []byte("%PDF-1.4 fake"))
	meta, err := converter.ExtractMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}

	if meta.Filename != "report.pdf" {
		t.Errorf("Expected filename report.pdf, got %s", meta.Filename)
	}
	if meta.FileSize != int64(len("%PDF-1.4 fake")) {
		t.Errorf("Expected size %d, got %d", len("%PDF-1.4 fake"), meta.FileSize)
	}
	if meta.Extracted["Content-Type"] != "application/pdf" {
		t.Errorf("Expected extracted Content-Type, got %v", meta.Extracted["Content-Type"])
	}
	if meta.Extracted["dc:creator"] != "tester" {
		t.Errorf("Expected extracted creator, got %v", meta.Extracted["dc:creator"])
	}
}

func TestExtractMetadataFallsBackToBasic(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer server.Close()

	path := writeTempFile(t, "report.pdf", []byte("hello"))
	meta, err := converter.ExtractMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}

	if meta.Extracted != nil {
		t.Errorf("Expected no extracted metadata, got %v", meta.Extracted)
	}
	if meta.MD5 != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("Expected md5 of 'hello', got %s", meta.MD5)
	}
	if meta.FileSize != 5 {
		t.Errorf("Expected size 5, got %d", meta.FileSize)
	}
	if meta.FileExtension != ".pdf" {
		t.Errorf("Expected extension .pdf, got %s", meta.FileExtension)
	}
}

// ============================================================================
// Format Support Tests
// ============================================================================

func TestIsSupportedFormat(t *testing.T) {
	server, converter := setupTestConverter(t, func(w http.ResponseWriter, r *http.Request) {})
	defer server.Close()

	supported := []string{"a.pdf", "b.DOCX", "c.txt", "d.md", "dir/e.png", "f.zip"}
	for _, name := range supported {
		if !converter.IsSupportedFormat(name) {
			t.Errorf("Expected %s to be supported", name)
		}
	}

	unsupported := []string{"a.exe", "b.bin", "noext", "c.mp4"}
	for _, name := range unsupported {
		if converter.IsSupportedFormat(name) {
			t.Errorf("Expected %s to be unsupported", name)
		}
	}
}

func TestFileMD5(t *testing.T) {
	path := writeTempFile(t, "data.bin", []byte("hello"))

	sum, err := FileMD5(path)
	if err != nil {
		t.Fatalf("FileMD5 failed: %v", err)
	}
	if sum != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("Expected known digest, got %s", sum)
	}

	if _, err := FileMD5(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}
