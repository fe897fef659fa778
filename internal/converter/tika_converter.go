package converter

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// plainTextExtensions are read directly without involving the Tika server.
var plainTextExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// fallbackTextExtensions can still be read directly when Tika is down.
var fallbackTextExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".xml":      true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".csv":      true,
	".pdf":      true,
}

// supportedExtensions is the set of formats the Tika server handles.
var supportedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".odt": true, ".ods": true, ".odp": true,
	".rtf": true,
	".txt": true, ".csv": true, ".xml": true, ".html": true, ".htm": true,
	".md": true, ".markdown": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".tiff": true, ".tif": true,
	".zip": true, ".tar": true, ".gz": true, ".7z": true,
	".json": true, ".yaml": true, ".yml": true,
}

// TikaConfig holds configuration for the Tika extraction server.
type TikaConfig struct {
	ServerURL string        // default: "http://localhost:9998"
	Timeout   time.Duration // default: 300s; extraction can be slow for large files
	Logger    *log.Logger
}

// TikaConverter extracts text through an Apache Tika server. Plain text
// files bypass the server, and a 502 (or unreachable server) triggers a
// direct-read fallback for known text formats.
type TikaConverter struct {
	serverURL  string
	httpClient *http.Client
	logger     *log.Logger
}

// NewTikaConverter creates a converter for the given Tika server.
func NewTikaConverter(config TikaConfig) *TikaConverter {
	if config.ServerURL == "" {
		config.ServerURL = "http://localhost:9998"
	}
	if config.Timeout <= 0 {
		config.Timeout = 300 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stdout, "[CONVERTER] ", log.LstdFlags)
	}

	return &TikaConverter{
		serverURL: strings.TrimRight(config.ServerURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// Convert extracts the text content of the file at path.
func (c *TikaConverter) Convert(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: file path is required", models.ErrInvalidArgument)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", models.ErrFileMissing, path)
		}
		return "", fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if plainTextExtensions[ext] {
		return c.readTextFile(path)
	}

	content, err := c.extractWithTika(ctx, path)
	if err != nil {
		return "", err
	}
	c.logger.Printf("Document %s converted successfully", filepath.Base(path))
	return content, nil
}

// readTextFile reads a text file, trying UTF-8 first and falling back to
// GBK and then Latin-1 for legacy encodings.
func (c *TikaConverter) readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return decodeText(data), nil
}

func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	if decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data); err == nil && !bytes.ContainsRune(decoded, utf8.RuneError) {
		return string(decoded)
	}
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(decoded)
}

// extractWithTika sends the raw file to PUT {server}/tika. A 502 or a
// transport failure falls back to direct reading; other HTTP errors are
// surfaced to the caller.
func (c *TikaConverter) extractWithTika(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, "PUT", c.serverURL+"/tika", file)
	if err != nil {
		return "", fmt.Errorf("failed to create extraction request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Printf("Extraction failed for %s, falling back to direct reading: %v", filepath.Base(path), err)
		return c.readFallback(path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadGateway {
		c.logger.Printf("Extraction server unavailable for %s, falling back to direct reading", filepath.Base(path))
		return c.readFallback(path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("extraction failed (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read extraction response: %w", err)
	}
	return decodeText(body), nil
}

// readFallback reads known text formats directly; anything else yields an
// explanatory message as the document content.
func (c *TikaConverter) readFallback(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if fallbackTextExtensions[ext] {
		return c.readTextFile(path)
	}
	return fmt.Sprintf("Error processing document: extraction server unavailable and no fallback available for %s format", ext), nil
}

// ExtractMetadata asks PUT {server}/meta for document metadata. Any failure
// degrades to basic filesystem metadata rather than failing the caller.
func (c *TikaConverter) ExtractMetadata(ctx context.Context, path string) (*models.DocumentMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrFileMissing, path)
		}
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	meta := &models.DocumentMetadata{
		Filename:      filepath.Base(path),
		FileSize:      info.Size(),
		FileExtension: filepath.Ext(path),
		LastModified:  info.ModTime(),
	}

	extracted, err := c.requestMetadata(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Printf("Metadata extraction failed for %s, returning basic metadata: %v", filepath.Base(path), err)
		if sum, md5Err := FileMD5(path); md5Err == nil {
			meta.MD5 = sum
		}
		return meta, nil
	}

	meta.Extracted = extracted
	return meta, nil
}

func (c *TikaConverter) requestMetadata(ctx context.Context, path string) (map[string]interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, "PUT", c.serverURL+"/meta", file)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("metadata request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var extracted map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&extracted); err != nil {
		return nil, fmt.Errorf("failed to decode metadata response: %w", err)
	}
	return extracted, nil
}

// IsSupportedFormat reports whether the extension is one Tika handles.
func (c *TikaConverter) IsSupportedFormat(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// FileMD5 returns the hex MD5 digest of the file at path.
func FileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash file %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
