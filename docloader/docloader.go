// Package docloader provides the document source capability consumed
// by DocumentLoader workflow nodes: it opens file paths or http(s)
// URLs, enforces size limits, and delegates per-format text extraction
// to registered extractors.
//
// Plain-text adjacent formats (txt, json, csv, xml, html) ship with
// built-in extractors. Binary formats (pdf, docx) require a registered
// Extractor; text extraction for those formats is a deliberate
// extension point, not part of the engine.
package docloader

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/InfinitiBit/graphbit-go/types"
)

// userAgent identifies URL fetches performed by the loader.
const userAgent = "GraphBit Document Loader/1.0"

// Config controls loader behavior.
type Config struct {
	// MaxFileSize caps document size in bytes. Default 10 MiB.
	MaxFileSize int `json:"max_file_size"`
	// DefaultEncoding is recorded on extracted content. Only UTF-8 is
	// decoded natively.
	DefaultEncoding string `json:"default_encoding"`
	// PreserveFormatting keeps original whitespace when true.
	PreserveFormatting bool `json:"preserve_formatting"`
	// FetchTimeout bounds URL fetches. Default 30s.
	FetchTimeout time.Duration `json:"fetch_timeout_ms"`
}

// DefaultConfig returns the standard loader configuration.
func DefaultConfig() Config {
	return Config{
		MaxFileSize:     10 * 1024 * 1024,
		DefaultEncoding: "utf-8",
		FetchTimeout:    30 * time.Second,
	}
}

// Content is the result of loading one document.
type Content struct {
	// Source is the path or URL the document came from.
	Source string `json:"source"`
	// DocumentType is the declared type ("txt", "json", ...).
	DocumentType string `json:"document_type"`
	// Text is the extracted text content.
	Text string `json:"content"`
	// Metadata carries extraction details (file size, source path).
	Metadata map[string]interface{} `json:"metadata"`
	// FileSize is the raw document size in bytes.
	FileSize int `json:"file_size"`
	// ExtractedAt is when extraction completed.
	ExtractedAt time.Time `json:"extracted_at"`
}

// Extractor converts raw document bytes of one format into text.
type Extractor func(data []byte, config Config) (string, error)

// Loader loads documents from files and URLs and extracts their text.
type Loader struct {
	config     Config
	httpClient *http.Client
	extractors map[string]Extractor
}

// New creates a loader with the default configuration.
func New() *Loader { return NewWithConfig(DefaultConfig()) }

// NewWithConfig creates a loader with a custom configuration.
func NewWithConfig(config Config) *Loader {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultConfig().MaxFileSize
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultConfig().FetchTimeout
	}

	l := &Loader{
		config:     config,
		httpClient: &http.Client{Timeout: config.FetchTimeout},
		extractors: make(map[string]Extractor, 8),
	}
	l.extractors["txt"] = extractText
	l.extractors["json"] = extractJSON
	l.extractors["csv"] = extractCSV
	l.extractors["xml"] = extractXML
	l.extractors["html"] = extractHTML
	return l
}

// RegisterExtractor installs (or replaces) the extractor for a
// document type. This is how pdf/docx support plugs in.
func (l *Loader) RegisterExtractor(documentType string, extractor Extractor) {
	l.extractors[strings.ToLower(documentType)] = extractor
}

// SupportedTypes returns the types the loader can currently extract.
func (l *Loader) SupportedTypes() []string {
	supported := make([]string, 0, len(l.extractors))
	for t := range l.extractors {
		supported = append(supported, t)
	}
	return supported
}

// Load reads a document from a file path or http(s) URL and extracts
// its text. Any other URL scheme is rejected.
func (l *Loader) Load(ctx context.Context, sourcePath, documentType string) (*Content, error) {
	documentType = strings.ToLower(documentType)

	extractor, ok := l.extractors[documentType]
	if !ok {
		return nil, types.ValidationError(
			"unsupported document type %q: no extractor registered (supported: %s)",
			documentType, strings.Join(l.SupportedTypes(), ", "))
	}

	var data []byte
	var err error
	switch {
	case strings.HasPrefix(sourcePath, "http://"), strings.HasPrefix(sourcePath, "https://"):
		data, err = l.fetchURL(ctx, sourcePath)
	case strings.Contains(sourcePath, "://"):
		return nil, types.ValidationError("invalid URL %q: only http and https are supported", sourcePath)
	default:
		data, err = l.readFile(sourcePath)
	}
	if err != nil {
		return nil, err
	}

	text, err := extractor(data, l.config)
	if err != nil {
		return nil, types.WrapError(types.ErrValidation, err, "failed to extract %s content from %s", documentType, sourcePath)
	}

	return &Content{
		Source:       sourcePath,
		DocumentType: documentType,
		Text:         text,
		Metadata: map[string]interface{}{
			"file_size": len(data),
			"source":    sourcePath,
			"encoding":  l.config.DefaultEncoding,
		},
		FileSize:    len(data),
		ExtractedAt: time.Now().UTC(),
	}, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.ValidationError("file not found: %s", path)
	}
	if info.Size() > int64(l.config.MaxFileSize) {
		return nil, types.ValidationError(
			"file size (%d bytes) exceeds maximum allowed size (%d bytes)",
			info.Size(), l.config.MaxFileSize)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is caller-supplied by design
	if err != nil {
		return nil, types.WrapError(types.ErrValidation, err, "failed to read file %s", path)
	}
	return data, nil
}

func (l *Loader) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.ValidationError("invalid URL %q: %v", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, types.WrapError(types.ErrNetwork, err, "failed to fetch %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrNetwork, "fetching %s returned %s", url, resp.Status)
	}

	limited := io.LimitReader(resp.Body, int64(l.config.MaxFileSize)+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, types.WrapError(types.ErrNetwork, err, "failed to read response from %s", url)
	}
	if len(data) > l.config.MaxFileSize {
		return nil, types.ValidationError(
			"document at %s exceeds maximum allowed size (%d bytes)", url, l.config.MaxFileSize)
	}
	return data, nil
}
