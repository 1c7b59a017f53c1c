package transcribe

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/http2"

	"github.com/lsj5031/Hoppy-Whisper/internal/config"
	"github.com/lsj5031/Hoppy-Whisper/pkg/logger"
)

// RetryExhaustedError is returned when every upload attempt failed. LastBody
// carries the final server response (or transport error text) for display.
type RetryExhaustedError struct {
	Attempts int
	LastBody []byte
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("transcription failed after %d attempts: %s", e.Attempts, truncate(e.LastBody, 200))
}

func truncate(b []byte, n int) string {
	if len(b) == 0 {
		return "<empty response>"
	}
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// NewHTTPClient builds the shared HTTP client the way the rest of the app
// expects it: connection reuse, optional HTTP/2, optional TLS verification
// bypass.
func NewHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

// Client uploads captured WAV files to the transcription endpoint.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	log        *logger.Logger

	// sleep is swappable so retry tests run instantly.
	sleep func(time.Duration)
}

// New creates a transcription client. A nil httpClient gets a default built
// from cfg.
func New(cfg config.Config, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	return &Client{cfg: cfg, httpClient: httpClient, log: log, sleep: time.Sleep}
}

// Transcribe uploads the audio file and returns the extracted text plus the
// raw response body. Failed attempts retry with exponential backoff up to
// MaxRetry; exhaustion yields a *RetryExhaustedError.
func (c *Client) Transcribe(ctx context.Context, wavPath string) (string, []byte, error) {
	if c.cfg.APIEndpoint == "" {
		return "", nil, fmt.Errorf("API endpoint is empty")
	}

	attempts := c.cfg.MaxRetry
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(c.cfg.RetryBaseDelay * float64(time.Second))
	var lastBody []byte

	for try := 1; try <= attempts; try++ {
		body, err := c.upload(ctx, wavPath)
		if err == nil {
			text := ExtractText(body, c.cfg.TextPath)
			c.log.Debug("transcription succeeded",
				logger.Int("attempt", try),
				logger.Int("response_bytes", len(body)))
			return text, body, nil
		}
		lastBody = body
		if lastBody == nil {
			lastBody = []byte(err.Error())
		}
		c.log.Warn("transcription attempt failed",
			logger.Int("attempt", try),
			logger.Error(err))
		if ctx.Err() != nil {
			return "", lastBody, ctx.Err()
		}
		if try < attempts {
			c.sleep(delay)
			delay *= 2
		}
	}
	return "", lastBody, &RetryExhaustedError{Attempts: attempts, LastBody: lastBody}
}

// upload performs one multipart POST. On HTTP errors the response body is
// returned alongside the error so callers can surface the server's message.
func (c *Client) upload(ctx context.Context, wavPath string) ([]byte, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	for k, v := range c.formFields() {
		_ = writer.WriteField(k, v)
	}
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIEndpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	req.Header.Set("User-Agent", "hoppy-whisper/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	c.log.Debug("upload finished",
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))
	if resp.StatusCode != http.StatusOK {
		return respBody, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return respBody, nil
}

func (c *Client) formFields() map[string]string {
	fields := make(map[string]string)
	if c.cfg.Model != "" {
		fields["model"] = c.cfg.Model
	}
	if c.cfg.Language != "" {
		fields["language"] = c.cfg.Language
	}
	if c.cfg.Prompt != "" {
		fields["prompt"] = c.cfg.Prompt
	}
	return fields
}
