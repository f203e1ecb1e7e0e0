// Package httpapi talks to the external card vault, issuer and notification
// services over JSON/HTTP.
package httpapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nfc-wallet/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request headers sent on every call.
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Body)
}

// client is the shared transport of the three providers.
type client struct {
	baseURL string
	apiKey  string
	secret  string
	http    *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

func newClient(baseURL string, cfg config.ProviderConfig, log zerolog.Logger) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		secret:  cfg.SigningSecret,
		http:    &http.Client{Timeout: timeout},
		log:     log,
		now:     time.Now,
	}
}

// Sign computes the hex HMAC-SHA256 of payload.
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against payload in constant time.
func Verify(secret, payload, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, payload)), []byte(signature))
}

// CanonicalString is the signed form of a request:
// METHOD|PATH|TIMESTAMP|NONCE|BODY
func CanonicalString(method, path string, timestamp int64, nonce, body string) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", method, path, timestamp, nonce, body)
}

// do sends in as JSON and decodes the response into out.
func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
	if c.secret != "" {
		ts := c.now().Unix()
		nonce := uuid.NewString()
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(HeaderNonce, nonce)
		req.Header.Set(HeaderSignature, Sign(c.secret, CanonicalString(method, req.URL.Path, ts, nonce, string(body))))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("host", req.URL.Host).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("provider call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: truncate(string(raw), 256)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
