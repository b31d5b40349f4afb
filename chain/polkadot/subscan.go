package polkadot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	wrapErrors "github.com/linlinbupt123-crypto/polkadot_wallet/errors"
	"github.com/linlinbupt123-crypto/polkadot_wallet/retry"
)

const (
	pathTransfers = "/api/scan/transfers"
	pathExtrinsic = "/api/scan/extrinsic"

	// MaxPageSize is the largest row count Subscan serves per page.
	MaxPageSize = 100
)

// Indexer serves account history. Subscan is the only implementation.
type Indexer interface {
	Transfers(ctx context.Context, address string, row, page int) (*TransfersData, error)
	Extrinsic(ctx context.Context, hash string) (*ExtrinsicData, error)
}

// SubscanError is a non-zero code in a Subscan response envelope.
type SubscanError struct {
	Code    int
	Message string
}

func (e *SubscanError) Error() string {
	return fmt.Sprintf("subscan: code %d: %s", e.Code, e.Message)
}

// Subscan is a client for the Subscan REST API.
type Subscan struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   retry.Config
	logger  *zap.Logger
}

type SubscanOpts struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Retry      retry.Config
	Logger     *zap.Logger
}

func NewSubscan(o SubscanOpts) *Subscan {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	}
	if o.Retry.MaxRetries <= 0 {
		o.Retry = retry.DefaultConfig()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Subscan{
		baseURL: strings.TrimRight(o.BaseURL, "/"),
		apiKey:  o.APIKey,
		client:  client,
		retry:   o.Retry,
		logger:  o.Logger,
	}
}

func (s *Subscan) Transfers(ctx context.Context, address string, row, page int) (*TransfersData, error) {
	req := transfersRequest{Address: address, Row: row, Page: page}
	var out TransfersData
	found, err := s.post(ctx, pathTransfers, req, &out)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeIndexer, "transfers", err)
	}
	if !found {
		return &TransfersData{}, nil
	}
	return &out, nil
}

// Extrinsic returns nil data without error when the hash is unknown.
func (s *Subscan) Extrinsic(ctx context.Context, hash string) (*ExtrinsicData, error) {
	var out ExtrinsicData
	found, err := s.post(ctx, pathExtrinsic, extrinsicRequest{Hash: hash}, &out)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeIndexer, "extrinsic", err)
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

// post sends payload and decodes the envelope's data into out. It reports
// false when data is null.
func (s *Subscan) post(ctx context.Context, path string, payload any, out any) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}

	var env envelope
	err = retry.WithBackoff(ctx, s.retry, s.logger, "subscan "+path, func() error {
		env = envelope{}
		return s.do(ctx, path, body, &env)
	})
	if err != nil {
		return false, err
	}
	if env.Code != 0 {
		return false, &SubscanError{Code: env.Code, Message: env.Message}
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s data: %w", path, err)
	}
	return true, nil
}

func (s *Subscan) do(ctx context.Context, path string, body []byte, env *envelope) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// The per-attempt client timeout also surfaces as DeadlineExceeded;
		// only the caller's context ends the retries.
		if ctx.Err() != nil {
			return retry.Permanent(err)
		}
		return err
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		err := fmt.Errorf("http %d", resp.StatusCode)
		if wait := retryAfter(resp.Header.Get("Retry-After"), time.Now()); wait > 0 {
			return retry.After(err, wait)
		}
		return err
	case resp.StatusCode >= 500:
		return fmt.Errorf("http %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return retry.Permanent(fmt.Errorf("http %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return retry.Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	return nil
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func drainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
