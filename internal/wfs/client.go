// Package wfs talks to a WFS 1.1.0 feature service: GetFeature for loading
// editable features and Transaction for writing them back.
package wfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"

	"github.com/joeblew999/plat-wfs/internal/edit"
)

// Version is the WFS protocol version spoken by the client.
const Version = "1.1.0"

var (
	// ErrTransport wraps failures where no response was received.
	ErrTransport = errors.New("wfs transport failure")
	// ErrResponse wraps responses that could not be decoded.
	ErrResponse = errors.New("wfs malformed response")
	// ErrEmptyTransaction guards against submitting nothing.
	ErrEmptyTransaction = errors.New("empty transaction")
)

// Config describes one feature type on a WFS endpoint.
type Config struct {
	URL          string
	FeatureType  string // local name, e.g. "roads"
	FeatureNS    string // namespace URI of the feature type
	Prefix       string // namespace prefix, e.g. "topp"
	GeometryName string // geometry property, defaults to "the_geom"
	SRSName      string // e.g. "EPSG:3857"; empty leaves it to the server
	MaxFeatures  int    // 0 loads everything
}

// TypeName returns the qualified feature type name.
func (c Config) TypeName() string {
	if c.Prefix == "" {
		return c.FeatureType
	}
	return c.Prefix + ":" + c.FeatureType
}

func (c Config) geometryName() string {
	if c.GeometryName == "" {
		return "the_geom"
	}
	return c.GeometryName
}

// Client loads and submits features for one feature type.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client. A nil httpClient gets a 30 second timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// HTTPError reports a non-2xx response that carried no exception report.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("wfs: unexpected status %d: %s", e.Status, e.Body)
}

// Submit encodes tx as a wfs:Transaction, posts it and decodes the outcome.
// Transport failures wrap ErrTransport; rejected transactions return an
// *ExceptionError.
func (c *Client) Submit(ctx context.Context, tx *edit.Transaction) (*edit.Result, error) {
	if tx == nil || tx.Empty() {
		return nil, ErrEmptyTransaction
	}

	var body bytes.Buffer
	if err := EncodeTransaction(&body, c.cfg, tx); err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	glog.V(1).Infof("wfs: POST %s transaction insert=%d update=%d delete=%d",
		c.cfg.URL, len(tx.Inserts), len(tx.Updates), len(tx.Deletes))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	res, err := DecodeTransactionResponse(bytes.NewReader(data))
	if err != nil {
		var exc *ExceptionError
		if !errors.As(err, &exc) && resp.StatusCode/100 != 2 {
			return nil, &HTTPError{Status: resp.StatusCode, Body: truncate(string(data), 256)}
		}
		return nil, err
	}
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
