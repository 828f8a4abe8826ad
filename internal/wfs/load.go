package wfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-wfs/internal/feature"
)

// GetFeatureURL builds the GetFeature request URL for the configured type.
func (c *Client) GetFeatureURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid wfs url: %w", err)
	}
	q := u.Query()
	q.Set("service", "WFS")
	q.Set("version", Version)
	q.Set("request", "GetFeature")
	q.Set("typeName", c.cfg.TypeName())
	q.Set("outputFormat", "application/json")
	if c.cfg.SRSName != "" {
		q.Set("srsName", c.cfg.SRSName)
	}
	if c.cfg.MaxFeatures > 0 {
		q.Set("maxFeatures", strconv.Itoa(c.cfg.MaxFeatures))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Load fetches all features of the configured type. Features the server
// returns without an id get a synthetic one.
func (c *Client) Load(ctx context.Context) ([]*feature.Feature, error) {
	target, err := c.GetFeatureURL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	glog.V(1).Infof("wfs: GET %s", target)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		if _, err := DecodeTransactionResponse(bytes.NewReader(trimmed)); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: unexpected xml response to GetFeature", ErrResponse)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: truncate(string(data), 256)}
	}

	fc, err := geojson.UnmarshalFeatureCollection(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing feature collection: %v", ErrResponse, err)
	}

	features := make([]*feature.Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		f := feature.FromGeoJSON(gf)
		if f.ID == "" {
			f.ID = c.cfg.FeatureType + "." + ulid.Make().String()
		}
		features = append(features, f)
	}
	glog.Infof("wfs: loaded %d features of %s", len(features), c.cfg.TypeName())
	return features, nil
}
