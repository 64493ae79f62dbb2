// Package parcel resolves a street address to parcel attributes (city,
// zoning, lot size) via geocoding and the Parcelz API, with a placeholder
// fallback so address lookup never blocks answering.
package parcel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parcelmind/regsearch/internal/models"
)

// Default endpoints and timeout.
const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	DefaultParcelzURL   = "https://app.parcel-z.com/api/v2/unidata/search/"
	DefaultTimeout      = 15 * time.Second

	userAgent = "regsearch/1.0"
)

// Placeholder values used when the parcel service cannot resolve an address.
const (
	placeholderZoning   = "R-1"
	placeholderLotSize  = 5000
	placeholderUnits    = 1
	placeholderParcelID = "PLACEHOLDER_12345"
)

// bayAreaCities is the naive city extraction used by the placeholder path.
var bayAreaCities = []string{
	"san francisco", "oakland", "san jose", "berkeley", "palo alto",
	"mountain view", "sunnyvale", "fremont", "hayward", "santa clara",
	"redwood city", "san mateo", "burlingame", "millbrae", "daly city",
}

// Config holds endpoints for the lookup client. Zero values use the public
// services.
type Config struct {
	NominatimURL string
	ParcelzURL   string
	Timeout      time.Duration
}

// Client looks up property information for an address.
type Client struct {
	http         *http.Client
	nominatimURL string
	parcelzURL   string
	logger       *zap.Logger
}

// NewClient creates a lookup client. logger may be nil.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = DefaultNominatimURL
	}
	if cfg.ParcelzURL == "" {
		cfg.ParcelzURL = DefaultParcelzURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		nominatimURL: cfg.NominatimURL,
		parcelzURL:   cfg.ParcelzURL,
		logger:       logger,
	}
}

// Lookup returns property information for the address. Any failure along the
// geocode/parcel path degrades to placeholder data with a warning; Lookup
// itself never fails.
func (c *Client) Lookup(ctx context.Context, address string) models.PropertyInfo {
	lat, lon, err := c.geocode(ctx, address)
	if err != nil {
		c.logger.Warn("geocoding failed; using placeholder property info",
			zap.String("address", address),
			zap.Error(err),
		)
		return c.placeholder(address)
	}
	info, err := c.queryParcelz(ctx, address, lat, lon)
	if err != nil {
		c.logger.Warn("parcel lookup failed; using placeholder property info",
			zap.String("address", address),
			zap.Error(err),
		)
		info = c.placeholder(address)
		info.Latitude = &lat
		info.Longitude = &lon
	}
	return info
}

type nominatimHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *Client) geocode(ctx context.Context, address string) (lat, lon float64, err error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nominatimURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}
	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return 0, 0, fmt.Errorf("decode response: %w", err)
	}
	if len(hits) == 0 {
		return 0, 0, fmt.Errorf("no geocoding result for %q", address)
	}
	lat, err = strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err = strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse longitude: %w", err)
	}
	return lat, lon, nil
}

// parcelzRecord lists the field spellings seen in Parcelz responses; fields
// missing from a response fall back to placeholder values.
type parcelzRecord struct {
	City          string  `json:"city"`
	Zoning        string  `json:"zoning"`
	ZoningCode    string  `json:"zoning_code"`
	LotSizeSqft   float64 `json:"lot_size_sqft"`
	LotArea       float64 `json:"lot_area"`
	Units         int     `json:"units"`
	ExistingUnits int     `json:"existing_units"`
	ParcelID      string  `json:"parcel_id"`
	APN           string  `json:"apn"`
}

func (c *Client) queryParcelz(ctx context.Context, address string, lat, lon float64) (models.PropertyInfo, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.parcelzURL+"?"+q.Encode(), nil)
	if err != nil {
		return models.PropertyInfo{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.PropertyInfo{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.PropertyInfo{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.PropertyInfo{}, fmt.Errorf("parcelz status %d: %s", resp.StatusCode, truncateBody(body))
	}
	if strings.TrimSpace(string(body)) == "null" {
		return models.PropertyInfo{}, fmt.Errorf("no property found at %f,%f", lat, lon)
	}
	var rec parcelzRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return models.PropertyInfo{}, fmt.Errorf("decode response: %w", err)
	}

	info := models.PropertyInfo{
		Address:       address,
		City:          firstNonEmpty(rec.City, c.extractCity(address)),
		Zoning:        firstNonEmpty(rec.Zoning, rec.ZoningCode, placeholderZoning),
		LotSizeSqft:   placeholderLotSize,
		ExistingUnits: placeholderUnits,
		ParcelID:      firstNonEmpty(rec.ParcelID, rec.APN, placeholderParcelID),
		Latitude:      &lat,
		Longitude:     &lon,
	}
	if rec.LotSizeSqft > 0 {
		info.LotSizeSqft = int(rec.LotSizeSqft)
	} else if rec.LotArea > 0 {
		info.LotSizeSqft = int(rec.LotArea)
	}
	if rec.Units > 0 {
		info.ExistingUnits = rec.Units
	} else if rec.ExistingUnits > 0 {
		info.ExistingUnits = rec.ExistingUnits
	}
	return info, nil
}

// placeholder returns best-effort property info derived from the address
// string alone.
func (c *Client) placeholder(address string) models.PropertyInfo {
	return models.PropertyInfo{
		Address:       address,
		City:          c.extractCity(address),
		Zoning:        placeholderZoning,
		LotSizeSqft:   placeholderLotSize,
		ExistingUnits: placeholderUnits,
		ParcelID:      placeholderParcelID,
	}
}

func (c *Client) extractCity(address string) string {
	lower := strings.ToLower(address)
	for _, city := range bayAreaCities {
		if strings.Contains(lower, city) {
			return titleCase(city)
		}
	}
	return "Unknown"
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
