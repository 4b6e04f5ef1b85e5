package geocoder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/config"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
)

// Location is a geocoded address.
type Location struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
	Street           string
	City             string
	State            string
	Zipcode          string
	Country          string
}

// Geocoder resolves free-form addresses and zipcodes to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Location, error)
}

// Client talks to a Nominatim-compatible search endpoint.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       *zerolog.Logger
}

// NewClient initializes a geocoding client
func NewClient(cfg *config.Config, log *zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.GeocoderURL, "/"),
		userAgent: cfg.GeocoderUserAgent,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Geocode returns the best match for address. No match is the caller's fault.
func (c *Client) Geocode(ctx context.Context, address string) (*Location, error) {
	if strings.TrimSpace(address) == "" {
		return nil, apperror.NewBadRequest("Please add an address")
	}

	body, err := c.search(ctx, address)
	if err != nil {
		return nil, apperror.NewUpstream("Geocoding service unavailable", err)
	}

	loc, err := parseSearchResults(body)
	if err != nil {
		return nil, apperror.NewUpstream("Geocoding service returned an invalid response", err)
	}
	if loc == nil {
		return nil, apperror.NewBadRequest(fmt.Sprintf("Could not geocode address %q", address))
	}

	c.log.Debug().Str("address", address).Float64("lat", loc.Lat).Float64("lng", loc.Lng).Msg("geocoded address")
	return loc, nil
}

func (c *Client) search(ctx context.Context, address string) ([]byte, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "xml")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// parseSearchResults reads the first <place> of a Nominatim XML response.
// A response without places yields a nil Location.
func parseSearchResults(raw []byte) (*Location, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	place := doc.FindElement("//searchresults/place")
	if place == nil {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(place.SelectAttrValue("lat", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(place.SelectAttrValue("lon", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lon: %w", err)
	}

	street := childText(place, "road")
	if n := childText(place, "house_number"); n != "" && street != "" {
		street = n + " " + street
	}

	return &Location{
		Lat:              lat,
		Lng:              lng,
		FormattedAddress: place.SelectAttrValue("display_name", ""),
		Street:           street,
		City:             childText(place, "city", "town", "village", "hamlet"),
		State:            childText(place, "state"),
		Zipcode:          childText(place, "postcode"),
		Country:          strings.ToUpper(childText(place, "country_code")),
	}, nil
}

// childText returns the text of the first present child among tags.
func childText(el *etree.Element, tags ...string) string {
	for _, tag := range tags {
		if child := el.SelectElement(tag); child != nil {
			if text := strings.TrimSpace(child.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}
