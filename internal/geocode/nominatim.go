package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"backend-recordpath/internal/shared/geo"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org/reverse"

type nominatimReverseResponse struct {
	PlaceID     int64  `json:"place_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		Road        string `json:"road"`
		Suburb      string `json:"suburb"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// Nominatim is a reverse geocoder backed by an OpenStreetMap Nominatim endpoint.
type Nominatim struct {
	BaseURL   string
	UserAgent string
	Language  string
	Client    *http.Client
}

func NewNominatim(baseURL string, client *http.Client) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Nominatim{
		BaseURL:   baseURL,
		UserAgent: "recordpath-geocoder/1.0",
		Language:  "en",
		Client:    client,
	}
}

func (n *Nominatim) Lookup(ctx context.Context, c geo.Coordinate) (*Place, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(c.Lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(c.Lng, 'f', 6, 64))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("accept-language", n.Language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.UserAgent)

	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var body nominatimReverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Error != "" || (body.DisplayName == "" && body.Address.Country == "") {
		return nil, nil
	}

	city := body.Address.City
	if city == "" {
		city = body.Address.Town
	}
	if city == "" {
		city = body.Address.Village
	}

	name := body.Name
	if name == "" {
		name = body.Address.Road
	}
	if name == "" {
		name = body.DisplayName
	}

	return &Place{
		Name:        name,
		City:        city,
		Country:     body.Address.Country,
		CountryCode: body.Address.CountryCode,
	}, nil
}
