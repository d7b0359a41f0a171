package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Photo is one picture with its attribution.
type Photo struct {
	URL             string // image source
	PageURL         string // large-size page on flickr
	Width           int
	Height          int
	AttributionURL  string
	AttributionName string
}

// PhotoSource finds a photo to go with the given weekday.
// A nil photo with a nil error means nothing matched.
type PhotoSource interface {
	FindPhoto(ctx context.Context, weekday string, now time.Time) (*Photo, error)
}

// Acceptable "large" size bounds, inclusive.
const (
	minLargeWidth  = 800
	maxLargeWidth  = 1400
	minLargeHeight = 600
	maxLargeHeight = 1400
)

// FlickrClient searches recent, freely licensed, interesting photos tagged with the weekday.
type FlickrClient struct {
	apiKey       string
	endpoint     string
	lookbackDays int
	httpClient   *http.Client
}

func NewFlickrClient(apiKey, endpoint string, lookbackDays int, timeout time.Duration) *FlickrClient {
	return &FlickrClient{
		apiKey:       apiKey,
		endpoint:     endpoint,
		lookbackDays: lookbackDays,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type flickrSearchResponse struct {
	Stat    string `json:"stat"`
	Message string `json:"message"`
	Photos  struct {
		Photo []flickrPhoto `json:"photo"`
	} `json:"photos"`
}

type flickrPhoto struct {
	ID        string  `json:"id"`
	Owner     string  `json:"owner"`
	OwnerName string  `json:"ownername"`
	URL       string  `json:"url_l"`
	Width     flexInt `json:"width_l"`
	Height    flexInt `json:"height_l"`
}

// flexInt accepts both 1024 and "1024"; the API has returned either.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

func (c *FlickrClient) searchURL(weekday string, now time.Time) string {
	since := now.AddDate(0, 0, -c.lookbackDays)
	q := url.Values{}
	q.Set("method", "flickr.photos.search")
	q.Set("api_key", c.apiKey)
	q.Set("tags", weekday)
	q.Set("privacy_filter", "1")
	q.Set("safe_search", "1")
	q.Set("content_type", "1")
	q.Set("license", "4,5,6")
	q.Set("min_upload_date", strconv.FormatInt(since.Unix(), 10))
	q.Set("sort", "interestingness-desc")
	q.Set("extras", "url_l,owner_name")
	q.Set("format", "json")
	q.Set("nojsoncallback", "1")
	return c.endpoint + "?" + q.Encode()
}

func (c *FlickrClient) FindPhoto(ctx context.Context, weekday string, now time.Time) (*Photo, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("flickr api key not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(weekday, now), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flickr search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flickr search: unexpected status %d", resp.StatusCode)
	}

	var body flickrSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("flickr search: decode: %w", err)
	}
	if body.Stat != "ok" {
		return nil, fmt.Errorf("flickr search: %s", body.Message)
	}

	for _, p := range body.Photos.Photo {
		w, h := int(p.Width), int(p.Height)
		if p.URL == "" || w < minLargeWidth || w > maxLargeWidth || h < minLargeHeight || h > maxLargeHeight {
			continue
		}
		page := fmt.Sprintf("https://www.flickr.com/photos/%s/%s", p.Owner, p.ID)
		return &Photo{
			URL:             p.URL,
			PageURL:         page + "/sizes/l/",
			Width:           w,
			Height:          h,
			AttributionURL:  page,
			AttributionName: p.OwnerName,
		}, nil
	}
	return nil, nil
}
