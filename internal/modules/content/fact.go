package content

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const maxFactLength = 600

// FactSource returns a short plain-text fact for a date.
type FactSource interface {
	Fact(ctx context.Context, date time.Time) (string, error)
}

var errEmptyFeed = errors.New("fact feed has no usable items")

// FeedFacts picks a fact from an RSS or Atom feed, rotating through its items by day of year.
type FeedFacts struct {
	url     string
	timeout time.Duration
	parser  *gofeed.Parser
	policy  *bluemonday.Policy
}

func NewFeedFacts(feedURL string, timeout time.Duration) *FeedFacts {
	return &FeedFacts{
		url:     feedURL,
		timeout: timeout,
		parser:  gofeed.NewParser(),
		policy:  bluemonday.StrictPolicy(),
	}
}

func (f *FeedFacts) Fact(ctx context.Context, date time.Time) (string, error) {
	if f.url == "" {
		return "", errors.New("fact feed url not configured")
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return "", err
	}
	return f.pick(feed, date)
}

func (f *FeedFacts) pick(feed *gofeed.Feed, date time.Time) (string, error) {
	facts := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		text := item.Description
		if strings.TrimSpace(text) == "" {
			text = item.Content
		}
		if strings.TrimSpace(text) == "" {
			text = item.Title
		}
		if text = f.plain(text); text != "" {
			facts = append(facts, text)
		}
	}
	if len(facts) == 0 {
		return "", errEmptyFeed
	}
	return facts[(date.YearDay()-1)%len(facts)], nil
}

// plain strips markup and collapses whitespace.
func (f *FeedFacts) plain(s string) string {
	s = html.UnescapeString(f.policy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxFactLength {
		r := []rune(s)
		s = strings.TrimSpace(string(r[:maxFactLength])) + "…"
	}
	return s
}
