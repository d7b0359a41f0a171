package delivery

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/labnotes/dailyhi/internal/models"
	"github.com/labnotes/dailyhi/internal/modules/timezone"
	"github.com/labnotes/dailyhi/internal/pkg/mail"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SubscriberSource lists the verified subscribers of one offset bucket.
type SubscriberSource interface {
	ListVerifiedByOffset(ctx context.Context, offset int) ([]models.Subscription, error)
}

// ContentSource returns the content for a date. It never fails.
type ContentSource interface {
	Fetch(ctx context.Context, day time.Time) *models.DailyContent
}

// Mailer submits one message.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Report summarizes one delivery run.
type Report struct {
	Bucket     int    `json:"bucket"`
	Skipped    bool   `json:"skipped"`
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Fallback   bool   `json:"fallback"`
}

type Options struct {
	SendHour    int
	BaseURL     string
	Concurrency int
}

// Dispatcher sends the daily email to the bucket currently at the send hour.
type Dispatcher struct {
	subs    SubscriberSource
	content ContentSource
	mailer  Mailer
	opts    Options
	logger  *zap.Logger
}

func NewDispatcher(subs SubscriberSource, content ContentSource, mailer Mailer, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Dispatcher{
		subs:    subs,
		content: content,
		mailer:  mailer,
		opts:    opts,
		logger:  logger.Named("Delivery"),
	}
}

// Run performs one delivery for the instant now. A failed send is logged and
// counted; only a failure to list subscribers aborts the run.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (Report, error) {
	now = now.UTC()
	offset, ok := timezone.ResolveBucket(now, d.opts.SendHour)
	if !ok {
		d.logger.Info("no timezone at send hour", zap.Time("now", now))
		return Report{Skipped: true}, nil
	}

	day := timezone.LocalDate(now, offset)
	report := Report{
		Bucket:  offset,
		Date:    day.Format(time.DateOnly),
		Weekday: day.Weekday().String(),
	}
	logger := d.logger.With(zap.Int("bucket", offset), zap.String("date", report.Date))

	content := d.content.Fetch(ctx, day)
	report.Fallback = content.Fallback

	subs, err := d.subs.ListVerifiedByOffset(ctx, offset)
	if err != nil {
		return report, fmt.Errorf("list subscribers for offset %d: %w", offset, err)
	}
	report.Recipients = len(subs)
	if len(subs) == 0 {
		logger.Info("no subscribers in bucket")
		return report, nil
	}

	base := d.dailyData(report.Weekday, content)
	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			if err := d.sendOne(gctx, sub, base); err != nil {
				failed.Add(1)
				logger.Warn("failed to send daily email", zap.String("email", sub.Email), zap.Error(err))
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report.Sent = int(sent.Load())
	report.Failed = int(failed.Load())
	logger.Info("delivery finished",
		zap.Int("recipients", report.Recipients),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Bool("fallback", report.Fallback),
	)
	return report, nil
}

func (d *Dispatcher) dailyData(weekday string, c *models.DailyContent) mail.DailyData {
	return mail.DailyData{
		Weekday:         weekday,
		PhotoURL:        c.PhotoURL,
		PhotoPageURL:    c.PhotoPageURL,
		PhotoWidth:      c.PhotoWidth,
		PhotoHeight:     c.PhotoHeight,
		AttributionURL:  c.AttributionURL,
		AttributionName: c.AttributionName,
		Fact:            c.Fact,
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, sub models.Subscription, data mail.DailyData) error {
	data.UnsubscribeURL = d.opts.BaseURL + "/unsubscribe/" + sub.Code
	data.TimezoneURL = d.opts.BaseURL + "/timezone/" + sub.Code
	msg, err := mail.RenderDaily(sub.Email, data)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, msg)
}
