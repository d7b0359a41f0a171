package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/labnotes/dailyhi/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingTransport struct {
	sent []Message
}

func (r *recordingTransport) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func TestSenderAppliesDefaults(t *testing.T) {
	rt := &recordingTransport{}
	s := NewSender(rt, config.MailConfig{From: "dailyhi@labnotes.org", ReplyTo: "assaf@labnotes.org"})

	require.NoError(t, s.Send(context.Background(), Message{To: "  foo@bar.com ", Subject: "hi", Text: "x"}))
	require.Len(t, rt.sent, 1)
	assert.Equal(t, "foo@bar.com", rt.sent[0].To)
	assert.Equal(t, "dailyhi@labnotes.org", rt.sent[0].From)
	assert.Equal(t, "assaf@labnotes.org", rt.sent[0].ReplyTo)

	assert.ErrorIs(t, s.Send(context.Background(), Message{To: " "}), ErrNoRecipient)
	assert.Len(t, rt.sent, 1)
}

func TestSendVerify(t *testing.T) {
	rt := &recordingTransport{}
	s := NewSender(rt, config.MailConfig{From: "dailyhi@labnotes.org"})

	require.NoError(t, s.SendVerify(context.Background(), "foo@bar.com", VerifyData{VerifyURL: "http://dailyhi.labnotes.org/verify/abc"}))
	require.Len(t, rt.sent, 1)
	msg := rt.sent[0]
	assert.Equal(t, "Please verify your email address", msg.Subject)
	assert.Contains(t, msg.Text, "http://dailyhi.labnotes.org/verify/abc")
	assert.Contains(t, msg.Text, "Daily bliss")
	assert.Empty(t, msg.HTML)
}

func TestRenderDaily(t *testing.T) {
	msg, err := RenderDaily("foo@bar.com", DailyData{
		Weekday:         "Tuesday",
		PhotoURL:        "https://live.staticflickr.com/1/2_b.jpg",
		PhotoPageURL:    "https://www.flickr.com/photos/me/2",
		PhotoWidth:      1024,
		PhotoHeight:     768,
		AttributionURL:  "https://www.flickr.com/photos/me",
		AttributionName: "Me & You",
		Fact:            "Octopuses have three hearts.",
		UnsubscribeURL:  "http://localhost:7887/unsubscribe/abc",
		TimezoneURL:     "http://localhost:7887/timezone/abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "foo@bar.com", msg.To)
	assert.Equal(t, "Good morning, today is Tuesday!", msg.Subject)
	assert.Contains(t, msg.HTML, "A lovely Tuesday to you!")
	assert.Contains(t, msg.HTML, `src="https://live.staticflickr.com/1/2_b.jpg"`)
	assert.Contains(t, msg.HTML, "Me &amp; You")
	assert.Contains(t, msg.HTML, "<p>Octopuses have three hearts.</p>")
	assert.Contains(t, msg.HTML, "http://localhost:7887/unsubscribe/abc")
	assert.Contains(t, msg.Text, "To unsubscribe: http://localhost:7887/unsubscribe/abc")
	assert.Contains(t, msg.Text, "Change your timezone: http://localhost:7887/timezone/abc")
}

func TestRenderDailyWithoutPhoto(t *testing.T) {
	msg, err := RenderDaily("foo@bar.com", DailyData{
		Weekday:        "Sunday",
		UnsubscribeURL: "http://localhost:7887/unsubscribe/abc",
		TimezoneURL:    "http://localhost:7887/timezone/abc",
	})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<img")
	assert.NotContains(t, msg.Text, "Today's photo")
}

func TestRenderFactIsPlainText(t *testing.T) {
	cases := []struct {
		name    string
		fact    string
		want    string
		notWant []string
	}{
		{
			name:    "emphasis markers",
			fact:    "The *snake_case* name __dunder__ stays literal.",
			want:    "<p>The *snake_case* name __dunder__ stays literal.</p>",
			notWant: []string{"<em>", "<strong>"},
		},
		{
			name:    "ordered list lookalike",
			fact:    "1. Mercury is the smallest planet.",
			want:    "<p>1. Mercury is the smallest planet.</p>",
			notWant: []string{"<ol>", "<li>"},
		},
		{
			name:    "heading and link lookalikes",
			fact:    "# of moons: 95 [see](http://example.com)",
			want:    "# of moons: 95 [see](http://example.com)",
			notWant: []string{"<h1>", "<a "},
		},
		{
			name:    "raw html",
			fact:    "hello <script>alert(1)</script> & bye",
			want:    "hello &lt;script&gt;alert(1)&lt;/script&gt; &amp; bye",
			notWant: []string{"<script>"},
		},
		{
			name:    "indented text",
			fact:    "    four spaces in",
			want:    "<p>four spaces in</p>",
			notWant: []string{"<code>"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := renderFact(tc.fact)
			require.NoError(t, err)
			assert.Contains(t, string(out), tc.want)
			for _, nw := range tc.notWant {
				assert.NotContains(t, string(out), nw)
			}
		})
	}

	out, err := renderFact("  ")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME(Message{
		From:    "dailyhi@labnotes.org",
		To:      "foo@bar.com",
		ReplyTo: "reply@labnotes.org",
		Subject: "Good morning, today is Monday!",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	}))

	assert.Contains(t, raw, "From: dailyhi@labnotes.org\r\n")
	assert.Contains(t, raw, "To: foo@bar.com\r\n")
	assert.Contains(t, raw, "Reply-To: reply@labnotes.org\r\n")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Equal(t, 3, strings.Count(raw, "--dailyhi-"))

	plain := string(buildMIME(Message{From: "a@b.c", To: "d@e.f", Subject: "s", Text: "body"}))
	assert.Contains(t, plain, "Content-Type: text/plain; charset=UTF-8\r\n\r\nbody")
	assert.NotContains(t, plain, "Reply-To")
}

func TestLogTransport(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tr := NewLogTransport(zap.New(core))

	require.NoError(t, tr.Send(context.Background(), Message{To: "foo@bar.com", Subject: "hello"}))
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "MailLog", entries[0].LoggerName)
	assert.Equal(t, "foo@bar.com", entries[0].ContextMap()["to"])
}

func TestNewTransport(t *testing.T) {
	tr, err := New(config.MailConfig{Transport: config.TransportLog}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogTransport{}, tr)

	tr, err = New(config.MailConfig{Transport: config.TransportSMTP, SMTP: config.SMTPConfig{Host: "smtp.example.com"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPTransport{}, tr)

	tr, err = New(config.MailConfig{Transport: config.TransportResend, Resend: config.ResendConfig{APIKey: "re_123"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ResendTransport{}, tr)

	_, err = New(config.MailConfig{Transport: "pigeon"}, nil)
	assert.Error(t, err)
}
