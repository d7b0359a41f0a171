package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"unicode"

	"github.com/yuin/goldmark"
)

const verifySubject = "Please verify your email address"

const verifyTextTpl = `Before you can receive emails, we need to verify your email address.

Daily bliss, after you click this link:
  {{.VerifyURL}}
`

const dailyHTMLTpl = `<!DOCTYPE html>
<html>
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
</head>
<body style="font-family:Georgia,serif;background:#fafafa;padding:20px">
<div style="max-width:640px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2>A lovely {{.Weekday}} to you!</h2>
  {{if .PhotoURL}}
  <div><a href="{{.PhotoPageURL}}"><img src="{{.PhotoURL}}"{{if .PhotoWidth}} width="{{.PhotoWidth}}" height="{{.PhotoHeight}}"{{end}} style="max-width:100%;height:auto" /></a></div>
  {{if .AttributionName}}<h4>Photo by <a href="{{.AttributionURL}}">{{.AttributionName}}</a></h4>{{end}}
  {{end}}
  {{if .FactHTML}}<div style="font-size:15px;line-height:24px">{{.FactHTML}}</div>{{end}}
  <hr>
  <p style="color:#999;font-size:12px">Wrong time of day? <a href="{{.TimezoneURL}}">Change your timezone</a></p>
  <p style="color:#999;font-size:12px">To unsubscribe: <a href="{{.UnsubscribeURL}}">{{.UnsubscribeURL}}</a></p>
</div>
</body>
</html>`

const dailyTextTpl = `A lovely {{.Weekday}} to you!
{{if .PhotoURL}}
Today's photo: {{.PhotoPageURL}}{{if .AttributionName}}
Photo by {{.AttributionName}} ({{.AttributionURL}}){{end}}
{{end}}{{if .Fact}}
{{.Fact}}
{{end}}
--
Change your timezone: {{.TimezoneURL}}
To unsubscribe: {{.UnsubscribeURL}}
`

// VerifyData is the data for subscription verification emails.
type VerifyData struct {
	VerifyURL string
}

// DailyData is the data for the daily email.
type DailyData struct {
	Weekday         string
	PhotoURL        string
	PhotoPageURL    string
	PhotoWidth      int
	PhotoHeight     int
	AttributionURL  string
	AttributionName string
	Fact            string // plain text
	UnsubscribeURL  string
	TimezoneURL     string
}

// DailySubject is the subject line of the daily email.
func DailySubject(weekday string) string {
	return fmt.Sprintf("Good morning, today is %s!", weekday)
}

// RenderDaily renders the daily email for one recipient.
func RenderDaily(to string, data DailyData) (Message, error) {
	if data.PhotoPageURL == "" {
		data.PhotoPageURL = data.PhotoURL
	}
	factHTML, err := renderFact(data.Fact)
	if err != nil {
		return Message{}, err
	}

	html, err := renderHTML(dailyHTMLTpl, struct {
		DailyData
		FactHTML template.HTML
	}{data, factHTML})
	if err != nil {
		return Message{}, err
	}
	text, err := renderText(dailyTextTpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: DailySubject(data.Weekday),
		HTML:    html,
		Text:    text,
	}, nil
}

var markdown = goldmark.New()

// renderFact turns the plain-text fact into paragraphs. ASCII punctuation is
// backslash-escaped first, so goldmark only splits paragraphs.
func renderFact(fact string) (template.HTML, error) {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(escapeMarkdown(fact)), &buf); err != nil {
		return "", fmt.Errorf("render fact: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		// indentation starts a code block, two trailing spaces a hard break
		for _, r := range strings.Trim(line, " \t") {
			if r < 0x80 && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func renderHTML(tpl string, data any) (string, error) {
	t, err := template.New("").Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(tpl string, data any) (string, error) {
	t, err := texttemplate.New("").Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
