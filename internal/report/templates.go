package report

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

var (
	reportTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/report.html.tmpl"))
	emailTemplate  = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/email.txt.tmpl"))
	ltrTemplates   = htmltemplate.Must(htmltemplate.ParseFS(templateFS,
		"templates/ltr_sections.html.tmpl", "templates/rpa_ltr.html.tmpl", "templates/kaluza_ltr.html.tmpl"))
)

var ltrPages = map[Format]string{
	FormatRPA:    "rpa_ltr.html.tmpl",
	FormatKaluza: "kaluza_ltr.html.tmpl",
}

// WriteHTML renders the report as a standalone HTML page.
func WriteHTML(w io.Writer, s *Summary) error {
	return reportTemplate.Execute(w, s)
}

// WriteLTRHTML renders an LTR report as a standalone HTML page.
func WriteLTRHTML(w io.Writer, l *LTR) error {
	page, ok := ltrPages[l.Format]
	if !ok {
		return fmt.Errorf("%w %q for an LTR report", ErrUnknownFormat, l.Format)
	}
	return ltrTemplates.ExecuteTemplate(w, page, l)
}

// DefaultSender signs the management email.
const DefaultSender = "Automation Team Lead"

type emailData struct {
	*Summary
	Year, Week int
	WeekEnding time.Time
	Sender     string
}

// WriteEmail renders the management email. The subject names the ISO
// week of the report date and the body the Sunday that ends it.
func WriteEmail(w io.Writer, s *Summary, sender string) error {
	if strings.TrimSpace(sender) == "" {
		sender = DefaultSender
	}
	year, week := s.GeneratedAt.ISOWeek()
	return emailTemplate.Execute(w, emailData{
		Summary:    s,
		Year:       year,
		Week:       week,
		WeekEnding: WeekEnding(s.GeneratedAt),
		Sender:     sender,
	})
}

// WeekEnding returns the Sunday closing the ISO week that contains t.
func WeekEnding(t time.Time) time.Time {
	offset := (7 - int(t.Weekday())) % 7
	y, m, d := t.AddDate(0, 0, offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
