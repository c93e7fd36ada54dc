// Package loader turns files and URLs into documents the matcher can query.
// Non-HTML sources are rendered into a small synthetic HTML layout:
//
//	div.page[data-page] > ul.lines > li.line   (PDF pages, plain text)
//	table.sheet[data-sheet] > tr > td          (spreadsheets)
//	div#message, div#attachments               (email)
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"entitymatch/internal/document/htmldoc"
)

var ErrUnsupportedInput = errors.New("unsupported input")

type Kind string

const (
	KindHTML  Kind = "html"
	KindEmail Kind = "eml"
	KindPDF   Kind = "pdf"
	KindXLSX  Kind = "xlsx"
	KindText  Kind = "text"
)

// KindFromPath picks the input kind from a file extension.
func KindFromPath(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return KindHTML, nil
	case ".eml":
		return KindEmail, nil
	case ".pdf":
		return KindPDF, nil
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	case ".txt", ".text", "":
		return KindText, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Ext(path))
	}
}

func OpenFile(path string) (*htmldoc.Document, error) {
	kind, err := KindFromPath(path)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(kind, blob)
}

func Parse(kind Kind, blob []byte) (*htmldoc.Document, error) {
	switch kind {
	case KindHTML:
		return htmldoc.Parse(bytes.NewReader(blob))
	case KindEmail:
		return FromEmail(blob)
	case KindPDF:
		body, err := renderPDF(blob)
		if err != nil {
			return nil, err
		}
		return wrap(body)
	case KindXLSX:
		body, err := renderXLSX(blob)
		if err != nil {
			return nil, err
		}
		return wrap(body)
	case KindText:
		return wrap(renderLines(string(blob)))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, kind)
	}
}

// FromEmail uses the HTML body when present, else the text body, followed
// by any PDF and spreadsheet attachments.
func FromEmail(raw []byte) (*htmldoc.Document, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read email: %w", err)
	}

	var b strings.Builder
	b.WriteString(`<div id="message" data-subject="`)
	b.WriteString(html.EscapeString(env.GetHeader("Subject")))
	b.WriteString(`">`)
	if strings.TrimSpace(env.HTML) != "" {
		b.WriteString(env.HTML)
	} else {
		b.WriteString(renderLines(env.Text))
	}
	b.WriteString(`</div><div id="attachments">`)

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		lower := strings.ToLower(filename)

		var body string
		switch {
		case strings.HasSuffix(lower, ".pdf"):
			body, err = renderPDF(att.Content)
		case strings.HasSuffix(lower, ".xlsx"):
			body, err = renderXLSX(att.Content)
		default:
			continue
		}
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, `<div class="attachment" data-name="%s">%s</div>`, html.EscapeString(filename), body)
	}
	b.WriteString(`</div>`)

	return wrap(b.String())
}

func renderPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, `<div class="page" data-page="%d">%s</div>`, i, renderLines(text))
	}
	return b.String(), nil
}

func renderXLSX(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("read xlsx: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, `<table class="sheet" data-sheet="%s">`, html.EscapeString(sheet))
		for i, row := range rows {
			if isBlankRow(row) {
				continue
			}
			tag := "td"
			if i == 0 {
				tag = "th"
			}
			b.WriteString("<tr>")
			for _, cell := range row {
				fmt.Fprintf(&b, "<%s>%s</%s>", tag, html.EscapeString(strings.TrimSpace(cell)), tag)
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</table>")
	}
	return b.String(), nil
}

func renderLines(text string) string {
	var b strings.Builder
	b.WriteString(`<ul class="lines">`)
	for _, line := range splitLines(text) {
		b.WriteString(`<li class="line">`)
		b.WriteString(html.EscapeString(line))
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func wrap(body string) (*htmldoc.Document, error) {
	return htmldoc.ParseString(`<html><body><div id="document">` + body + `</div></body></html>`)
}
