package notion

import (
	"context"
	"sort"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Template is one outreach message template row from the Notion database.
// Step is the zero-based campaign step the template belongs to.
type Template struct {
	Step    int    `json:"step" yaml:"step"`
	Subject string `json:"subject" yaml:"subject"`
	Body    string `json:"body" yaml:"body"`
}

// ListTemplates pulls every row of the template database, reading the
// "Step" number property and the "Subject" and "Body" rich-text properties.
// Rows missing a subject are skipped. Results are ordered by step.
func ListTemplates(ctx context.Context, client Client, dbID string) ([]Template, error) {
	var templates []Template
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor, PageSize: 100}
		resp, err := client.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: list templates")
		}

		for _, page := range resp.Results {
			t := templateFromPage(page)
			if t.Subject == "" {
				continue
			}
			templates = append(templates, t)
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	sort.SliceStable(templates, func(i, j int) bool { return templates[i].Step < templates[j].Step })
	return templates, nil
}

func templateFromPage(page notionapi.Page) Template {
	var t Template
	for name, prop := range page.Properties {
		switch strings.ToLower(name) {
		case "step":
			if num, ok := prop.(*notionapi.NumberProperty); ok {
				t.Step = int(num.Number)
			}
		case "subject":
			t.Subject = richText(prop)
		case "body":
			t.Body = richText(prop)
		}
	}
	return t
}

func richText(prop notionapi.Property) string {
	var parts []string
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		for _, rt := range p.Title {
			parts = append(parts, rt.PlainText)
		}
	case *notionapi.RichTextProperty:
		for _, rt := range p.RichText {
			parts = append(parts, rt.PlainText)
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}
