package outreach

import (
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// TemplateData is the per-lead view available to subject and body templates.
type TemplateData struct {
	FirstName string
	Name      string
	Company   string
	Website   string
	City      string
	State     string
	Sender    string
}

// NewTemplateData builds template data for one lead.
func NewTemplateData(lead *model.Lead, sender string) TemplateData {
	return TemplateData{
		FirstName: lead.FirstName(),
		Name:      lead.Name,
		Company:   lead.Company,
		Website:   lead.Website,
		City:      lead.City,
		State:     lead.State,
		Sender:    sender,
	}
}

// Render executes a text/template against the lead data. Unknown fields are
// an error; a template that references a field this data does not carry is a
// campaign-authoring bug.
func Render(tmpl string, data TemplateData) (string, error) {
	t, err := template.New("msg").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", eris.Wrap(err, "outreach: parse template")
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", eris.Wrap(err, "outreach: execute template")
	}
	return sb.String(), nil
}
