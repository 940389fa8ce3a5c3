// Package outreach runs email campaigns: multi-step sequences defined in
// YAML, rendered from templates or generated by an AI model, sent on a
// polling schedule.
package outreach

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Step is one email in a campaign sequence. Exactly one of Body or Generate
// must be set: Body is a text/template rendered per lead, Generate is an AI
// prompt (itself template-rendered) handed to the configured generator.
// Delay is how long after the previous step's send this step becomes due;
// step 0 ignores it.
type Step struct {
	ID       string        `yaml:"id"`
	Subject  string        `yaml:"subject"`
	Body     string        `yaml:"body,omitempty"`
	Generate string        `yaml:"generate,omitempty"`
	Delay    time.Duration `yaml:"delay,omitempty"`
}

// UnmarshalYAML parses the step, reading Delay from a Go duration string
// ("72h", "30m").
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ID       string `yaml:"id"`
		Subject  string `yaml:"subject"`
		Body     string `yaml:"body"`
		Generate string `yaml:"generate"`
		Delay    string `yaml:"delay"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.ID = raw.ID
	s.Subject = raw.Subject
	s.Body = raw.Body
	s.Generate = raw.Generate
	if raw.Delay != "" {
		d, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return eris.Wrapf(err, "parse step delay %q", raw.Delay)
		}
		s.Delay = d
	}
	return nil
}

// Campaign is a named outreach sequence.
type Campaign struct {
	Name   string `yaml:"name"`
	System string `yaml:"system,omitempty"` // system prompt for generated steps
	Steps  []Step `yaml:"steps"`
}

// LoadCampaign reads and validates one campaign YAML file.
func LoadCampaign(path string) (*Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "outreach: read campaign %s", path)
	}

	var c Campaign
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrapf(err, "outreach: parse campaign %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, eris.Wrapf(err, "outreach: invalid campaign %s", path)
	}
	return &c, nil
}

// Validate checks structural requirements on the campaign.
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return eris.New("campaign name is required")
	}
	if len(c.Steps) == 0 {
		return eris.New("campaign has no steps")
	}
	for i, s := range c.Steps {
		if s.Subject == "" {
			return eris.Errorf("step %d: subject is required", i)
		}
		if (s.Body == "") == (s.Generate == "") {
			return eris.Errorf("step %d: exactly one of body or generate must be set", i)
		}
		if i > 0 && s.Delay <= 0 {
			return eris.Errorf("step %d: delay must be positive", i)
		}
	}
	return nil
}
