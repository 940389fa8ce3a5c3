package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadRecord(t *testing.T) {
	lead := &Lead{
		ID:          "lead-1",
		AirtableID:  "recXYZ",
		Name:        "Alice Smith",
		Company:     "Acme Inc",
		Email:       "alice@acme.com",
		Website:     "https://acme.com",
		LinkedInURL: "https://linkedin.com/in/alice",
	}

	rec := lead.Record()
	assert.Equal(t, "lead-1", rec.String("id"))
	assert.Equal(t, "recXYZ", rec.String("airtable_id"))
	assert.Equal(t, "Alice Smith", rec.String(FieldName))
	assert.Equal(t, "alice@acme.com", rec.String(FieldEmail))
}

func TestLeadFirstName(t *testing.T) {
	assert.Equal(t, "Alice", (&Lead{Name: "Alice Smith"}).FirstName())
	assert.Equal(t, "Cher", (&Lead{Name: "Cher"}).FirstName())
	assert.Equal(t, "there", (&Lead{}).FirstName())
	assert.Equal(t, "there", (&Lead{Name: "   "}).FirstName())
}

func TestLeadEngaged(t *testing.T) {
	assert.True(t, (&Lead{Status: LeadStatusReplied}).Engaged())
	assert.False(t, (&Lead{Status: LeadStatusContacted}).Engaged())
	assert.False(t, (&Lead{Status: LeadStatusNew}).Engaged())
}
