package report

import (
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// Generator renders reports with fixed branding.
type Generator struct {
	branding Branding
	clock    prospect.Clock
}

// NewGenerator builds a Generator.
func NewGenerator(branding Branding, clock prospect.Clock) *Generator {
	return &Generator{branding: branding, clock: clock}
}

// Generate builds and renders the report for record.
func (g *Generator) Generate(record prospect.AuditRecord) (Document, []byte, error) {
	doc := Build(record, g.branding, g.clock.Now())
	pdf, err := Render(doc)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, pdf, nil
}

// ObjectPath is the blob path a report for record is stored under.
func ObjectPath(record prospect.AuditRecord) string {
	return "reports/" + record.UserID + "/" + record.ID + ".pdf"
}
