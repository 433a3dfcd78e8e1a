package compiler

import (
	"bytes"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

type legalData struct {
	Kind, Title, Date                    string
	Site, Company, Address, Email, Phone string
	Analytics                            string
}

// Legal renders privacy.html and impressum.html from settings alone.
func Legal(settings document.Settings, opts Options) ([]Page, error) {
	base := legalData{
		Date:      opts.Now.Format("2006-01-02"),
		Site:      orDefault(settings.SiteName, "Meine Website"),
		Company:   settings.Legal.Company,
		Address:   settings.Legal.Address,
		Email:     orDefault(settings.Legal.Email, "hello@example.com"),
		Phone:     settings.Legal.Phone,
		Analytics: orDefault(settings.Consent.Analytics, document.AnalyticsNone),
	}
	pages := []struct{ name, kind, title string }{
		{PrivacyFile, "privacy", "Datenschutzerklärung"},
		{ImpressumFile, "impressum", "Impressum"},
	}
	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		data := base
		data.Kind, data.Title = p.kind, p.title
		body, err := execute("legal-body", data)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryCompile, "render legal page").
				WithContext("page", p.name).Build()
		}
		var buf bytes.Buffer
		err = templates.ExecuteTemplate(&buf, "page", pageData{
			Lang:    orDefault(settings.Language, "de"),
			Title:   p.title,
			CSSHref: orDefault(opts.CSSHref, StylesFile),
			JSSrc:   orDefault(opts.JSSrc, ScriptFile),
			Body:    body,
			Cookie:  settings.Consent.Enabled,
		})
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryCompile, "render legal page").
				WithContext("page", p.name).Build()
		}
		out = append(out, Page{Name: p.name, HTML: buf.String()})
	}
	return out, nil
}
