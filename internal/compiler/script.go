package compiler

import (
	_ "embed"
	"encoding/json"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/document"
)

//go:embed assets/main.js
var mainJS string

// scriptConfig is the CONFIG object embedded in the behavior script.
type scriptConfig struct {
	Consent struct {
		Enabled     bool                       `json:"enabled"`
		Analytics   string                     `json:"analytics"`
		PrivacyLink string                     `json:"privacyLink"`
		Categories  document.ConsentCategories `json:"categories"`
	} `json:"consent"`
	Features document.Features `json:"features"`
}

// ConsentStorageKey is the localStorage key of the visitor's consent record.
const ConsentStorageKey = "sb5_consent_v1"

// Script returns the self-contained behavior script for settings.
func Script(settings document.Settings) (string, error) {
	var cfg scriptConfig
	cfg.Consent.Enabled = settings.Consent.Enabled
	cfg.Consent.Analytics = orDefault(settings.Consent.Analytics, document.AnalyticsNone)
	cfg.Consent.PrivacyLink = orDefault(settings.Consent.PrivacyLink, "privacy.html")
	cfg.Consent.Categories = settings.Consent.Categories
	cfg.Consent.Categories.Necessary = true
	cfg.Features = settings.Features

	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("(function(){\n'use strict';\nconst CONFIG = ")
	b.Write(raw)
	b.WriteString(";\n")
	b.WriteString(mainJS)
	b.WriteString("})();\n")
	return b.String(), nil
}
