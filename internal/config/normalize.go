package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/normalization"
	"git.home.luguber.info/inful/pagesmith/internal/kvstore"
)

// ExportFormat selects how `export` writes a bundle.
type ExportFormat string

const (
	ExportFormatZip ExportFormat = "zip"
	ExportFormatDir ExportFormat = "dir"
)

var exportFormatNormalizer = normalization.NewEnum("export format", map[string]ExportFormat{
	"zip":       ExportFormatZip,
	"dir":       ExportFormatDir,
	"directory": ExportFormatDir,
}, ExportFormatZip)

var backendNormalizer = normalization.NewEnum("storage backend", map[string]kvstore.Backend{
	"sqlite":  kvstore.BackendSQLite,
	"sqlite3": kvstore.BackendSQLite,
	"file":    kvstore.BackendFile,
	"files":   kvstore.BackendFile,
	"memory":  kvstore.BackendMemory,
	"mem":     kvstore.BackendMemory,
}, kvstore.BackendSQLite)

// NormalizationResult captures adjustments & warnings from the normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerated and bounded fields in place before defaults apply.
func NormalizeConfig(c *Config) *NormalizationResult {
	res := &NormalizationResult{}
	if c == nil {
		return res
	}

	c.Storage.Backend = normalizeEnum(res, "storage.backend", c.Storage.Backend, backendNormalizer)
	c.Export.Format = normalizeEnum(res, "export.format", c.Export.Format, exportFormatNormalizer)

	if raw := string(c.Logging.Level); strings.TrimSpace(raw) != "" {
		lvl := NormalizeLogLevel(raw)
		if string(lvl) != raw {
			res.Warnings = append(res.Warnings, warnChanged("logging.level", raw, lvl))
		}
		c.Logging.Level = lvl
	}
	if raw := string(c.Logging.Format); strings.TrimSpace(raw) != "" {
		f := NormalizeLogFormat(raw)
		if string(f) != raw {
			res.Warnings = append(res.Warnings, warnChanged("logging.format", raw, f))
		}
		c.Logging.Format = f
	}

	c.Storage.Path = strings.TrimSpace(c.Storage.Path)
	c.Export.Output = strings.TrimSpace(c.Export.Output)
	c.Preview.Addr = strings.TrimSpace(c.Preview.Addr)
	return res
}

func normalizeEnum[T ~string](res *NormalizationResult, field string, current T, n *normalization.Enum[T]) T {
	raw := string(current)
	if strings.TrimSpace(raw) == "" {
		return current
	}
	v, err := n.Parse(raw)
	if err != nil {
		def := n.Fallback()
		res.Warnings = append(res.Warnings, warnUnknown(field, raw, string(def)))
		return def
	}
	if v != current {
		res.Warnings = append(res.Warnings, warnChanged(field, raw, v))
	}
	return v
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}
