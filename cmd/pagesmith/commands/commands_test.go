package commands

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/packager"
)

// cliEnv runs commands inside a fresh working directory with captured output.
type cliEnv struct {
	t    *testing.T
	root *CLI
	g    *Global
	out  *bytes.Buffer
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Chdir(t.TempDir())
	out := &bytes.Buffer{}
	return &cliEnv{
		t:    t,
		root: &CLI{Config: config.DefaultPath},
		g: &Global{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			Config: config.Default(),
			Out:    out,
		},
		out: out,
	}
}

func (e *cliEnv) output() string {
	s := e.out.String()
	e.out.Reset()
	return s
}

func (e *cliEnv) init(name string) {
	e.t.Helper()
	require.NoError(e.t, (&InitCmd{Name: name}).Run(e.g, e.root))
	e.output()
}

func (e *cliEnv) apply(lines ...string) error {
	e.t.Helper()
	path := filepath.Join(e.t.TempDir(), "actions.jsonl")
	require.NoError(e.t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return (&ApplyCmd{File: path}).Run(e.g)
}

func (e *cliEnv) inspect() summary {
	e.t.Helper()
	e.output()
	require.NoError(e.t, (&InspectCmd{JSON: true}).Run(e.g))
	var sum summary
	require.NoError(e.t, json.Unmarshal(e.out.Bytes(), &sum))
	e.out.Reset()
	return sum
}

func TestInitWritesConfigAndProject(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, (&InitCmd{Name: "Acme"}).Run(env.g, env.root))
	out := env.output()
	assert.Contains(t, out, "Writing configuration to pagesmith.yaml")
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, config.DefaultPath)
	assert.FileExists(t, ".pagesmith/project.db")

	sum := env.inspect()
	assert.Equal(t, "Acme", sum.SiteName)
	assert.Empty(t, sum.Sections)

	// A second init without --force keeps both the config and the project.
	err := (&InitCmd{Name: "Other"}).Run(env.g, env.root)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Equal(t, "Acme", env.inspect().SiteName)
}

func TestApplyActionsAndUndo(t *testing.T) {
	env := newCLIEnv(t)
	env.init("Acme")

	require.NoError(t, env.apply(
		`# build the page`,
		`{"type":"ADD_SECTION","payload":"hero"}`,
		`{"type":"UPDATE_CONTENT","payload":{"id":"hero-1","headline":"Hello"}}`,
		``,
		`{"type":"ADD_SECTION","payload":"faq"}`,
		`{"type":"UNDO"}`,
	))
	assert.Contains(t, env.output(), "applied 4 actions (4 changed the project)")

	sum := env.inspect()
	require.Len(t, sum.Sections, 1)
	assert.Equal(t, "hero-1", sum.Sections[0].ID)
	assert.Equal(t, "centered", sum.Sections[0].Variant)
	assert.Empty(t, sum.Problems)
}

func TestApplyReportsBadLine(t *testing.T) {
	env := newCLIEnv(t)
	env.init("Acme")

	err := env.apply(`{"type":"ADD_SECTION","payload":"hero"}`, `{oops`)
	require.Error(t, err)
	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryValidation, classified.Category())
	line, _ := classified.Context().Get("line")
	assert.Equal(t, 2, line)
}

func TestApplyDryRunDoesNotSave(t *testing.T) {
	env := newCLIEnv(t)
	env.init("Acme")

	path := filepath.Join(t.TempDir(), "a.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"ADD_SECTION","payload":"cta"}`+"\n"), 0o600))
	require.NoError(t, (&ApplyCmd{File: path, DryRun: true}).Run(env.g))
	assert.Empty(t, env.inspect().Sections)
}

func TestExportZipDirAndJSON(t *testing.T) {
	env := newCLIEnv(t)
	env.init("Café Zürich")
	require.NoError(t, env.apply(`{"type":"ADD_SECTION","payload":"hero"}`))

	require.NoError(t, (&ExportCmd{JSON: true, Verify: true}).Run(env.g))
	out := env.output()
	assert.Contains(t, out, filepath.Join("dist", "cafe-zurich.zip"))

	data, err := os.ReadFile(filepath.Join("dist", "cafe-zurich.zip"))
	require.NoError(t, err)
	doc, err := packager.ReadArchive(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "Café Zürich", doc.Settings.SiteName)
	assert.FileExists(t, filepath.Join("dist", "cafe-zurich.json"))

	require.NoError(t, (&ExportCmd{Format: "dir", Output: "site", SkipLegal: true}).Run(env.g))
	assert.FileExists(t, filepath.Join("site", "cafe-zurich", "index.html"))
	assert.NoFileExists(t, filepath.Join("site", "cafe-zurich", "privacy.html"))

	err = (&ExportCmd{Format: "tar"}).Run(env.g)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestPreviewHTML(t *testing.T) {
	env := newCLIEnv(t)
	env.init("Acme")

	require.NoError(t, (&PreviewHTMLCmd{Output: "out"}).Run(env.g))
	data, err := os.ReadFile(filepath.Join("out", "acme-preview.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<style>")
}

func TestRestoreFromBackupAndArchive(t *testing.T) {
	env := newCLIEnv(t)
	env.init("Acme")

	backup := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(backup, []byte(`{"settings":{"siteName":"Restored"},"layout":{"sections":[{"id":"faq-1","type":"faq","enabled":true}],"order":["faq-1"]}}`), 0o600))
	require.NoError(t, (&RestoreCmd{File: backup}).Run(env.g))
	assert.Contains(t, env.output(), `Restored "Restored" with 1 sections`)

	sum := env.inspect()
	assert.Equal(t, "Restored", sum.SiteName)
	require.Len(t, sum.Sections, 1)

	garbage := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`[]`), 0o600))
	err := (&RestoreCmd{File: garbage}).Run(env.g)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	err = (&RestoreCmd{}).Run(env.g)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestMigrateWithoutLegacyProject(t *testing.T) {
	env := newCLIEnv(t)
	env.init("Acme")
	err := (&MigrateCmd{}).Run(env.g)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestPaletteApply(t *testing.T) {
	env := newCLIEnv(t)
	env.init("Acme")

	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := color.NRGBA{R: 200, G: 30, B: 30, A: 255}
			if x >= 8 {
				c = color.NRGBA{R: 20, G: 60, B: 180, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	require.NoError(t, (&PaletteCmd{Image: path, Apply: true, Timeout: 5e9}).Run(env.g))
	out := env.output()
	assert.Contains(t, out, "16x16")
	assert.Contains(t, out, "Applied logo and brand colors")

	s, err := loadStored(t.Context(), env.g)
	require.NoError(t, err)
	defer func() { _ = s.kv.Close() }()
	doc := s.store.GetState()
	assert.True(t, strings.HasPrefix(doc.Brand.Logo, "data:image/png;base64,"))
	assert.NotEqual(t, "", doc.Brand.Colors.Primary)
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, (&VersionCmd{}).Run(env.g))
	assert.True(t, strings.HasPrefix(env.output(), "pagesmith "))
}
