package packager

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// File is one entry of a bundle. Name is slash-separated and relative.
type File struct {
	Name string
	Data []byte
}

// Bundle is the packaged site.
type Bundle struct {
	ID       uuid.UUID
	Name     string
	Modified time.Time
	Files    []File
	Assets   []Asset
	// Document is the rewritten document the site was compiled from.
	Document *document.Document
}

func (b *Bundle) add(name string, data []byte) {
	b.Files = append(b.Files, File{Name: name, Data: data})
}

// File returns the contents of a bundle entry.
func (b *Bundle) File(name string) ([]byte, bool) {
	for _, f := range b.Files {
		if f.Name == name {
			return f.Data, true
		}
	}
	return nil, false
}

// ArchiveName is the suggested file name of the zip archive.
func (b *Bundle) ArchiveName() string {
	return b.Name + ".zip"
}

// Size is the total uncompressed size of all entries.
func (b *Bundle) Size() int {
	n := 0
	for _, f := range b.Files {
		n += len(f.Data)
	}
	return n
}

// stored reports whether an entry is already compressed and should not be deflated again.
func stored(name string) bool {
	switch path.Ext(name) {
	case ".png", ".jpg", ".webp", ".gif":
		return true
	}
	return false
}

// WriteZip writes the bundle as a zip archive. Entries keep bundle order and
// carry the bundle's modification time, so equal bundles give equal archives.
func (b *Bundle) WriteZip(w io.Writer) error {
	if w == nil {
		return errors.ExportError("archive writer is missing").Build()
	}
	zw := zip.NewWriter(w)
	for _, f := range b.Files {
		method := zip.Deflate
		if stored(f.Name) {
			method = zip.Store
		}
		hdr := &zip.FileHeader{Name: f.Name, Method: method, Modified: b.Modified.UTC()}
		hdr.SetMode(0o644)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return errors.WrapError(err, errors.CategoryExport, "create archive entry").
				WithContext("entry", f.Name).Build()
		}
		if _, err := fw.Write(f.Data); err != nil {
			return errors.WrapError(err, errors.CategoryExport, "write archive entry").
				WithContext("entry", f.Name).Build()
		}
	}
	if err := zw.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryExport, "finish archive").Build()
	}
	return nil
}

// Zip returns the archive bytes.
func (b *Bundle) Zip() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.WriteZip(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDir writes every entry below dir, creating directories as needed.
func (b *Bundle) WriteDir(dir string) error {
	for _, f := range b.Files {
		target, err := safeJoin(dir, f.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
				WithContext("path", filepath.Dir(target)).Build()
		}
		if err := os.WriteFile(target, f.Data, 0o600); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "write bundle file").
				WithContext("path", target).Build()
		}
	}
	return nil
}

func safeJoin(dir, name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(name, "..") {
		return "", errors.ExportError(fmt.Sprintf("unsafe bundle entry %q", name)).Build()
	}
	return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// ReadArchive loads the backup document from a bundle archive.
func ReadArchive(r io.ReaderAt, size int64) (*document.Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "not a zip archive").UserAction().Build()
	}
	for _, f := range zr.File {
		if f.Name != BackupFile {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryExport, "open backup entry").Build()
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryExport, "read backup entry").Build()
		}
		return RestoreBackup(data)
	}
	return nil, errors.ValidationError("archive has no " + BackupFile).Build()
}
