package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderProducesClassifiedError(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	err := WrapError(cause, CategoryPalette, "cannot decode logo").
		UserAction().
		WithContext("mime", "image/png").
		Build()

	assert.Equal(t, CategoryPalette, err.Category())
	assert.Equal(t, SeverityError, err.Severity())
	assert.Equal(t, RetryUserAction, err.RetryStrategy())
	assert.False(t, err.CanRetry())
	assert.True(t, stderrors.Is(err, cause))

	mime, ok := err.Context().GetString("mime")
	require.True(t, ok)
	assert.Equal(t, "image/png", mime)
}

func TestAsClassifiedFollowsWrapChain(t *testing.T) {
	inner := StorageError("sqlite busy").Build()
	wrapped := fmt.Errorf("save envelope: %w", inner)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, HasCategory(wrapped, CategoryStorage))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := ExportError("zip failed").Build()
	derived := base.WithContext("file", "index.html")

	_, ok := base.Context().Get("file")
	assert.False(t, ok)
	file, ok := derived.Context().GetString("file")
	require.True(t, ok)
	assert.Equal(t, "index.html", file)
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryNever},
		{"ValidationError", ValidationError("x"), CategoryValidation, SeverityError, RetryUserAction},
		{"DocumentError", DocumentError("x"), CategoryDocument, SeverityError, RetryNever},
		{"StorageError", StorageError("x"), CategoryStorage, SeverityWarning, RetryBackoff},
		{"PaletteError", PaletteError("x"), CategoryPalette, SeverityError, RetryUserAction},
		{"CompileError", CompileError("x"), CategoryCompile, SeverityFatal, RetryNever},
		{"ExportError", ExportError("x"), CategoryExport, SeverityFatal, RetryNever},
		{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityError, RetryBackoff},
		{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			assert.Equal(t, tt.category, err.Category())
			assert.Equal(t, tt.severity, err.Severity())
			assert.Equal(t, tt.retry, err.RetryStrategy())
		})
	}
}

func TestCLIErrorAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&buf, nil)))
	adapter.out = &buf

	assert.Equal(t, 0, adapter.ExitCodeFor(nil))
	assert.Equal(t, 1, adapter.ExitCodeFor(stderrors.New("boom")))
	assert.Equal(t, 2, adapter.ExitCodeFor(ValidationError("bad action").Build()))
	assert.Equal(t, 4, adapter.ExitCodeFor(PaletteError("bad image").Build()))
	assert.Equal(t, 11, adapter.ExitCodeFor(ExportError("no archive").Build()))

	assert.Equal(t, "Error: bad image", adapter.FormatError(PaletteError("bad image").Build()))
	assert.Equal(t, "Internal error occurred (use -v for details)", adapter.FormatError(InternalError("nil map").Build()))

	code := adapter.HandleError(ExportError("no archive").WithContext("output", "site.zip").Build())
	assert.Equal(t, 11, code)
	assert.Contains(t, buf.String(), "Error: no archive")
	assert.Contains(t, buf.String(), "output=site.zip")
}

func TestHTTPErrorAdapter(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	adapter.WriteErrorResponse(rec, req, NewError(CategoryNotFound, "no such asset").WithContext("path", "assets/img-9.png").Build())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no such asset","code":"not_found","details":{"path":"assets/img-9.png"}}`, rec.Body.String())
	assert.Equal(t, http.StatusInternalServerError, adapter.StatusCodeFor(stderrors.New("plain")))
}
