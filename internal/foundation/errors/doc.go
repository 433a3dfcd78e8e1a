// Package errors provides the classified error primitives shared by every pagesmith package.
//
// A ClassifiedError carries a category (document, storage, palette, compile, export, ...),
// a severity and a retry hint. The CLI and HTTP adapters turn those into exit codes,
// status codes and log levels so callers never switch on error strings.
//
//	err := errors.PaletteError("cannot decode logo").
//		WithCause(decodeErr).
//		WithContext("mime", "image/tiff").
//		Build()
package errors
