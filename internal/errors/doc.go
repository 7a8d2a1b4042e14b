// Package errors provides coded, structured errors for reaxar.
//
// Every error condition the runtime can surface has a stable code that maps to
// a template: a short message, a longer detail and a documentation link.
// Errors are built from a code and enriched with the registry key involved:
//
//	err := errors.New(errors.CodeServiceNotFound).
//	    WithKey("cart").
//	    Wrap(service.ErrNotFound)
//
//	fmt.Println(err)          // R001: service not found: "cart"
//	fmt.Println(err.Format()) // multi-line terminal rendering
//
// # Error Codes
//
//   - R001-R009: registry and lookup errors
//   - R010-R019: reactive runtime errors
//   - R020-R029: bridge and fetch errors
//   - R030-R039: configuration and CLI errors
//
// ReaError implements Unwrap, so errors.Is and errors.As from the standard
// library see through it to the wrapped sentinel.
package errors
