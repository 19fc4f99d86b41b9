// Package sources registers the concrete per-format extractors. It is
// imported for side effects from the main package:
//
//	import _ "salesetl/internal/extract/sources"
package sources
