// Package core contains the single source of truth for an MSI package's
// schema and data representation: code pages, the interned string pool,
// column/table definitions, the row codec, and stream-name mangling.
package core
