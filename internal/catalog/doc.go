// Package catalog holds the background image catalog: the record model, the
// ordered metadata mapping, the static category table and the pure
// transforms applied to them.
//
// The transforms are:
//   - AltText: derives descriptive, SEO friendly alt text from a record.
//   - Enricher: adds alt text and a schema.org ImageObject to every record.
//   - FilterByCategory / Filter: selects the records of one category.
//
// None of them perform I/O or return errors. Loading the metadata document
// from disk lives in package metadata.
package catalog
