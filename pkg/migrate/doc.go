// Package migrate provides the per-row transforms used when importing
// exported article and category data into the content platform.
//
// The package is organized around two layered stages:
//
//   - Materializer copies or downloads an asset referenced by a source row
//     into a destination blob store, registers (or reuses) a FileRecord and
//     creates or re-publishes the MediaRecord that wraps it.
//   - Rewriter scans rich text for inline <img> tags, materializes each
//     referenced image and replaces the tag with an embed directive that the
//     rendering layer resolves at display time.
//
// DecodeEntities is a small helper for plain-text fields exported with HTML
// entities.
//
// # Failure Policy
//
// Transforms never abort a migration run. Missing input is a silent no-op,
// fetch failures are logged and recorded on the Row as messages, and a tag
// whose image could not be materialized is left untouched in the output so a
// reviewer can spot and fix it. Collaborators (Fetcher, EntityStore,
// MessageSink) are injected through functional options; implementations live
// in the fetch, repo and storage subpackages.
package migrate
