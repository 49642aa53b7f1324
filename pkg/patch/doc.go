// Package patch parses textual diffs and replays them onto documents whose line numbers may have
// drifted since the diff was produced.
//
// A patch stream is parsed once into a ChangeSet (unified, context, or normal "ed-style" dialect,
// detected from the stream itself). Merge then walks the document and the ChangeSet together,
// relocating hunks with a bounded edit-distance search when their declared position no longer
// matches, and classifies every hunk as clean, conflicting, or already applied. Conflicts are
// reported as data rather than errors so that a single bad hunk never stops the rest of the patch.
//
// ApplyToMemory and ApplyFilesystem wrap the parser and the merge engine for the common cases of
// patching an in-memory string or files on disk.
package patch
