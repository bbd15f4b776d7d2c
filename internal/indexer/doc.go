// Package indexer keeps the catalog in agreement with the image tree.
//
// A Reconciler pass fingerprints every recognized file under the root with
// a bounded worker pool, then classifies each file against the catalog in
// lexical path order:
//   - unknown content at a free path is inserted
//   - unknown content at a claimed path evicts the previous owner first
//   - known content at its recorded path gets its timestamp refreshed
//   - known content at a new path is a move when the recorded path is gone,
//     otherwise a duplicate that is not catalogued again
//   - known entries without metadata are re-extracted once per extractor
//     version
//
// All mutations of a pass share one transaction. Entries whose files were
// deleted are not pruned.
//
// The Coordinator is the single-flight gate callers hit before every read:
// a pass is skipped while another runs or within the cooldown of the last
// successful one. The Indexer runs the initial pass and optional
// background polling through the same gate.
package indexer
