// Package hasher computes content fingerprints for catalog identity.
//
// Files are streamed in fixed-size blocks so memory stays bounded for large
// videos. Identical bytes always produce the identical fingerprint, whatever
// the file's name, location or modification time; the catalog relies on
// this to recognize moves and duplicates.
package hasher
