// Package mediatypes defines the extension sets that decide which files the
// gallery catalogs and which of those carry embedded generation metadata.
//
// It has no dependencies on other internal packages so that the indexer,
// handlers and media packages can all import it.
//
//	reg := mediatypes.NewRegistry(cfg.CatalogExtensions, cfg.MetadataExtensions)
//	if reg.IsCatalogued(name) && reg.SupportsMetadata(name) {
//	    // hand the file to the PNG side-channel extractor
//	}
//
// Defaults catalog .png .jpg .jpeg .webp .mp4 .mov and extract metadata from
// .png only.
package mediatypes
