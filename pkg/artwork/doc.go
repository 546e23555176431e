// ABOUTME: Artwork package handling channel frames and metadata image URLs
// ABOUTME: Provides the per-channel Store and the HTTP Downloader
// Package artwork manages album art for the player.
//
// Artwork arrives two ways: as binary artwork frames on one of four
// channels, and as URLs inside server metadata. The Store keeps the newest
// frame per channel, applying a per-channel timestamp guard so reordered or
// repeated frames never regress the display. The Downloader fetches URL
// artwork into the same temp cache.
//
// Both cache images under os.TempDir() with content- or URL-hashed names,
// so repeated images cost one file.
package artwork
