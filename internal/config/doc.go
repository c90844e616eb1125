// Package config loads stitch's TOML configuration.
//
// Load starts from Default, overlays the file (if any), expands `~` paths,
// applies environment fallbacks for the ffmpeg binaries, and validates the
// result. Every field has a usable default so stitch runs without a file.
package config
