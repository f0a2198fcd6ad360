package pubsite

import "embed"

// EmbeddedAssets contains the stylesheet and admin script served under /public/.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
