package meetingintel

import "embed"

// WebFiles holds the dashboard served at /.
//
//go:embed web/*
var WebFiles embed.FS
