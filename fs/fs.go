// Package appfs embeds the files the binaries need at runtime: SQL migrations, email templates and assets.
package appfs

import "embed"

//go:embed assets migrations templates templates/email/_base.txt templates/email/_base.gohtml
var FS embed.FS
