// Package appfs embeds the files the binaries need at runtime: SQL migrations, e-mail templates
// and the common passwords list.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* assets/common-passwords.txt
var FS embed.FS

const CommonPasswordsPath = "assets/common-passwords.txt"
