package appfs

import "embed"

// FS holds the database migrations and email templates shipped with the app.
// The base templates are named explicitly: embed skips _ prefixed files.
//go:embed migrations templates templates/email/_base.txt templates/email/_base.gohtml
var FS embed.FS
