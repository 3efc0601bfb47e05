// Package migrations embeds the goose SQL migrations so binaries run without a checkout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
