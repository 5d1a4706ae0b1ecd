// Package migrations embeds the QuestDB schema scripts of the candle service.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql scripts.
//
//go:embed *.sql
var FS embed.FS
