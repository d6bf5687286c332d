// Package migrations embute os scripts SQL do schema da loja.
package migrations

import "embed"

// FS contém os arquivos NNNN_nome.{up,down}.sql no formato do golang-migrate.
//
//go:embed *.sql
var FS embed.FS
