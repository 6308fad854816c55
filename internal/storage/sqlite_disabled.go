//go:build !sqlite
// +build !sqlite

package storage

import (
	"errors"

	logx "pricebot/pkg/logx"
)

// Stub for builds without the sqlite tag; keeps the default build light.
func openSQLite(Config, logx.Logger) (Store, error) {
	return nil, errors.New("sqlite storage not built: build with -tags sqlite")
}
