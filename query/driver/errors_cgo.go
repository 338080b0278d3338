//go:build cgo

package driver

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

func isCgoDuplicateKey(err error) bool {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
