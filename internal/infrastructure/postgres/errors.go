package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL のエラーコード
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	classIntegrity          = "23"
	classDataException      = "22"
)

// pqError は err から *pq.Error を取り出す
func pqError(err error) (*pq.Error, bool) {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pgErr, ok := pqError(err)
	return ok && pgErr.Code == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := pqError(err)
	return ok && pgErr.Code == codeForeignKeyViolation
}

// isInvalidData は制約違反やデータ不正など、入力値に起因するエラーかを返す
func isInvalidData(err error) bool {
	pgErr, ok := pqError(err)
	if !ok {
		return false
	}
	class := string(pgErr.Code.Class())
	return class == classIntegrity || class == classDataException
}
