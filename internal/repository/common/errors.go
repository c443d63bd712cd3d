package common

import (
	"errors"

	"github.com/lib/pq"
)

// Коды ошибок PostgreSQL, означающие проигранную гонку: транзакцию
// можно безопасно повторить.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// IsRetryableConflict сообщает, что транзакция проиграла гонку и
// вызывающий может повторить операцию.
func IsRetryableConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == pgSerializationFailure || code == pgDeadlockDetected || code == pgLockNotAvailable
}

// IsUniqueViolation сообщает о нарушении уникального ограничения.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation
}
