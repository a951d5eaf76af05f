package repositories

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrConditionFailed = errors.New("conditional update did not match")
	ErrNotOwner        = errors.New("record belongs to another owner")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

func IsConditionFailedError(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

func IsNotOwnerError(err error) bool {
	return errors.Is(err, ErrNotOwner)
}
