package repository

import (
	"errors"

	"gorm.io/gorm"
)

var ErrDuplicate = errors.New("duplicate record")

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
