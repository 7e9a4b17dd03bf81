package datastore

import (
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/microtrax/microtrax/internal/errors"
)

// ErrNotFound is wrapped by lookups that match no row. Test with
// errors.Is or errors.IsNotFound.
var ErrNotFound = errors.NewStd("record not found")

func dbError(err error, operation, table string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(ErrNotFound).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("operation", operation).
			Context("table", table).
			Build()
	}
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("table", table).
		Build()
}
