package pages

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks the sort order and pagination bounds.
func (f Filter) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Sort, validation.In(SortIndex, SortTitle, SortPublished, SortModified)),
		validation.Field(&f.Limit, validation.Min(0)),
		validation.Field(&f.Offset, validation.Min(0)),
	)
}
