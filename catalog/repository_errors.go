package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joshjon/kit/errtag"
)

type ErrTagNotFound[T Entity] struct{ errtag.NotFound }

func (ErrTagNotFound[T]) Msg() string {
	return getTypeName[T]() + " not found"
}

func (e ErrTagNotFound[T]) Unwrap() error {
	return errtag.Tag[errtag.NotFound](e.Cause())
}

type ErrTagConflict[T Entity] struct{ errtag.Conflict }

func (ErrTagConflict[T]) Msg() string {
	return getTypeName[T]() + " conflict"
}

func (e ErrTagConflict[T]) Unwrap() error {
	return errtag.Tag[errtag.Conflict](e.Cause())
}

func getTypeName[T Entity]() string {
	typeName := GetTypeName[T]()
	caser := cases.Title(language.English)
	return caser.String(strings.ToLower(typeName))
}
