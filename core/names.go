package core

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// Singular returns the singular form of an underscored name.
func Singular(name string) string {
	return inflection.Singular(name)
}

// Plural returns the plural form of an underscored name.
func Plural(name string) string {
	return inflection.Plural(name)
}

// Underscore converts a type name like "LineItem" to "line_item".
func Underscore(typeName string) string {
	return strcase.ToSnake(typeName)
}

// TableName returns the table backing an entity: "LineItem" and
// "line_item" both map to "line_items".
func TableName(entity string) string {
	return Plural(Underscore(entity))
}

// EntityType returns the runtime type name of the records of a table:
// "line_items" maps to "LineItem".
func EntityType(table string) string {
	return strcase.ToCamel(Singular(table))
}

// Humanize turns an attribute name into a column label: a trailing "_id"
// is dropped, underscores become spaces and the first letter is upper-cased.
func Humanize(attr string) string {
	s := strings.TrimSuffix(attr, "_id")
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
