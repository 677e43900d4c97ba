package core

// Identity identifies the author of store commits.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Database struct {
	Name string `json:"name"`
}

type ColumnType int

const (
	StringType ColumnType = iota
	IntType
	FloatType
	BoolType
	TextType
	DateType
	TimestampType
	JsonType
)

type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	PrimaryKey bool       `json:"primaryKey"`
}

type AssociationKind int

const (
	// BelongsTo resolves to the single record whose primary key equals
	// the owner's foreign key column.
	BelongsTo AssociationKind = iota
	// HasMany resolves to a source of records whose foreign key column
	// equals the owner's primary key.
	HasMany
)

// Association declares a named relation from one table to another.
type Association struct {
	Name       string          `json:"name"`
	Kind       AssociationKind `json:"kind"`
	Table      string          `json:"table"`
	ForeignKey string          `json:"foreignKey"`
}

type Table struct {
	Database     string        `json:"database"`
	Name         string        `json:"name"`
	Columns      []Column      `json:"columns"`
	Associations []Association `json:"associations,omitempty"`
}

// Column returns the column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the name of the primary key column, or "id" when the
// schema does not flag one.
func (t Table) PrimaryKey() string {
	for _, col := range t.Columns {
		if col.PrimaryKey {
			return col.Name
		}
	}
	return "id"
}

// Association returns the association with the given name.
func (t Table) Association(name string) (Association, bool) {
	for _, a := range t.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}
