package ast

// TableRef is a logical table name with an optional alias.
type TableRef struct {
	Name  string
	Alias string
}

// Table returns an unaliased reference.
func Table(name string) TableRef {
	return TableRef{Name: name}
}

// As returns an aliased reference.
func (t TableRef) As(alias string) TableRef {
	t.Alias = alias
	return t
}

// Qualifier is the name columns of this table are qualified with.
func (t TableRef) Qualifier() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// JoinDirection selects the join flavour.
type JoinDirection string

const (
	InnerJoin JoinDirection = ""
	LeftJoin  JoinDirection = "LEFT"
	RightJoin JoinDirection = "RIGHT"
)

// KeyPair is an explicit join condition between the two tables of a
// two-table join.
type KeyPair struct {
	Left  string
	Right string
}

// JoinSpec describes a multi-table FROM clause. Either Keys holds one common
// key per table after the first (flat N-table join), or On holds an explicit
// key pair for a two-table join.
type JoinSpec struct {
	Tables    []TableRef
	Keys      []string
	On        *KeyPair
	Direction JoinDirection
}

// ColumnDescriptor describes a live table column.
type ColumnDescriptor struct {
	Name          string
	Type          string
	Default       *string
	Nullable      bool
	AutoIncrement bool
	PrimaryKey    bool
}

// ColumnDef is a column of a CREATE TABLE statement.
type ColumnDef struct {
	Name          string
	Type          string
	Nullable      bool
	Default       *string
	AutoIncrement bool
}

// TableDef is the body of a CREATE TABLE statement.
type TableDef struct {
	Columns    []ColumnDef
	PrimaryKey []string
	Indexes    map[string][]string
	FullText   map[string][]string
	Engine     string
	Charset    string
}
