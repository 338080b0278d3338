package ast

// Field is one column/value pair of a row.
type Field struct {
	Column string
	Value  Value
}

// Row is an ordered mapping of column names to values.
type Row []Field

// RowSet is a sequence of rows for multi-row inserts.
type RowSet []Row

// Set replaces the value of column or appends it.
func (r Row) Set(column string, v Value) Row {
	for i := range r {
		if r[i].Column == column {
			r[i].Value = v
			return r
		}
	}
	return append(r, Field{Column: column, Value: v})
}

// Get returns the value stored for column.
func (r Row) Get(column string) (Value, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Column
	}
	return cols
}

// SameColumns reports whether both rows name the same set of columns.
func (r Row) SameColumns(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for _, f := range r {
		if _, ok := other.Get(f.Column); !ok {
			return false
		}
	}
	return true
}
