package sqlgen

import (
	"regexp"
	"strings"

	"github.com/satishbabariya/querykit/query/ast"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)?$`)

// TableName renders a logical table name with the prefix token.
func TableName(name string) (string, error) {
	bare := strings.TrimPrefix(strings.TrimSpace(name), PrefixToken)
	if !tableNamePattern.MatchString(bare) {
		return "", compileErrorf("", "invalid table name %q", name)
	}
	return PrefixToken + bare, nil
}

func tableRef(ref ast.TableRef) (string, error) {
	name, err := TableName(ref.Name)
	if err != nil {
		return "", err
	}
	if ref.Alias == "" {
		return name, nil
	}
	if !tableNamePattern.MatchString(ref.Alias) {
		return "", compileErrorf("", "invalid alias %q", ref.Alias)
	}
	return name + " AS " + ref.Alias, nil
}

func qualifier(ref ast.TableRef) string {
	if ref.Alias != "" {
		return ref.Alias
	}
	name, _ := TableName(ref.Name)
	return name
}

// Join renders a multi-table FROM clause. With spec.On set the join is
// between exactly two tables on the given key pair; otherwise every table
// after the first joins the first one on its entry in spec.Keys.
func (b *Builder) Join(spec ast.JoinSpec) (string, error) {
	if len(spec.Tables) < 2 {
		return "", compileErrorf("", "a join needs at least two tables")
	}

	keyword := "JOIN"
	switch spec.Direction {
	case ast.InnerJoin:
	case ast.LeftJoin, ast.RightJoin:
		keyword = string(spec.Direction) + " JOIN"
	default:
		return "", compileErrorf("", "unknown join direction %q", spec.Direction)
	}

	first, err := tableRef(spec.Tables[0])
	if err != nil {
		return "", err
	}
	lead := qualifier(spec.Tables[0])

	var out strings.Builder
	out.WriteString(first)

	if spec.On != nil {
		if len(spec.Tables) != 2 {
			return "", compileErrorf("", "an explicit key pair joins exactly two tables, got %d", len(spec.Tables))
		}
		if spec.On.Left == "" || spec.On.Right == "" {
			return "", compileErrorf("", "incomplete join key pair")
		}
		second, err := tableRef(spec.Tables[1])
		if err != nil {
			return "", err
		}
		out.WriteString(" " + keyword + " " + second + " ON " +
			lead + "." + spec.On.Left + " = " + qualifier(spec.Tables[1]) + "." + spec.On.Right)
		return out.String(), nil
	}

	if len(spec.Keys) != len(spec.Tables)-1 {
		return "", compileErrorf("", "a flat join needs one key per joined table, got %d keys for %d tables",
			len(spec.Keys), len(spec.Tables))
	}
	for i, ref := range spec.Tables[1:] {
		key := spec.Keys[i]
		if strings.TrimSpace(key) == "" {
			return "", compileErrorf("", "empty join key for %s", ref.Name)
		}
		rendered, err := tableRef(ref)
		if err != nil {
			return "", err
		}
		out.WriteString(" " + keyword + " " + rendered + " ON " +
			lead + "." + key + " = " + qualifier(ref) + "." + key)
	}
	return out.String(), nil
}
