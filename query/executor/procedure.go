package executor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/satishbabariya/querykit/query/ast"
)

var (
	procedureName = regexp.MustCompile(`^(#__)?[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	variableName  = regexp.MustCompile(`^@?[A-Za-z_][A-Za-z0-9_]*$`)
)

// CallProcedure issues CALL name(args..., @out) and then SELECT @out on the
// same connection. The output value is decoded through the codec; a value
// the codec cannot decode is returned as the raw string. With an empty out
// only the CALL is issued and nil is returned.
func (s *Session) CallProcedure(ctx context.Context, name string, args []any, out string) (any, error) {
	if !procedureName.MatchString(name) {
		return nil, fmt.Errorf("invalid procedure name %q", name)
	}
	if out != "" && !variableName.MatchString(out) {
		return nil, fmt.Errorf("invalid output variable %q", out)
	}

	params := make([]string, 0, len(args)+1)
	for i, arg := range args {
		v, err := s.exec.codec.Resolve(ast.ParseValue(arg))
		if err != nil {
			return nil, err
		}
		lit, err := s.exec.builder.Compiler().Literal(fmt.Sprintf("arg%d", i), v)
		if err != nil {
			return nil, err
		}
		params = append(params, lit)
	}
	variable := ""
	if out != "" {
		variable = "@" + strings.TrimPrefix(out, "@")
		params = append(params, variable)
	}
	call := "CALL " + name + "(" + strings.Join(params, ", ") + ")"

	conn, err := s.exec.driver.Conn(ctx)
	if err != nil {
		return nil, &DriverError{Op: "call", Query: call, Err: err}
	}
	defer conn.Close()

	pinned := s.on(conn)
	if _, err := pinned.execute(ctx, "call", call); err != nil {
		return nil, err
	}
	// a procedure may write anywhere
	s.written()
	if variable == "" {
		return nil, nil
	}

	raw, err := pinned.QueryScalar(ctx, "SELECT "+variable)
	if err != nil {
		return nil, err
	}
	if text, ok := raw.(string); ok {
		return s.exec.codec.Lenient(text), nil
	}
	return raw, nil
}
