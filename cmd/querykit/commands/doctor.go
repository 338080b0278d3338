package commands

import (
	"fmt"
	"regexp"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/querykit/cmd/querykit/ui"
)

// minimumVersions are the oldest servers whose features the builder relies
// on: InnoDB full-text for MySQL, standard_conforming_strings for Postgres
// and pragma_table_info for SQLite.
var minimumVersions = map[string]string{
	"mysql":    "5.6.0",
	"postgres": "9.1.0",
	"sqlite":   "3.16.0",
}

var leadingVersion = regexp.MustCompile(`^\d+(\.\d+)*`)

// CheckVersion reports whether server satisfies the minimum of dialect.
func CheckVersion(dialect, server string) (bool, string, error) {
	required, ok := minimumVersions[dialect]
	if !ok {
		return false, "", fmt.Errorf("no minimum version for %s", dialect)
	}
	raw := leadingVersion.FindString(server)
	if raw == "" {
		return false, required, fmt.Errorf("cannot parse server version %q", server)
	}
	current, err := version.NewVersion(raw)
	if err != nil {
		return false, required, fmt.Errorf("invalid server version %q: %w", server, err)
	}
	constraint, err := version.NewConstraint(">= " + required)
	if err != nil {
		return false, required, err
	}
	return constraint.Check(current), required, nil
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the connection and server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			start := time.Now()
			e, err := a.executor(ctx)
			if err != nil {
				return err
			}
			drv := e.Driver()
			ui.PrintSuccess(out, "connected to %s in %s", drv.Dialect().Name(), time.Since(start).Round(time.Millisecond))

			server, err := drv.Version(ctx)
			if err != nil {
				return fmt.Errorf("failed to read server version: %w", err)
			}
			ok, required, err := CheckVersion(drv.Dialect().Name(), server)
			if err != nil {
				ui.PrintWarning(out, "%v", err)
				return nil
			}
			if !ok {
				ui.PrintWarning(out, "server %s is older than the supported minimum %s", server, required)
				return nil
			}
			ui.PrintSuccess(out, "server %s (minimum %s)", server, required)
			return nil
		},
	}
}
