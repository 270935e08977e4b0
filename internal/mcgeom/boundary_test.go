package mcgeom

import (
	"testing"

	"trackgeo/testutil"
)

// The description interface stays independent of the backends that
// implement it and of the manager that drives it.
func TestNoBackendImports(t *testing.T) {
	forbidden := testutil.ImportUnder(
		"trackgeo/internal/legacy",
		"trackgeo/internal/interchange",
		"trackgeo/internal/core",
		"trackgeo/internal/infra",
	)
	testutil.AssertNoDirectImports(t, ".", forbidden, "mcgeom is the shared description interface")
}
