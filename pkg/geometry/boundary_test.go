package geometry

import (
	"testing"

	"trackgeo/testutil"
)

func TestNoInternalImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "pkg/geometry is public")
}
