package memory

import (
	"testing"

	"github.com/code-payments/code-idl/pkg/idl/store/tests"
)

func TestProgramMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*memoryStore).reset()
	}

	tests.RunTests(t, testStore, teardown)
}
