package memory_test

import (
	"testing"

	"github.com/aretw0/questline/pkg/adapters/memory"
	"github.com/aretw0/questline/pkg/ports/tests"
)

func TestSessionStore_Contract(t *testing.T) {
	tests.RunSessionStoreContract(t, memory.NewSessionStore())
}

func TestTemplateStore_Contract(t *testing.T) {
	tests.RunTemplateStoreContract(t, memory.NewTemplateStore())
}
