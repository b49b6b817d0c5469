package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/questline/pkg/adapters/memory"
	"github.com/aretw0/questline/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_ReturnsCopiesInOrder(t *testing.T) {
	b2 := dsl.New(2, "second")
	b2.Add(1).Text("only")
	b1 := dsl.New(1, "first")
	b1.Add(1).Text("only")

	src := b2.MustBuild()
	loader := memory.NewLoader(src, b1.MustBuild())

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 2, got[1].ID)

	got[1].Name = "changed"
	assert.Equal(t, "second", src.Name)
}
