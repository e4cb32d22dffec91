package ports

import (
	"context"
	"testing"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSourceStoreContract runs a suite of tests to verify that a WritableSourceStore
// implementation adheres to the defined interface contract.
func RunSourceStoreContract(t *testing.T, store WritableSourceStore) {
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		src := []byte(`<p tal:content="here/title">Title</p>`)
		require.NoError(t, store.Put(ctx, "contract/page.html", src))

		got, err := store.Get(ctx, "contract/page.html")
		require.NoError(t, err)
		assert.Equal(t, src, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "contract/over.html", []byte("one")))
		require.NoError(t, store.Put(ctx, "contract/over.html", []byte("two")))

		got, err := store.Get(ctx, "contract/over.html")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "contract/missing.html")
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "contract/gone.html", []byte("x")))
		require.NoError(t, store.Delete(ctx, "contract/gone.html"))

		_, err := store.Get(ctx, "contract/gone.html")
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound, "Get after Delete should return ErrTemplateNotFound")

		assert.NoError(t, store.Delete(ctx, "contract/gone.html"), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "contract/b.html", []byte("b")))
		require.NoError(t, store.Put(ctx, "contract/a.html", []byte("a")))
		defer func() {
			_ = store.Delete(ctx, "contract/a.html")
			_ = store.Delete(ctx, "contract/b.html")
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "contract/a.html")
		assert.Contains(t, names, "contract/b.html")
		assert.IsNonDecreasing(t, names)
	})
}
