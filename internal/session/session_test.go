package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestFromContextWithoutSession(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(With(context.Background(), ""))
	assert.False(t, ok)
}

func TestNestedScopesRestoreEnclosingSession(t *testing.T) {
	outer := With(context.Background(), "A")

	func() {
		inner := With(outer, "B")
		id, ok := FromContext(inner)
		require.True(t, ok)
		assert.Equal(t, "B", id)
	}()

	id, ok := FromContext(outer)
	require.True(t, ok)
	assert.Equal(t, "A", id)
}

func TestNestedScopeRestoredAfterPanic(t *testing.T) {
	outer := With(context.Background(), "A")

	func() {
		defer func() { recover() }()

		inner := With(outer, "B")
		_ = inner
		panic("handler failure")
	}()

	id, _ := FromContext(outer)
	assert.Equal(t, "A", id)
}

func TestConcurrentSessionsAreIsolated(t *testing.T) {
	g, _ := errgroup.WithContext(context.Background())

	for i := 0; i < 16; i++ {
		expected := fmt.Sprintf("sess-%d", i)

		g.Go(func() error {
			ctx := With(context.Background(), expected)
			for j := 0; j < 1000; j++ {
				if id, _ := FromContext(ctx); id != expected {
					return fmt.Errorf("observed %s, expected %s", id, expected)
				}
			}
			return nil
		})
	}

	assert.NoError(t, g.Wait())
}

func TestResolverFallsBackToAmbientSession(t *testing.T) {
	resolver := NewResolver()

	id, ok := resolver.Resolve(With(context.Background(), "ambient"))
	require.True(t, ok)
	assert.Equal(t, "ambient", id)

	var nilResolver *Resolver
	id, ok = nilResolver.Resolve(With(context.Background(), "ambient"))
	require.True(t, ok)
	assert.Equal(t, "ambient", id)
}

func TestResolverProviderSupersedesAmbientSession(t *testing.T) {
	resolver := NewResolver()
	resolver.SetProvider(func(ctx context.Context) (string, bool) {
		return "request-42", true
	})

	id, ok := resolver.Resolve(With(context.Background(), "ambient"))
	require.True(t, ok)
	assert.Equal(t, "request-42", id)

	resolver.SetProvider(func(ctx context.Context) (string, bool) {
		return "", false
	})
	_, ok = resolver.Resolve(With(context.Background(), "ambient"))
	assert.False(t, ok)

	resolver.SetProvider(nil)
	id, _ = resolver.Resolve(With(context.Background(), "ambient"))
	assert.Equal(t, "ambient", id)
}
