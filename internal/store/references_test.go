package store

import (
	"context"
	"testing"
	"time"

	"github.com/dori/taskdeck/internal/docstore"
	"github.com/stretchr/testify/require"
)

func TestReferencesFollowSubscriptions(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemory()
	require.NoError(t, mem.Write(ctx, UsersCollection, "u1", map[string]any{"displayName": "Ada", "email": "ada@example.com"}))
	require.NoError(t, mem.Write(ctx, UsersCollection, "u2", map[string]any{"email": "bob@example.com"}))
	require.NoError(t, mem.Write(ctx, LabelsCollection, "l1", map[string]any{"name": "urgent", "color": "#f00"}))
	require.NoError(t, mem.Write(ctx, ProjectsCollection, "p1", map[string]any{"name": "Launch"}))
	require.NoError(t, mem.Write(ctx, ProjectsCollection, "p2", map[string]any{"name": "Old", "archived": true}))

	refs := NewReferences(mem, nil)
	changed := make(chan struct{}, 16)
	refs.OnChange(func() { changed <- struct{}{} })
	refs.Load(ctx)
	defer refs.Close()

	require.Eventually(t, func() bool {
		return len(refs.Users()) == 2 && len(refs.Labels()) == 1 && len(refs.Projects()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NotEmpty(t, changed)

	require.Equal(t, "Ada", refs.UserName("u1"))
	require.Equal(t, "bob@example.com", refs.UserName("u2"))
	require.Equal(t, "ghost", refs.UserName("ghost"))
	require.Equal(t, "urgent", refs.LabelName("l1"))
	require.Equal(t, "l9", refs.LabelName("l9"))
	require.Equal(t, "Launch", refs.Projects()[0].Name)

	u, ok := refs.User("u1")
	require.True(t, ok)
	require.Equal(t, "u1", u.ID)

	require.NoError(t, mem.Delete(ctx, LabelsCollection, "l1"))
	require.Eventually(t, func() bool { return len(refs.Labels()) == 0 }, 2*time.Second, 10*time.Millisecond)
}
