// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slr-engine/internal/store"
	"github.com/pdiddy/slr-engine/pkg/types"
)

func TestGatherRunResumesIntoSameRun(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "slr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cmd := &cobra.Command{Use: "gather"}
	cmd.SetContext(ctx)

	run, have, err := gatherRun(cmd, st, "", "sorting", `ti:"quick sort"`, 1)
	require.NoError(t, err)
	assert.Zero(t, have)

	head := []types.Record{{ID: "1"}, {ID: "2"}}
	require.NoError(t, st.AppendRecords(ctx, run.ID, store.StageRaw, head))

	resumed, have, err := gatherRun(cmd, st, run.ID, "sorting", `ti:"quick sort"`, 1)
	require.NoError(t, err)
	assert.Equal(t, run.ID, resumed.ID)
	assert.Equal(t, 2, have, "resume starts after the stored head")

	require.NoError(t, st.AppendRecords(ctx, run.ID, store.StageRaw, []types.Record{{ID: "3"}}))
	raw, err := st.Records(ctx, run.ID, store.StageRaw)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, "3", raw[2].ID)

	latest, err := st.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID, "no second run is created")

	_, _, err = gatherRun(cmd, st, "missing", "sorting", "q", 1)
	assert.ErrorIs(t, err, store.ErrNoRun)
}
