package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formpatch/internal/journal"
	"github.com/goliatone/go-formpatch/pkg/rules"
)

func openJournal(t *testing.T) (*journal.Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "runs.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestRecordAndList(t *testing.T) {
	j, _ := openJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, journal.Entry{
		RunID:      "run-1",
		RecordedAt: base,
		Source:     "form.json",
		Target:     "form.patched.json",
		Rules:      []string{rules.NameArrayDefaulting},
		Changed:    2,
		Status:     journal.StatusApplied,
		Warnings: []rules.Warning{
			{Rule: rules.NameArrayDefaulting, Path: "webhooks", Message: "absent array property defaulted to []"},
			{Rule: rules.NameArrayDefaulting, Path: "calculations", Message: "absent array property defaulted to []"},
		},
	}))
	require.NoError(t, j.Record(ctx, journal.Entry{
		RunID:      "run-2",
		RecordedAt: base.Add(time.Minute),
		Source:     "form.json",
		Status:     journal.StatusFailed,
		Error:      "engine: rule conflict",
	}))

	entries, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "run-2", entries[0].RunID)
	assert.Equal(t, "engine: rule conflict", entries[0].Error)
	assert.Empty(t, entries[0].Warnings)

	first := entries[1]
	assert.True(t, base.Equal(first.RecordedAt), "recorded at %s", first.RecordedAt)
	assert.Equal(t, []string{rules.NameArrayDefaulting}, first.Rules)
	require.Len(t, first.Warnings, 2)
	assert.Equal(t, "webhooks", first.Warnings[0].Path)

	limited, err := j.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-2", limited[0].RunID)
}

func TestRecordRejectsDuplicateRunID(t *testing.T) {
	j, _ := openJournal(t)
	ctx := context.Background()

	entry := journal.Entry{RunID: "dup", Source: "a.json", Status: journal.StatusApplied}
	require.NoError(t, j.Record(ctx, entry))
	require.Error(t, j.Record(ctx, entry))
	require.Error(t, j.Record(ctx, journal.Entry{Source: "a.json"}))
}

func TestReopenKeepsHistory(t *testing.T) {
	j, path := openJournal(t)
	require.NoError(t, j.Record(context.Background(), journal.Entry{RunID: "r", Source: "a.json", Status: journal.StatusDryRun}))
	require.NoError(t, j.Close())

	again, err := journal.Open(path)
	require.NoError(t, err)
	defer again.Close()

	entries, err := again.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusDryRun, entries[0].Status)
}
