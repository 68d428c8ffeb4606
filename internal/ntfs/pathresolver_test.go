package ntfs_test

import (
	"testing"

	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/ostafen/ntfstriage/internal/record"
	"github.com/stretchr/testify/require"
)

func TestPathResolver_ResolveNestedPath(t *testing.T) {
	r := ntfs.NewPathResolver()

	r.Index(&record.MftRecord{
		EntryNumber:       5,
		SequenceNumber:    1,
		FileName:          ".",
		IsDirectory:       true,
		ParentEntryNumber: 5,
		ParentSequenceNum: 1,
	})
	r.Index(&record.MftRecord{
		EntryNumber:       40,
		SequenceNumber:    2,
		FileName:          "Windows",
		IsDirectory:       true,
		ParentEntryNumber: 5,
		ParentSequenceNum: 1,
	})
	r.Index(&record.MftRecord{
		EntryNumber:       41,
		SequenceNumber:    7,
		FileName:          "notepad.exe",
		ParentEntryNumber: 40,
		ParentSequenceNum: 2,
	})

	path, ok, cycle := r.Resolve(41, 7)
	require.True(t, ok)
	require.False(t, cycle)
	require.Equal(t, `\Windows\notepad.exe`, path)
}

func TestPathResolver_StaleParentSequenceMismatch(t *testing.T) {
	r := ntfs.NewPathResolver()
	r.Index(&record.MftRecord{
		EntryNumber:    41,
		SequenceNumber: 7,
		FileName:       "notepad.exe",
	})

	_, ok, _ := r.Resolve(41, 3)
	require.False(t, ok)
}

func TestPathResolver_OrphanedAncestorStillResolvesPrefixed(t *testing.T) {
	r := ntfs.NewPathResolver()
	r.Index(&record.MftRecord{
		EntryNumber:       40,
		SequenceNumber:    9, // parent slot has since been reused
		FileName:          "NewOwner",
		ParentEntryNumber: 5,
		ParentSequenceNum: 1,
	})
	r.Index(&record.MftRecord{
		EntryNumber:       41,
		SequenceNumber:    7,
		FileName:          "notepad.exe",
		ParentEntryNumber: 40,
		ParentSequenceNum: 2, // stale: recorded against sequence 2, now 9
	})

	path, ok, cycle := r.Resolve(41, 7)
	require.True(t, ok)
	require.False(t, cycle)
	require.Equal(t, `<orphan>\NewOwner\notepad.exe`, path)
}

func TestPathResolver_UnknownEntry(t *testing.T) {
	r := ntfs.NewPathResolver()
	_, ok, _ := r.Resolve(999, 1)
	require.False(t, ok)
}

func TestPathResolver_PathCycleFlagsAndTruncates(t *testing.T) {
	r := ntfs.NewPathResolver()
	r.Index(&record.MftRecord{
		EntryNumber:       100,
		SequenceNumber:    1,
		FileName:          "name100",
		ParentEntryNumber: 101,
		ParentSequenceNum: 1,
	})
	r.Index(&record.MftRecord{
		EntryNumber:       101,
		SequenceNumber:    1,
		FileName:          "name101",
		ParentEntryNumber: 100,
		ParentSequenceNum: 1,
	})

	path, ok, cycle := r.Resolve(100, 1)
	require.True(t, ok)
	require.True(t, cycle)
	require.Equal(t, "<cycle>/name100", path)
}

func TestPathResolver_ResolveRecordFlagsPathCycle(t *testing.T) {
	r := ntfs.NewPathResolver()
	r.Index(&record.MftRecord{
		EntryNumber:       100,
		SequenceNumber:    1,
		FileName:          "name100",
		ParentEntryNumber: 101,
		ParentSequenceNum: 1,
	})
	r.Index(&record.MftRecord{
		EntryNumber:       101,
		SequenceNumber:    1,
		FileName:          "name101",
		ParentEntryNumber: 100,
		ParentSequenceNum: 1,
	})

	rec := &record.MftRecord{EntryNumber: 100, SequenceNumber: 1, FileName: "name100"}
	r.ResolveRecord(rec)
	require.Equal(t, "<cycle>/name100", rec.FullPath)
	require.Equal(t, record.KindPathCycle.String(), rec.Note)
}

func TestPathResolver_ResolveRecordFillsFullPath(t *testing.T) {
	r := ntfs.NewPathResolver()
	r.Index(&record.MftRecord{
		EntryNumber:    10,
		SequenceNumber: 1,
		FileName:       "file.txt",
	})

	rec := &record.MftRecord{EntryNumber: 10, SequenceNumber: 1, FileName: "file.txt"}
	r.ResolveRecord(rec)
	require.Equal(t, `\file.txt`, rec.FullPath)
}
