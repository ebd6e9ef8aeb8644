// Package storetest checks that a store.Store implementation behaves the
// way the ingest pipeline relies on.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/synclog/pkg/model"
	"github.com/ccollicutt/synclog/pkg/store"
)

// Factory returns an empty store. It should register cleanup with t.
type Factory func(t *testing.T) store.Store

// Run runs the conformance tests against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"CreateVersionAssignsID", testCreateVersionAssignsID},
		{"FindOnlyCompleted", testFindOnlyCompleted},
		{"MarkCompleteUnknown", testMarkCompleteUnknown},
		{"AppendAndCount", testAppendAndCount},
		{"ListVersions", testListVersions},
		{"Reset", testReset},
		{"ConcurrentAppends", testConcurrentAppends},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// base is a fixed parse time; PostgreSQL keeps microseconds only.
var base = time.Date(2021, 5, 1, 10, 0, 0, 123456000, time.UTC)

func version(owner, file, hash string, offset time.Duration) *model.FileVersion {
	return &model.FileVersion{
		Owner:         owner,
		FileName:      file,
		Path:          "/logs/" + owner + "/" + file,
		Hash:          hash,
		HashAlgorithm: "sha256",
		ParsedAt:      base.Add(offset),
	}
}

func mustCreate(t *testing.T, st store.Store, v *model.FileVersion) *model.FileVersion {
	t.Helper()
	created, err := st.CreateVersion(context.Background(), v)
	if err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}
	return created
}

func syncLine(v *model.FileVersion, n int) *model.ClassifiedLine {
	return &model.ClassifiedLine{
		FileVersionID: v.ID,
		Owner:         v.Owner,
		FileName:      v.FileName,
		LineNum:       n,
		Kind:          model.LineKindSync,
		Timestamp:     base.Add(time.Duration(n) * time.Second),
		Database:      "accounts",
		Direction:     model.DirectionFromMaster,
		Author:        "alice",
		Modification:  model.ModificationNew,
		DocumentID:    fmt.Sprintf("doc%d", n),
	}
}

func errorLine(v *model.FileVersion, n int) *model.ClassifiedLine {
	return &model.ClassifiedLine{
		FileVersionID: v.ID,
		Owner:         v.Owner,
		FileName:      v.FileName,
		LineNum:       n,
		Kind:          model.LineKindError,
		Timestamp:     base,
		IsError:       true,
		ErrorText:     "disk full",
	}
}

func testCreateVersionAssignsID(t *testing.T, st store.Store) {
	v := version("alice", "serverdb_1.log", "h1", 0)

	created := mustCreate(t, st, v)

	if _, err := uuid.Parse(created.ID); err != nil {
		t.Errorf("ID = %q, want a UUID: %v", created.ID, err)
	}
	if v.ID != "" {
		t.Error("CreateVersion() modified its argument")
	}
	if created.Complete || created.CompletedAt != nil {
		t.Errorf("new version = %+v, want incomplete", created)
	}
}

func testFindOnlyCompleted(t *testing.T, st store.Store) {
	ctx := context.Background()
	v := mustCreate(t, st, version("alice", "serverdb_1.log", "h1", 0))

	found, err := st.FindCompletedVersion(ctx, "alice", "serverdb_1.log", "h1")
	if err != nil {
		t.Fatalf("FindCompletedVersion() error = %v", err)
	}
	if found != nil {
		t.Fatalf("FindCompletedVersion() = %+v before completion, want nil", found)
	}

	if err := st.MarkComplete(ctx, v); err != nil {
		t.Fatalf("MarkComplete() error = %v", err)
	}
	if !v.Complete || v.CompletedAt == nil {
		t.Errorf("MarkComplete() did not update its argument: %+v", v)
	}

	found, err = st.FindCompletedVersion(ctx, "alice", "serverdb_1.log", "h1")
	if err != nil {
		t.Fatalf("FindCompletedVersion() error = %v", err)
	}
	if found == nil {
		t.Fatal("FindCompletedVersion() = nil after completion")
	}
	if found.ID != v.ID || !found.Complete || found.CompletedAt == nil {
		t.Errorf("FindCompletedVersion() = %+v, want completed %s", found, v.ID)
	}
	if !found.ParsedAt.Equal(base) {
		t.Errorf("ParsedAt = %v, want %v", found.ParsedAt, base)
	}

	misses := []struct{ owner, file, hash string }{
		{"bob", "serverdb_1.log", "h1"},
		{"alice", "serverdb_2.log", "h1"},
		{"alice", "serverdb_1.log", "h2"},
	}
	for _, m := range misses {
		got, err := st.FindCompletedVersion(ctx, m.owner, m.file, m.hash)
		if err != nil {
			t.Fatalf("FindCompletedVersion(%v) error = %v", m, err)
		}
		if got != nil {
			t.Errorf("FindCompletedVersion(%v) = %+v, want nil", m, got)
		}
	}
}

func testMarkCompleteUnknown(t *testing.T, st store.Store) {
	err := st.MarkComplete(context.Background(), &model.FileVersion{ID: uuid.NewString()})
	if !errors.Is(err, store.ErrVersionNotFound) {
		t.Errorf("MarkComplete() error = %v, want ErrVersionNotFound", err)
	}
}

func testAppendAndCount(t *testing.T, st store.Store) {
	ctx := context.Background()
	v := mustCreate(t, st, version("alice", "serverdb_1.log", "h1", 0))
	other := mustCreate(t, st, version("bob", "serverdb_1.log", "h1", time.Second))

	if err := st.AppendLine(ctx, syncLine(v, 1)); err != nil {
		t.Fatalf("AppendLine() error = %v", err)
	}
	if err := st.AppendLine(ctx, &model.UnparsedLine{FileVersionID: v.ID, LineNum: 2, Text: "???"}); err != nil {
		t.Fatalf("AppendLine() error = %v", err)
	}

	batch := []model.Record{
		errorLine(v, 3),
		&model.UnparsedLine{FileVersionID: v.ID, LineNum: 4, Text: "more"},
		syncLine(v, 5),
	}
	if err := st.AppendLines(ctx, batch); err != nil {
		t.Fatalf("AppendLines() error = %v", err)
	}
	if err := st.AppendLines(ctx, nil); err != nil {
		t.Fatalf("AppendLines(nil) error = %v", err)
	}
	if err := st.AppendLine(ctx, syncLine(other, 1)); err != nil {
		t.Fatalf("AppendLine() error = %v", err)
	}

	classified, unparsed, err := st.CountRecords(ctx, v.ID)
	if err != nil {
		t.Fatalf("CountRecords() error = %v", err)
	}
	if classified != 3 || unparsed != 2 {
		t.Errorf("CountRecords() = %d, %d; want 3, 2", classified, unparsed)
	}

	classified, unparsed, err = st.CountRecords(ctx, other.ID)
	if err != nil {
		t.Fatalf("CountRecords() error = %v", err)
	}
	if classified != 1 || unparsed != 0 {
		t.Errorf("CountRecords(other) = %d, %d; want 1, 0", classified, unparsed)
	}

	if err := st.AppendLine(ctx, syncLine(&model.FileVersion{ID: uuid.NewString()}, 1)); err == nil {
		t.Error("AppendLine() for an unknown version succeeded")
	}
}

func testListVersions(t *testing.T, st store.Store) {
	ctx := context.Background()
	first := mustCreate(t, st, version("alice", "serverdb_1.log", "h1", 0))
	second := mustCreate(t, st, version("bob", "serverdb_1.log", "h1", time.Second))
	third := mustCreate(t, st, version("alice", "serverdb_2.log", "h2", 2*time.Second))
	if err := st.MarkComplete(ctx, second); err != nil {
		t.Fatalf("MarkComplete() error = %v", err)
	}

	all, err := st.ListVersions(ctx, "")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	want := []string{first.ID, second.ID, third.ID}
	if len(all) != len(want) {
		t.Fatalf("ListVersions() returned %d versions, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("ListVersions()[%d] = %s, want %s", i, all[i].ID, id)
		}
	}
	if !all[1].Complete || all[0].Complete {
		t.Errorf("completion flags = %v, %v; want false, true", all[0].Complete, all[1].Complete)
	}

	alice, err := st.ListVersions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListVersions(alice) error = %v", err)
	}
	if len(alice) != 2 || alice[0].ID != first.ID || alice[1].ID != third.ID {
		t.Errorf("ListVersions(alice) = %v", alice)
	}

	none, err := st.ListVersions(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListVersions(nobody) error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListVersions(nobody) = %v, want empty", none)
	}
}

func testReset(t *testing.T, st store.Store) {
	ctx := context.Background()
	v := mustCreate(t, st, version("alice", "serverdb_1.log", "h1", 0))
	if err := st.AppendLine(ctx, syncLine(v, 1)); err != nil {
		t.Fatalf("AppendLine() error = %v", err)
	}
	if err := st.MarkComplete(ctx, v); err != nil {
		t.Fatalf("MarkComplete() error = %v", err)
	}

	if err := st.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	versions, err := st.ListVersions(ctx, "")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("ListVersions() after Reset = %v", versions)
	}
	found, err := st.FindCompletedVersion(ctx, "alice", "serverdb_1.log", "h1")
	if err != nil || found != nil {
		t.Errorf("FindCompletedVersion() after Reset = %v, %v", found, err)
	}
	classified, unparsed, err := st.CountRecords(ctx, v.ID)
	if err != nil {
		t.Fatalf("CountRecords() error = %v", err)
	}
	if classified != 0 || unparsed != 0 {
		t.Errorf("CountRecords() after Reset = %d, %d", classified, unparsed)
	}
}

func testConcurrentAppends(t *testing.T, st store.Store) {
	const (
		writers = 8
		lines   = 25
	)
	ctx := context.Background()

	var g errgroup.Group
	for w := 0; w < writers; w++ {
		w := w
		g.Go(func() error {
			v, err := st.CreateVersion(ctx, version(fmt.Sprintf("owner%d", w), "serverdb_1.log", "h", time.Duration(w)*time.Second))
			if err != nil {
				return err
			}
			for n := 1; n <= lines; n++ {
				if err := st.AppendLine(ctx, syncLine(v, n)); err != nil {
					return err
				}
			}
			return st.MarkComplete(ctx, v)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent writers: %v", err)
	}

	versions, err := st.ListVersions(ctx, "")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != writers {
		t.Fatalf("ListVersions() returned %d versions, want %d", len(versions), writers)
	}
	for _, v := range versions {
		if !v.Complete {
			t.Errorf("version of %s is incomplete", v.Owner)
		}
		classified, _, err := st.CountRecords(ctx, v.ID)
		if err != nil {
			t.Fatalf("CountRecords() error = %v", err)
		}
		if classified != lines {
			t.Errorf("%s: %d lines stored, want %d", v.Owner, classified, lines)
		}
	}
}
