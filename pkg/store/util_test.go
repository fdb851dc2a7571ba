package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/wsmontes/linkchart/pkg/common"
)

func TestChunkRange(t *testing.T) {
	var got [][2]int
	err := ChunkRange(7, 3, func(start, end int) error {
		got = append(got, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]int{{0, 3}, {3, 6}, {6, 7}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	calls := 0
	_ = ChunkRange(0, 3, func(int, int) error { calls++; return nil })
	if calls != 0 {
		t.Fatalf("expected no calls for an empty range, got %d", calls)
	}

	boom := errors.New("boom")
	calls = 0
	err = ChunkRange(10, 2, func(int, int) error { calls++; return boom })
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected to stop at the first error, got %v after %d calls", err, calls)
	}
}

func TestSortedEntitiesAndLinks(t *testing.T) {
	g := common.NewGraph()
	for _, id := range []string{"c", "a", "b"} {
		g.Entities[id] = &common.Entity{ID: id}
		g.Links["l"+id] = &common.Link{ID: "l" + id}
	}

	var ids []string
	for _, e := range SortedEntities(g) {
		ids = append(ids, e.ID)
	}
	for _, l := range SortedLinks(g) {
		ids = append(ids, l.ID)
	}
	want := []string{"a", "b", "c", "la", "lb", "lc"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
}
