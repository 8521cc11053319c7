package feather2d

import (
	"slices"
	"testing"
)

func TestArena_InsertGet(t *testing.T) {
	var a arena[int, string]

	if id := a.nextID(); id != 0 {
		t.Errorf("nextID() = %d, want 0", id)
	}
	first := a.insert("a")
	second := a.insert("b")
	if first != 0 || second != 1 {
		t.Fatalf("insert() ids = %d, %d, want 0, 1", first, second)
	}

	if v, ok := a.get(second); !ok || v != "b" {
		t.Errorf("get(%d) = %q, %v, want b, true", second, v, ok)
	}
	if _, ok := a.get(2); ok {
		t.Error("get(2) should fail for an unused id")
	}
	if _, ok := a.get(-1); ok {
		t.Error("get(-1) should fail")
	}
	if a.len() != 2 || a.span() != 2 {
		t.Errorf("len() = %d, span() = %d, want 2, 2", a.len(), a.span())
	}
}

func TestArena_RemoveReusesLastFreed(t *testing.T) {
	var a arena[int, string]
	for _, v := range []string{"a", "b", "c", "d"} {
		a.insert(v)
	}

	if !a.remove(1) || !a.remove(2) {
		t.Fatal("remove() of live ids should succeed")
	}
	if a.remove(2) {
		t.Error("remove() of a removed id should fail")
	}
	if _, ok := a.get(1); ok {
		t.Error("get() of a removed id should fail")
	}

	// Most recently freed first
	if id := a.insert("e"); id != 2 {
		t.Errorf("insert() = %d, want 2", id)
	}
	if id := a.insert("f"); id != 1 {
		t.Errorf("insert() = %d, want 1", id)
	}
	if id := a.insert("g"); id != 4 {
		t.Errorf("insert() = %d, want 4", id)
	}
	if a.len() != 5 || a.span() != 5 {
		t.Errorf("len() = %d, span() = %d, want 5, 5", a.len(), a.span())
	}
}

func TestArena_Each(t *testing.T) {
	var a arena[int, int]
	for i := range 6 {
		a.insert(i * 10)
	}
	a.remove(3)

	tests := []struct {
		name string
		fn   func(seen *[]int) func(int, int) bool
		want []int
	}{
		{
			name: "id order, skips removed",
			fn: func(seen *[]int) func(int, int) bool {
				return func(id, _ int) bool {
					*seen = append(*seen, id)
					return true
				}
			},
			want: []int{0, 1, 2, 4, 5},
		},
		{
			name: "stops early",
			fn: func(seen *[]int) func(int, int) bool {
				return func(id, _ int) bool {
					*seen = append(*seen, id)
					return id < 1
				}
			},
			want: []int{0, 1},
		},
		{
			name: "skips objects removed during iteration",
			fn: func(seen *[]int) func(int, int) bool {
				return func(id, _ int) bool {
					*seen = append(*seen, id)
					if id == 0 {
						a.remove(2)
					}
					return true
				}
			},
			want: []int{0, 1, 4, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []int
			a.each(tt.fn(&seen))
			if !slices.Equal(seen, tt.want) {
				t.Errorf("each() visited %v, want %v", seen, tt.want)
			}
		})
	}
}
