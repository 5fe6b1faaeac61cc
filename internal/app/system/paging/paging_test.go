package paging

import (
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		def   int
		max   int
		want  int
	}{
		{"missing", "", 20, 100, 20},
		{"valid", "?limit=30", 20, 100, 30},
		{"clamped", "?limit=500", 20, 100, 100},
		{"zero", "?limit=0", 20, 100, 20},
		{"negative", "?limit=-3", 20, 100, 20},
		{"garbage", "?limit=ten", 20, 100, 20},
		{"package defaults", "", 0, 0, DefaultLimit},
		{"package max", "?limit=100000", 0, 0, MaxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/gems/history"+tt.query, nil)
			if got := ParseLimit(r, tt.def, tt.max); got != tt.want {
				t.Errorf("ParseLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReverse(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want []int
	}{
		{"empty", []int{}, []int{}},
		{"single", []int{1}, []int{1}},
		{"even", []int{1, 2, 3, 4}, []int{4, 3, 2, 1}},
		{"odd", []int{1, 2, 3}, []int{3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reverse(tt.in)
			if !reflect.DeepEqual(tt.in, tt.want) {
				t.Errorf("Reverse() = %v, want %v", tt.in, tt.want)
			}
		})
	}
}
