package pipeline

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBreakdown(t *testing.T) {
	type in struct {
		rowCounts []uint32
		parts     uint32
	}

	type want struct {
		reports []SliceReport
		worst   uint32
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{[]uint32{0, 0, 0, 0}, 2},
			want{
				[]SliceReport{
					{Index: 1, YStart: 0, YEnd: 2},
					{Index: 2, YStart: 2, YEnd: 4},
				},
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{[]uint32{1, 0, 3, 4, 0}, 2},
			want{
				[]SliceReport{
					{Index: 1, YStart: 0, YEnd: 3, DiffPixelCount: 4, Share: 0.5},
					{Index: 2, YStart: 3, YEnd: 5, DiffPixelCount: 4, Share: 0.5},
				},
				1,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{[]uint32{0, 2, 6}, 5},
			want{
				[]SliceReport{
					{Index: 1, YStart: 0, YEnd: 1},
					{Index: 2, YStart: 1, YEnd: 2, DiffPixelCount: 2, Share: 0.25},
					{Index: 3, YStart: 2, YEnd: 3, DiffPixelCount: 6, Share: 0.75},
				},
				3,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{nil, 3},
			want{nil, 0},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			reports, worst := breakdown(in.rowCounts, in.parts)
			if diff := cmp.Diff(want.reports, reports); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.worst, worst); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
