package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	rlerrors "github.com/YuminosukeSato/ranklib/pkg/errors"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		workers int
		want    []Range
	}{
		{name: "empty", n: 0, workers: 4, want: nil},
		{name: "single worker", n: 5, workers: 1, want: []Range{{0, 5}}},
		{name: "even split", n: 8, workers: 4, want: []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{name: "remainder to first chunks", n: 10, workers: 4, want: []Range{{0, 3}, {3, 6}, {6, 8}, {8, 10}}},
		{name: "more workers than items", n: 3, workers: 8, want: []Range{{0, 1}, {1, 2}, {2, 3}}},
		{name: "non-positive workers", n: 4, workers: 0, want: []Range{{0, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Partition(tt.n, tt.workers)
			if len(got) != len(tt.want) {
				t.Fatalf("Partition(%d, %d) = %v, want %v", tt.n, tt.workers, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPartitionCoversRange(t *testing.T) {
	for n := 1; n < 50; n++ {
		for w := 1; w < 12; w++ {
			chunks := Partition(n, w)
			next := 0
			for _, c := range chunks {
				if c.Start != next || c.Len() <= 0 {
					t.Fatalf("n=%d w=%d: bad chunk %v", n, w, c)
				}
				if d := c.Len() - chunks[0].Len(); d > 0 || d < -1 {
					t.Fatalf("n=%d w=%d: uneven chunks %v", n, w, chunks)
				}
				next = c.End
			}
			if next != n {
				t.Fatalf("n=%d w=%d: chunks end at %d", n, w, next)
			}
		}
	}
}

func TestRunWritesDisjointSlices(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		out := make([]int, 100)
		err := Run(workers, len(out), "square", func(start, end int) error {
			for i := start; i < end; i++ {
				out[i] = i * i
			}
			return nil
		})
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		for i, v := range out {
			if v != i*i {
				t.Fatalf("workers=%d: out[%d] = %d", workers, i, v)
			}
		}
	}
}

func TestRunPropagatesError(t *testing.T) {
	sentinel := errors.New("chunk failed")
	var calls atomic.Int32
	err := Run(4, 40, "failing", func(start, end int) error {
		calls.Add(1)
		if start == 10 {
			return sentinel
		}
		return nil
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("every chunk should run to completion, got %d calls", calls.Load())
	}
}

func TestRunRecoversPanic(t *testing.T) {
	for _, workers := range []int{1, 4} {
		err := Run(workers, 8, "panicking", func(start, end int) error {
			panic("index out of range")
		})
		var pe *rlerrors.PanicError
		if !errors.As(err, &pe) {
			t.Fatalf("workers=%d: expected PanicError, got %v", workers, err)
		}
		if pe.Operation != "panicking" {
			t.Errorf("Operation = %q", pe.Operation)
		}
	}
}

func TestForEach(t *testing.T) {
	var sum atomic.Int64
	if err := ForEach(3, 10, "sum", func(i int) error {
		sum.Add(int64(i))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if sum.Load() != 45 {
		t.Errorf("sum = %d", sum.Load())
	}
}
