package embeddings_test

import (
	"math"
	"testing"

	"github.com/InfinitiBit/graphbit-go/embeddings"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		sim, err := embeddings.CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3})
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(float64(sim)-1.0) > 1e-4 {
			t.Errorf("similarity = %f, want ~1.0", sim)
		}
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		sim, err := embeddings.CosineSimilarity([]float32{1, 0}, []float32{0, 1})
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(float64(sim)) > 1e-4 {
			t.Errorf("similarity = %f, want ~0", sim)
		}
	})

	t.Run("opposite vectors", func(t *testing.T) {
		sim, err := embeddings.CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(float64(sim)+1.0) > 1e-4 {
			t.Errorf("similarity = %f, want ~-1.0", sim)
		}
	})

	t.Run("bounds hold for arbitrary vectors", func(t *testing.T) {
		vectors := [][]float32{
			{0.3, -0.7, 2.1},
			{1000, 2000, -3000},
			{0.0001, 0.0002, 0.0003},
		}
		for _, a := range vectors {
			for _, b := range vectors {
				sim, err := embeddings.CosineSimilarity(a, b)
				if err != nil {
					t.Fatal(err)
				}
				if sim < -1 || sim > 1 {
					t.Errorf("similarity %f outside [-1, 1]", sim)
				}
			}
		}
	})

	t.Run("dimension mismatch errors", func(t *testing.T) {
		if _, err := embeddings.CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); err == nil {
			t.Error("dimension mismatch accepted")
		}
	})

	t.Run("zero vector yields zero", func(t *testing.T) {
		sim, err := embeddings.CosineSimilarity([]float32{0, 0}, []float32{1, 2})
		if err != nil {
			t.Fatal(err)
		}
		if sim != 0 {
			t.Errorf("similarity = %f, want 0", sim)
		}
	})
}
