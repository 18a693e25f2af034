package annex

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

func BenchmarkInsertFlat(b *testing.B) {
	ix, err := New(DefaultConfig(128))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	vecs := make([][]float32, b.N)
	for i := range vecs {
		v := make([]float32, 128)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ix.Insert(ctx, fmt.Sprintf("v%d", i), vecs[i]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInsertGraph(b *testing.B) {
	cfg := DefaultConfig(128)
	cfg.FlatThreshold = 10
	ix, err := New(cfg)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	vecs := make([][]float32, b.N)
	for i := range vecs {
		v := make([]float32, 128)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ix.Insert(ctx, fmt.Sprintf("v%d", i), vecs[i]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearchGraph(b *testing.B) {
	cfg := DefaultConfig(128)
	cfg.FlatThreshold = 10
	ix, err := New(cfg)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		v := make([]float32, 128)
		for j := range v {
			v[j] = rng.Float32()
		}
		if err := ix.Insert(ctx, fmt.Sprintf("v%d", i), v); err != nil {
			b.Fatal(err)
		}
	}
	query := make([]float32, 128)
	for j := range query {
		query[j] = rng.Float32()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ix.Search(ctx, query, 10); err != nil {
			b.Fatal(err)
		}
	}
}
