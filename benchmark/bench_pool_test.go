//nolint:testpackage // using package name 'benchmark' to access unexported fields for testing
package benchmark

import (
	"fmt"
	"testing"

	pool "github.com/dzonerzy/go-cmdline/internal/pool"
)

// Category: pool

func BenchmarkPool_GetPut(b *testing.B) {
	p := pool.NewPool(func() *[]byte {
		buf := make([]byte, 0, 1024)
		return &buf
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			obj := p.Get()
			p.Put(obj)
		}
	})
}

func BenchmarkPool_vs_Direct(b *testing.B) {
	p := pool.NewPoolWithReset(
		func() *[]string {
			s := make([]string, 0, 16)
			return &s
		},
		func(s *[]string) { *s = (*s)[:0] },
	)

	b.Run("Pool", func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				tokens := p.Get()
				*tokens = append(*tokens, "-b", "main", "https://x")
				p.Put(tokens)
			}
		})
	})

	b.Run("Direct", func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				tokens := make([]string, 0, 16)
				tokens = append(tokens, "-b", "main", "https://x")
				_ = tokens
			}
		})
	})
}

func BenchmarkBufferPool_GetPut(b *testing.B) {
	bp := pool.NewBufferPool()
	for _, size := range []int{64, 256, 1024, 4096} {
		b.Run(fmt.Sprintf("Size%d", size), func(b *testing.B) {
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					buf := bp.Get(size)
					*buf = append(*buf, make([]byte, size/2)...)
					bp.Put(buf)
				}
			})
		})
	}
}

func BenchmarkSharedPools(b *testing.B) {
	b.Run("Buffers", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				buf := pool.GetBuffer(512)
				*buf = append(*buf, "Unknown option: '--prot'"...)
				pool.PutBuffer(buf)
			}
		})
	})
	b.Run("Strings", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				s := pool.GetStrings()
				*s = append(*s, "--port", "--verbose")
				pool.PutStrings(s)
			}
		})
	})
}
