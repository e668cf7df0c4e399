//nolint:testpackage // using package name 'benchmark' to access unexported fields for testing
package benchmark

import (
	"testing"

	intern "github.com/dzonerzy/go-cmdline/internal/intern"
)

// Category: intern

func BenchmarkStringInterner_Intern(b *testing.B) {
	interner := intern.NewStringInterner(0)
	names := []string{"--port", "--verbose", "--help", "--version", "--config"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		interner.Intern(names[i%len(names)])
	}
}

func BenchmarkStringInterner_InternBytes(b *testing.B) {
	interner := intern.NewStringInterner(0)
	interner.PreIntern([]string{"--port", "--verbose", "--help"})
	tokens := [][]byte{[]byte("--port"), []byte("--verbose"), []byte("--help")}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		interner.InternBytes(tokens[i%len(tokens)])
	}
}

func BenchmarkShortOption(b *testing.B) {
	chars := []byte{'a', 'h', 'v', 'c', 'p', 'D', '1', '?'}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		intern.ShortOption(chars[i%len(chars)])
	}
}

func BenchmarkGlobalIntern(b *testing.B) {
	names := []string{"--port", "--verbose", "--help", "--version", "--config"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		intern.Intern(names[i%len(names)])
	}
}
