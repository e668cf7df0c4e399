// Package intern keeps canonical copies of option-name strings so the
// matcher can look up short-option cluster characters without allocating.
package intern

import (
	"sync"
	"unsafe"
)

// StringInterner provides thread-safe string interning.
type StringInterner struct {
	strings map[string]string
	mutex   sync.RWMutex
}

// NewStringInterner creates an interner with the given initial capacity.
func NewStringInterner(capacity int) *StringInterner {
	if capacity <= 0 {
		capacity = 64
	}
	return &StringInterner{
		strings: make(map[string]string, capacity),
	}
}

// Intern returns the canonical copy of s.
func (si *StringInterner) Intern(s string) string {
	si.mutex.RLock()
	if interned, exists := si.strings[s]; exists {
		si.mutex.RUnlock()
		return interned
	}
	si.mutex.RUnlock()

	si.mutex.Lock()
	defer si.mutex.Unlock()

	if interned, exists := si.strings[s]; exists {
		return interned
	}
	si.strings[s] = s
	return s
}

// InternBytes interns b without allocating when it is already known.
func (si *StringInterner) InternBytes(b []byte) string {
	si.mutex.RLock()
	interned, exists := si.strings[bytesToString(b)]
	si.mutex.RUnlock()
	if exists {
		return interned
	}
	return si.Intern(string(b))
}

// PreIntern adds strings up front.
func (si *StringInterner) PreIntern(values []string) {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	for _, s := range values {
		si.strings[s] = s
	}
}

// Stats returns the number of interned strings.
func (si *StringInterner) Stats() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()
	return len(si.strings)
}

// Clear removes all interned strings.
func (si *StringInterner) Clear() {
	si.mutex.Lock()
	defer si.mutex.Unlock()
	clear(si.strings)
}

// shortOptions holds "-a".."-z", "-A".."-Z" and "-0".."-9".
var shortOptions = func() [62]string {
	var out [62]string
	for i := range 26 {
		out[i] = "-" + string(rune('a'+i))
		out[26+i] = "-" + string(rune('A'+i))
	}
	for i := range 10 {
		out[52+i] = "-" + string(rune('0'+i))
	}
	return out
}()

func shortIndex(b byte) int {
	switch {
	case b >= 'a' && b <= 'z':
		return int(b - 'a')
	case b >= 'A' && b <= 'Z':
		return 26 + int(b-'A')
	case b >= '0' && b <= '9':
		return 52 + int(b-'0')
	}
	return -1
}

// ShortOption returns the canonical short option name for a cluster
// character, such as "-v" for 'v'. Alphanumeric characters never allocate.
func (si *StringInterner) ShortOption(b byte) string {
	if i := shortIndex(b); i >= 0 {
		return shortOptions[i]
	}
	return si.InternBytes([]byte{'-', b})
}

// bytesToString converts b to a string without copying. The result must not
// outlive b or be retained after b changes.
func bytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// CommonOptionNames are pre-interned by the global interner.
var CommonOptionNames = []string{
	"--help", "--version", "--verbose", "--quiet", "--config",
	"--output", "--input", "--force", "--debug", "--no-color",
}

// GlobalInterner is the process-wide interner used by the matcher.
var GlobalInterner = func() *StringInterner {
	si := NewStringInterner(128)
	si.PreIntern(CommonOptionNames)
	return si
}()

// Intern interns s using the global interner.
func Intern(s string) string {
	return GlobalInterner.Intern(s)
}

// ShortOption returns the canonical short option name for b using the
// global interner.
func ShortOption(b byte) string {
	return GlobalInterner.ShortOption(b)
}
