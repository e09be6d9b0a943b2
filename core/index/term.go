package index

import (
	"fmt"
	"strings"
)

// index/Term.java

/*
A Term represents a word from text. This is the unit of search. It is
composed of two elements, the text of the word, as a string, and the
name of the field that the text occurred in.

Terms are comparable values, so they can be used as map keys by the
delete buffers.
*/
type Term struct {
	Field string
	Text  string
}

func NewTerm(field, text string) Term {
	return Term{field, text}
}

func NewTermFromBytes(field string, bytes []byte) Term {
	return Term{field, string(bytes)}
}

func (t Term) Bytes() []byte {
	return []byte(t.Text)
}

// Compares two terms, returning a negative integer if this term
// belongs before the argument, zero if equal, and a positive integer
// if after. The ordering is first by field, then by text.
func (t Term) CompareTo(other Term) int {
	if t.Field == other.Field {
		return strings.Compare(t.Text, other.Text)
	}
	return strings.Compare(t.Field, other.Field)
}

func (t Term) String() string {
	return fmt.Sprintf("%v:%v", t.Field, t.Text)
}

type TermSorter []Term

func (a TermSorter) Len() int           { return len(a) }
func (a TermSorter) Less(i, j int) bool { return a[i].CompareTo(a[j]) < 0 }
func (a TermSorter) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }

// Key used to put a term in the per-segment bloom filter and the
// frozen delete FST. Field names never contain NUL.
func termKey(field string, text []byte) []byte {
	key := make([]byte, 0, len(field)+1+len(text))
	key = append(key, field...)
	key = append(key, 0)
	return append(key, text...)
}

func splitTermKey(key []byte) Term {
	for i, b := range key {
		if b == 0 {
			return Term{string(key[:i]), string(key[i+1:])}
		}
	}
	return Term{string(key), ""}
}
