package document

import (
	"bytes"
	"fmt"
)

// index/FieldInfo.java

// Controls how much information is stored in the postings lists.
type IndexOptions int

const (
	// Only documents are indexed: term frequencies are omitted.
	INDEX_OPT_DOCS_ONLY = IndexOptions(1)
	// Documents and term frequencies are indexed.
	INDEX_OPT_DOCS_AND_FREQS = IndexOptions(2)
)

func (opt IndexOptions) String() string {
	switch opt {
	case INDEX_OPT_DOCS_ONLY:
		return "DOCS_ONLY"
	case INDEX_OPT_DOCS_AND_FREQS:
		return "DOCS_AND_FREQS"
	}
	return fmt.Sprintf("IndexOptions(%d)", int(opt))
}

// index/IndexableFieldType.java

// Describes the properties of a field.
type IndexableFieldType interface {
	// True if this field should be indexed (inverted)
	Indexed() bool
	// True if the field's value should be stored
	Stored() bool
	// True if this field's value should be analyzed by the Analyzer.
	Tokenized() bool
	// IndexOptions, describing what should be recorded into the
	// inverted index
	IndexOptions() IndexOptions
}

// document/FieldType.java

// Describes the properties of a field.
type FieldType struct {
	indexed       bool
	stored        bool
	_tokenized    bool
	_indexOptions IndexOptions
	frozen        bool
}

// Create a new mutable FieldType with all of the properties from ref
func NewFieldTypeFrom(ref *FieldType) *FieldType {
	ft := NewFieldType()
	ft.indexed = ref.indexed
	ft.stored = ref.stored
	ft._tokenized = ref._tokenized
	ft._indexOptions = ref._indexOptions
	// Do not copy frozen!
	return ft
}

// Create a new FieldType with default properties.
func NewFieldType() *FieldType {
	return &FieldType{
		_tokenized:    true,
		_indexOptions: INDEX_OPT_DOCS_AND_FREQS,
	}
}

func (ft *FieldType) checkIfFrozen() {
	assert2(!ft.frozen, "this FieldType is already frozen and cannot be changed")
}

/*
Prevents future changes. Note, it is recommended that this is called
once the FieldTypes's properties have been set, to prevent unintentional
state changes.
*/
func (ft *FieldType) Freeze() { ft.frozen = true }

func (ft *FieldType) Indexed() bool       { return ft.indexed }
func (ft *FieldType) SetIndexed(v bool)   { ft.checkIfFrozen(); ft.indexed = v }
func (ft *FieldType) Stored() bool        { return ft.stored }
func (ft *FieldType) SetStored(v bool)    { ft.checkIfFrozen(); ft.stored = v }
func (ft *FieldType) Tokenized() bool     { return ft._tokenized }
func (ft *FieldType) SetTokenized(v bool) { ft.checkIfFrozen(); ft._tokenized = v }

func (ft *FieldType) IndexOptions() IndexOptions { return ft._indexOptions }
func (ft *FieldType) SetIndexOptions(v IndexOptions) {
	ft.checkIfFrozen()
	ft._indexOptions = v
}

// Prints a Field for human consumption.
func (ft *FieldType) String() string {
	var buf bytes.Buffer
	if ft.Stored() {
		buf.WriteString("stored")
	}
	if ft.Indexed() {
		if buf.Len() > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("indexed")
		if ft.Tokenized() {
			buf.WriteString(",tokenized")
		}
		if ft.IndexOptions() != INDEX_OPT_DOCS_AND_FREQS {
			fmt.Fprintf(&buf, ",indexOptions=%v", ft.IndexOptions())
		}
	}
	return buf.String()
}
