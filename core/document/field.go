package document

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/navychen2003/javen-sub011/core/analysis"
)

// index/IndexableField.java

// Represents a single field for indexing.
type IndexableField interface {
	// Field name
	Name() string
	// IndexableFieldType describing the properties of this field.
	FieldType() IndexableFieldType
	// Non-empty if this field has a string value.
	StringValue() string
	// Non-nil if this field has a binary value.
	BinaryValue() []byte
	// Non-nil if this field has a numeric (int64) value.
	NumericValue() interface{}
	/*
		Creates the TokenStream used for indexing this field. If
		appropriate, implementations should use the given Analyzer to
		create the TokenStreams.
	*/
	TokenStream(analyzer analysis.Analyzer) (analysis.TokenStream, error)
}

// document/Field.java

/*
Expert: directly create a field for a document. Most users should use
one of the sugar subclasses: StringField, TextField, StoredField.
*/
type Field struct {
	_type *FieldType  // Field's type
	_name string      // Field's name
	_data interface{} // Field's value

	/*
		Pre-analyzed tokenStream for indexed fields; this is separate
		from the field data because you are allowed to have both; eg
		maybe field has a String value but you customize how it's
		tokenized
	*/
	_tokenStream analysis.TokenStream
}

/* Create field with Reader value. */
func NewFieldFromReader(name string, reader io.Reader, ft *FieldType) *Field {
	assert2(name != "", "name cannot be empty")
	assert2(ft != nil, "type can not be nil")
	assert2(reader != nil, "reader cannot be nil")
	assert2(!ft.Stored(), "fields with a Reader value cannot be stored")
	assert2(!ft.Indexed() || ft.Tokenized(), "non-tokenized fields must use String values")
	return &Field{_type: ft, _name: name, _data: reader}
}

/* Create field with a pre-analyzed TokenStream value. */
func NewFieldFromTokenStream(name string, tokenStream analysis.TokenStream, ft *FieldType) *Field {
	assert2(name != "", "name cannot be empty")
	assert2(tokenStream != nil, "tokenStream cannot be nil")
	assert2(ft.Indexed() && ft.Tokenized(), "TokenStream fields must be indexed and tokenized")
	assert2(!ft.Stored(), "TokenStream fields cannot be stored")
	return &Field{_type: ft, _name: name, _tokenStream: tokenStream}
}

// Create field with String value
func NewFieldFromString(name, value string, ft *FieldType) *Field {
	assert2(name != "", "name cannot be empty")
	assert2(ft.stored || ft.indexed,
		"it doesn't make sense to have a field that is neither indexed nor stored")
	return &Field{_type: ft, _name: name, _data: value}
}

// Create field with binary value
func NewFieldFromBytes(name string, value []byte, ft *FieldType) *Field {
	assert2(name != "", "name cannot be empty")
	assert2(!ft.Indexed(), "fields with a binary value cannot be indexed")
	return &Field{_type: ft, _name: name, _data: value}
}

func (f *Field) StringValue() string {
	switch v := f._data.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func (f *Field) ReaderValue() io.Reader {
	if v, ok := f._data.(io.Reader); ok {
		return v
	}
	return nil
}

func (f *Field) Name() string {
	return f._name
}

func (f *Field) NumericValue() interface{} {
	if v, ok := f._data.(int64); ok {
		return v
	}
	return nil
}

func (f *Field) BinaryValue() []byte {
	if v, ok := f._data.([]byte); ok {
		return v
	}
	return nil
}

func (f *Field) FieldType() IndexableFieldType {
	return f._type
}

func (f *Field) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%v<%v:", f._type, f._name)
	switch v := f._data.(type) {
	case nil:
	case []byte:
		fmt.Fprintf(&buf, "%x", v)
	default:
		fmt.Fprint(&buf, v)
	}
	fmt.Fprint(&buf, ">")
	return buf.String()
}

func (f *Field) TokenStream(analyzer analysis.Analyzer) (ts analysis.TokenStream, err error) {
	if !f._type.Indexed() {
		return nil, nil
	}

	if !f._type.Tokenized() {
		return newStringTokenStream(f.StringValue()), nil
	}

	if f._tokenStream != nil {
		return f._tokenStream, nil
	} else if r := f.ReaderValue(); r != nil {
		return analyzer.TokenStream(f._name, r)
	} else if _, ok := f._data.(string); ok {
		return analysis.TokenStreamForString(analyzer, f._name, f.StringValue())
	}
	return nil, fmt.Errorf("field must have either TokenStream, String or Reader value; got %v", f)
}

// A TokenStream that returns a string as single token.
type StringTokenStream struct {
	*analysis.TokenStreamImpl
	used  bool
	value string
}

func newStringTokenStream(value string) *StringTokenStream {
	return &StringTokenStream{
		TokenStreamImpl: analysis.NewTokenStream(),
		value:           value,
	}
}

func (ts *StringTokenStream) IncrementToken() (bool, error) {
	if ts.used {
		return false, nil
	}
	tok := ts.Token()
	tok.Clear()
	tok.SetTerm(ts.value)
	tok.StartOffset, tok.EndOffset = 0, len(ts.value)
	ts.used = true
	return true, nil
}

func (ts *StringTokenStream) End() error {
	tok := ts.Token()
	tok.PositionIncrement = 0
	tok.StartOffset, tok.EndOffset = len(ts.value), len(ts.value)
	return nil
}

func (ts *StringTokenStream) Reset() error {
	ts.used = false
	return nil
}

/* Specifies whether and how a field should be stored. */
type Store int

/*
Store the original field value in the index. This is useful for short
texts like a document's title which should be displayed with the
results. The value is stored in its original form, i.e. no analyzer
is used before it is stored.
*/
const STORE_YES = Store(1)

/* Do not store the field's value in the index. */
const STORE_NO = Store(2)

// document/StringField.java

/* Indexed, not tokenized, indexes DOCS_ONLY, not stored. */
var STRING_FIELD_TYPE_NOT_STORED = func() *FieldType {
	ft := NewFieldType()
	ft.indexed = true
	ft._indexOptions = INDEX_OPT_DOCS_ONLY
	ft._tokenized = false
	ft.frozen = true
	return ft
}()

/* Indexed, not tokenized, indexes DOCS_ONLY, stored */
var STRING_FIELD_TYPE_STORED = func() *FieldType {
	ft := NewFieldTypeFrom(STRING_FIELD_TYPE_NOT_STORED)
	ft.stored = true
	ft.frozen = true
	return ft
}()

/*
A field that is indexed but not tokenized: the entire String value is
indexed as a single token. For example, this might be used for a
'country' field or an 'id' field.
*/
type StringField struct {
	*Field
}

func NewStringField(name, value string, stored Store) *StringField {
	ft := STRING_FIELD_TYPE_NOT_STORED
	if stored == STORE_YES {
		ft = STRING_FIELD_TYPE_STORED
	}
	return &StringField{NewFieldFromString(name, value, ft)}
}

// document/TextField.java

/* indexed, tokenized, not stored. */
var TEXT_FIELD_TYPE_NOT_STORED = func() *FieldType {
	ft := NewFieldType()
	ft.indexed = true
	ft._tokenized = true
	ft.frozen = true
	return ft
}()

/* indexed, tokenized, stored. */
var TEXT_FIELD_TYPE_STORED = func() *FieldType {
	ft := NewFieldTypeFrom(TEXT_FIELD_TYPE_NOT_STORED)
	ft.stored = true
	ft.frozen = true
	return ft
}()

/*
A field that is indexed and tokenized. For example, this would be used
on a 'body' field, that contains the bulk of a document's text.
*/
type TextField struct {
	*Field
}

/* Creates a new un-stored TextField with Reader value */
func NewTextFieldFromReader(name string, reader io.Reader) *TextField {
	return &TextField{NewFieldFromReader(name, reader, TEXT_FIELD_TYPE_NOT_STORED)}
}

func NewTextFieldFromString(name, value string, store Store) *TextField {
	ft := TEXT_FIELD_TYPE_NOT_STORED
	if store == STORE_YES {
		ft = TEXT_FIELD_TYPE_STORED
	}
	return &TextField{NewFieldFromString(name, value, ft)}
}

// document/StoredField.java

// Type for a stored-only field.
var STORED_FIELD_TYPE = func() *FieldType {
	ans := NewFieldType()
	ans.stored = true
	ans.frozen = true
	return ans
}()

/*
A field whose value is stored so that IndexReader.Document() will
return the field and its value.
*/
type StoredField struct {
	*Field
}

func NewStoredFieldFromString(name, value string) *StoredField {
	return &StoredField{NewFieldFromString(name, value, STORED_FIELD_TYPE)}
}

/*
Create a stored-only field with the given binary value.

NOTE: the provided []byte is not copied so be sure not to change it
until you're done with this field.
*/
func NewStoredFieldFromBytes(name string, value []byte) *StoredField {
	return &StoredField{NewFieldFromBytes(name, value, STORED_FIELD_TYPE)}
}

func NewStoredFieldFromInt64(name string, value int64) *StoredField {
	return &StoredField{&Field{_type: STORED_FIELD_TYPE, _name: name, _data: value}}
}

func assert2(ok bool, msg string) {
	if !ok {
		panic(msg)
	}
}
