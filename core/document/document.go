package document

import (
	"bytes"
	"fmt"
)

// document/Document.java

/*
Documents are the unit of indexing and search.

A Document is a set of fields. Each field has a name and a textual
value. A field may be stored with the document, in which case it is
returned with search hits on the document. Thus each document should
typically contain one or more stored fields which uniquely identify
it.

Note that fields which are not stored are not available in documents
retrieved from the index.
*/
type Document struct {
	fields []IndexableField
}

/** Constructs a new document with no fields. */
func NewDocument() *Document {
	return &Document{make([]IndexableField, 0)}
}

func (doc *Document) Fields() []IndexableField {
	return doc.fields
}

/*
Adds a field to a document. Several fields may be added with the same
name. In this case, if the fields are indexed, their text is treated
as though appended for the purposes of search.

Note that add like the remove methods only makes sense prior to adding
a document to an index. These methods cannot be used to change the
content of an existing index! In order to achieve this, a document has
to be deleted from an index and a new changed version of that document
has to be added.
*/
func (doc *Document) Add(field IndexableField) *Document {
	doc.fields = append(doc.fields, field)
	return doc
}

// Removes all fields with the given name.
func (doc *Document) RemoveFields(name string) {
	kept := doc.fields[:0]
	for _, f := range doc.fields {
		if f.Name() != name {
			kept = append(kept, f)
		}
	}
	doc.fields = kept
}

// Returns the first field with the given name, or nil.
func (doc *Document) Field(name string) IndexableField {
	for _, f := range doc.fields {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

/*
Returns the string value of the field with the given name if any exist
in this document, or "". If multiple fields exist with this name, this
method returns the first value added.
*/
func (doc *Document) Get(name string) string {
	for _, field := range doc.fields {
		if field.Name() == name && field.StringValue() != "" {
			return field.StringValue()
		}
	}
	return ""
}

// Returns the string values of every field with the given name.
func (doc *Document) Values(name string) []string {
	var ans []string
	for _, field := range doc.fields {
		if field.Name() == name && field.BinaryValue() == nil {
			ans = append(ans, field.StringValue())
		}
	}
	return ans
}

// Returns the binary value of the first binary field with the given name.
func (doc *Document) Binary(name string) []byte {
	for _, field := range doc.fields {
		if field.Name() == name {
			if v := field.BinaryValue(); v != nil {
				return v
			}
		}
	}
	return nil
}

func (doc *Document) String() string {
	var buf bytes.Buffer
	buf.WriteString("Document<")
	for i, field := range doc.fields {
		if i > 0 {
			buf.WriteString(" ")
		}
		fmt.Fprint(&buf, field)
	}
	buf.WriteString(">")
	return buf.String()
}
