package models

// Element is a single element-open event produced while scanning a document.
// Attrs keep the order in which they were written.
type Element struct {
	Name  string
	Attrs []ElementAttr
}

// ElementAttr is a name/value pair on an Element.
type ElementAttr struct {
	Name  string
	Value string
}
