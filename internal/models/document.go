// Package models contains domain types for the XML structure store.
package models

// File is one ingested XML document.
type File struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FileSummary is a File with the number of tags recorded for it.
type FileSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	TagCount int64  `json:"tagCount"`
}

// Tag is one element occurrence recorded against a File.
type Tag struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	FileID int64  `json:"fileId"`
}

// Attribute is one name/value pair recorded against a Tag.
type Attribute struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
	TagID int64  `json:"tagId"`
}

// TagDetail is a Tag with its Attributes, as returned by structure listings.
type TagDetail struct {
	Tag
	Attributes []Attribute `json:"attributes"`
}
