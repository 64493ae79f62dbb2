// Package models defines core data structures for pages, chunks, and property info.
package models

// Page is one page of source text produced by the parser. Text has already had
// structural extraction (tables, headers) flattened into plain text. Immutable
// once produced.
type Page struct {
	Page       int    `json:"page"`
	Text       string `json:"text"`
	City       string `json:"city,omitempty"`
	Regulation string `json:"regulation,omitempty"`
}
