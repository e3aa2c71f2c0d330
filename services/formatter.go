package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nickng/bibtex"
)

// bibValue serializes one field value back into BibTeX notation.
// Composite string-concatenation values are joined with " # ", string
// variables keep their name and plain values are brace-protected.
func bibValue(v bibtex.BibString) string {
	switch s := v.(type) {
	case *bibtex.BibComposite:
		parts := make([]string, 0, len(*s))
		for _, p := range *s {
			parts = append(parts, bibValue(p))
		}
		return strings.Join(parts, " # ")
	case *bibtex.BibVar:
		return s.Key
	default:
		return "{" + v.String() + "}"
	}
}

// EntryToBibTeX renders a parsed entry as a raw BibTeX record with its
// fields in alphabetical order.
func EntryToBibTeX(entry *bibtex.BibEntry) string {
	var b strings.Builder
	b.WriteString("@" + entry.Type + "{" + entry.CiteName)
	for _, name := range sortedFieldNames(entry) {
		b.WriteString(",\n " + name + " = " + bibValue(entry.Fields[name]))
	}
	b.WriteString("\n}\n\n")
	return b.String()
}

func sortedFieldNames(entry *bibtex.BibEntry) []string {
	names := make([]string, 0, len(entry.Fields))
	for name := range entry.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func entryField(entry *bibtex.BibEntry, name string) string {
	if v, ok := entry.Fields[name]; ok {
		return strings.TrimSpace(v.String())
	}
	return ""
}

// FormatEntry renders one human-readable citation string for the entry,
// picking the field layout by entry type. Unrecognized types degrade to a
// plain field dump so a single odd record never spoils a whole dump.
func FormatEntry(entry *bibtex.BibEntry) string {
	switch strings.ToLower(entry.Type) {
	case "article":
		return joinEntryFields(entry, "author", "title", "journal", "year", "volume", "pages", "doi")
	case "inbook", "incollection":
		return joinEntryFields(entry, "author", "title", "booktitle", "publisher", "year", "pages", "doi")
	case "phdthesis":
		return joinEntryFields(entry, "author", "title", "school", "year")
	case "misc":
		return joinEntryFields(entry, "author", "title", "howpublished", "url", "year", "note")
	default:
		return dumpEntryFields(entry)
	}
}

// joinEntryFields joins the present fields with semicolons, the layout
// used for rendered citations: authors; title; journal; year; volume;
// pages; doi.
func joinEntryFields(entry *bibtex.BibEntry, names ...string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if v := entryField(entry, name); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "; ") + "."
}

func dumpEntryFields(entry *bibtex.BibEntry) string {
	lines := []string{fmt.Sprintf("%s (%s)", entry.CiteName, entry.Type)}
	for _, name := range sortedFieldNames(entry) {
		lines = append(lines, fmt.Sprintf("%s = %s", name, entryField(entry, name)))
	}
	return strings.Join(lines, "\n")
}
