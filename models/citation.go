package models

import (
	"time"
)

// Citation is one unique bibliographic source. A source is stored exactly
// once no matter how often it is cited; identity is carried by the raw
// record text, the caller-chosen alias and, when present, the DOI.
type Citation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Alias string `json:"alias" gorm:"uniqueIndex;not null"`
	Raw   string `json:"raw" gorm:"type:text;uniqueIndex;not null"`

	// DOI is a pointer so absent identifiers never collide on the
	// unique index.
	DOI *string `json:"doi,omitempty" gorm:"column:doi;uniqueIndex"`
}

func (Citation) TableName() string { return "citation" }

// Context is one distinct usage circumstance of a citation: which module
// invoked it, the caller's note and the importance level. The
// (reference_id, module, note, level) tuple is unique; repeat mentions of
// the same tuple bump Count instead of inserting a new row.
type Context struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReferenceID uint      `json:"reference_id" gorm:"column:reference_id;not null;index;uniqueIndex:idx_context_tuple,priority:1"`
	Citation    *Citation `json:"-" gorm:"foreignKey:ReferenceID"`

	Module string `json:"module" gorm:"not null;index;uniqueIndex:idx_context_tuple,priority:2"`
	Note   string `json:"note" gorm:"not null;uniqueIndex:idx_context_tuple,priority:3"`

	// Level 1 is the highest priority, level 3 the lowest.
	Level int   `json:"level" gorm:"not null;index;uniqueIndex:idx_context_tuple,priority:4"`
	Count int64 `json:"count" gorm:"not null;index"`
}

func (Context) TableName() string { return "context" }
