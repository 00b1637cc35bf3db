package db

import "time"

type TreeModel struct {
	ID            string    `gorm:"primaryKey"`
	MaxDepth      uint32    `gorm:"not null"`
	MaxBufferSize uint32    `gorm:"not null"`
	AuthorityBump int16     `gorm:"not null"`
	CurrentRoot   []byte    `gorm:"type:bytea;not null"`
	Seq           int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (TreeModel) TableName() string {
	return "trees"
}

type NoteEventModel struct {
	ID             int64     `gorm:"primaryKey"`
	TreeID         string    `gorm:"uniqueIndex:idx_note_events_tree_seq;not null"`
	Seq            int64     `gorm:"uniqueIndex:idx_note_events_tree_seq;not null"`
	LeafHash       []byte    `gorm:"type:bytea;not null"`
	Owner          []byte    `gorm:"type:bytea;not null"`
	Recipient      []byte    `gorm:"type:bytea;not null"`
	Note           string    `gorm:"type:text;not null"`
	Record         []byte    `gorm:"type:bytea;not null"`
	PrevRecordHash string    `gorm:"not null"`
	RecordHash     string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (NoteEventModel) TableName() string {
	return "note_events"
}
