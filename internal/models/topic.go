package models

import "time"

// Topic identifies an exam syllabus area for a given position track.
// The (topic_number, position_track) pair is the external identifier
// clients use; the numeric ID is internal.
type Topic struct {
	ID            int64     `json:"id"`
	TopicNumber   int       `json:"topic_number"`
	PositionTrack string    `json:"position_track"`
	Title         string    `json:"title"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

type SourceDocument struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Title    string `json:"title"`
	IsActive bool   `json:"is_active"`
}

// ScopeEntry maps a topic to a source document and the sections of that
// document the topic draws questions from. An empty SectionNumbers slice
// means the entire document is in scope.
type ScopeEntry struct {
	ID               int64    `json:"id"`
	TopicID          int64    `json:"topic_id"`
	SourceDocumentID int64    `json:"source_document_id"`
	SectionNumbers   []string `json:"section_numbers"`
}
