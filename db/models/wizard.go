package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coursewizard/mention"
	wizard "coursewizard/models"
)

type AnswerDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	SessionID      string             `bson:"session_id"`
	CourseID       string             `bson:"course_id"`
	StudentID      string             `bson:"student_id"`
	StepID         int                `bson:"step_id"`
	Title          string             `bson:"title"`
	SelectedOption string             `bson:"selected_option"`
	Index          int                `bson:"index"` // position in the session's history
	CreatedAt      time.Time          `bson:"created_at"`
}

func NewAnswerDocument(sessionID, courseID, studentID string, index int, entry wizard.AnswerHistoryEntry) AnswerDocument {
	return AnswerDocument{
		SessionID:      sessionID,
		CourseID:       courseID,
		StudentID:      studentID,
		StepID:         entry.StepID,
		Title:          entry.Title,
		SelectedOption: entry.SelectedOption,
		Index:          index,
	}
}

func (d AnswerDocument) Entry() wizard.AnswerHistoryEntry {
	return wizard.AnswerHistoryEntry{StepID: d.StepID, Title: d.Title, SelectedOption: d.SelectedOption}
}

// ContentDocument is a committed rich-text buffer stored as its serialized parts.
type ContentDocument struct {
	ID        primitive.ObjectID    `bson:"_id,omitempty"`
	AuthorID  string                `bson:"author_id,omitempty"`
	Parts     []mention.ContentPart `bson:"parts"`
	Mentions  []string              `bson:"mentions"` // mentioned IDs, for lookups
	CreatedAt time.Time             `bson:"created_at"`
}

func NewContentDocument(authorID string, parts []mention.ContentPart) ContentDocument {
	ids := []string{}
	seen := map[string]bool{}
	for _, p := range parts {
		if !p.IsMention() || seen[p.Data.ID] {
			continue
		}
		seen[p.Data.ID] = true
		ids = append(ids, p.Data.ID)
	}
	return ContentDocument{AuthorID: authorID, Parts: parts, Mentions: ids}
}
