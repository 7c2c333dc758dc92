package models

import "time"

// Certificate is the one-way export artifact offered as a download once
// the learner finishes. It is never re-imported.
type Certificate struct {
	Title          string `json:"certificate_title"`
	IssuedTo       string `json:"issued_to"`
	StudentID      string `json:"student_id"`
	CompletionDate string `json:"completion_date"`

	Performance CertificatePerformance `json:"performance"`
	Progress    CertificateProgress    `json:"detailed_progress"`
	Metadata    CertificateMetadata    `json:"metadata"`
}

type CertificatePerformance struct {
	TotalQuestions       int `json:"total_questions"`
	CorrectAnswers       int `json:"correct_answers"`
	CompletionPercentage int `json:"completion_percentage"`
	ChaptersCompleted    int `json:"chapters_completed"`
	TotalChapters        int `json:"total_chapters"`
}

type CertificateProgress struct {
	UserAnswers   map[QuestionID]AnswerRecord `json:"user_answers"`
	ChapterTitles []string                    `json:"chapter_titles"`
	SessionInfo   CertificateSessionInfo      `json:"session_info"`
}

type CertificateSessionInfo struct {
	TotalSessions int       `json:"total_sessions"`
	LastSession   time.Time `json:"last_session"`
}

type CertificateMetadata struct {
	ExportDate time.Time `json:"export_date"`
	Version    string    `json:"version"`
	Platform   string    `json:"platform"`
}
