package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/itqan-learning/progress-service/internal/models"
	"github.com/itqan-learning/progress-service/internal/utils"
)

const (
	certificateTitle    = "ITQAN Institute - English Learning Certificate"
	certificatePlatform = "ITQAN Interactive English Learning Platform"
)

// CertificateService builds the one-way completion export in JSON and
// XLSX form.
type CertificateService interface {
	Build(user *models.UserInfo, progress *models.PersistedProgress, chapterTitles []string) (*models.Certificate, error)
	ExportJSON(cert *models.Certificate) ([]byte, error)
	ExportXLSX(cert *models.Certificate) ([]byte, error)
	Filename(cert *models.Certificate, format string) string
}

type certificateService struct {
	logger utils.Logger
	now    func() time.Time
}

func NewCertificateService(logger utils.Logger) CertificateService {
	return &certificateService{logger: logger, now: time.Now}
}

// Build assembles the certificate from registered identity plus the
// current progress snapshot. Identity and at least one graded answer are
// required; there is nothing to certify otherwise.
func (s *certificateService) Build(user *models.UserInfo, progress *models.PersistedProgress, chapterTitles []string) (*models.Certificate, error) {
	if user == nil || user.Name == "" {
		return nil, ErrCertificateNotEarned
	}
	graded := 0
	for _, rec := range progress.UserAnswers {
		if rec.Graded() {
			graded++
		}
	}
	if graded == 0 {
		return nil, ErrCertificateNotEarned
	}

	now := s.now()
	cert := &models.Certificate{
		Title:          certificateTitle,
		IssuedTo:       user.Name,
		StudentID:      user.StudentID,
		CompletionDate: now.Format("1/2/2006"),
		Performance: models.CertificatePerformance{
			TotalQuestions:       progress.Stats.TotalQuestions,
			CorrectAnswers:       progress.Stats.CorrectAnswers,
			CompletionPercentage: progress.Stats.CompletionPercentage(),
			ChaptersCompleted:    progress.Stats.ChaptersCompleted,
			TotalChapters:        len(chapterTitles),
		},
		Progress: models.CertificateProgress{
			UserAnswers:   progress.UserAnswers,
			ChapterTitles: chapterTitles,
			SessionInfo: models.CertificateSessionInfo{
				TotalSessions: progress.TotalSessions,
				LastSession:   now,
			},
		},
		Metadata: models.CertificateMetadata{
			ExportDate: now,
			Version:    models.ProgressVersion,
			Platform:   certificatePlatform,
		},
	}

	s.logger.Info("Certificate built",
		"issued_to", cert.IssuedTo,
		"correct_answers", cert.Performance.CorrectAnswers,
		"total_questions", cert.Performance.TotalQuestions)
	return cert, nil
}

func (s *certificateService) ExportJSON(cert *models.Certificate) ([]byte, error) {
	return json.MarshalIndent(cert, "", "  ")
}

// ExportXLSX writes a two-sheet workbook: a summary sheet and a
// per-question answer sheet.
func (s *certificateService) ExportXLSX(cert *models.Certificate) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "Summary"

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	summary := [][]interface{}{
		{"Certificate", cert.Title},
		{"Issued To", cert.IssuedTo},
		{"Student ID", cert.StudentID},
		{"Completion Date", cert.CompletionDate},
		{"Total Questions", cert.Performance.TotalQuestions},
		{"Correct Answers", cert.Performance.CorrectAnswers},
		{"Completion %", cert.Performance.CompletionPercentage},
		{"Chapters Completed", fmt.Sprintf("%d of %d", cert.Performance.ChaptersCompleted, cert.Performance.TotalChapters)},
		{"Total Sessions", cert.Progress.SessionInfo.TotalSessions},
		{"Platform", cert.Metadata.Platform},
	}
	for rowIndex, row := range summary {
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+1)
			f.SetCellValue(summarySheet, cell, value)
		}
	}

	answerSheet := "Answers"
	if _, err := f.NewSheet(answerSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{"Question ID", "Answer", "Graded", "Correct"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(answerSheet, cell, header)
	}

	for rowIndex, id := range sortedQuestionIDs(cert.Progress.UserAnswers) {
		rec := cert.Progress.UserAnswers[id]
		row := []interface{}{string(id), describeAnswer(rec.Answer), rec.Graded(), rec.Correct()}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(answerSheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename derives the download name from the learner's name and the
// completion date.
func (s *certificateService) Filename(cert *models.Certificate, format string) string {
	name := strings.ReplaceAll(cert.IssuedTo, " ", "_")
	date := strings.ReplaceAll(cert.CompletionDate, "/", "-")
	ext := "json"
	if format == "xlsx" {
		ext = "xlsx"
	}
	return fmt.Sprintf("ITQAN_English_Certificate_%s_%s.%s", name, date, ext)
}

// sortedQuestionIDs orders ids by chapter then question index so the
// answer sheet reads in book order.
func sortedQuestionIDs(records map[models.QuestionID]models.AnswerRecord) []models.QuestionID {
	ids := make([]models.QuestionID, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, qi, _ := ids[i].Position()
		cj, qj, _ := ids[j].Position()
		if ci != cj {
			return ci < cj
		}
		return qi < qj
	})
	return ids
}

func describeAnswer(v models.AnswerValue) string {
	switch {
	case v.SelectedOption != nil:
		return fmt.Sprintf("option %d", *v.SelectedOption)
	case v.DropZoneContents != nil:
		return strings.Join(v.DropZoneContents, " | ")
	default:
		return v.Text
	}
}
