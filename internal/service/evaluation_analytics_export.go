package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/evaluation"
)

// XLSXContentType is the media type of exported analytics workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AnalyticsExport is a rendered analytics workbook.
type AnalyticsExport struct {
	FileName string
	Content  []byte
}

func (s *analyticsService) ExportCourseAnalytics(ctx context.Context, courseSessionID, lecturerID uint) (AnalyticsExport, error) {
	analytics, err := s.CourseAnalytics(ctx, courseSessionID, lecturerID)
	if err != nil {
		return AnalyticsExport{}, err
	}

	content, err := renderAnalyticsWorkbook(analytics)
	if err != nil {
		s.logger.Error().Err(err).Uint("course_session_id", courseSessionID).Msg("failed to render analytics workbook")
		return AnalyticsExport{}, err
	}

	return AnalyticsExport{
		FileName: fmt.Sprintf("evaluation-course-%d-lecturer-%d.xlsx", courseSessionID, lecturerID),
		Content:  content,
	}, nil
}

func renderAnalyticsWorkbook(analytics dto.CourseAnalyticsResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Course Code", analytics.CourseCode},
		{"Course Name", analytics.CourseName},
		{"Lecturer", analytics.LecturerName},
		{"Total Submissions", analytics.TotalSubmissions},
		{"Overall Rating", analytics.OverallRating},
		{"Generated At", analytics.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for rating := evaluation.MinRating; rating <= evaluation.MaxRating; rating++ {
		summary = append(summary, []interface{}{fmt.Sprintf("Overall %d", rating), analytics.RatingDistribution[rating]})
	}
	if err := writeRows(f, "Summary", nil, summary); err != nil {
		return nil, err
	}

	questionRows := make([][]interface{}, 0, len(analytics.QuestionAnalytics))
	for _, question := range analytics.QuestionAnalytics {
		row := []interface{}{question.QuestionID, question.Category, question.Question, question.AverageRating, question.ResponseCount}
		for rating := evaluation.MinRating; rating <= evaluation.MaxRating; rating++ {
			row = append(row, question.RatingDistribution[rating])
		}
		questionRows = append(questionRows, row)
	}
	if err := writeSheet(f, "Questions", []string{"Question ID", "Category", "Question", "Average", "Responses", "1", "2", "3", "4", "5"}, questionRows); err != nil {
		return nil, err
	}

	trendRows := make([][]interface{}, 0, len(analytics.SubmissionTrend))
	for _, point := range analytics.SubmissionTrend {
		date, err := evaluation.TrendDate(point)
		if err != nil {
			return nil, fmt.Errorf("invalid trend date %q: %w", point.Date, err)
		}
		trendRows = append(trendRows, []interface{}{date, point.Count})
	}
	if err := writeSheet(f, "Trend", []string{"Date", "Submissions"}, trendRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	return writeRows(f, sheet, headers, rows)
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	rowOffset := 1
	if len(headers) > 0 {
		for col, header := range headers {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, header); err != nil {
				return err
			}
		}
		rowOffset = 2
	}

	for rowIndex, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIndex+rowOffset)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}
