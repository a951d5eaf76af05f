package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/grading"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Session Logs"

type adminService struct {
	repo   *repositories.Repositories
	zone   *utils.DisplayZone
	logger *slog.Logger
}

func NewAdminService(deps Dependencies) AdminService {
	deps.withDefaults()
	return &adminService{
		repo:   deps.Repos,
		zone:   deps.DisplayZone,
		logger: deps.Logger,
	}
}

// joined holds a submission with its test and student. Rows whose test or
// student is gone are dropped by the loaders below.
type joined struct {
	submission *models.Submission
	test       *models.Test
	student    *models.User
}

func (s *adminService) loadJoined(ctx context.Context, filters repositories.SubmissionFilters) ([]joined, error) {
	submissions, err := s.repo.Submission.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	testIDs := make([]string, 0, len(submissions))
	studentIDs := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		testIDs = append(testIDs, sub.TestID)
		studentIDs = append(studentIDs, sub.StudentID)
	}

	tests, err := s.repo.Test.GetByIDs(ctx, testIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get tests: %w", err)
	}
	students, err := s.repo.User.GetByIDs(ctx, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get students: %w", err)
	}

	rows := make([]joined, 0, len(submissions))
	for _, sub := range submissions {
		test, student := tests[sub.TestID], students[sub.StudentID]
		if test == nil || student == nil {
			s.logger.Debug("Skipping submission with missing references",
				"session_id", sub.SessionID,
				"test_found", test != nil,
				"student_found", student != nil)
			continue
		}
		rows = append(rows, joined{submission: sub, test: test, student: student})
	}
	return rows, nil
}

// loadOne fetches a single submission with its references; any missing
// piece is a not found.
func (s *adminService) loadOne(ctx context.Context, sessionID string) (*joined, error) {
	sub, err := s.repo.Submission.GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	test, err := s.repo.Test.GetByID(ctx, sub.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	student, err := s.repo.User.GetByID(ctx, sub.StudentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return &joined{submission: sub, test: test, student: student}, nil
}

func statusFilter(status models.SubmissionStatus) *models.SubmissionStatus {
	return &status
}

// ===== LIVE MONITORING =====

func (s *adminService) Summary(ctx context.Context) (*AdminSummary, error) {
	summary, err := s.repo.Submission.ActiveSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize sessions: %w", err)
	}
	return &AdminSummary{
		ActiveSessions: summary.ActiveSessions,
		PendingAlerts:  summary.PendingAlerts,
	}, nil
}

// ActiveSessions lists live sessions, newest first, optionally for one test.
func (s *adminService) ActiveSessions(ctx context.Context, testID string) ([]ActiveSessionRow, error) {
	rows, err := s.loadJoined(ctx, repositories.SubmissionFilters{
		Status:    statusFilter(models.SubmissionActive),
		TestID:    testID,
		SortBy:    "start_time",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]ActiveSessionRow, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, ActiveSessionRow{
			ID:          r.submission.SessionID,
			StudentName: r.student.FullName,
			ExamName:    r.test.Name,
			Status:      r.submission.Status,
			Time:        s.zone.Format(r.submission.StartTime, utils.LayoutClock),
			ExamLocked:  r.submission.ExamLocked,
		})
	}
	return sessions, nil
}

func (s *adminService) SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error) {
	r, err := s.loadOne(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sub := r.submission

	links := []string{}
	if sub.SelfiePath != nil {
		links = append(links, *sub.SelfiePath)
	}

	return &SessionDetail{
		SessionID:     sub.SessionID,
		StudentName:   r.student.FullName,
		StudentID:     r.student.UserID,
		ExamName:      r.test.Name,
		ExamCode:      r.test.Code,
		StartTime:     s.zone.Format(sub.StartTime, utils.LayoutDateTime),
		EndTime:       s.zone.FormatPtr(sub.EndTime, utils.LayoutDateTime, notAvailable),
		Status:        sub.Status,
		ExamLocked:    sub.ExamLocked,
		LockReason:    sub.LockReason,
		Alerts:        sub.Logs,
		DownloadLinks: links,
	}, nil
}

// ===== EXPORTS =====

// ExportRows flattens every completed session into one row, with all log
// messages joined by "; ".
func (s *adminService) ExportRows(ctx context.Context) ([]ExportRow, error) {
	rows, err := s.loadJoined(ctx, repositories.SubmissionFilters{
		Status:    statusFilter(models.SubmissionCompleted),
		SortBy:    "start_time",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, err
	}

	export := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		sub := r.submission
		messages := make([]string, len(sub.Logs))
		for i, l := range sub.Logs {
			messages[i] = l.Message
		}

		export = append(export, ExportRow{
			SessionID:    sub.SessionID,
			StudentName:  r.student.FullName,
			StudentID:    r.student.UserID,
			ExamName:     r.test.Name,
			StartTime:    s.zone.Format(sub.StartTime, utils.LayoutDateTime),
			EndTime:      s.zone.FormatPtr(sub.EndTime, utils.LayoutDateTime, ""),
			WarningCount: sub.WarningCount(),
			LogMessages:  strings.Join(messages, "; "),
		})
	}
	return export, nil
}

// ExportWorkbook writes the export rows as an xlsx workbook.
func (s *adminService) ExportWorkbook(ctx context.Context, w io.Writer) error {
	rows, err := s.ExportRows(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, ExportHeader)
	for _, r := range rows {
		records = append(records, r.Record())
	}

	for rowIndex, record := range records {
		for colIndex, value := range record {
			cell, err := excelize.CoordinatesToCellName(colIndex+1, rowIndex+1)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(exportSheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// ===== GRADING VIEWS =====

// GradedSubmissions grades every completed session, newest first, without
// revealing correct answers.
func (s *adminService) GradedSubmissions(ctx context.Context) ([]GradedSubmission, error) {
	rows, err := s.loadJoined(ctx, repositories.SubmissionFilters{
		Status:    statusFilter(models.SubmissionCompleted),
		SortBy:    "start_time",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, err
	}

	result := make([]GradedSubmission, 0, len(rows))
	for _, r := range rows {
		sub := r.submission
		graded := grading.Grade(r.test, sub).Redacted()
		result = append(result, GradedSubmission{
			SessionID:   sub.SessionID,
			StudentID:   sub.StudentID,
			TestID:      sub.TestID,
			StartTime:   sub.StartTime,
			EndTime:     sub.EndTime,
			StudentName: r.student.FullName,
			ExamName:    r.test.Name,
			ExamLocked:  sub.ExamLocked,
			Logs:        sub.Logs,
			Answers:     graded.Answers,
			Score:       graded.Score,
		})
	}
	return result, nil
}

// Review grades one session in the review shape, with the correct answer
// shown next to every incorrect mcq answer.
func (s *adminService) Review(ctx context.Context, sessionID string) (*SubmissionReview, error) {
	r, err := s.loadOne(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sub := r.submission
	graded := grading.Grade(r.test, sub)

	return &SubmissionReview{
		SessionID:   sub.SessionID,
		ExamName:    r.test.Name,
		ExamCode:    r.test.Code,
		StudentName: r.student.FullName,
		StudentID:   r.student.UserID,
		Score:       graded.Score,
		SelfiePath:  sub.SelfiePath,
		ExamLocked:  sub.ExamLocked,
		LockReason:  sub.LockReason,
		Answers:     graded.Answers,
		Logs:        sub.Logs,
	}, nil
}
