package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"davinci-allocation/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPDirectory Crimson App API client
type HTTPDirectory struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPDirectory creates a client with bearer auth. Calls are bounded by timeout and are
// not retried; retrying is left to the caller.
func NewHTTPDirectory(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPDirectory {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPDirectory{httpClient: client, logger: logger}
}

func (c *HTTPDirectory) GetAvailableTeachers(ctx context.Context, subject string) ([]domain.TeacherInfo, error) {
	var teachers []domain.TeacherInfo
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("subject", subject).
		SetResult(&teachers).
		ForceContentType("application/json").
		Get("/teachers/available")
	if err := c.check("get available teachers", resp, err); err != nil {
		return nil, err
	}
	if teachers == nil {
		teachers = []domain.TeacherInfo{}
	}
	return teachers, nil
}

func (c *HTTPDirectory) GetTeacherInfo(ctx context.Context, teacherID string) (*domain.TeacherInfo, error) {
	var teacher domain.TeacherInfo
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&teacher).
		ForceContentType("application/json").
		Get("/teachers/" + url.PathEscape(teacherID))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := c.check("get teacher", resp, err); err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (c *HTTPDirectory) SendInvitation(ctx context.Context, allocation domain.Allocation, teacherID string) (bool, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(NewInvitation(allocation, teacherID)).
		Post("/invitations")
	if err := c.check("send invitation", resp, err); err != nil {
		return false, err
	}
	return true, nil
}

func (c *HTTPDirectory) GetTeacherWorkload(ctx context.Context, teacherID string) (*domain.WorkloadInfo, error) {
	var workload domain.WorkloadInfo
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&workload).
		ForceContentType("application/json").
		Get("/teachers/" + url.PathEscape(teacherID) + "/workload")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := c.check("get teacher workload", resp, err); err != nil {
		return nil, err
	}
	return &workload, nil
}

func (c *HTTPDirectory) GetStudentInfo(ctx context.Context, studentID string) (*domain.StudentInfo, error) {
	var student domain.StudentInfo
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&student).
		ForceContentType("application/json").
		Get("/students/" + url.PathEscape(studentID))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := c.check("get student", resp, err); err != nil {
		return nil, err
	}
	if student.Subjects == nil {
		student.Subjects = []string{}
	}
	return &student, nil
}

func (c *HTTPDirectory) AddSubject(ctx context.Context, studentID string, subject map[string]any) (bool, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(subject).
		Post("/students/" + url.PathEscape(studentID) + "/subjects")
	if err := c.check("add subject", resp, err); err != nil {
		return false, err
	}
	return true, nil
}

func (c *HTTPDirectory) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Error("Directory API call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, op, err)
	}
	if resp.IsError() {
		c.logger.Error("Directory API returned error",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return fmt.Errorf("%w: %s: status %d", ErrDirectoryUnavailable, op, resp.StatusCode())
	}
	return nil
}
