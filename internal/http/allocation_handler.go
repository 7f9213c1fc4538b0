package httpapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"davinci-allocation/internal/domain"
	"davinci-allocation/internal/service"

	"go.uber.org/zap"
)

const (
	allocationsPath = "/api/v1/allocations"
	teachersPath    = "/api/v1/teachers/"
	studentsPath    = "/api/v1/students/"
)

// AllocationHandler allocation API
type AllocationHandler struct {
	allocations *service.AllocationService
	matching    *service.MatchingService
	syncPath    string
	logger      *zap.Logger
}

// NewAllocationHandler syncPath is the job-form workbook used when a sync request names none.
// Sync requests may only name workbooks in the same directory as syncPath.
func NewAllocationHandler(allocations *service.AllocationService, matching *service.MatchingService, syncPath string, logger *zap.Logger) *AllocationHandler {
	return &AllocationHandler{
		allocations: allocations,
		matching:    matching,
		syncPath:    syncPath,
		logger:      logger,
	}
}

func (h *AllocationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case path == allocationsPath && r.Method == http.MethodGet:
		h.ListAllocations(w, r)
	case path == allocationsPath && r.Method == http.MethodPost:
		h.CreateAllocation(w, r)
	case path == "/api/v1/sync" && r.Method == http.MethodPost:
		h.Sync(w, r)
	case path == "/api/v1/stats" && r.Method == http.MethodGet:
		h.Stats(w, r)
	case strings.HasPrefix(path, teachersPath) && strings.HasSuffix(path, "/workload") && r.Method == http.MethodGet:
		teacherID := strings.TrimSuffix(strings.TrimPrefix(path, teachersPath), "/workload")
		if teacherID == "" || strings.Contains(teacherID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Workload(w, r, teacherID)
	case strings.HasPrefix(path, studentsPath):
		parts := strings.Split(strings.TrimPrefix(path, studentsPath), "/")
		switch {
		case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
			h.GetStudent(w, r, parts[0])
		case len(parts) == 2 && parts[0] != "" && parts[1] == "subjects" && r.Method == http.MethodPost:
			h.AddSubject(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, allocationsPath+"/"):
		parts := strings.Split(strings.TrimPrefix(path, allocationsPath+"/"), "/")
		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			h.GetAllocation(w, r, parts[0])
		case len(parts) == 2 && r.Method == http.MethodPost:
			h.allocationAction(w, r, parts[0], parts[1])
		case len(parts) <= 2:
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	case path == allocationsPath || path == "/api/v1/sync" || path == "/api/v1/stats":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AllocationHandler) allocationAction(w http.ResponseWriter, r *http.Request, id, action string) {
	switch action {
	case "start":
		h.Start(w, r, id)
	case "match":
		h.Match(w, r, id)
	case "invite":
		h.Invite(w, r, id)
	case "confirm":
		h.Confirm(w, r, id)
	case "complete":
		h.Complete(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListAllocations GET /api/v1/allocations?status=pending|in_progress|completed|all
func (h *AllocationHandler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	var status domain.Status
	if s := strings.TrimSpace(r.URL.Query().Get("status")); s != "" && s != "all" {
		parsed, err := domain.ParseStatus(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		status = parsed
	}

	items, err := h.allocations.List(r.Context(), status)
	if err != nil {
		h.fail(w, "ListAllocations", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// CreateAllocation POST /api/v1/allocations
func (h *AllocationHandler) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	var in domain.AllocationInput
	if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	created, err := h.allocations.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "CreateAllocation", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(created))
}

// GetAllocation GET /api/v1/allocations/{id}
func (h *AllocationHandler) GetAllocation(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.allocations.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "GetAllocation", err)
		return
	}
	h.writeAllocation(w, id, a)
}

// Start POST /api/v1/allocations/{id}/start {"staff_member": "..."}
func (h *AllocationHandler) Start(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		StaffMember string `json:"staff_member"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if strings.TrimSpace(payload.StaffMember) == "" {
		writeJSON(w, http.StatusBadRequest, Fail("staff_member is required"))
		return
	}

	res, err := h.matching.Start(r.Context(), id, payload.StaffMember)
	if err != nil {
		h.fail(w, "Start", err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("allocation %s not found", id)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Match POST /api/v1/allocations/{id}/match
func (h *AllocationHandler) Match(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.matching.Match(r.Context(), id)
	if err != nil {
		h.fail(w, "Match", err)
		return
	}
	h.writeAllocation(w, id, a)
}

// Invite POST /api/v1/allocations/{id}/invite {"teacher_ids": ["t001"]}
func (h *AllocationHandler) Invite(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		TeacherIDs []string `json:"teacher_ids"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if len(payload.TeacherIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, Fail("teacher_ids is required"))
		return
	}

	a, err := h.allocations.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "Invite", err)
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("allocation %s not found", id)))
		return
	}

	invited, err := h.matching.Invite(r.Context(), id, payload.TeacherIDs)
	if err != nil {
		h.fail(w, "Invite", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"invited": invited, "count": len(invited)}))
}

// Confirm POST /api/v1/allocations/{id}/confirm {"teacher_id": "t999"}
func (h *AllocationHandler) Confirm(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		TeacherID string `json:"teacher_id"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if strings.TrimSpace(payload.TeacherID) == "" {
		writeJSON(w, http.StatusBadRequest, Fail("teacher_id is required"))
		return
	}

	a, err := h.matching.Confirm(r.Context(), id, payload.TeacherID)
	if err != nil {
		h.fail(w, "Confirm", err)
		return
	}
	h.writeAllocation(w, id, a)
}

// Complete POST /api/v1/allocations/{id}/complete
func (h *AllocationHandler) Complete(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.allocations.Complete(r.Context(), id)
	if err != nil {
		h.fail(w, "Complete", err)
		return
	}
	h.writeAllocation(w, id, a)
}

// Sync POST /api/v1/sync {"path": "optional.xlsx"}
func (h *AllocationHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Path string `json:"path"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	path, ok := h.resolveSyncPath(payload.Path)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("sync path must be inside "+filepath.Dir(h.syncPath)))
		return
	}

	added, err := h.allocations.SyncFromSpreadsheet(r.Context(), path)
	if err != nil {
		h.fail(w, "Sync", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{"new_allocations": added}))
}

func (h *AllocationHandler) resolveSyncPath(requested string) (string, bool) {
	if requested == "" {
		return h.syncPath, true
	}
	dir := filepath.Dir(h.syncPath)
	path := filepath.Clean(requested)
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

// Stats GET /api/v1/stats
func (h *AllocationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.allocations.Statistics(r.Context())
	if err != nil {
		h.fail(w, "Stats", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// Workload GET /api/v1/teachers/{id}/workload
func (h *AllocationHandler) Workload(w http.ResponseWriter, r *http.Request, teacherID string) {
	workload, err := h.matching.Workload(r.Context(), teacherID)
	if err != nil {
		h.fail(w, "Workload", err)
		return
	}
	if workload == nil {
		writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("teacher %s not found", teacherID)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(workload))
}

// GetStudent GET /api/v1/students/{id}
func (h *AllocationHandler) GetStudent(w http.ResponseWriter, r *http.Request, studentID string) {
	student, err := h.matching.Student(r.Context(), studentID)
	if err != nil {
		h.fail(w, "GetStudent", err)
		return
	}
	if student == nil {
		writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("student %s not found", studentID)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(student))
}

// AddSubject POST /api/v1/students/{id}/subjects {"subject": "Algebra", ...}
func (h *AllocationHandler) AddSubject(w http.ResponseWriter, r *http.Request, studentID string) {
	var subject map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &subject); err != nil || len(subject) == 0 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	added, err := h.matching.AddStudentSubject(r.Context(), studentID, subject)
	if err != nil {
		h.fail(w, "AddSubject", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"added": added}))
}

func (h *AllocationHandler) writeAllocation(w http.ResponseWriter, id string, a *domain.Allocation) {
	if a == nil {
		writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("allocation %s not found", id)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}

func (h *AllocationHandler) fail(w http.ResponseWriter, op string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	} else {
		h.logger.Warn(op+" rejected", zap.Error(err))
	}
	writeJSON(w, status, Fail(err.Error()))
}
