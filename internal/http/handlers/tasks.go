package handlers

import (
	"net/http"
	"time"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/policy"
	"github.com/SINTT/TODO/internal/query"
	"github.com/SINTT/TODO/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateTaskRequest has no createdBy / creatorRole / status: those come
// from the caller and the lifecycle, and extra client fields are ignored.
type CreateTaskRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Priority         string `json:"priority"`
	DueDate          string `json:"dueDate"`
	AssignedTo       string `json:"assignedTo"`
	AssigneeNickname string `json:"assigneeNickname"`
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

type AssignTaskRequest struct {
	AssignedTo       string `json:"assignedTo"`
	AssigneeNickname string `json:"assigneeNickname"`
}

type taskView struct {
	*domain.Task
	Archived bool `json:"archived"`
}

func newTaskView(t *domain.Task, now time.Time) taskView {
	return taskView{Task: t, Archived: t.IsArchived(now)}
}

func (h *Handler) CreateTask(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if !authorize(c, actor, policy.ActionCreateTask) {
		return
	}

	ctx := c.Request.Context()
	assignee, err := h.resolveAssignee(ctx, req.AssignedTo, req.AssigneeNickname)
	if err != nil {
		respondError(c, err)
		return
	}

	t, err := h.Tasks.CreateTask(ctx, actor, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignedTo:  assignee,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, gin.H{
		"taskId": t.ID,
		"task":   newTaskView(t, h.Tasks.Now()),
	})
}

// ListTasks: ?sort=dueSoon|newest|oldest|priority &q=<title> &view=all|active|archive
func (h *Handler) ListTasks(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	sortKey, err := query.ParseSortKey(c.Query("sort"))
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := query.ParseView(c.Query("view"))
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := queryInt(c, "page")
	if err != nil {
		respondError(c, err)
		return
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		respondError(c, err)
		return
	}

	tasks, err := h.Tasks.ListTasks(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.Tasks.Now()
	tasks = query.Tasks(tasks, query.TaskOptions{
		Sort:  sortKey,
		Title: c.Query("q"),
		View:  view,
		Now:   now,
	})

	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t, now))
	}
	respondOK(c, http.StatusOK, query.Paginate(views, page, size))
}

func (h *Handler) GetTask(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := parseTaskID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	t, err := h.Tasks.GetTask(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"task": newTaskView(t, h.Tasks.Now())})
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := parseTaskID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	t, err := h.Tasks.ChangeStatus(c.Request.Context(), actor, id, status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"task": newTaskView(t, h.Tasks.Now())})
}

func (h *Handler) AssignTask(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := parseTaskID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if !authorize(c, actor, policy.ActionAssignTask) {
		return
	}

	ctx := c.Request.Context()
	assignee, err := h.resolveAssignee(ctx, req.AssignedTo, req.AssigneeNickname)
	if err != nil {
		respondError(c, err)
		return
	}

	t, err := h.Tasks.AssignTask(ctx, actor, id, assignee)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"task": newTaskView(t, h.Tasks.Now())})
}

func (h *Handler) DeleteTask(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := parseTaskID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.Tasks.DeleteTask(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"taskId": id})
}
