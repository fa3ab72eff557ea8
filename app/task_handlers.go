// Package app serves the owner-scoped task CRUD endpoints.
package app

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/zaefsikder/task-app/app/models"
	"github.com/zaefsikder/task-app/auth"

	"github.com/gin-gonic/gin"
)

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Label       *string    `json:"label"`
}

// updateTaskRequest carries partial edits. Nullable fields use an explicit
// empty string to clear; a JSON null is indistinguishable from an absent key
// once decoded, so null cannot mean "clear".
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	DueDate     *string `json:"due_date"`
	Label       *string `json:"label"`
	Rank        *int    `json:"rank"`
}

// GetTasks lists the caller's tasks, newest-created-first.
func GetTasks(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	tasks, err := ListTasks(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("list tasks failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// PostTask creates a task for the caller, subject to the monthly quota.
func PostTask(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var label *models.Label
	if req.Label != nil {
		parsed, ok := models.ParseLabel(*req.Label)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid label"})
			return
		}
		label = &parsed
	}

	task, err := CreateTask(c.Request.Context(), claims.Subject, req.Title, req.Description, req.DueDate, label)
	if err != nil {
		var qerr quotaError
		if errors.As(err, &qerr) {
			c.JSON(http.StatusForbidden, gin.H{"error": qerr.Error()})
			return
		}
		log.Printf("create task failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// GetTaskByID returns one owned task; rows owned by others read as not found.
func GetTaskByID(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	task, err := GetTask(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		log.Printf("get task failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// PatchTask applies partial field edits to one owned task.
func PatchTask(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task, err := GetTask(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		log.Printf("load task for update failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		if *req.Description == "" {
			task.Description = nil
		} else {
			task.Description = req.Description
		}
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			task.DueDate = nil
		} else {
			parsed, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date"})
				return
			}
			task.DueDate = &parsed
		}
	}
	if req.Label != nil {
		if *req.Label == "" {
			task.Label = nil
		} else {
			parsed, ok := models.ParseLabel(*req.Label)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid label"})
				return
			}
			task.Label = &parsed
		}
	}
	if req.Rank != nil {
		task.Rank = req.Rank
	}

	updated, err := UpdateTask(c.Request.Context(), task)
	if err != nil {
		log.Printf("update task failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteTaskByID removes one owned task and cascades to its stored image.
// The row goes first; a storage failure afterwards is logged, not surfaced,
// so a dead object can never resurrect a deleted task.
func DeleteTaskByID(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	imageKey, err := DeleteTask(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		log.Printf("delete task failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}

	if imageKey != "" {
		if err := deleteTaskImage(c.Request.Context(), imageKey); err != nil {
			log.Printf("cascade image delete failed key=%s err=%v", imageKey, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
