package app

import (
	"errors"
	"log"
	"net/http"

	"github.com/zaefsikder/task-app/auth"

	"github.com/gin-gonic/gin"
)

type classifyTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// CreateTaskWithLabel creates a task, then asks the language model to pick a
// label for it. Classification failure is not an error: the task persists
// unlabeled and is returned as-is. Nothing after the insert is rolled back.
func CreateTaskWithLabel(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req classifyTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var description *string
	if req.Description != "" {
		description = &req.Description
	}

	task, err := CreateTask(c.Request.Context(), claims.Subject, req.Title, description, nil, nil)
	if err != nil {
		var qerr quotaError
		if errors.As(err, &qerr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": qerr.Error()})
			return
		}
		log.Printf("classified create failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to create task"})
		return
	}

	if classifier == nil {
		c.JSON(http.StatusOK, task)
		return
	}

	label, err := classifier.Classify(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		// Degrade gracefully: the task stays unlabeled.
		log.Printf("classification failed task=%s err=%v", task.TaskID, err)
		c.JSON(http.StatusOK, task)
		return
	}

	updated, err := SetTaskLabel(c.Request.Context(), claims.Subject, task.TaskID, label)
	if err != nil {
		log.Printf("label patch failed task=%s err=%v", task.TaskID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to save label"})
		return
	}

	c.JSON(http.StatusOK, updated)
}
