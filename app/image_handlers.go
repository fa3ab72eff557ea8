package app

import (
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/zaefsikder/task-app/auth"

	"github.com/gin-gonic/gin"
)

// UploadTaskImage attaches (or replaces) the single image on an owned task.
// The size cap is checked before anything touches the network. The object
// upload runs before the row patch; there is no compensation if the patch
// fails after the upload succeeds.
func UploadTaskImage(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if fileHeader.Size > MaxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image exceeds the 1 MiB limit"})
		return
	}

	ext, ok := fileExt(fileHeader.Filename)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename has no extension"})
		return
	}

	taskID := c.Param("id")
	task, err := GetTask(c.Request.Context(), claims.Subject, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		log.Printf("load task for image upload failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	if len(body) > MaxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image exceeds the 1 MiB limit"})
		return
	}

	key := TaskImageKey(claims.Subject, task.TaskID, ext)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/" + ext
	}

	if err := uploadTaskImage(c.Request.Context(), key, contentType, body); err != nil {
		log.Printf("image upload failed key=%s err=%v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload image"})
		return
	}

	updated, err := SetTaskImage(c.Request.Context(), claims.Subject, task.TaskID, &key)
	if err != nil {
		// Uploaded object is left behind; see design notes.
		log.Printf("image reference patch failed key=%s err=%v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save image reference"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// RemoveTaskImage deletes the stored object, then clears the row reference.
func RemoveTaskImage(c *gin.Context) {
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
		log.Printf("load task for image removal failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}

	if task.ImageURL == nil || *task.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image attached"})
		return
	}

	if err := deleteTaskImage(c.Request.Context(), *task.ImageURL); err != nil {
		log.Printf("image delete failed key=%s err=%v", *task.ImageURL, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete image"})
		return
	}

	updated, err := SetTaskImage(c.Request.Context(), claims.Subject, task.TaskID, nil)
	if err != nil {
		log.Printf("image reference clear failed task=%s err=%v", task.TaskID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear image reference"})
		return
	}

	c.JSON(http.StatusOK, updated)
}
