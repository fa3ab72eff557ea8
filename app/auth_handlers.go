// Package app provides public health and authenticated identity endpoints.
package app

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/zaefsikder/task-app/app/models"
	"github.com/zaefsikder/task-app/auth"

	"github.com/gin-gonic/gin"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns the caller's plan and monthly task usage.
func Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	if db == nil {
		c.JSON(http.StatusOK, gin.H{
			"plan":         models.PlanFree,
			"tasksCreated": 0,
			"monthlyLimit": FreeMonthlyTaskLimit,
			"remaining":    FreeMonthlyTaskLimit,
		})
		return
	}

	profile, err := getProfileByUserID(c.Request.Context(), claims.Subject)
	if err != nil {
		if err == sql.ErrNoRows {
			if seedErr := UpsertProfileFromClaims(c.Request.Context(), claims); seedErr != nil {
				log.Printf("profile seed failed user=%s err=%v", claims.Subject, seedErr)
			}
			profile, err = getProfileByUserID(c.Request.Context(), claims.Subject)
		}
		if err != nil {
			log.Printf("load profile failed user=%s err=%v", claims.Subject, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}
	}

	tasksCreated, err := getTasksCreatedThisMonth(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("load usage failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	limit := planTaskLimit(profile.Plan)
	remaining := limit - tasksCreated
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"email":        profile.Email,
		"plan":         profile.Plan,
		"tasksCreated": tasksCreated,
		"monthlyLimit": limit,
		"remaining":    remaining,
	})
}
