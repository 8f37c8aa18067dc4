/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/durable"
	"github.com/redhat-data-and-ai/classroster/pkg/store"
)

// putSettings validates the body and writes it through adapter, waiting for
// the persist result.
func putSettings[T any](c *gin.Context, adapter store.CollectionStore[T]) {
	var value T
	if err := c.ShouldBindJSON(&value); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := durable.Validate().Struct(value); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("%w: %w", durable.ErrValidation, err))
		return
	}
	respond(c, http.StatusOK, <-adapter.Write(c.Request.Context(), value))
}

// GetNotificationSettings handles GET /api/settings/notifications
func (h *Handler) GetNotificationSettings(c *gin.Context) {
	c.JSON(http.StatusOK, structs.Ok(h.store.NotificationSettings.Read(c.Request.Context())))
}

// PutNotificationSettings handles PUT /api/settings/notifications
func (h *Handler) PutNotificationSettings(c *gin.Context) {
	putSettings[structs.NotificationSettings](c, h.store.NotificationSettings)
}

// GetIntegrationConfig handles GET /api/settings/integrations
func (h *Handler) GetIntegrationConfig(c *gin.Context) {
	c.JSON(http.StatusOK, structs.Ok(h.store.IntegrationConfig.Read(c.Request.Context())))
}

// PutIntegrationConfig handles PUT /api/settings/integrations
func (h *Handler) PutIntegrationConfig(c *gin.Context) {
	putSettings[structs.IntegrationConfig](c, h.store.IntegrationConfig)
}

type homeworkRequest struct {
	Status structs.HomeworkStatus `json:"status" binding:"required"`
}

// GetHomework handles GET /api/homework
func (h *Handler) GetHomework(c *gin.Context) {
	c.JSON(http.StatusOK, structs.Ok(h.store.StudentAssignments.Read(c.Request.Context())))
}

// PutHomework handles PUT /api/homework/:studentId/:assignmentId
func (h *Handler) PutHomework(c *gin.Context) {
	var req homeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	studentID, assignmentID := c.Param("studentId"), c.Param("assignmentId")
	if !req.Status.Valid() {
		fail(c, http.StatusBadRequest, &store.InvalidHomeworkStatusError{
			StudentID:    studentID,
			AssignmentID: assignmentID,
			Status:       req.Status,
		})
		return
	}

	ctx := c.Request.Context()

	h.homeworkMu.Lock()
	current := h.store.StudentAssignments.Read(ctx)
	next := make(structs.StudentAssignments, len(current)+1)
	for sid, statuses := range current {
		next[sid] = statuses
	}
	statuses := make(map[string]structs.HomeworkStatus, len(current[studentID])+1)
	for aid, st := range current[studentID] {
		statuses[aid] = st
	}
	statuses[assignmentID] = req.Status
	next[studentID] = statuses
	pending := h.store.StudentAssignments.Write(ctx, next)
	h.homeworkMu.Unlock()

	respond(c, http.StatusOK, <-pending)
}

// CacheStats handles GET /api/cache/stats
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, structs.Ok(gin.H{
		"students":    h.repo.Students.Stats(),
		"assignments": h.repo.Assignments.Stats(),
		"keys":        h.repo.CachedKeys(),
	}))
}
