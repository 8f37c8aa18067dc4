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
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
	"github.com/redhat-data-and-ai/classroster/pkg/sheets"
)

// parseDate accepts the same ISO 8601 forms as a stored due date.
func parseDate(v string) (time.Time, error) {
	d, err := structs.ParseDueDate(v)
	return d.Time, err
}

func assignmentFilters(c *gin.Context) (*structs.AssignmentFilters, error) {
	f := structs.AssignmentFilters{
		Status:     c.QueryArray("status"),
		Priority:   c.QueryArray("priority"),
		Type:       c.QueryArray("type"),
		AssignedTo: c.QueryArray("assignedTo"),
		Tags:       c.QueryArray("tag"),
	}
	for param, dst := range map[string]**time.Time{"dueFrom": &f.DueFrom, "dueTo": &f.DueTo} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		t, err := parseDate(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", param, v)
		}
		*dst = &t
	}

	if len(f.Status) == 0 && len(f.Priority) == 0 && len(f.Type) == 0 && len(f.AssignedTo) == 0 &&
		len(f.Tags) == 0 && f.DueFrom == nil && f.DueTo == nil {
		return nil, nil
	}
	return &f, nil
}

// ListAssignments handles GET /api/assignments
func (h *Handler) ListAssignments(c *gin.Context) {
	filters, err := assignmentFilters(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	respond(c, http.StatusOK, h.repo.Assignments.Get(c.Request.Context(), filters))
}

// SearchAssignments handles GET /api/assignments/search?q=
func (h *Handler) SearchAssignments(c *gin.Context) {
	respond(c, http.StatusOK, h.repo.Assignments.Search(c.Request.Context(), c.Query("q")))
}

// SaveAssignment handles POST /api/assignments and PUT /api/assignments/:id
func (h *Handler) SaveAssignment(c *gin.Context) {
	var assignment structs.Assignment
	if err := c.ShouldBindJSON(&assignment); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	status := http.StatusCreated
	if id := c.Param("id"); id != "" {
		assignment.ID = id
		status = http.StatusOK
	}
	respond(c, status, h.repo.Assignments.Save(c.Request.Context(), assignment))
}

// DeleteAssignment handles DELETE /api/assignments/:id
func (h *Handler) DeleteAssignment(c *gin.Context) {
	respond(c, http.StatusOK, h.repo.Assignments.Delete(c.Request.Context(), c.Param("id")))
}

// BulkUpdateAssignments handles PATCH /api/assignments
func (h *Handler) BulkUpdateAssignments(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	respond(c, http.StatusOK, h.repo.Assignments.BulkUpdate(c.Request.Context(), req.IDs, req.Patch))
}

// ExportAssignments handles GET /api/assignments/export
func (h *Handler) ExportAssignments(c *gin.Context) {
	res := h.repo.Assignments.Get(c.Request.Context(), nil)
	if !res.Success {
		respond(c, http.StatusOK, res)
		return
	}

	buf := &bytes.Buffer{}
	if err := sheets.ExportAssignments(buf, res.Data); err != nil {
		logger.Logger(c.Request.Context()).WithError(err).Error("failed to export assignments")
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="assignments.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
