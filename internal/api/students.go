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
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
	"github.com/redhat-data-and-ai/classroster/pkg/sheets"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// bulkUpdateRequest is the body of PATCH on a collection.
type bulkUpdateRequest struct {
	IDs   []string               `json:"ids" binding:"required,min=1"`
	Patch map[string]interface{} `json:"patch" binding:"required"`
}

// studentFilters builds filters from the query string, or nil when no
// filter is set.
func studentFilters(c *gin.Context) (*structs.StudentFilters, error) {
	f := structs.StudentFilters{
		Status: c.QueryArray("status"),
		Group:  c.QueryArray("group"),
	}

	minRate, hasMin := c.GetQuery("minCompletion")
	maxRate, hasMax := c.GetQuery("maxCompletion")
	if hasMin || hasMax {
		r := structs.Range{Min: 0, Max: 100}
		var err error
		if hasMin {
			if r.Min, err = strconv.ParseFloat(minRate, 64); err != nil {
				return nil, fmt.Errorf("invalid minCompletion %q", minRate)
			}
		}
		if hasMax {
			if r.Max, err = strconv.ParseFloat(maxRate, 64); err != nil {
				return nil, fmt.Errorf("invalid maxCompletion %q", maxRate)
			}
		}
		f.CompletionRate = &r
	}

	if len(f.Status) == 0 && len(f.Group) == 0 && f.CompletionRate == nil {
		return nil, nil
	}
	return &f, nil
}

// ListStudents handles GET /api/students
func (h *Handler) ListStudents(c *gin.Context) {
	filters, err := studentFilters(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	respond(c, http.StatusOK, h.repo.Students.Get(c.Request.Context(), filters))
}

// SearchStudents handles GET /api/students/search?q=
func (h *Handler) SearchStudents(c *gin.Context) {
	respond(c, http.StatusOK, h.repo.Students.Search(c.Request.Context(), c.Query("q")))
}

// AddStudent handles POST /api/students
func (h *Handler) AddStudent(c *gin.Context) {
	var student structs.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	respond(c, http.StatusCreated, h.manager.AddStudent(c.Request.Context(), student))
}

// UpdateStudent handles PUT /api/students/:id
func (h *Handler) UpdateStudent(c *gin.Context) {
	var student structs.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	student.ID = c.Param("id")
	respond(c, http.StatusOK, h.manager.UpdateStudent(c.Request.Context(), student))
}

// DeleteStudent handles DELETE /api/students/:id
func (h *Handler) DeleteStudent(c *gin.Context) {
	respond(c, http.StatusOK, h.manager.DeleteStudent(c.Request.Context(), c.Param("id")))
}

// BulkUpdateStudents handles PATCH /api/students
func (h *Handler) BulkUpdateStudents(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	respond(c, http.StatusOK, h.repo.Students.BulkUpdate(c.Request.Context(), req.IDs, req.Patch))
}

// ExportStudents handles GET /api/students/export
func (h *Handler) ExportStudents(c *gin.Context) {
	res := h.repo.Students.Get(c.Request.Context(), nil)
	if !res.Success {
		respond(c, http.StatusOK, res)
		return
	}

	buf := &bytes.Buffer{}
	if err := sheets.ExportStudents(buf, res.Data); err != nil {
		logger.Logger(c.Request.Context()).WithError(err).Error("failed to export students")
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="students.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportStudents handles POST /api/students/import with a multipart "file" field
func (h *Handler) ImportStudents(c *gin.Context) {
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("error retrieving uploaded file: %w", err))
		return
	}
	defer file.Close()

	students, err := sheets.ImportStudents(file)
	if err != nil {
		logger.Logger(ctx).WithError(err).WithField("file", header.Filename).Warn("failed to parse import")
		fail(c, http.StatusBadRequest, err)
		return
	}
	if len(students) == 0 {
		fail(c, http.StatusBadRequest, errors.New("no students found in file"))
		return
	}

	respond(c, http.StatusOK, h.manager.ImportStudents(ctx, students))
}
