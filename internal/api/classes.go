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
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/integrity"
)

type classRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListClasses handles GET /api/classes
func (h *Handler) ListClasses(c *gin.Context) {
	c.JSON(http.StatusOK, structs.Ok(h.manager.Classes(c.Request.Context())))
}

// AddClass handles POST /api/classes
func (h *Handler) AddClass(c *gin.Context) {
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	ctx := c.Request.Context()
	if !h.manager.AddClass(ctx, req.Name) {
		fail(c, http.StatusConflict, fmt.Errorf("class %q could not be added", req.Name))
		return
	}
	c.JSON(http.StatusCreated, structs.Ok(h.manager.Classes(ctx)))
}

// EditClass handles PUT /api/classes/:id
func (h *Handler) EditClass(c *gin.Context) {
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	ctx := c.Request.Context()
	if !h.manager.EditClass(ctx, c.Param("id"), req.Name) {
		fail(c, http.StatusConflict, fmt.Errorf("class %s could not be renamed to %q", c.Param("id"), req.Name))
		return
	}
	c.JSON(http.StatusOK, structs.Ok(h.manager.Classes(ctx)))
}

// DeleteClass handles DELETE /api/classes/:id?name=&force=true
//
// A class that students still reference is only deleted with force=true.
func (h *Handler) DeleteClass(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	name := c.Query("name")
	if name == "" {
		fail(c, http.StatusBadRequest, errors.New("query parameter name is required"))
		return
	}
	force, _ := strconv.ParseBool(c.Query("force"))

	var confirm integrity.Confirmer
	if force {
		confirm = integrity.AlwaysConfirm
	}
	if h.manager.DeleteClass(ctx, id, name, confirm) {
		c.JSON(http.StatusOK, structs.Ok(true))
		return
	}

	if referencing := h.manager.GetStudentsByClass(ctx, name); len(referencing) > 0 && !force {
		c.JSON(http.StatusConflict, structs.Fail(false,
			fmt.Errorf("class %q has %d students; retry with force=true", name, len(referencing))))
		return
	}
	c.JSON(http.StatusNotFound, structs.Fail(false, fmt.Errorf("class %s not deleted", id)))
}

// ClassStats handles GET /api/classes/stats
func (h *Handler) ClassStats(c *gin.Context) {
	c.JSON(http.StatusOK, structs.Ok(h.manager.GetClassStats(c.Request.Context())))
}

// StudentsByClass handles GET /api/classes/:name/students
func (h *Handler) StudentsByClass(c *gin.Context) {
	c.JSON(http.StatusOK, structs.Ok(h.manager.GetStudentsByClass(c.Request.Context(), c.Param("name"))))
}

// CleanupClasses handles POST /api/classes/cleanup
func (h *Handler) CleanupClasses(c *gin.Context) {
	moved := h.manager.CleanupOrphanedStudents(c.Request.Context())
	c.JSON(http.StatusOK, structs.Ok(gin.H{"moved": moved}))
}
