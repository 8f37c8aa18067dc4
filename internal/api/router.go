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

// Package api exposes the repository, the integrity manager and the settings
// stores over HTTP. Every JSON response is a structs.Result envelope.
package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/durable"
	"github.com/redhat-data-and-ai/classroster/pkg/integrity"
	"github.com/redhat-data-and-ai/classroster/pkg/repository"
	"github.com/redhat-data-and-ai/classroster/pkg/store"
)

// Handler holds the dependencies shared by every route.
type Handler struct {
	repo    *repository.Repository
	manager *integrity.Manager
	store   *store.Store

	// homeworkMu serializes read-modify-write cycles on the homework map.
	homeworkMu sync.Mutex
}

// NewHandler creates a Handler.
func NewHandler(repo *repository.Repository, manager *integrity.Manager, s *store.Store) *Handler {
	return &Handler{repo: repo, manager: manager, store: s}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog())

	api := router.Group("/api")
	{
		students := api.Group("/students")
		students.GET("", h.ListStudents)
		students.POST("", h.AddStudent)
		students.PATCH("", h.BulkUpdateStudents)
		students.GET("/search", h.SearchStudents)
		students.GET("/export", h.ExportStudents)
		students.POST("/import", h.ImportStudents)
		students.PUT("/:id", h.UpdateStudent)
		students.DELETE("/:id", h.DeleteStudent)

		assignments := api.Group("/assignments")
		assignments.GET("", h.ListAssignments)
		assignments.POST("", h.SaveAssignment)
		assignments.PATCH("", h.BulkUpdateAssignments)
		assignments.GET("/search", h.SearchAssignments)
		assignments.GET("/export", h.ExportAssignments)
		assignments.PUT("/:id", h.SaveAssignment)
		assignments.DELETE("/:id", h.DeleteAssignment)

		classes := api.Group("/classes")
		classes.GET("", h.ListClasses)
		classes.POST("", h.AddClass)
		classes.GET("/stats", h.ClassStats)
		classes.POST("/cleanup", h.CleanupClasses)
		classes.GET("/:name/students", h.StudentsByClass)
		classes.PUT("/:id", h.EditClass)
		classes.DELETE("/:id", h.DeleteClass)

		settings := api.Group("/settings")
		settings.GET("/notifications", h.GetNotificationSettings)
		settings.PUT("/notifications", h.PutNotificationSettings)
		settings.GET("/integrations", h.GetIntegrationConfig)
		settings.PUT("/integrations", h.PutIntegrationConfig)

		api.GET("/homework", h.GetHomework)
		api.PUT("/homework/:studentId/:assignmentId", h.PutHomework)

		api.GET("/cache/stats", h.CacheStats)
	}

	return router
}

// failureStatus maps the error of a failed result to an HTTP status.
func failureStatus(err error) int {
	switch {
	case errors.Is(err, durable.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, integrity.ErrStudentNotFound):
		return http.StatusNotFound
	case errors.Is(err, integrity.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respond writes res with status on success and a derived status on failure.
func respond[T any](c *gin.Context, status int, res structs.Result[T]) {
	if !res.Success {
		status = failureStatus(res.Err)
	}
	c.JSON(status, res)
}

// fail writes a failed envelope carrying err.
func fail(c *gin.Context, status int, err error) {
	c.JSON(status, structs.Fail[any](nil, err))
}
