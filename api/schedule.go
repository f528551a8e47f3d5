/*
Copyright 2025 Rankito Authors.

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
	"net/http"
	"time"

	"github.com/rankitohq/indexer"
	model2 "github.com/rankitohq/indexer/api/model"

	"github.com/gin-gonic/gin"
)

// RunScheduler triggers a scheduling pass over every registered site.
func (a Api) RunScheduler(c *gin.Context) {
	entry, err := a.service.RunScheduler(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ScheduleSite triggers a scheduling pass for one site. Passing ?force=true
// cancels the site's pending groups before replanning.
func (a Api) ScheduleSite(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var result *indexer.SiteScheduleResult
	var err error
	if c.Query("force") == "true" {
		result, err = a.service.ForceReschedule(c.Request.Context(), id)
	} else {
		result, err = a.service.ScheduleSite(c.Request.Context(), id)
	}
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (a Api) CancelSchedules(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	reverted, err := a.service.CancelPendingSchedules(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"urls_reverted": reverted})
}

func (a Api) RecoverGroups(c *gin.Context) {
	var req model2.RecoverGroups
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	recovered, err := a.service.RecoverStuckGroups(c.Request.Context(), time.Duration(req.ThresholdMinutes)*time.Minute)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups_recovered": recovered})
}

func (a Api) GetGroup(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.service.GetSubmissionGroup(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetGroupURLs(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.service.GetGroupURLs(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetSiteGroups(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	limit, offset := pagination(c)
	resp, err := a.service.GetGroupsBySite(c.Request.Context(), id, limit, offset)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
