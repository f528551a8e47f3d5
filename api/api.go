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
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rankitohq/indexer"
	"github.com/rankitohq/indexer/api/middleware"
	"github.com/rankitohq/indexer/config"
	"github.com/rankitohq/indexer/internal/apierror"
)

type Api struct {
	service *indexer.Indexer
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/sites", a.CreateSite)
	router.GET("/sites", a.GetAllSites)
	router.GET("/sites/:id", a.GetSite)
	router.DELETE("/sites/:id", a.DeleteSite)

	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts/:id", a.GetAccount)
	router.DELETE("/accounts/:id", a.DeactivateAccount)
	router.GET("/sites/:id/accounts", a.GetSiteAccounts)

	router.POST("/sites/:id/urls", a.EnqueueURL)
	router.POST("/sites/:id/urls/bulk", a.EnqueueURLs)
	router.GET("/sites/:id/urls", a.GetSiteURLs)
	router.GET("/sites/:id/urls/eligible", a.GetEligibleURLs)
	router.GET("/sites/:id/urls/counts", a.GetURLCounts)
	router.GET("/urls/:id", a.GetURL)
	router.POST("/sites/:id/validate", a.ValidateURLs)
	router.POST("/sites/:id/discover", a.DiscoverSitemap)

	router.GET("/sites/:id/quota", a.GetSiteQuota)
	router.GET("/sites/:id/distribution", a.GetSiteDistribution)

	router.POST("/schedule", a.RunScheduler)
	router.POST("/sites/:id/schedule", a.ScheduleSite)
	router.DELETE("/sites/:id/schedule", a.CancelSchedules)
	router.POST("/recover-groups", a.RecoverGroups)

	router.GET("/groups/:id", a.GetGroup)
	router.GET("/groups/:id/urls", a.GetGroupURLs)
	router.GET("/sites/:id/groups", a.GetSiteGroups)
	router.GET("/sites/:id/usage", a.GetSiteUsage)
	router.GET("/execution-logs", a.GetExecutionLogs)

	return a.router
}

func NewAPI(service *indexer.Indexer) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{service: service, router: r}
}

// serviceError writes a service-layer failure using the apierror taxonomy.
func serviceError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}

// pagination reads limit and offset query params with the usual clamps.
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
