/*
Copyright 2023 The Koordinator Authors.

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

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/clusterinfo"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/nodelabel"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/schedconf"
)

const shutdownTimeout = 10 * time.Second

// Operator is the part of operator.YarnOperator served over http.
type Operator interface {
	CheckYarnReady(ctx context.Context) bool

	GetClusterLabels(ctx context.Context) (map[string]nodelabel.NodeLabel, error)
	EnsureLabel(ctx context.Context, name string, exclusive bool) error
	RemoveLabel(ctx context.Context, name string) error
	GetNodeLabels(ctx context.Context) (nodelabel.NodeAssignment, error)
	GetNodeStatus(ctx context.Context) (map[string]string, error)
	RefreshNodes(ctx context.Context) error
	LabelNodes(ctx context.Context, nodes []string, label string) error

	GetQueueInfo(ctx context.Context) (map[string]clusterinfo.Queue, error)
	AddDedicatedQueue(ctx context.Context, label string) error
	RemoveDedicatedQueue(ctx context.Context, label string) error
	SetQueueCapacities(ctx context.Context, capacities map[string]schedconf.Capacity) error
	ApplyRaw(ctx context.Context, doc interface{}) error
	GetPartitionResource(ctx context.Context) (map[string]clusterinfo.PartitionResource, error)

	ReserveLabel(ctx context.Context, nodes []string, label string, exclusive bool) error
	ReleaseLabel(ctx context.Context, nodes []string, label string) error
}

type YarnQueueOperatorServer struct {
	operator Operator
	gatherer prometheus.Gatherer
	endpoint string
}

func NewYarnQueueOperatorServer(operator Operator, gatherer prometheus.Gatherer, endpoint string) *YarnQueueOperatorServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &YarnQueueOperatorServer{operator: operator, gatherer: gatherer, endpoint: endpoint}
}

// Run serves until ctx is done and then shuts the server down gracefully.
func (s *YarnQueueOperatorServer) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.endpoint, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		klog.Infof("yarn queue operator server listening on %s", s.endpoint)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	klog.Infof("shutting down yarn queue operator server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *YarnQueueOperatorServer) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/readyz", s.readyz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.GET("/labels", s.getClusterLabels)
	v1.POST("/labels", s.ensureLabel)
	v1.DELETE("/labels/:label", s.removeLabel)
	v1.GET("/nodes/labels", s.getNodeLabels)
	v1.PUT("/nodes/labels", s.labelNodes)
	v1.GET("/nodes/status", s.getNodeStatus)
	v1.POST("/nodes/refresh", s.refreshNodes)
	v1.GET("/queues", s.getQueueInfo)
	v1.POST("/queues/:label", s.addDedicatedQueue)
	v1.DELETE("/queues/:label", s.removeDedicatedQueue)
	v1.PUT("/queues/capacities", s.setQueueCapacities)
	v1.PUT("/scheduler-conf", s.applySchedConf)
	v1.GET("/partitions", s.getPartitionResource)
	v1.POST("/reservations", s.reserveLabel)
	v1.POST("/reservations/:label/release", s.releaseLabel)
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		klog.V(4).Infof("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
