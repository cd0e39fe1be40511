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

	"github.com/gin-gonic/gin"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/clusterinfo"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/nodelabel"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/schedconf"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type LabelRequest struct {
	Name      string `json:"name" binding:"required"`
	Exclusive *bool  `json:"exclusive"`
}

type LabelNodesRequest struct {
	Nodes []string `json:"nodes" binding:"required"`
	// Label is empty to move nodes back to the default partition.
	Label string `json:"label"`
}

type CapacitiesRequest struct {
	// Queues maps queue names or paths to their capacity in the default partition.
	Queues map[string]schedconf.Capacity `json:"queues" binding:"required"`
}

type ReservationRequest struct {
	Nodes     []string `json:"nodes" binding:"required"`
	Label     string   `json:"label" binding:"required"`
	Exclusive *bool    `json:"exclusive"`
}

type ReleaseRequest struct {
	Nodes []string `json:"nodes"`
}

type QueuesResponse struct {
	Queues map[string]clusterinfo.Queue `json:"queues"`
	// Warnings lists the branches of the queue tree which could not be read.
	Warnings []string `json:"warnings,omitempty"`
}

// statusOf maps typed errors to http status codes.
func statusOf(err error) int {
	switch {
	case yarnclient.IsConfigConflict(err):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, wait.ErrWaitTimeout):
		return http.StatusGatewayTimeout
	case yarnclient.IsTransportError(err), yarnclient.IsParseError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		klog.Errorf("%s %s failed, error %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

func respond(c *gin.Context, data interface{}, err error) {
	if err != nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	if data == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, data)
}

func exclusiveOrDefault(exclusive *bool) bool {
	return exclusive == nil || *exclusive
}

func validLabelParam(c *gin.Context) (string, bool) {
	label := c.Param("label")
	if err := nodelabel.ValidateLabelName(label); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return "", false
	}
	return label, true
}

func (s *YarnQueueOperatorServer) readyz(c *gin.Context) {
	if !s.operator.CheckYarnReady(c.Request.Context()) {
		c.String(http.StatusServiceUnavailable, "resource manager not ready")
		return
	}
	c.String(http.StatusOK, "ok")
}

func (s *YarnQueueOperatorServer) getClusterLabels(c *gin.Context) {
	labels, err := s.operator.GetClusterLabels(c.Request.Context())
	respond(c, labels, err)
}

func (s *YarnQueueOperatorServer) ensureLabel(c *gin.Context) {
	req := LabelRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := nodelabel.ValidateLabelName(req.Name); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	respond(c, nil, s.operator.EnsureLabel(c.Request.Context(), req.Name, exclusiveOrDefault(req.Exclusive)))
}

func (s *YarnQueueOperatorServer) removeLabel(c *gin.Context) {
	label, ok := validLabelParam(c)
	if !ok {
		return
	}
	respond(c, nil, s.operator.RemoveLabel(c.Request.Context(), label))
}

func (s *YarnQueueOperatorServer) getNodeLabels(c *gin.Context) {
	labels, err := s.operator.GetNodeLabels(c.Request.Context())
	respond(c, labels, err)
}

func (s *YarnQueueOperatorServer) getNodeStatus(c *gin.Context) {
	status, err := s.operator.GetNodeStatus(c.Request.Context())
	respond(c, status, err)
}

func (s *YarnQueueOperatorServer) refreshNodes(c *gin.Context) {
	respond(c, nil, s.operator.RefreshNodes(c.Request.Context()))
}

func (s *YarnQueueOperatorServer) labelNodes(c *gin.Context) {
	req := LabelNodesRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if req.Label != "" {
		if err := nodelabel.ValidateLabelName(req.Label); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
	}
	respond(c, nil, s.operator.LabelNodes(c.Request.Context(), req.Nodes, req.Label))
}

func (s *YarnQueueOperatorServer) getQueueInfo(c *gin.Context) {
	queues, err := s.operator.GetQueueInfo(c.Request.Context())
	if err != nil && queues == nil {
		abortWithError(c, statusOf(err), err)
		return
	}
	resp := QueuesResponse{Queues: queues}
	if err != nil {
		resp.Warnings = []string{err.Error()}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *YarnQueueOperatorServer) addDedicatedQueue(c *gin.Context) {
	label, ok := validLabelParam(c)
	if !ok {
		return
	}
	respond(c, nil, s.operator.AddDedicatedQueue(c.Request.Context(), label))
}

func (s *YarnQueueOperatorServer) removeDedicatedQueue(c *gin.Context) {
	label, ok := validLabelParam(c)
	if !ok {
		return
	}
	respond(c, nil, s.operator.RemoveDedicatedQueue(c.Request.Context(), label))
}

func (s *YarnQueueOperatorServer) setQueueCapacities(c *gin.Context) {
	req := CapacitiesRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := schedconf.ValidateCapacities(req.Queues); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	respond(c, nil, s.operator.SetQueueCapacities(c.Request.Context(), req.Queues))
}

// applySchedConf submits a json object as a sched-conf document, keys become elements
// and array items become <entry> elements.
func (s *YarnQueueOperatorServer) applySchedConf(c *gin.Context) {
	doc := map[string]interface{}{}
	if err := c.ShouldBindJSON(&doc); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if len(doc) == 0 {
		abortWithError(c, http.StatusBadRequest, errors.New("empty sched-conf"))
		return
	}
	respond(c, nil, s.operator.ApplyRaw(c.Request.Context(), doc))
}

func (s *YarnQueueOperatorServer) getPartitionResource(c *gin.Context) {
	partitions, err := s.operator.GetPartitionResource(c.Request.Context())
	respond(c, partitions, err)
}

func (s *YarnQueueOperatorServer) reserveLabel(c *gin.Context) {
	req := ReservationRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := nodelabel.ValidateLabelName(req.Label); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	respond(c, nil, s.operator.ReserveLabel(c.Request.Context(), req.Nodes, req.Label, exclusiveOrDefault(req.Exclusive)))
}

func (s *YarnQueueOperatorServer) releaseLabel(c *gin.Context) {
	label, ok := validLabelParam(c)
	if !ok {
		return
	}
	req := ReleaseRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	respond(c, nil, s.operator.ReleaseLabel(c.Request.Context(), req.Nodes, label))
}
