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

package nodelabel

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/nodelabel"
)

const (
	Name = "nodelabel"

	DefaultPollInterval = 5 * time.Second
)

type Options struct {
	// PollInterval is the wait between two labeling rounds.
	PollInterval time.Duration
	// Timeout bounds the whole convergence, zero means until the context is done.
	Timeout time.Duration
}

// LabelDirectory is the part of nodelabel.Directory used to converge node labels.
type LabelDirectory interface {
	GetNodeLabels(ctx context.Context) (nodelabel.NodeAssignment, error)
	ReplaceLabelsOnNodes(ctx context.Context, nodes []string, label string) error
}

// Controller assigns node labels and waits until the resource manager reports them.
type Controller struct {
	rest   yarnclient.RESTClient
	labels LabelDirectory
	opts   Options
}

func NewController(rest yarnclient.RESTClient, labels LabelDirectory, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Controller{rest: rest, labels: labels, opts: opts}
}

func (c *Controller) LabelNode(ctx context.Context, node string, label string) error {
	return c.LabelNodes(ctx, []string{node}, label)
}

// UnlabelNodes moves nodes back to the default partition.
func (c *Controller) UnlabelNodes(ctx context.Context, nodes []string) error {
	return c.LabelNodes(ctx, nodes, "")
}

// LabelNodes replaces the label of nodes in one admin command and repeats it every poll
// interval until the resource manager is ready and reports label on every known node.
// Each command only covers the known nodes still lacking label, so that a host unknown to
// the resource manager does not fail the command for the others under -failOnUnknownNodes.
// It returns when converged, or with an error once the context is done or the timeout expires.
func (c *Controller) LabelNodes(ctx context.Context, nodes []string, label string) error {
	if label != "" {
		if err := nodelabel.ValidateLabelName(label); err != nil {
			return err
		}
	}
	targets := sets.NewString(nodes...).List()
	if len(targets) == 0 {
		return nil
	}
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	round := 0
	pending := targets
	err := wait.PollImmediateUntilWithContext(ctx, c.opts.PollInterval, func(ctx context.Context) (bool, error) {
		round++
		if !c.rest.Probe(ctx, yarnclient.ClusterInfoPath) {
			klog.V(4).Infof("yarn is not ready, skip labeling round %d", round)
			return false, nil
		}
		var err error
		pending, err = c.pendingNodes(ctx, targets, label)
		if err != nil {
			if yarnclient.IsTransportError(err) {
				klog.Warningf("get node labels failed in round %d, error %v", round, err)
				return false, nil
			}
			return false, err
		}
		if len(pending) == 0 {
			return true, nil
		}
		klog.V(3).Infof("labeling nodes %v with %q, round %d", pending, label, round)
		if err := c.labels.ReplaceLabelsOnNodes(ctx, pending, label); err != nil {
			klog.Warningf("replace labels on nodes %v failed in round %d, error %v", pending, round, err)
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("nodes %v are not labeled with %q after %d rounds: %w", pending, label, round, err)
	}
	klog.Infof("nodes %v are labeled with %q after %d rounds", targets, label, round)
	return nil
}

func (c *Controller) pendingNodes(ctx context.Context, targets []string, label string) ([]string, error) {
	current, err := c.labels.GetNodeLabels(ctx)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, node := range targets {
		nodeLabel, exist := current[node]
		if !exist {
			klog.Warningf("unknown node: %s", node)
			continue
		}
		if nodeLabel != label {
			pending = append(pending, node)
		}
	}
	return pending, nil
}
