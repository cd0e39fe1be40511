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

package operator

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"
	"k8s.io/utils/exec"

	nodelabelctrl "github.com/koordinator-sh/yarn-queue-operator/pkg/controller/nodelabel"
	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/clusterinfo"
	yarnconf "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/config"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/nodelabel"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/schedconf"
)

type Options struct {
	// RMHostname generates yarn-site.xml in ConfDir when set, otherwise ConfDir
	// must already hold the hadoop configuration.
	RMHostname     string
	ConfDir        string
	YarnBinary     string
	RequestTimeout time.Duration
	Kerberos       yarnclient.KerberosOptions
	Label          nodelabelctrl.Options
}

// YarnOperator manages node labels and their dedicated queues of one yarn cluster.
type YarnOperator struct {
	*nodelabel.Directory
	*nodelabelctrl.Controller
	*schedconf.Mutator
	*clusterinfo.Reader

	rest   yarnclient.RESTClient
	client *yarnclient.YarnClient
}

func NewYarnOperator(ctx context.Context, opts Options, executor exec.Interface) (*YarnOperator, error) {
	if opts.RMHostname != "" {
		if err := yarnconf.SetupYarnConfigFile(opts.ConfDir, opts.RMHostname); err != nil {
			return nil, err
		}
	}
	factory := yarnclient.NewYarnClientFactory(yarnclient.FactoryOptions{
		ConfigDir:      opts.ConfDir,
		YarnBinary:     opts.YarnBinary,
		RequestTimeout: opts.RequestTimeout,
		Kerberos:       opts.Kerberos,
	}, executor)
	c, err := factory.CreateDefaultYarnClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create yarn client failed: %w", err)
	}
	op := New(c, c.Admin(), opts.Label)
	op.client = c
	return op, nil
}

// New builds an operator on top of existing transports.
func New(rest yarnclient.RESTClient, admin yarnclient.AdminRunner, labelOpts nodelabelctrl.Options) *YarnOperator {
	dir := nodelabel.NewDirectory(rest, admin)
	return &YarnOperator{
		Directory:  dir,
		Controller: nodelabelctrl.NewController(rest, dir, labelOpts),
		Mutator:    schedconf.NewMutator(rest),
		Reader:     clusterinfo.NewReader(rest),
		rest:       rest,
	}
}

func (o *YarnOperator) Close() {
	if o.client != nil {
		o.client.Close()
	}
}

// Reinitialize resolves the active resource manager again, every component follows
// the new one since they share the yarn client.
func (o *YarnOperator) Reinitialize(ctx context.Context) error {
	if o.client == nil {
		return nil
	}
	return o.client.Reinitialize(ctx)
}

// CheckYarnReady probes the cluster info endpoint once.
func (o *YarnOperator) CheckYarnReady(ctx context.Context) bool {
	return o.rest.Probe(ctx, yarnclient.ClusterInfoPath)
}

// ReserveLabel carves out a dedicated pool: it ensures the label exists, moves the nodes
// into its partition and creates the queue of the same name.
func (o *YarnOperator) ReserveLabel(ctx context.Context, nodes []string, label string, exclusive bool) error {
	if err := o.EnsureLabel(ctx, label, exclusive); err != nil {
		return fmt.Errorf("reserve label %s failed: %w", label, err)
	}
	if err := o.LabelNodes(ctx, nodes, label); err != nil {
		return fmt.Errorf("reserve label %s failed: %w", label, err)
	}
	queues, err := o.GetQueueInfo(ctx)
	if err != nil && queues == nil {
		return fmt.Errorf("reserve label %s failed: %w", label, err)
	}
	if _, exist := queues[label]; exist {
		klog.V(3).Infof("dedicated queue %s already exists", label)
		return nil
	}
	if err := o.AddDedicatedQueue(ctx, label); err != nil {
		return fmt.Errorf("reserve label %s failed: %w", label, err)
	}
	klog.Infof("reserved label %s on nodes %v", label, nodes)
	return nil
}

// ReleaseLabel reclaims a dedicated pool in the reverse order of ReserveLabel.
func (o *YarnOperator) ReleaseLabel(ctx context.Context, nodes []string, label string) error {
	queues, err := o.GetQueueInfo(ctx)
	if err != nil && queues == nil {
		return fmt.Errorf("release label %s failed: %w", label, err)
	}
	if _, exist := queues[label]; exist {
		if err := o.RemoveDedicatedQueue(ctx, label); err != nil {
			return fmt.Errorf("release label %s failed: %w", label, err)
		}
	}
	if err := o.UnlabelNodes(ctx, nodes); err != nil {
		return fmt.Errorf("release label %s failed: %w", label, err)
	}
	labels, err := o.GetClusterLabels(ctx)
	if err != nil {
		return fmt.Errorf("release label %s failed: %w", label, err)
	}
	if _, exist := labels[label]; exist {
		if err := o.RemoveLabel(ctx, label); err != nil {
			return fmt.Errorf("release label %s failed: %w", label, err)
		}
	}
	klog.Infof("released label %s from nodes %v", label, nodes)
	return nil
}
