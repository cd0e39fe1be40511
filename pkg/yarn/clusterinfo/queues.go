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

package clusterinfo

import (
	"context"
	"encoding/json"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	"k8s.io/klog/v2"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
)

// Reader reads queue and partition state from the resource manager, nothing is cached.
type Reader struct {
	rest yarnclient.RESTClient
}

func NewReader(rest yarnclient.RESTClient) *Reader {
	return &Reader{rest: rest}
}

// GetQueueInfo returns the leaf queues of the capacity scheduler keyed by queue name.
// Branches of unsupported types are skipped and reported in the returned error, so
// a non-nil result may come along with a non-nil error.
func (r *Reader) GetQueueInfo(ctx context.Context) (map[string]Queue, error) {
	body, err := r.rest.Get(ctx, yarnclient.SchedulerPath)
	if err != nil {
		return nil, err
	}
	root, err := ParseSchedulerTree(body)
	if err != nil {
		return nil, err
	}
	queues := map[string]Queue{}
	errs := collectLeafQueues(root, queues)
	return queues, utilerrors.NewAggregate(errs)
}

// ParseSchedulerTree decodes the body of /ws/v1/cluster/scheduler.
func ParseSchedulerTree(body []byte) (SchedulerNode, error) {
	resp := schedulerResponse{}
	if err := utiljson.Unmarshal(body, &resp); err != nil {
		return nil, yarnclient.NewParseError(yarnclient.SchedulerPath, string(body), err)
	}
	if resp.Scheduler == nil || len(resp.Scheduler.SchedulerInfo) == 0 {
		return nil, yarnclient.NewParseError(yarnclient.SchedulerPath, string(body), fmt.Errorf("schedulerInfo not found"))
	}
	return parseSchedulerNode(resp.Scheduler.SchedulerInfo)
}

func parseSchedulerNode(data json.RawMessage) (SchedulerNode, error) {
	header := rawSchedulerNode{}
	if err := utiljson.Unmarshal(data, &header); err != nil {
		return nil, yarnclient.NewParseError("scheduler node", string(data), err)
	}
	switch header.Type {
	case CapacitySchedulerType:
		node := &InternalNode{Name: header.QueueName}
		if header.Queues == nil {
			return node, nil
		}
		for _, child := range header.Queues.Queue {
			childNode, err := parseSchedulerNode(child)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, childNode)
		}
		return node, nil
	case CapacitySchedulerLeafType:
		leaf := rawLeafQueue{}
		if err := utiljson.Unmarshal(data, &leaf); err != nil {
			return nil, yarnclient.NewParseError("leaf queue", string(data), err)
		}
		return &LeafNode{Queue: leaf.toQueue()}, nil
	default:
		return &UnknownNode{Type: header.Type, Name: header.QueueName, Raw: data}, nil
	}
}

func (l *rawLeafQueue) toQueue() Queue {
	q := Queue{
		Name:                       l.QueueName,
		Capacity:                   l.AbsoluteCapacity,
		MaxCapacity:                l.AbsoluteMaxCapacity,
		UsedCapacity:               l.AbsoluteUsedCapacity,
		NumActiveJobs:              l.NumActiveApplications,
		NumJobs:                    l.NumApplications,
		NumPendingJobs:             l.NumPendingApplications,
		ResourcesUsed:              l.ResourcesUsed,
		State:                      l.State,
		NodeLabels:                 l.NodeLabels,
		Capacities:                 map[string]PartitionCapacity{},
		PreemptionDisabled:         l.PreemptionDisabled,
		DefaultNodeLabelExpression: l.DefaultNodeLabelExpression,
	}
	if l.Capacities == nil {
		return q
	}
	for _, p := range l.Capacities.QueueCapacitiesByPartition {
		q.Capacities[p.PartitionName] = PartitionCapacity{
			Capacity:     p.AbsoluteCapacity,
			MaxCapacity:  p.AbsoluteMaxCapacity,
			UsedCapacity: p.AbsoluteUsedCapacity,
		}
	}
	return q
}

func collectLeafQueues(node SchedulerNode, queues map[string]Queue) []error {
	switch n := node.(type) {
	case *LeafNode:
		queues[n.Queue.Name] = n.Queue
		return nil
	case *InternalNode:
		var errs []error
		for _, child := range n.Children {
			errs = append(errs, collectLeafQueues(child, queues)...)
		}
		return errs
	case *UnknownNode:
		klog.Errorf("unsupported scheduler type %q of queue %q, skip it", n.Type, n.Name)
		return []error{fmt.Errorf("unsupported scheduler type %q of queue %q", n.Type, n.Name)}
	default:
		return []error{fmt.Errorf("unexpected scheduler node %T", node)}
	}
}
