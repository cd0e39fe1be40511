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
	"encoding/json"
)

const (
	CapacitySchedulerType     = "capacityScheduler"
	CapacitySchedulerLeafType = "capacitySchedulerLeafQueueInfo"
)

// PartitionCapacity is the absolute capacity of a queue in one partition, in percentage.
type PartitionCapacity struct {
	Capacity     float64 `json:"capacity"`
	MaxCapacity  float64 `json:"maxCapacity"`
	UsedCapacity float64 `json:"usedCapacity"`
}

type Resources struct {
	Memory int64 `json:"memory"`
	VCores int64 `json:"vCores"`
}

// Queue is a snapshot of a leaf queue of the capacity scheduler.
type Queue struct {
	Name                       string                       `json:"name"`
	Capacity                   float64                      `json:"capacity"`
	MaxCapacity                float64                      `json:"maxCapacity"`
	UsedCapacity               float64                      `json:"usedCapacity"`
	NumActiveJobs              int64                        `json:"numActiveJobs"`
	NumJobs                    int64                        `json:"numJobs"`
	NumPendingJobs             int64                        `json:"numPendingJobs"`
	ResourcesUsed              Resources                    `json:"resourcesUsed"`
	State                      string                       `json:"state"`
	NodeLabels                 []string                     `json:"nodeLabels"`
	Capacities                 map[string]PartitionCapacity `json:"capacities"`
	PreemptionDisabled         bool                         `json:"preemptionDisabled"`
	DefaultNodeLabelExpression string                       `json:"defaultNodeLabelExpression"`
}

// PartitionResource is one row of the node labels page, keyed by label name
// where "" is the default partition.
type PartitionResource struct {
	Exclusive bool             `json:"exclusive"`
	ActiveNM  int              `json:"activeNM"`
	Resource  map[string]int64 `json:"resource"`
}

// SchedulerNode is a node of the scheduler queue tree, one of
// *InternalNode, *LeafNode or *UnknownNode.
type SchedulerNode interface {
	NodeType() string
}

type InternalNode struct {
	Name     string
	Children []SchedulerNode
}

func (n *InternalNode) NodeType() string { return CapacitySchedulerType }

type LeafNode struct {
	Queue Queue
}

func (n *LeafNode) NodeType() string { return CapacitySchedulerLeafType }

// UnknownNode keeps the payload of a node whose type is not supported.
type UnknownNode struct {
	Type string
	Name string
	Raw  json.RawMessage
}

func (n *UnknownNode) NodeType() string { return n.Type }

type schedulerResponse struct {
	Scheduler *struct {
		SchedulerInfo json.RawMessage `json:"schedulerInfo"`
	} `json:"scheduler"`
}

type rawSchedulerNode struct {
	Type      string `json:"type"`
	QueueName string `json:"queueName"`
	Queues    *struct {
		Queue []json.RawMessage `json:"queue"`
	} `json:"queues,omitempty"`
}

type rawPartitionCapacity struct {
	PartitionName        string  `json:"partitionName"`
	AbsoluteCapacity     float64 `json:"absoluteCapacity"`
	AbsoluteMaxCapacity  float64 `json:"absoluteMaxCapacity"`
	AbsoluteUsedCapacity float64 `json:"absoluteUsedCapacity"`
}

type rawLeafQueue struct {
	QueueName                  string    `json:"queueName"`
	AbsoluteCapacity           float64   `json:"absoluteCapacity"`
	AbsoluteMaxCapacity        float64   `json:"absoluteMaxCapacity"`
	AbsoluteUsedCapacity       float64   `json:"absoluteUsedCapacity"`
	NumActiveApplications      int64     `json:"numActiveApplications"`
	NumApplications            int64     `json:"numApplications"`
	NumPendingApplications     int64     `json:"numPendingApplications"`
	ResourcesUsed              Resources `json:"resourcesUsed"`
	State                      string    `json:"state"`
	NodeLabels                 []string  `json:"nodeLabels"`
	PreemptionDisabled         bool      `json:"preemptionDisabled"`
	DefaultNodeLabelExpression string    `json:"defaultNodeLabelExpression"`
	Capacities                 *struct {
		QueueCapacitiesByPartition []rawPartitionCapacity `json:"queueCapacitiesByPartition"`
	} `json:"capacities,omitempty"`
}
