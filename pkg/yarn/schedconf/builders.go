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

package schedconf

import (
	"sort"
	"strconv"
	"strings"
)

const (
	ParamCapacity                   = "capacity"
	ParamMaximumCapacity            = "maximum-capacity"
	ParamDefaultNodeLabelExpression = "default-node-label-expression"
	ParamAccessibleNodeLabels       = "accessible-node-labels"
	ParamDisablePreemption          = "disable_preemption"
	ParamMaximumApplications        = "maximum-applications"
	ParamUserLimitFactor            = "user-limit-factor"
	ParamState                      = "state"

	dedicatedQueueMaxApplications = 10000
	dedicatedQueueUserLimitFactor = 100
	dedicatedQueueLabelCapacity   = 100
	dedicatedQueueDefaultCapacity = 0
)

// DedicatedQueue adds root.<label> bound to the node label of the same name. The queue
// starts without capacity in the default partition and owns the whole label partition.
func DedicatedQueue(label string) SchedConf {
	queuePath := QueuePath(label)
	return SchedConf{
		AddQueues: []QueueInfo{
			{
				Name: queuePath,
				Params: []Entry{
					{Key: ParamCapacity, Value: strconv.Itoa(dedicatedQueueDefaultCapacity)},
					{Key: ParamMaximumCapacity, Value: strconv.Itoa(dedicatedQueueDefaultCapacity)},
					{Key: ParamDefaultNodeLabelExpression, Value: label},
					{Key: ParamAccessibleNodeLabels, Value: label},
					{Key: ParamDisablePreemption, Value: "true"},
					{Key: ParamMaximumApplications, Value: strconv.Itoa(dedicatedQueueMaxApplications)},
					{Key: ParamUserLimitFactor, Value: strconv.Itoa(dedicatedQueueUserLimitFactor)},
				},
			},
		},
		GlobalUpdates: []Entry{
			{Key: AccessibleLabelCapacityKey(RootQueue, label), Value: strconv.Itoa(dedicatedQueueLabelCapacity)},
			{Key: AccessibleLabelCapacityKey(queuePath, label), Value: strconv.Itoa(dedicatedQueueLabelCapacity)},
		},
	}
}

// StopQueue moves root.<label> to STOPPED, yarn only removes stopped queues.
func StopQueue(label string) SchedConf {
	return SchedConf{
		UpdateQueues: []QueueInfo{
			{
				Name:   QueuePath(label),
				Params: []Entry{{Key: ParamState, Value: QueueStateStopped}},
			},
		},
	}
}

// RemoveDedicatedQueue takes the label partition back from root and removes root.<label>.
func RemoveDedicatedQueue(label string) SchedConf {
	return SchedConf{
		GlobalUpdates: []Entry{
			{Key: AccessibleLabelCapacityKey(RootQueue, label), Value: "0"},
		},
		RemoveQueues: []string{QueuePath(label)},
	}
}

// Capacity is the share of a queue in the default partition, in percentage of its parent.
type Capacity struct {
	Capacity    float64 `json:"capacity"`
	MaxCapacity float64 `json:"maxCapacity"`
}

// QueueCapacities updates the capacity and maximum capacity of every queue in one
// document, ordered by queue path.
func QueueCapacities(capacities map[string]Capacity) SchedConf {
	byPath := make(map[string]Capacity, len(capacities))
	paths := make([]string, 0, len(capacities))
	for queue, capacity := range capacities {
		path := QueuePath(queue)
		if _, exist := byPath[path]; !exist {
			paths = append(paths, path)
		}
		byPath[path] = capacity
	}
	sort.Strings(paths)
	conf := SchedConf{}
	for _, path := range paths {
		conf.UpdateQueues = append(conf.UpdateQueues, QueueInfo{
			Name: path,
			Params: []Entry{
				{Key: ParamCapacity, Value: formatPercentage(byPath[path].Capacity)},
				{Key: ParamMaximumCapacity, Value: formatPercentage(byPath[path].MaxCapacity)},
			},
		})
	}
	return conf
}

// ParentPath returns the path of the parent queue, empty for root.
func ParentPath(queuePath string) string {
	if i := strings.LastIndex(queuePath, "."); i >= 0 {
		return queuePath[:i]
	}
	return ""
}

func formatPercentage(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
