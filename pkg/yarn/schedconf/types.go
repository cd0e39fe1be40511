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
	"encoding/xml"
	"strconv"
	"strings"
)

const (
	RootQueue = "root"

	QueueStateStopped = "STOPPED"

	capacitySchedulerPrefix = "yarn.scheduler.capacity."
)

// Entry is a key/value pair of queue params or global updates.
type Entry struct {
	Key   string `xml:"key" json:"key"`
	Value string `xml:"value" json:"value"`
}

// QueueInfo is the target of an add-queue or update-queue mutation.
type QueueInfo struct {
	Name   string  `xml:"queue-name" json:"queueName"`
	Params []Entry `xml:"params>entry" json:"params,omitempty"`
}

// SchedConf is a scheduler configuration mutation, the resource manager applies
// all parts of one document or rejects it as a whole.
type SchedConf struct {
	XMLName       xml.Name    `xml:"sched-conf" json:"-"`
	AddQueues     []QueueInfo `xml:"add-queue" json:"addQueues,omitempty"`
	UpdateQueues  []QueueInfo `xml:"update-queue" json:"updateQueues,omitempty"`
	GlobalUpdates []Entry     `xml:"global-updates>entry" json:"globalUpdates,omitempty"`
	RemoveQueues  []string    `xml:"remove-queue" json:"removeQueues,omitempty"`
}

func (s *SchedConf) IsEmpty() bool {
	return len(s.AddQueues) == 0 && len(s.UpdateQueues) == 0 && len(s.GlobalUpdates) == 0 && len(s.RemoveQueues) == 0
}

// Marshal encodes the document in the format expected by /ws/v1/cluster/scheduler-conf.
func (s *SchedConf) Marshal() ([]byte, error) {
	data, err := xml.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}

// Describe is a short summary for logs, e.g. "add-queue[root.gpu] global-updates[2]".
func (s *SchedConf) Describe() string {
	var parts []string
	queueNames := func(queues []QueueInfo) string {
		names := make([]string, 0, len(queues))
		for _, q := range queues {
			names = append(names, q.Name)
		}
		return strings.Join(names, ",")
	}
	if len(s.AddQueues) > 0 {
		parts = append(parts, "add-queue["+queueNames(s.AddQueues)+"]")
	}
	if len(s.UpdateQueues) > 0 {
		parts = append(parts, "update-queue["+queueNames(s.UpdateQueues)+"]")
	}
	if len(s.GlobalUpdates) > 0 {
		parts = append(parts, "global-updates["+strconv.Itoa(len(s.GlobalUpdates))+"]")
	}
	if len(s.RemoveQueues) > 0 {
		parts = append(parts, "remove-queue["+strings.Join(s.RemoveQueues, ",")+"]")
	}
	return strings.Join(parts, " ")
}

// QueuePath returns the full path of a queue directly under root.
func QueuePath(queue string) string {
	if strings.HasPrefix(queue, RootQueue+".") || queue == RootQueue {
		return queue
	}
	return RootQueue + "." + queue
}

// QueueConfKey builds yarn.scheduler.capacity.<queue path>.<suffix>.
func QueueConfKey(queuePath string, suffix string) string {
	return capacitySchedulerPrefix + queuePath + "." + suffix
}

// AccessibleLabelCapacityKey builds yarn.scheduler.capacity.<queue path>.accessible-node-labels.<label>.capacity.
func AccessibleLabelCapacityKey(queuePath string, label string) string {
	return QueueConfKey(queuePath, "accessible-node-labels."+label+".capacity")
}
