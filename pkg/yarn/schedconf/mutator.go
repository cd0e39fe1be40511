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
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"k8s.io/klog/v2"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/nodelabel"
)

const capacityTolerance = 1e-6

// Mutator submits scheduler configuration mutations to the resource manager.
type Mutator struct {
	rest yarnclient.RESTClient
}

func NewMutator(rest yarnclient.RESTClient) *Mutator {
	return &Mutator{rest: rest}
}

// Apply PUTs conf to the scheduler-conf endpoint. A rejected mutation is
// returned as a ConfigConflictError.
func (m *Mutator) Apply(ctx context.Context, conf SchedConf) error {
	if conf.IsEmpty() {
		return nil
	}
	body, err := conf.Marshal()
	if err != nil {
		return fmt.Errorf("marshal sched-conf %s failed: %w", conf.Describe(), err)
	}
	return m.put(ctx, conf.Describe(), body)
}

// ApplyRaw PUTs a mutation of any shape, serialized by GenerateQueueUpdateXML.
func (m *Mutator) ApplyRaw(ctx context.Context, doc interface{}) error {
	body, err := GenerateQueueUpdateXML(doc)
	if err != nil {
		return fmt.Errorf("generate sched-conf failed: %w", err)
	}
	return m.put(ctx, "raw sched-conf", body)
}

func (m *Mutator) put(ctx context.Context, subject string, body []byte) error {
	if _, err := m.rest.Put(ctx, yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, body); err != nil {
		var transportErr *yarnclient.TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusBadRequest {
			return &yarnclient.ConfigConflictError{Subject: subject, Reason: "rejected by scheduler", Err: err}
		}
		return err
	}
	klog.V(3).Infof("applied sched-conf %s", subject)
	return nil
}

// AddDedicatedQueue creates root.<label>, the node label must already exist.
func (m *Mutator) AddDedicatedQueue(ctx context.Context, label string) error {
	if err := nodelabel.ValidateLabelName(label); err != nil {
		return err
	}
	if err := m.Apply(ctx, DedicatedQueue(label)); err != nil {
		return fmt.Errorf("add dedicated queue %s failed: %w", label, err)
	}
	klog.Infof("added dedicated queue %s", QueuePath(label))
	return nil
}

// RemoveDedicatedQueue stops root.<label> and then removes it in a second mutation,
// the removal is not submitted when stopping fails.
func (m *Mutator) RemoveDedicatedQueue(ctx context.Context, label string) error {
	if err := nodelabel.ValidateLabelName(label); err != nil {
		return err
	}
	if err := m.Apply(ctx, StopQueue(label)); err != nil {
		return fmt.Errorf("stop dedicated queue %s failed: %w", label, err)
	}
	if err := m.Apply(ctx, RemoveDedicatedQueue(label)); err != nil {
		return fmt.Errorf("remove dedicated queue %s failed: %w", label, err)
	}
	klog.Infof("removed dedicated queue %s", QueuePath(label))
	return nil
}

// SetQueueCapacities grants queues capacity in the default partition, in percentage of
// their parent, with one mutation. Yarn requires the capacities of siblings to sum to 100,
// so lowering one queue usually goes together with raising a sibling.
func (m *Mutator) SetQueueCapacities(ctx context.Context, capacities map[string]Capacity) error {
	if err := ValidateCapacities(capacities); err != nil {
		return err
	}
	conf := QueueCapacities(capacities)
	if err := m.Apply(ctx, conf); err != nil {
		return fmt.Errorf("set capacity of %s failed: %w", conf.Describe(), err)
	}
	klog.Infof("set capacity of %s", conf.Describe())
	return nil
}

// ValidateCapacities checks 0 <= capacity <= maxCapacity <= 100 for every queue, and that
// the given siblings do not exceed 100 in total.
func ValidateCapacities(capacities map[string]Capacity) error {
	if len(capacities) == 0 {
		return errors.New("no queue capacity given")
	}
	siblings := map[string]float64{}
	for queue, c := range capacities {
		if math.IsNaN(c.Capacity) || math.IsNaN(c.MaxCapacity) ||
			c.Capacity < 0 || c.MaxCapacity < c.Capacity || c.MaxCapacity > 100 {
			return fmt.Errorf("illegal capacity %v/%v for queue %s, want 0 <= capacity <= maxCapacity <= 100", c.Capacity, c.MaxCapacity, queue)
		}
		siblings[ParentPath(QueuePath(queue))] += c.Capacity
	}
	for parent, total := range siblings {
		if total > 100+capacityTolerance {
			return fmt.Errorf("capacities of children of %s sum to %v, over 100", parent, total)
		}
	}
	return nil
}
