/*
Copyright 2022 The Koordinator Authors.

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

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/klog/v2"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/clusterinfo"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/nodelabel"
)

const (
	DefaultSyncInterval = 30 * time.Second
)

type ClusterReader interface {
	GetQueueInfo(ctx context.Context) (map[string]clusterinfo.Queue, error)
	GetPartitionResource(ctx context.Context) (map[string]clusterinfo.PartitionResource, error)
	GetNodeLabels(ctx context.Context) (nodelabel.NodeAssignment, error)
}

// Reinitializer is implemented by readers which can resolve the active resource manager again.
type Reinitializer interface {
	Reinitialize(ctx context.Context) error
}

// Snapshot is the cluster state of one sync round.
type Snapshot struct {
	Queues     map[string]clusterinfo.Queue
	Partitions map[string]clusterinfo.PartitionResource
	NodeLabels nodelabel.NodeAssignment
	SyncTime   time.Time
}

// ClusterSyncer keeps the last snapshot of queues, partitions and node labels for metrics,
// operations never read from it.
type ClusterSyncer struct {
	reader   ClusterReader
	interval time.Duration

	snapshot *Snapshot
	mtx      sync.RWMutex
}

func NewClusterSyncer(reader ClusterReader, interval time.Duration) *ClusterSyncer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &ClusterSyncer{
		reader:   reader,
		interval: interval,
		mtx:      sync.RWMutex{},
	}
}

func (r *ClusterSyncer) Start(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	go func() {
		defer utilruntime.HandleCrash()
		defer t.Stop()
		r.syncOnce(ctx)
		for {
			select {
			case <-t.C:
				r.syncOnce(ctx)
			case <-ctx.Done():
				klog.V(1).Infof("stop cluster syncer")
				return
			}
		}
	}()
	return nil
}

func (r *ClusterSyncer) syncOnce(ctx context.Context) {
	err := r.Sync(ctx)
	if err == nil {
		return
	}
	reinitializer, ok := r.reader.(Reinitializer)
	if !ok || !isTransportFailure(err) {
		klog.Errorf("sync yarn cluster state failed, error: %v", err)
		return
	}
	initErr := reinitializer.Reinitialize(ctx)
	klog.Errorf("sync yarn cluster state failed, error: %v, reinitialize error %v", err, initErr)
}

func isTransportFailure(err error) bool {
	var agg utilerrors.Aggregate
	if errors.As(err, &agg) {
		for _, e := range agg.Errors() {
			if yarnclient.IsTransportError(e) {
				return true
			}
		}
		return false
	}
	return yarnclient.IsTransportError(err)
}

// GetSnapshot returns the last snapshot, nil before the first successful round.
// Warning: Do not edit any field of results
func (r *ClusterSyncer) GetSnapshot() *Snapshot {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.snapshot
}

// Sync replaces the snapshot only when every part is read, partial queue trees are
// accepted since unsupported branches never become readable.
func (r *ClusterSyncer) Sync(ctx context.Context) error {
	queues, err := r.reader.GetQueueInfo(ctx)
	if err != nil {
		if queues == nil {
			return fmt.Errorf("get queue info error %w", err)
		}
		klog.Warningf("got partial queue info, error %v", err)
	}
	var errs []error
	partitions, err := r.reader.GetPartitionResource(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("get partition resource error %w", err))
	}
	nodeLabels, err := r.reader.GetNodeLabels(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("get node labels error %w", err))
	}
	if len(errs) > 0 {
		return utilerrors.NewAggregate(errs)
	}

	snapshot := &Snapshot{
		Queues:     queues,
		Partitions: partitions,
		NodeLabels: nodeLabels,
		SyncTime:   time.Now(),
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.snapshot = snapshot
	klog.V(4).Infof("synced %d queues, %d partitions, %d nodes", len(queues), len(partitions), len(nodeLabels))
	return nil
}
