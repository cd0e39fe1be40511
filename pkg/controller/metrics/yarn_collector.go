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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/cache"
)

const (
	yarnQueueCapacity        = "yarn_queue_capacity"
	yarnQueueMaxCapacity     = "yarn_queue_max_capacity"
	yarnQueueUsedCapacity    = "yarn_queue_used_capacity"
	yarnQueueApps            = "yarn_queue_apps"
	yarnPartitionActiveNM    = "yarn_partition_active_nm"
	yarnPartitionResource    = "yarn_partition_resource"
	yarnNodeLabel            = "yarn_node_label"
	yarnLastSyncTimestamp    = "yarn_last_sync_timestamp_seconds"
	defaultPartitionLabelVal = "<DEFAULT_PARTITION>"
)

var (
	yarnQueueCapacityMetric = prometheus.NewDesc(
		yarnQueueCapacity,
		"yarn queue absolute capacity in percentage",
		[]string{"queue", "partition", "cluster"},
		nil)
	yarnQueueMaxCapacityMetric = prometheus.NewDesc(
		yarnQueueMaxCapacity,
		"yarn queue absolute max capacity in percentage",
		[]string{"queue", "partition", "cluster"},
		nil)
	yarnQueueUsedCapacityMetric = prometheus.NewDesc(
		yarnQueueUsedCapacity,
		"yarn queue absolute used capacity in percentage",
		[]string{"queue", "partition", "cluster"},
		nil)
	yarnQueueAppsMetric = prometheus.NewDesc(
		yarnQueueApps,
		"yarn queue applications",
		[]string{"queue", "state", "cluster"},
		nil)
	yarnPartitionActiveNMMetric = prometheus.NewDesc(
		yarnPartitionActiveNM,
		"active node managers of yarn partition",
		[]string{"partition", "exclusive", "cluster"},
		nil)
	yarnPartitionResourceMetric = prometheus.NewDesc(
		yarnPartitionResource,
		"total resource of yarn partition",
		[]string{"partition", "resource", "cluster"},
		nil)
	yarnNodeLabelMetric = prometheus.NewDesc(
		yarnNodeLabel,
		"node label of yarn node",
		[]string{"instance", "partition", "cluster"},
		nil)
	yarnLastSyncTimestampMetric = prometheus.NewDesc(
		yarnLastSyncTimestamp,
		"timestamp of the last successful sync",
		[]string{"cluster"},
		nil)
)

type YarnQueueCollector struct {
	clusterID string
	cache     *cache.ClusterSyncer
}

func NewYarnQueueCollector(clusterID string, cache *cache.ClusterSyncer) *YarnQueueCollector {
	return &YarnQueueCollector{clusterID: clusterID, cache: cache}
}

func (y *YarnQueueCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- yarnQueueCapacityMetric
	descs <- yarnQueueMaxCapacityMetric
	descs <- yarnQueueUsedCapacityMetric
	descs <- yarnQueueAppsMetric
	descs <- yarnPartitionActiveNMMetric
	descs <- yarnPartitionResourceMetric
	descs <- yarnNodeLabelMetric
	descs <- yarnLastSyncTimestampMetric
}

func (y *YarnQueueCollector) Collect(metrics chan<- prometheus.Metric) {
	snapshot := y.cache.GetSnapshot()
	if snapshot == nil {
		return
	}
	for name, queue := range snapshot.Queues {
		for partition, capacity := range queue.Capacities {
			partitionName := partitionLabel(partition)
			metrics <- prometheus.MustNewConstMetric(yarnQueueCapacityMetric, prometheus.GaugeValue,
				capacity.Capacity, name, partitionName, y.clusterID)
			metrics <- prometheus.MustNewConstMetric(yarnQueueMaxCapacityMetric, prometheus.GaugeValue,
				capacity.MaxCapacity, name, partitionName, y.clusterID)
			metrics <- prometheus.MustNewConstMetric(yarnQueueUsedCapacityMetric, prometheus.GaugeValue,
				capacity.UsedCapacity, name, partitionName, y.clusterID)
		}
		metrics <- prometheus.MustNewConstMetric(yarnQueueAppsMetric, prometheus.GaugeValue,
			float64(queue.NumActiveJobs), name, "active", y.clusterID)
		metrics <- prometheus.MustNewConstMetric(yarnQueueAppsMetric, prometheus.GaugeValue,
			float64(queue.NumPendingJobs), name, "pending", y.clusterID)
		metrics <- prometheus.MustNewConstMetric(yarnQueueAppsMetric, prometheus.GaugeValue,
			float64(queue.NumJobs), name, "total", y.clusterID)
	}
	for partition, resource := range snapshot.Partitions {
		partitionName := partitionLabel(partition)
		exclusive := "false"
		if resource.Exclusive {
			exclusive = "true"
		}
		metrics <- prometheus.MustNewConstMetric(yarnPartitionActiveNMMetric, prometheus.GaugeValue,
			float64(resource.ActiveNM), partitionName, exclusive, y.clusterID)
		for resourceName, quantity := range resource.Resource {
			metrics <- prometheus.MustNewConstMetric(yarnPartitionResourceMetric, prometheus.GaugeValue,
				float64(quantity), partitionName, resourceName, y.clusterID)
		}
	}
	for node, label := range snapshot.NodeLabels {
		metrics <- prometheus.MustNewConstMetric(yarnNodeLabelMetric, prometheus.GaugeValue,
			1, node, partitionLabel(label), y.clusterID)
	}
	metrics <- prometheus.MustNewConstMetric(yarnLastSyncTimestampMetric, prometheus.GaugeValue,
		float64(snapshot.SyncTime.Unix()), y.clusterID)
}

func partitionLabel(partition string) string {
	if partition == "" {
		return defaultPartitionLabelVal
	}
	return partition
}
