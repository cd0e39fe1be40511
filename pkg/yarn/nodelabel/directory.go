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
	"regexp"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/json"
	"k8s.io/klog/v2"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
)

const nodeLabelsLinePrefix = "Node Labels:"

var (
	// e.g. "Node Labels: <label_ex:exclusivity=true>,<label_non:exclusivity=false>"
	labelSegmentRegex = regexp.MustCompile(`<([a-zA-Z0-9][a-zA-Z0-9_\-]*):exclusivity=(true|false)>`)
	labelNameRegex    = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_\-]*$`)
)

// Directory reads and writes the cluster node labels.
type Directory struct {
	rest  yarnclient.RESTClient
	admin yarnclient.AdminRunner
}

func NewDirectory(rest yarnclient.RESTClient, admin yarnclient.AdminRunner) *Directory {
	return &Directory{rest: rest, admin: admin}
}

// GetClusterLabels lists the cluster node labels, keyed by name.
func (d *Directory) GetClusterLabels(ctx context.Context) (map[string]NodeLabel, error) {
	output, err := d.admin.Run(ctx, "cluster", "--list-node-labels")
	if err != nil {
		return nil, err
	}
	return ParseClusterLabels(output), nil
}

// ParseClusterLabels parses the output of `yarn cluster --list-node-labels`,
// segments which do not match <name:exclusivity=true|false> are skipped.
func ParseClusterLabels(output string) map[string]NodeLabel {
	labels := map[string]NodeLabel{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, nodeLabelsLinePrefix) {
			continue
		}
		line = strings.TrimPrefix(line, nodeLabelsLinePrefix)
		for _, segment := range strings.Split(line, ",") {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			match := labelSegmentRegex.FindStringSubmatch(segment)
			if match == nil {
				klog.V(4).Infof("skip malformed node label segment %q", segment)
				continue
			}
			labels[match[1]] = NodeLabel{Name: match[1], Exclusive: match[2] == "true"}
		}
	}
	return labels
}

// AddLabel adds a cluster node label, adding an existing label with the same exclusivity is a no-op in yarn.
func (d *Directory) AddLabel(ctx context.Context, name string, exclusive bool) error {
	if err := ValidateLabelName(name); err != nil {
		return err
	}
	_, err := d.admin.Run(ctx, "rmadmin", "-addToClusterNodeLabels", fmt.Sprintf("%s(exclusive=%t)", name, exclusive))
	if err != nil {
		return fmt.Errorf("add node label %s failed: %w", name, err)
	}
	klog.Infof("added node label %s, exclusive %v", name, exclusive)
	return nil
}

// RemoveLabel removes a cluster node label, the label must not be used by any node or queue.
func (d *Directory) RemoveLabel(ctx context.Context, name string) error {
	if err := ValidateLabelName(name); err != nil {
		return err
	}
	if _, err := d.admin.Run(ctx, "rmadmin", "-removeFromClusterNodeLabels", name); err != nil {
		return fmt.Errorf("remove node label %s failed: %w", name, err)
	}
	klog.Infof("removed node label %s", name)
	return nil
}

// EnsureLabel adds the label when it is missing, an existing label with another
// exclusivity is a conflict since yarn can not change it in place.
func (d *Directory) EnsureLabel(ctx context.Context, name string, exclusive bool) error {
	labels, err := d.GetClusterLabels(ctx)
	if err != nil {
		return err
	}
	if existing, ok := labels[name]; ok {
		if existing.Exclusive != exclusive {
			return &yarnclient.ConfigConflictError{
				Subject: "node label " + name,
				Reason:  fmt.Sprintf("exists with exclusive=%v, want %v", existing.Exclusive, exclusive),
			}
		}
		klog.V(3).Infof("node label %s already exists", name)
		return nil
	}
	return d.AddLabel(ctx, name, exclusive)
}

// GetNodeLabels returns the current label of every node known by the resource manager.
func (d *Directory) GetNodeLabels(ctx context.Context) (NodeAssignment, error) {
	nodes, err := d.getNodes(ctx)
	if err != nil {
		return nil, err
	}
	res := NodeAssignment{}
	for _, node := range nodes {
		label := ""
		if len(node.NodeLabels) > 0 {
			label = node.NodeLabels[0]
		}
		res[node.NodeHostName] = label
	}
	return res, nil
}

// GetNodeStatus returns the state of every node, e.g. RUNNING, DECOMMISSIONED.
func (d *Directory) GetNodeStatus(ctx context.Context) (map[string]string, error) {
	nodes, err := d.getNodes(ctx)
	if err != nil {
		return nil, err
	}
	res := map[string]string{}
	for _, node := range nodes {
		res[node.NodeHostName] = node.State
	}
	return res, nil
}

func (d *Directory) getNodes(ctx context.Context) ([]yarnNode, error) {
	body, err := d.rest.Get(ctx, yarnclient.NodesPath)
	if err != nil {
		return nil, err
	}
	resp := nodesResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, yarnclient.NewParseError("cluster nodes", string(body), err)
	}
	if resp.Nodes == nil {
		return nil, nil
	}
	return resp.Nodes.Node, nil
}

// ReplaceLabelsOnNodes sets label on all nodes with one admin command, unknown nodes fail the command.
func (d *Directory) ReplaceLabelsOnNodes(ctx context.Context, nodes []string, label string) error {
	_, err := d.admin.Run(ctx, ReplaceLabelsArgs(nodes, label)...)
	return err
}

// ReplaceLabelsArgs builds `rmadmin -replaceLabelsOnNode "node1=label node2=label" -failOnUnknownNodes`.
func ReplaceLabelsArgs(nodes []string, label string) []string {
	sorted := append([]string{}, nodes...)
	sort.Strings(sorted)
	mappings := make([]string, 0, len(sorted))
	for _, node := range sorted {
		mappings = append(mappings, fmt.Sprintf("%s=%s", node, label))
	}
	return []string{"rmadmin", "-replaceLabelsOnNode", strings.Join(mappings, " "), "-failOnUnknownNodes"}
}

// RefreshNodes asks the resource manager to reload the include/exclude node lists,
// decommissioning gracefully. It applies to the whole cluster.
func (d *Directory) RefreshNodes(ctx context.Context) error {
	if _, err := d.admin.Run(ctx, "rmadmin", "-refreshNodes", "-g", "-server"); err != nil {
		return fmt.Errorf("refresh nodes failed: %w", err)
	}
	klog.Infof("refreshed nodes of the cluster")
	return nil
}

func ValidateLabelName(name string) error {
	if !labelNameRegex.MatchString(name) {
		return fmt.Errorf("illegal node label name %q", name)
	}
	return nil
}
