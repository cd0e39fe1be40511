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

// NodeLabel is a yarn cluster node label, exclusivity can only be set when the label is added.
type NodeLabel struct {
	Name      string `json:"name"`
	Exclusive bool   `json:"exclusive"`
}

// NodeAssignment maps node host name to its label, "" for the default partition.
type NodeAssignment map[string]string

type yarnNode struct {
	NodeHostName string   `json:"nodeHostName"`
	State        string   `json:"state"`
	NodeLabels   []string `json:"nodeLabels,omitempty"`
}

type nodesResponse struct {
	Nodes *struct {
		Node []yarnNode `json:"node"`
	} `json:"nodes"`
}
