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
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
)

const (
	DefaultPartitionName = "<DEFAULT_PARTITION>"

	exclusivePartition    = "Exclusive Partition"
	nonExclusivePartition = "Non Exclusive Partition"

	nodeLabelsTableID = "nodelabels"
	nodeLabelsColumns = 4
)

// GetPartitionResource reads the node labels page of the resource manager web UI.
func (r *Reader) GetPartitionResource(ctx context.Context) (map[string]PartitionResource, error) {
	body, err := r.rest.Get(ctx, yarnclient.NodeLabelsPagePath)
	if err != nil {
		return nil, err
	}
	return ParsePartitionResource(body)
}

// ParsePartitionResource parses the rows of <table id="nodelabels">, each row is
// label | exclusivity | active node managers | <type:quantity,...>.
func ParsePartitionResource(page []byte) (map[string]PartitionResource, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, yarnclient.NewParseError(yarnclient.NodeLabelsPagePath, "", err)
	}
	table := findElement(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && attr(n, "id") == nodeLabelsTableID
	})
	if table == nil {
		return nil, yarnclient.NewParseError(yarnclient.NodeLabelsPagePath, "", fmt.Errorf("table %q not found", nodeLabelsTableID))
	}
	tbody := findElement(table, func(n *html.Node) bool { return n.DataAtom == atom.Tbody })
	result := map[string]PartitionResource{}
	if tbody == nil {
		return result, nil
	}
	for row := tbody.FirstChild; row != nil; row = row.NextSibling {
		if row.Type != html.ElementNode || row.DataAtom != atom.Tr {
			continue
		}
		cells := childElements(row, atom.Td)
		if len(cells) != nodeLabelsColumns {
			return nil, yarnclient.NewParseError(yarnclient.NodeLabelsPagePath, textContent(row),
				fmt.Errorf("expect %d columns, got %d", nodeLabelsColumns, len(cells)))
		}
		name, partition, err := parsePartitionRow(cells)
		if err != nil {
			return nil, err
		}
		result[name] = partition
	}
	return result, nil
}

func parsePartitionRow(cells []*html.Node) (string, PartitionResource, error) {
	partition := PartitionResource{}
	name := textContent(cells[0])
	if name == DefaultPartitionName {
		name = ""
	}

	exclusivity := textContent(cells[1])
	switch exclusivity {
	case exclusivePartition:
		partition.Exclusive = true
	case nonExclusivePartition:
		partition.Exclusive = false
	default:
		return "", partition, yarnclient.NewParseError("partition exclusivity", exclusivity, fmt.Errorf("unknown exclusivity"))
	}

	activeNMCell := cells[2]
	if link := findElement(activeNMCell, func(n *html.Node) bool { return n.DataAtom == atom.A }); link != nil {
		activeNMCell = link
	}
	activeNMText := textContent(activeNMCell)
	activeNM, err := strconv.Atoi(activeNMText)
	if err != nil {
		return "", partition, yarnclient.NewParseError("partition active node managers", activeNMText, err)
	}
	partition.ActiveNM = activeNM

	resource, err := ParseResourceString(textContent(cells[3]))
	if err != nil {
		return "", partition, err
	}
	partition.Resource = resource
	return name, partition, nil
}

// ParseResourceString parses "<memory-mb:1024,vcores:4>" into a resource type to quantity map.
func ParseResourceString(s string) (map[string]int64, error) {
	resource := map[string]int64{}
	trimmed := strings.Trim(strings.TrimSpace(s), "<>")
	if strings.TrimSpace(trimmed) == "" {
		return resource, nil
	}
	for _, item := range strings.Split(trimmed, ",") {
		kv := strings.SplitN(item, ":", 2)
		if len(kv) != 2 {
			return nil, yarnclient.NewParseError("partition resource", s, fmt.Errorf("illegal item %q", item))
		}
		quantity, err := strconv.ParseInt(strings.TrimSpace(kv[1]), 10, 64)
		if err != nil {
			return nil, yarnclient.NewParseError("partition resource", s, err)
		}
		resource[strings.TrimSpace(kv[0])] = quantity
	}
	return resource, nil
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func childElements(n *html.Node, a atom.Atom) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			children = append(children, c)
		}
	}
	return children
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
