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
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client/mockclient"
)

func nodeLabelsPage(rows string) string {
	return `<html><head><title>Node labels of the cluster</title></head><body>
<table id="nodelabels">
  <thead><tr><th>Label Name</th><th>Label Type</th><th>Num Of Active NMs</th><th>Total Resource</th></tr></thead>
  <tbody>` + rows + `</tbody>
</table></body></html>`
}

func TestParsePartitionResource(t *testing.T) {
	tests := []struct {
		name      string
		rows      string
		want      map[string]PartitionResource
		wantParse bool
	}{
		{
			name: "default partition",
			rows: `<tr><td>&lt;DEFAULT_PARTITION&gt;</td><td>Exclusive Partition</td><td>4</td><td>&lt;memory-mb:1024,vcores:4&gt;</td></tr>`,
			want: map[string]PartitionResource{
				"": {Exclusive: true, ActiveNM: 4, Resource: map[string]int64{"memory-mb": 1024, "vcores": 4}},
			},
		},
		{
			name: "labeled partition with link",
			rows: `<tr><td> gpu </td><td>Non Exclusive Partition</td>` +
				`<td><a href="/cluster/nodes/?node.label=gpu">2</a></td><td>&lt;memory:8192, vCores:16&gt;</td></tr>` +
				`<tr><td>cpu</td><td>Exclusive Partition</td><td>0</td><td>&lt;memory:0, vCores:0&gt;</td></tr>`,
			want: map[string]PartitionResource{
				"gpu": {Exclusive: false, ActiveNM: 2, Resource: map[string]int64{"memory": 8192, "vCores": 16}},
				"cpu": {Exclusive: true, ActiveNM: 0, Resource: map[string]int64{"memory": 0, "vCores": 0}},
			},
		},
		{
			name: "empty table",
			rows: "",
			want: map[string]PartitionResource{},
		},
		{
			name:      "unknown exclusivity",
			rows:      `<tr><td>gpu</td><td>Shared Partition</td><td>1</td><td>&lt;vcores:1&gt;</td></tr>`,
			wantParse: true,
		},
		{
			name:      "bad active nm",
			rows:      `<tr><td>gpu</td><td>Exclusive Partition</td><td>N/A</td><td>&lt;vcores:1&gt;</td></tr>`,
			wantParse: true,
		},
		{
			name:      "bad resource",
			rows:      `<tr><td>gpu</td><td>Exclusive Partition</td><td>1</td><td>&lt;vcores&gt;</td></tr>`,
			wantParse: true,
		},
		{
			name:      "missing column",
			rows:      `<tr><td>gpu</td><td>Exclusive Partition</td><td>1</td></tr>`,
			wantParse: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePartitionResource([]byte(nodeLabelsPage(tt.rows)))
			if tt.wantParse {
				assert.True(t, yarnclient.IsParseError(err), "got error %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePartitionResource_NoTable(t *testing.T) {
	_, err := ParsePartitionResource([]byte("<html><body><table id=\"apps\"></table></body></html>"))
	assert.True(t, yarnclient.IsParseError(err))
}

func TestReader_GetPartitionResource(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rest := mockclient.NewMockRESTClient(ctrl)
	page := nodeLabelsPage(`<tr><td>&lt;DEFAULT_PARTITION&gt;</td><td>Exclusive Partition</td><td>4</td><td>&lt;memory-mb:1024,vcores:4&gt;</td></tr>`)
	rest.EXPECT().Get(gomock.Any(), yarnclient.NodeLabelsPagePath).Return([]byte(page), nil)

	got, err := NewReader(rest).GetPartitionResource(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, PartitionResource{Exclusive: true, ActiveNM: 4, Resource: map[string]int64{"memory-mb": 1024, "vcores": 4}}, got[""])
}

func TestParseResourceString(t *testing.T) {
	got, err := ParseResourceString(" <memory-mb:1024, vcores:4, yarn.io/gpu:2> ")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"memory-mb": 1024, "vcores": 4, "yarn.io/gpu": 2}, got)

	got, err = ParseResourceString("<>")
	require.NoError(t, err)
	assert.Empty(t, got)
}
