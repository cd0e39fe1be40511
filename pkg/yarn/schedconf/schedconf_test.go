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
	"encoding/xml"
	"errors"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client/mockclient"
)

func parseSchedConf(t *testing.T, data []byte) SchedConf {
	t.Helper()
	parsed := SchedConf{}
	require.NoError(t, xml.Unmarshal(data, &parsed))
	return parsed
}

func TestDedicatedQueue(t *testing.T) {
	conf := DedicatedQueue("gpu")
	data, err := conf.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	parsed := parseSchedConf(t, data)
	require.Len(t, parsed.AddQueues, 1)
	assert.Equal(t, "root.gpu", parsed.AddQueues[0].Name)
	assert.Equal(t, []Entry{
		{Key: "capacity", Value: "0"},
		{Key: "maximum-capacity", Value: "0"},
		{Key: "default-node-label-expression", Value: "gpu"},
		{Key: "accessible-node-labels", Value: "gpu"},
		{Key: "disable_preemption", Value: "true"},
		{Key: "maximum-applications", Value: "10000"},
		{Key: "user-limit-factor", Value: "100"},
	}, parsed.AddQueues[0].Params)
	assert.Equal(t, []Entry{
		{Key: "yarn.scheduler.capacity.root.accessible-node-labels.gpu.capacity", Value: "100"},
		{Key: "yarn.scheduler.capacity.root.gpu.accessible-node-labels.gpu.capacity", Value: "100"},
	}, parsed.GlobalUpdates)
	assert.Empty(t, parsed.RemoveQueues)
	assert.Empty(t, parsed.UpdateQueues)
}

func TestStopAndRemoveQueue(t *testing.T) {
	stop := StopQueue("gpu")
	data, err := stop.Marshal()
	require.NoError(t, err)
	parsed := parseSchedConf(t, data)
	require.Len(t, parsed.UpdateQueues, 1)
	assert.Equal(t, "root.gpu", parsed.UpdateQueues[0].Name)
	assert.Equal(t, []Entry{{Key: "state", Value: "STOPPED"}}, parsed.UpdateQueues[0].Params)

	remove := RemoveDedicatedQueue("gpu")
	data, err = remove.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "<remove-queue>root.gpu</remove-queue>")
	parsed = parseSchedConf(t, data)
	assert.Equal(t, []string{"root.gpu"}, parsed.RemoveQueues)
	assert.Equal(t, []Entry{{Key: "yarn.scheduler.capacity.root.accessible-node-labels.gpu.capacity", Value: "0"}}, parsed.GlobalUpdates)
}

func TestQueueCapacities(t *testing.T) {
	conf := QueueCapacities(map[string]Capacity{
		"root.default": {Capacity: 62.5, MaxCapacity: 100},
		"gpu":          {Capacity: 37.5, MaxCapacity: 50},
	})
	assert.Equal(t, "update-queue[root.default,root.gpu]", conf.Describe())
	assert.Equal(t, []QueueInfo{
		{Name: "root.default", Params: []Entry{{Key: "capacity", Value: "62.5"}, {Key: "maximum-capacity", Value: "100"}}},
		{Name: "root.gpu", Params: []Entry{{Key: "capacity", Value: "37.5"}, {Key: "maximum-capacity", Value: "50"}}},
	}, conf.UpdateQueues)
}

func TestValidateCapacities(t *testing.T) {
	tests := []struct {
		name       string
		capacities map[string]Capacity
		wantErr    bool
	}{
		{name: "siblings sum to 100", capacities: map[string]Capacity{"default": {60, 100}, "gpu": {40, 40}}},
		{name: "nested queues", capacities: map[string]Capacity{"root.a.b": {100, 100}, "root.a": {50, 100}, "root.c": {50, 100}}},
		{name: "empty", capacities: map[string]Capacity{}, wantErr: true},
		{name: "max below capacity", capacities: map[string]Capacity{"default": {50, 40}}, wantErr: true},
		{name: "negative", capacities: map[string]Capacity{"default": {-1, 40}}, wantErr: true},
		{name: "over 100", capacities: map[string]Capacity{"default": {50, 101}}, wantErr: true},
		{name: "nan capacity", capacities: map[string]Capacity{"default": {math.NaN(), 100}}, wantErr: true},
		{name: "nan max capacity", capacities: map[string]Capacity{"default": {10, math.NaN()}}, wantErr: true},
		{name: "infinite", capacities: map[string]Capacity{"default": {10, math.Inf(1)}}, wantErr: true},
		{name: "siblings over 100", capacities: map[string]Capacity{"default": {70, 100}, "gpu": {40, 40}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, ValidateCapacities(tt.capacities) != nil)
		})
	}
}

func TestQueuePath(t *testing.T) {
	tests := []struct {
		queue string
		want  string
	}{
		{queue: "gpu", want: "root.gpu"},
		{queue: "root.gpu", want: "root.gpu"},
		{queue: "root", want: "root"},
		{queue: "rootless", want: "root.rootless"},
	}
	for _, tt := range tests {
		t.Run(tt.queue, func(t *testing.T) {
			assert.Equal(t, tt.want, QueuePath(tt.queue))
		})
	}
}

func TestSchedConf_Describe(t *testing.T) {
	conf := DedicatedQueue("gpu")
	assert.Equal(t, "add-queue[root.gpu] global-updates[2]", conf.Describe())
	remove := RemoveDedicatedQueue("gpu")
	assert.Equal(t, "global-updates[1] remove-queue[root.gpu]", remove.Describe())
	empty := SchedConf{}
	assert.True(t, empty.IsEmpty())
}

func TestGenerateQueueUpdateXML(t *testing.T) {
	tests := []struct {
		name    string
		arg     interface{}
		want    SchedConf
		wantErr bool
	}{
		{
			name: "global updates in any list",
			arg: MapSlice{
				{Key: "global-updates", Value: []interface{}{
					MapSlice{{Key: "key", Value: "yarn.scheduler.capacity.root.accessible-node-labels.gpu.capacity"}, {Key: "value", Value: 0}},
				}},
			},
			want: SchedConf{GlobalUpdates: []Entry{{Key: "yarn.scheduler.capacity.root.accessible-node-labels.gpu.capacity", Value: "0"}}},
		},
		{
			name: "sorted map with entry values",
			arg: map[string]interface{}{
				"remove-queue": "root.gpu",
				"add-queue": map[string]interface{}{
					"queue-name": "root.cpu",
					"params":     []Entry{{Key: "capacity", Value: "10"}},
				},
			},
			want: SchedConf{
				AddQueues:    []QueueInfo{{Name: "root.cpu", Params: []Entry{{Key: "capacity", Value: "10"}}}},
				RemoveQueues: []string{"root.gpu"},
			},
		},
		{
			name:    "unsupported value",
			arg:     MapSlice{{Key: "remove-queue", Value: make(chan int)}},
			wantErr: true,
		},
		{
			name:    "unsupported map key",
			arg:     map[int]string{1: "a"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := GenerateQueueUpdateXML(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got := parseSchedConf(t, data)
			got.XMLName = xml.Name{}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateQueueUpdateXML_Order(t *testing.T) {
	data, err := GenerateQueueUpdateXML(map[string]interface{}{"b": true, "a": 1.5, "c": nil})
	require.NoError(t, err)
	s := string(data)
	assert.Less(t, strings.Index(s, "<a>1.5</a>"), strings.Index(s, "<b>true</b>"))
	assert.Contains(t, s, "<c></c>")
}

func TestMutator_AddThenRemove(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rest := mockclient.NewMockRESTClient(ctrl)
	m := NewMutator(rest)

	var bodies [][]byte
	record := func(_ context.Context, _, _ string, body []byte) ([]byte, error) {
		bodies = append(bodies, body)
		return nil, nil
	}
	gomock.InOrder(
		rest.EXPECT().Put(gomock.Any(), yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, gomock.Any()).DoAndReturn(record),
		rest.EXPECT().Put(gomock.Any(), yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, gomock.Any()).DoAndReturn(record),
		rest.EXPECT().Put(gomock.Any(), yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, gomock.Any()).DoAndReturn(record),
	)

	require.NoError(t, m.AddDedicatedQueue(context.TODO(), "gpu"))
	require.NoError(t, m.RemoveDedicatedQueue(context.TODO(), "gpu"))
	require.Len(t, bodies, 3)
	assert.Len(t, parseSchedConf(t, bodies[0]).AddQueues, 1)
	assert.Len(t, parseSchedConf(t, bodies[1]).UpdateQueues, 1)
	assert.Equal(t, []string{"root.gpu"}, parseSchedConf(t, bodies[2]).RemoveQueues)
}

func TestMutator_StopFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rest := mockclient.NewMockRESTClient(ctrl)
	m := NewMutator(rest)

	rest.EXPECT().Put(gomock.Any(), yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, gomock.Any()).
		Return(nil, &yarnclient.TransportError{Op: "put", StatusCode: http.StatusInternalServerError}).Times(1)

	err := m.RemoveDedicatedQueue(context.TODO(), "gpu")
	assert.True(t, yarnclient.IsTransportError(err))
	assert.False(t, yarnclient.IsConfigConflict(err))
}

func TestMutator_Rejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rest := mockclient.NewMockRESTClient(ctrl)
	m := NewMutator(rest)

	rest.EXPECT().Put(gomock.Any(), yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, gomock.Any()).
		Return([]byte("Failed to re-init queues"), &yarnclient.TransportError{Op: "put", StatusCode: http.StatusBadRequest, Err: errors.New("bad request")})

	err := m.AddDedicatedQueue(context.TODO(), "gpu")
	assert.True(t, yarnclient.IsConfigConflict(err))
	assert.True(t, yarnclient.IsTransportError(err))
}

func TestMutator_SetQueueCapacities(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rest := mockclient.NewMockRESTClient(ctrl)
	m := NewMutator(rest)

	// rejected before any request
	assert.Error(t, m.SetQueueCapacities(context.TODO(), map[string]Capacity{"default": {math.NaN(), 100}}))
	assert.Error(t, m.SetQueueCapacities(context.TODO(), nil))

	var body []byte
	rest.EXPECT().Put(gomock.Any(), yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, b []byte) ([]byte, error) {
			body = b
			return nil, nil
		}).Times(1)
	assert.NoError(t, m.SetQueueCapacities(context.TODO(), map[string]Capacity{
		"default": {Capacity: 80, MaxCapacity: 100},
		"gpu":     {Capacity: 20, MaxCapacity: 20},
	}))
	parsed := parseSchedConf(t, body)
	require.Len(t, parsed.UpdateQueues, 2)
	assert.Equal(t, "root.default", parsed.UpdateQueues[0].Name)
	assert.Equal(t, "root.gpu", parsed.UpdateQueues[1].Name)
	assert.Error(t, m.AddDedicatedQueue(context.TODO(), "bad label"))
}

func TestMutator_ApplyRaw(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rest := mockclient.NewMockRESTClient(ctrl)
	m := NewMutator(rest)

	var body []byte
	gomock.InOrder(
		rest.EXPECT().Put(gomock.Any(), yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, b []byte) ([]byte, error) {
				body = b
				return nil, nil
			}),
		rest.EXPECT().Put(gomock.Any(), yarnclient.SchedulerConfPath, yarnclient.ContentTypeXML, gomock.Any()).
			Return(nil, &yarnclient.TransportError{Op: "PUT", StatusCode: http.StatusBadRequest}),
	)

	doc := map[string]interface{}{
		"update-queue": map[string]interface{}{
			"queue-name": "root.default",
			"params":     []interface{}{map[string]interface{}{"key": "maximum-applications", "value": 5000.0}},
		},
	}
	require.NoError(t, m.ApplyRaw(context.TODO(), doc))
	parsed := parseSchedConf(t, body)
	assert.Equal(t, []QueueInfo{{Name: "root.default", Params: []Entry{{Key: "maximum-applications", Value: "5000"}}}}, parsed.UpdateQueues)

	err := m.ApplyRaw(context.TODO(), doc)
	assert.True(t, yarnclient.IsConfigConflict(err))
	assert.Error(t, m.ApplyRaw(context.TODO(), map[string]interface{}{"remove-queue": make(chan int)}))
}
