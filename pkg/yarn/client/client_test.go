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

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	testingexec "k8s.io/utils/exec/testing"

	yarnconf "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/config"
)

func newRMServer(haState string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"clusterInfo":{"state":"STARTED","haState":"%s"}}`, haState)
	}))
}

func TestYarnClient_Initialize(t *testing.T) {
	standby := newRMServer("STANDBY")
	defer standby.Close()
	active := newRMServer("ACTIVE")
	defer active.Close()
	activeAddr := strings.TrimPrefix(active.URL, "http://")

	tests := []struct {
		name     string
		props    map[string]string
		wantAddr string
		wantErr  bool
	}{
		{
			name:     "non ha uses hostname",
			props:    map[string]string{yarnconf.RM_HOSTNAME: "master"},
			wantAddr: "master:8088",
		},
		{
			name: "ha picks the active rm",
			props: map[string]string{
				yarnconf.RM_HA_ENABLED:              "true",
				yarnconf.RM_HA_RM_IDS:               "rm1,rm2",
				yarnconf.RM_WEBAPP_ADDRESS + ".rm1": strings.TrimPrefix(standby.URL, "http://"),
				yarnconf.RM_WEBAPP_ADDRESS + ".rm2": activeAddr,
			},
			wantAddr: activeAddr,
		},
		{
			name: "ha without active rm",
			props: map[string]string{
				yarnconf.RM_HA_ENABLED:              "true",
				yarnconf.RM_HA_RM_IDS:               "rm1",
				yarnconf.RM_WEBAPP_ADDRESS + ".rm1": strings.TrimPrefix(standby.URL, "http://"),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			assert.NoError(t, yarnconf.WriteConfigurationFile(filepath.Join(dir, "yarn-site.xml"), tt.props))
			admin := NewAdminRunner(&testingexec.FakeExec{}, "", dir)
			c := NewYarnClient(dir, "", admin)
			err := c.Initialize(context.TODO())
			assert.Equal(t, tt.wantErr, err != nil)
			if tt.wantErr {
				return
			}
			assert.Equal(t, tt.wantAddr, c.ActiveRMAddress())
			assert.Equal(t, c, c.REST())
			assert.Equal(t, admin, c.Admin())
			assert.NotNil(t, c.Configuration())
		})
	}
}

type haRM struct {
	name    string
	mtx     sync.Mutex
	haState string
	server  *httptest.Server
}

func newHARM(name, haState string) *haRM {
	rm := &haRM{name: name, haState: haState}
	rm.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rm.mtx.Lock()
		defer rm.mtx.Unlock()
		if r.URL.Path == ClusterInfoPath {
			_, _ = fmt.Fprintf(w, `{"clusterInfo":{"state":"STARTED","haState":"%s"}}`, rm.haState)
			return
		}
		_, _ = fmt.Fprint(w, rm.name)
	}))
	return rm
}

func (rm *haRM) setHAState(haState string) {
	rm.mtx.Lock()
	defer rm.mtx.Unlock()
	rm.haState = haState
}

func (rm *haRM) address() string {
	return strings.TrimPrefix(rm.server.URL, "http://")
}

func TestYarnClient_Reinitialize(t *testing.T) {
	rm1 := newHARM("rm1", "ACTIVE")
	defer rm1.server.Close()
	rm2 := newHARM("rm2", "STANDBY")
	defer rm2.server.Close()

	dir := t.TempDir()
	assert.NoError(t, yarnconf.WriteConfigurationFile(filepath.Join(dir, "yarn-site.xml"), map[string]string{
		yarnconf.RM_HA_ENABLED:              "true",
		yarnconf.RM_HA_RM_IDS:               "rm1,rm2",
		yarnconf.RM_WEBAPP_ADDRESS + ".rm1": rm1.address(),
		yarnconf.RM_WEBAPP_ADDRESS + ".rm2": rm2.address(),
	}))
	c := NewYarnClient(dir, "", NewAdminRunner(&testingexec.FakeExec{}, "", dir))
	assert.NoError(t, c.Initialize(context.TODO()))
	assert.Equal(t, rm1.address(), c.ActiveRMAddress())
	body, err := c.Get(context.TODO(), NodesPath)
	assert.NoError(t, err)
	assert.Equal(t, "rm1", string(body))

	// failover, rm1 goes down and rm2 becomes active
	rm1.setHAState("STANDBY")
	rm2.setHAState("ACTIVE")
	rm1.server.Close()
	_, err = c.Get(context.TODO(), NodesPath)
	assert.True(t, IsTransportError(err))
	assert.False(t, c.Probe(context.TODO(), ClusterInfoPath))

	assert.NoError(t, c.Reinitialize(context.TODO()))
	assert.Equal(t, rm2.address(), c.ActiveRMAddress())
	body, err = c.Get(context.TODO(), NodesPath)
	assert.NoError(t, err)
	assert.Equal(t, "rm2", string(body))
	assert.True(t, c.Probe(context.TODO(), ClusterInfoPath))

	// no active rm, the last resolved one stays in use
	rm2.setHAState("STANDBY")
	assert.Error(t, c.Reinitialize(context.TODO()))
	assert.Equal(t, rm2.address(), c.ActiveRMAddress())

	c.Close()
	assert.Equal(t, "", c.ActiveRMAddress())
	_, err = c.Put(context.TODO(), SchedulerConfPath, ContentTypeXML, nil)
	assert.True(t, IsTransportError(err))
	assert.False(t, c.Probe(context.TODO(), ClusterInfoPath))
}

func TestYarnClientFactory_CreateDefaultYarnClient(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, yarnconf.SetupYarnConfigFile(dir, "master"))

	f := NewYarnClientFactory(FactoryOptions{ConfigDir: dir}, &testingexec.FakeExec{})
	c, err := f.CreateDefaultYarnClient(context.TODO())
	assert.NoError(t, err)
	assert.Equal(t, "master:8088", c.ActiveRMAddress())

	_, err = NewYarnClientFactory(FactoryOptions{ConfigDir: t.TempDir()}, nil).CreateDefaultYarnClient(context.TODO())
	assert.Error(t, err)
}

func TestErrors(t *testing.T) {
	transport := &TransportError{Op: http.MethodPut, Target: "http://m:8088/ws/v1/cluster/scheduler-conf", StatusCode: 400, Output: "bad"}
	conflict := fmt.Errorf("remove queue: %w", &ConfigConflictError{Subject: "root.gpu", Reason: "rejected", Err: transport})
	assert.True(t, IsConfigConflict(conflict))
	assert.True(t, IsTransportError(conflict))
	assert.False(t, IsParseError(conflict))
	assert.Equal(t, "PUT http://m:8088/ws/v1/cluster/scheduler-conf failed, status 400, output: bad", transport.Error())

	parse := NewParseError("exclusivity", "Maybe", fmt.Errorf("unknown exclusivity"))
	assert.True(t, IsParseError(parse))
	assert.Equal(t, `parse exclusivity failed, input "Maybe": unknown exclusivity`, parse.Error())
}
