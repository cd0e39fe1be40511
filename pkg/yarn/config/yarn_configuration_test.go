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

package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupYarnConfigFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".hadoop")
	assert.NoError(t, SetupYarnConfigFile(dir, "10.0.0.1"))

	data, err := os.ReadFile(filepath.Join(dir, "yarn-site.xml"))
	assert.NoError(t, err)
	assert.Contains(t, string(data), "<name>yarn.resourcemanager.hostname</name>")
	assert.Contains(t, string(data), "<value>10.0.0.1</value>")

	conf, err := NewYarnConfiguration(dir, "")
	assert.NoError(t, err)
	host, err := conf.GetRMHostname()
	assert.NoError(t, err)
	assert.Equal(t, "10.0.0.1", host)
	addr, err := conf.GetRMWebAppAddress()
	assert.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8088", addr)
	auth, err := conf.GetSecurityAuthentication()
	assert.NoError(t, err)
	assert.Equal(t, "simple", auth)
}

func TestNewYarnConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		clusterID  string
		files      map[string]map[string]string
		wantErr    bool
		wantHA     bool
		wantRMs    []string
		wantRM2Web string
	}{
		{
			name:    "yarn-site.xml required",
			files:   map[string]map[string]string{},
			wantErr: true,
		},
		{
			name: "ha with webapp address per rm",
			files: map[string]map[string]string{
				"yarn-site.xml": {
					RM_HA_ENABLED:                   "true",
					RM_HA_RM_IDS:                    "rm1, rm2",
					RM_HOSTNAME + ".rm1":            "master1",
					RM_WEBAPP_ADDRESS + ".rm2":      "master2:18088",
					"yarn.scheduler.capacity.other": "x",
				},
			},
			wantHA:     true,
			wantRMs:    []string{"rm1", "rm2"},
			wantRM2Web: "master2:18088",
		},
		{
			name:      "cluster id prefix",
			clusterID: "c1",
			files: map[string]map[string]string{
				"c1.yarn-site.xml": {
					RM_HA_ENABLED:        "true",
					RM_HA_RM_IDS:         "rm2",
					RM_HOSTNAME + ".rm2": "master3",
				},
			},
			wantHA:     true,
			wantRMs:    []string{"rm2"},
			wantRM2Web: "master3:8088",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, props := range tt.files {
				assert.NoError(t, WriteConfigurationFile(filepath.Join(dir, name), props))
			}
			conf, err := NewYarnConfiguration(dir, tt.clusterID)
			assert.Equal(t, tt.wantErr, err != nil)
			if tt.wantErr {
				return
			}
			ha, err := conf.GetRMEnabledHA()
			assert.NoError(t, err)
			assert.Equal(t, tt.wantHA, ha)
			rms, err := conf.GetRMs()
			assert.NoError(t, err)
			assert.Equal(t, tt.wantRMs, rms)
			web, err := conf.GetRMWebAppAddressByID("rm2")
			assert.NoError(t, err)
			assert.Equal(t, tt.wantRM2Web, web)
		})
	}
}

func TestConfiguration(t *testing.T) {
	c := NewConfiguration()
	assert.NoError(t, c.Set("a", " true "))
	assert.NoError(t, c.Set("b", "x"))

	v, err := c.Get("a", "")
	assert.NoError(t, err)
	assert.Equal(t, "true", v)
	v, err = c.Get("missing", "default")
	assert.NoError(t, err)
	assert.Equal(t, "default", v)

	b, err := c.GetBool("a", false)
	assert.NoError(t, err)
	assert.True(t, b)
	b, err = c.GetBool("b", true)
	assert.Error(t, err)
	assert.True(t, b)

	props := c.Properties()
	assert.Equal(t, map[string]string{"a": " true ", "b": "x"}, props)
	props["a"] = "changed"
	v, _ = c.Get("a", "")
	assert.Equal(t, "true", v)
}
