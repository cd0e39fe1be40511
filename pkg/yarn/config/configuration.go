/*
Copyright 2013 The Cloudera Inc.
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
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

// Resource is a hadoop configuration file, e.g. yarn-site.xml.
type Resource struct {
	Name     string
	Required bool
}

type Configuration interface {
	Get(key string, defaultValue string) (string, error)
	GetBool(key string, defaultValue bool) (bool, error)

	Set(key string, value string) error

	// Properties returns a copy of all key/value pairs.
	Properties() map[string]string
}

type property struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

type configurationFile struct {
	XMLName    xml.Name   `xml:"configuration"`
	Properties []property `xml:"property"`
}

type configuration struct {
	properties map[string]string
	mtx        sync.RWMutex
}

func NewConfiguration() Configuration {
	return &configuration{properties: map[string]string{}}
}

// NewConfigurationResources loads resources from hadoopConfDir in order, later
// resources override earlier ones. prefix selects a cluster specific file such as
// "<cluster>.yarn-site.xml".
func NewConfigurationResources(hadoopConfDir string, resources []Resource, prefix string) (Configuration, error) {
	c := &configuration{properties: map[string]string{}}
	for _, resource := range resources {
		path := filepath.Join(hadoopConfDir, prefix+resource.Name)
		props, err := readProperties(path)
		if err != nil {
			if os.IsNotExist(err) && !resource.Required {
				klog.V(4).Infof("skip optional hadoop resource %s", path)
				continue
			}
			return c, fmt.Errorf("load hadoop resource %s failed: %w", path, err)
		}
		for _, p := range props {
			c.properties[p.Name] = p.Value
		}
		klog.V(4).Infof("loaded %d properties from %s", len(props), path)
	}
	return c, nil
}

func readProperties(path string) ([]property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := configurationFile{}
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Properties, nil
}

// WriteConfigurationFile writes props as a hadoop configuration file, keys sorted.
func WriteConfigurationFile(path string, props map[string]string) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f := configurationFile{}
	for _, k := range keys {
		f.Properties = append(f.Properties, property{Name: k, Value: props[k]})
	}
	data, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func (c *configuration) Get(key string, defaultValue string) (string, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if v, ok := c.properties[key]; ok {
		return strings.TrimSpace(v), nil
	}
	return defaultValue, nil
}

func (c *configuration) GetBool(key string, defaultValue bool) (bool, error) {
	v, err := c.Get(key, "")
	if err != nil || v == "" {
		return defaultValue, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue, fmt.Errorf("property %s=%q is not a bool: %w", key, v, err)
	}
	return b, nil
}

func (c *configuration) Set(key string, value string) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.properties[key] = value
	return nil
}

func (c *configuration) Properties() map[string]string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	res := make(map[string]string, len(c.properties))
	for k, v := range c.properties {
		res[k] = v
	}
	return res
}
