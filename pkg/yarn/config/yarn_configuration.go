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
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"
)

var (
	CORE_SITE    Resource = Resource{"core-site.xml", false}
	YARN_DEFAULT Resource = Resource{"yarn-default.xml", false}
	YARN_SITE    Resource = Resource{"yarn-site.xml", true}
)

const (
	YARN_PREFIX       = "yarn."
	RM_PREFIX         = YARN_PREFIX + "resourcemanager."
	RM_HOSTNAME       = RM_PREFIX + "hostname"
	RM_WEBAPP_ADDRESS = RM_PREFIX + "webapp.address"
	RM_HA_ENABLED     = RM_PREFIX + "ha.enabled"
	RM_HA_RM_IDS      = RM_PREFIX + "ha.rm-ids"
	RM_PRINCIPAL      = RM_PREFIX + "principal"
	RM_KEYTAB         = RM_PREFIX + "keytab"

	HADOOP_SECURITY_AUTHENTICATION = "hadoop.security.authentication"

	DEFAULT_RM_HOSTNAME             = "0.0.0.0"
	DEFAULT_RM_WEBAPP_PORT          = 8088
	DEFAULT_RM_HA_ENABLED           = false
	DEFAULT_SECURITY_AUTHENTICATION = "simple"
)

type yarn_configuration struct {
	conf Configuration
}

type YarnConfiguration interface {
	GetRMHostname() (string, error)
	GetRMWebAppAddress() (string, error)
	GetRMEnabledHA() (bool, error)
	GetRMs() ([]string, error)
	GetRMWebAppAddressByID(rmID string) (string, error)

	GetSecurityAuthentication() (string, error)
	GetResourceManagerPrincipal() (string, error)
	GetResourceManagerKeytab() (string, error)
}

func (yarnConf *yarn_configuration) GetRMHostname() (string, error) {
	return yarnConf.conf.Get(RM_HOSTNAME, DEFAULT_RM_HOSTNAME)
}

// GetRMWebAppAddress falls back to ${yarn.resourcemanager.hostname}:8088 like yarn-default.xml does.
func (yarnConf *yarn_configuration) GetRMWebAppAddress() (string, error) {
	host, err := yarnConf.GetRMHostname()
	if err != nil {
		return "", err
	}
	return yarnConf.conf.Get(RM_WEBAPP_ADDRESS, webAppAddress(host))
}

func (yarnConf *yarn_configuration) GetRMEnabledHA() (bool, error) {
	return yarnConf.conf.GetBool(RM_HA_ENABLED, DEFAULT_RM_HA_ENABLED)
}

func (yarnConf *yarn_configuration) GetRMs() ([]string, error) {
	rmIDs := make([]string, 0)
	allRMs, err := yarnConf.conf.Get(RM_HA_RM_IDS, "")
	if err != nil || allRMs == "" {
		return rmIDs, nil
	}
	for _, id := range strings.Split(allRMs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			rmIDs = append(rmIDs, id)
		}
	}
	return rmIDs, nil
}

func (yarnConf *yarn_configuration) GetRMWebAppAddressByID(rmID string) (string, error) {
	// yarn.resourcemanager.webapp.address.rm1, else yarn.resourcemanager.hostname.rm1:8088
	host, err := yarnConf.conf.Get(fmt.Sprintf("%v.%v", RM_HOSTNAME, rmID), DEFAULT_RM_HOSTNAME)
	if err != nil {
		return "", err
	}
	return yarnConf.conf.Get(fmt.Sprintf("%v.%v", RM_WEBAPP_ADDRESS, rmID), webAppAddress(host))
}

func (yarnConf *yarn_configuration) GetSecurityAuthentication() (string, error) {
	return yarnConf.conf.Get(HADOOP_SECURITY_AUTHENTICATION, DEFAULT_SECURITY_AUTHENTICATION)
}

func (yarnConf *yarn_configuration) GetResourceManagerPrincipal() (string, error) {
	return yarnConf.conf.Get(RM_PRINCIPAL, "")
}

func (yarnConf *yarn_configuration) GetResourceManagerKeytab() (string, error) {
	return yarnConf.conf.Get(RM_KEYTAB, "")
}

func NewYarnConfiguration(hadoopConfDir string, clusterID string) (YarnConfiguration, error) {
	// for yarn-site.xml with cluster id, read from clusterid.yarn-site.xml
	c, err := NewConfigurationResources(hadoopConfDir, []Resource{CORE_SITE, YARN_DEFAULT, YARN_SITE}, configPrefix(clusterID))
	return &yarn_configuration{conf: c}, err
}

// SetupYarnConfigFile generates the yarn-site.xml used by the yarn command line,
// it only points the client to the resource manager host.
func SetupYarnConfigFile(hadoopConfDir string, rmHostname string) error {
	if err := os.MkdirAll(hadoopConfDir, 0755); err != nil {
		return fmt.Errorf("create hadoop conf dir %s failed: %w", hadoopConfDir, err)
	}
	c := NewConfiguration()
	if err := c.Set(RM_HOSTNAME, rmHostname); err != nil {
		return err
	}
	path := filepath.Join(hadoopConfDir, YARN_SITE.Name)
	if err := WriteConfigurationFile(path, c.Properties()); err != nil {
		return fmt.Errorf("write %s failed: %w", path, err)
	}
	klog.V(3).Infof("generated %s for resource manager %s", path, rmHostname)
	return nil
}

func webAppAddress(host string) string {
	return net.JoinHostPort(host, fmt.Sprint(DEFAULT_RM_WEBAPP_PORT))
}

func configPrefix(clusterID string) string {
	if clusterID != "" {
		return clusterID + "."
	}
	return ""
}
