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

package options

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	nodelabelctrl "github.com/koordinator-sh/yarn-queue-operator/pkg/controller/nodelabel"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/operator"
	yarnclient "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/client"
)

const (
	DefaultConfDir        = "./.hadoop"
	DefaultClusterID      = "default"
	DefaultRequestTimeout = 30 * time.Second
	DefaultPollInterval   = nodelabelctrl.DefaultPollInterval
	DefaultSyncPeriod     = 30 * time.Second
	DefaultServerEndpoint = ":9100"
)

type KerberosConfiguration struct {
	Keytab     string `yaml:"keytab"`
	Principal  string `yaml:"principal"`
	Krb5Config string `yaml:"krb5Config"`
}

type Configuration struct {
	// RMHostname generates yarn-site.xml in ConfDir, leave it empty to use an existing hadoop conf dir.
	RMHostname     string                `yaml:"rmHostname"`
	ConfDir        string                `yaml:"confDir"`
	ClusterID      string                `yaml:"clusterID"`
	YarnBinary     string                `yaml:"yarnBinary"`
	RequestTimeout time.Duration         `yaml:"requestTimeout"`
	PollInterval   time.Duration         `yaml:"pollInterval"`
	LabelTimeout   time.Duration         `yaml:"labelTimeout"`
	SyncPeriod     time.Duration         `yaml:"syncPeriod"`
	ServerEndpoint string                `yaml:"serverEndpoint"`
	Kerberos       KerberosConfiguration `yaml:"kerberos"`

	ConfigFile string `yaml:"-"`
}

func NewConfiguration() *Configuration {
	return &Configuration{
		ConfDir:        DefaultConfDir,
		ClusterID:      DefaultClusterID,
		YarnBinary:     yarnclient.DefaultYarnBinary,
		RequestTimeout: DefaultRequestTimeout,
		PollInterval:   DefaultPollInterval,
		SyncPeriod:     DefaultSyncPeriod,
		ServerEndpoint: DefaultServerEndpoint,
	}
}

func (c *Configuration) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config-file", c.ConfigFile, "yaml file of the configuration, flags set on the command line take precedence.")
	fs.StringVar(&c.RMHostname, "rm-hostname", c.RMHostname, "resource manager hostname, generates yarn-site.xml in --conf-dir when set.")
	fs.StringVar(&c.ConfDir, "conf-dir", c.ConfDir, "hadoop configuration directory used by the yarn command.")
	fs.StringVar(&c.ClusterID, "cluster-id", c.ClusterID, "yarn cluster id reported in metrics.")
	fs.StringVar(&c.YarnBinary, "yarn-binary", c.YarnBinary, "path of the yarn command.")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "timeout of one request to the resource manager.")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "interval between two node labeling rounds.")
	fs.DurationVar(&c.LabelTimeout, "label-timeout", c.LabelTimeout, "max duration of node labeling, 0 means until the request is cancelled.")
	fs.DurationVar(&c.SyncPeriod, "sync-period", c.SyncPeriod, "period of syncing queue and partition metrics.")
	fs.StringVar(&c.ServerEndpoint, "server-endpoint", c.ServerEndpoint, "yarn queue operator server endpoint.")
	fs.StringVar(&c.Kerberos.Keytab, "kerberos-keytab", c.Kerberos.Keytab, "keytab for spnego, defaults to yarn.resourcemanager.keytab when security is kerberos.")
	fs.StringVar(&c.Kerberos.Principal, "kerberos-principal", c.Kerberos.Principal, "principal for spnego, defaults to yarn.resourcemanager.principal when security is kerberos.")
	fs.StringVar(&c.Kerberos.Krb5Config, "krb5-config", c.Kerberos.Krb5Config, "krb5.conf path, defaults to $KRB5_CONFIG or /etc/krb5.conf.")
}

// Complete loads ConfigFile and then applies the flags changed on the command line again.
func (c *Configuration) Complete(fs *pflag.FlagSet) error {
	if c.ConfigFile == "" {
		return nil
	}
	changed := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	if err := c.LoadFile(c.ConfigFile); err != nil {
		return err
	}
	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("reapply flag %s failed: %w", name, err)
		}
	}
	return nil
}

func (c *Configuration) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s failed: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s failed: %w", path, err)
	}
	return nil
}

func (c *Configuration) Validate() error {
	if c.ConfDir == "" {
		return fmt.Errorf("conf-dir is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive, got %v", c.PollInterval)
	}
	if c.LabelTimeout < 0 {
		return fmt.Errorf("label-timeout must not be negative, got %v", c.LabelTimeout)
	}
	return nil
}

func (c *Configuration) OperatorOptions() operator.Options {
	return operator.Options{
		RMHostname:     c.RMHostname,
		ConfDir:        c.ConfDir,
		YarnBinary:     c.YarnBinary,
		RequestTimeout: c.RequestTimeout,
		Kerberos: yarnclient.KerberosOptions{
			Keytab:     c.Kerberos.Keytab,
			Principal:  c.Kerberos.Principal,
			Krb5Config: c.Kerberos.Krb5Config,
		},
		Label: nodelabelctrl.Options{
			PollInterval: c.PollInterval,
			Timeout:      c.LabelTimeout,
		},
	}
}
