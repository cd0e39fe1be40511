/*
Copyright 2022 The Koordinator Authors.

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
	"time"

	"k8s.io/klog/v2"
	"k8s.io/utils/exec"

	yarnconf "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/config"
)

const authenticationKerberos = "kerberos"

type KerberosOptions struct {
	Keytab     string
	Principal  string
	Krb5Config string
}

type FactoryOptions struct {
	ConfigDir      string
	YarnBinary     string
	RequestTimeout time.Duration
	// Kerberos overrides yarn.resourcemanager.keytab/principal from the conf dir.
	Kerberos KerberosOptions
}

type YarnClientFactory interface {
	CreateDefaultYarnClient(ctx context.Context) (*YarnClient, error)
	CreateYarnClientByClusterID(ctx context.Context, clusterID string) (*YarnClient, error)
}

type yarnClientFactory struct {
	opts     FactoryOptions
	executor exec.Interface
}

func NewYarnClientFactory(opts FactoryOptions, executor exec.Interface) YarnClientFactory {
	if executor == nil {
		executor = exec.New()
	}
	return &yarnClientFactory{opts: opts, executor: executor}
}

func (f *yarnClientFactory) CreateDefaultYarnClient(ctx context.Context) (*YarnClient, error) {
	return f.CreateYarnClientByClusterID(ctx, "")
}

func (f *yarnClientFactory) CreateYarnClientByClusterID(ctx context.Context, clusterID string) (*YarnClient, error) {
	conf, err := yarnconf.NewYarnConfiguration(f.opts.ConfigDir, clusterID)
	if err != nil {
		return nil, err
	}
	restOpts := []RESTOption{}
	if f.opts.RequestTimeout > 0 {
		restOpts = append(restOpts, WithTimeout(f.opts.RequestTimeout))
	}
	auth, err := f.kerberosAuth(conf)
	if err != nil {
		klog.Errorf("create kerberos auth for yarn client %q failed, error %v", clusterID, err)
		return nil, err
	}
	if auth != nil {
		restOpts = append(restOpts, WithKerberos(auth))
	}

	admin := NewAdminRunner(f.executor, f.opts.YarnBinary, f.opts.ConfigDir)
	c := NewYarnClient(f.opts.ConfigDir, clusterID, admin, restOpts...)
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (f *yarnClientFactory) kerberosAuth(conf yarnconf.YarnConfiguration) (*KerberosAuth, error) {
	keytab, principal := f.opts.Kerberos.Keytab, f.opts.Kerberos.Principal
	if keytab == "" || principal == "" {
		authentication, err := conf.GetSecurityAuthentication()
		if err != nil {
			return nil, err
		}
		if authentication != authenticationKerberos {
			return nil, nil
		}
		if keytab, err = conf.GetResourceManagerKeytab(); err != nil {
			return nil, err
		}
		if principal, err = conf.GetResourceManagerPrincipal(); err != nil {
			return nil, err
		}
	}
	return CreateKerberosAuth(keytab, principal, f.opts.Kerberos.Krb5Config)
}
