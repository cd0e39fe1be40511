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
	"errors"
	"fmt"
	"net/http"
	"sync"

	"k8s.io/apimachinery/pkg/util/json"
	"k8s.io/klog/v2"

	yarnconf "github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/config"
)

const haStateActive = "ACTIVE"

var errNoActiveRM = errors.New("no active resource manager")

// YarnClient bundles the rest client of the active resource manager and the
// admin command runner of one yarn cluster. It is a RESTClient itself, requests
// go to the resource manager resolved by the last Initialize.
type YarnClient struct {
	conf            yarnconf.YarnConfiguration
	clusterID       string
	configDir       string
	haEnabled       bool
	activeRMAddress *string
	rmAddress       map[string]string

	restOpts []RESTOption
	newREST  func(address string, opts ...RESTOption) RESTClient
	rest     RESTClient
	admin    AdminRunner

	mtx sync.RWMutex
}

func NewYarnClient(configDir, clusterID string, admin AdminRunner, restOpts ...RESTOption) *YarnClient {
	return &YarnClient{
		configDir: configDir,
		clusterID: clusterID,
		rmAddress: map[string]string{},
		restOpts:  restOpts,
		newREST:   NewRESTClient,
		admin:     admin,
	}
}

// Initialize loads the configuration and resolves the resource manager to talk to,
// the active one when ha is enabled. The previous rest client is kept on failure.
func (c *YarnClient) Initialize(ctx context.Context) error {
	conf, err := yarnconf.NewYarnConfiguration(c.configDir, c.clusterID)
	if err != nil {
		return err
	}
	haEnabled, err := conf.GetRMEnabledHA()
	if err != nil {
		return err
	}

	var rmAddr string
	rmAddress := map[string]string{}
	if !haEnabled {
		if rmAddr, err = conf.GetRMWebAppAddress(); err != nil {
			return err
		}
	} else {
		rmIDs, err := conf.GetRMs()
		if err != nil {
			return err
		}
		for _, rmID := range rmIDs {
			addr, err := conf.GetRMWebAppAddressByID(rmID)
			if err != nil {
				return err
			}
			rmAddress[rmID] = addr
		}
		if rmAddr, err = c.getActiveRMAddress(ctx, rmIDs, rmAddress); err != nil {
			return err
		}
	}

	rest := c.newREST(rmAddr, c.restOpts...)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.conf = conf
	c.haEnabled = haEnabled
	c.rmAddress = rmAddress
	c.activeRMAddress = &rmAddr
	c.rest = rest
	klog.V(3).Infof("yarn client %q uses resource manager %s, ha %v", c.clusterID, rmAddr, haEnabled)
	return nil
}

func (c *YarnClient) Close() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.activeRMAddress = nil
	c.rest = nil
}

// Reinitialize resolves the active resource manager again, e.g. after a failover.
func (c *YarnClient) Reinitialize(ctx context.Context) error {
	if err := c.Initialize(ctx); err != nil {
		return fmt.Errorf("reinitialize yarn client %q failed: %w", c.clusterID, err)
	}
	return nil
}

func (c *YarnClient) Configuration() yarnconf.YarnConfiguration {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.conf
}

// ActiveRMAddress returns the webapp address in use, empty before Initialize or after Close.
func (c *YarnClient) ActiveRMAddress() string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if c.activeRMAddress == nil {
		return ""
	}
	return *c.activeRMAddress
}

func (c *YarnClient) REST() RESTClient {
	return c
}

func (c *YarnClient) Admin() AdminRunner {
	return c.admin
}

func (c *YarnClient) current() RESTClient {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.rest
}

func (c *YarnClient) Get(ctx context.Context, path string) ([]byte, error) {
	rest := c.current()
	if rest == nil {
		return nil, &TransportError{Op: http.MethodGet, Target: path, Err: errNoActiveRM}
	}
	return rest.Get(ctx, path)
}

func (c *YarnClient) Put(ctx context.Context, path string, contentType string, body []byte) ([]byte, error) {
	rest := c.current()
	if rest == nil {
		return nil, &TransportError{Op: http.MethodPut, Target: path, Err: errNoActiveRM}
	}
	return rest.Put(ctx, path, contentType, body)
}

func (c *YarnClient) Probe(ctx context.Context, path string) bool {
	rest := c.current()
	if rest == nil {
		return false
	}
	return rest.Probe(ctx, path)
}

type clusterInfoResponse struct {
	ClusterInfo struct {
		State   string `json:"state"`
		HAState string `json:"haState"`
	} `json:"clusterInfo"`
}

// getActiveRMAddress asks every configured resource manager for its ha state, in rmIDs order.
func (c *YarnClient) getActiveRMAddress(ctx context.Context, rmIDs []string, rmAddress map[string]string) (string, error) {
	for _, rmID := range rmIDs {
		rmAddr := rmAddress[rmID]
		body, err := c.newREST(rmAddr, c.restOpts...).Get(ctx, ClusterInfoPath)
		if err != nil {
			klog.V(4).Infof("get cluster info for %v failed %v, try next rm", rmAddr, err)
			continue
		}
		info := clusterInfoResponse{}
		if err := json.Unmarshal(body, &info); err != nil {
			klog.V(4).Infof("parse cluster info for %v failed %v, try next rm", rmAddr, err)
			continue
		}
		if info.ClusterInfo.HAState == haStateActive {
			return rmAddr, nil
		}
	}
	return "", fmt.Errorf("active rm not found in %v", rmAddress)
}
