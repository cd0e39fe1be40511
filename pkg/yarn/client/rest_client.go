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
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"k8s.io/klog/v2"
)

const (
	NodesPath          = "/ws/v1/cluster/nodes"
	ClusterInfoPath    = "/ws/v1/cluster/info"
	SchedulerPath      = "/ws/v1/cluster/scheduler"
	SchedulerConfPath  = "/ws/v1/cluster/scheduler-conf"
	NodeLabelsPagePath = "/cluster/nodelabels"

	ContentTypeXML = "application/xml"

	defaultRequestTimeout = 30 * time.Second
)

// RESTClient talks to the resource manager web services.
type RESTClient interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, contentType string, body []byte) ([]byte, error)
	// Probe reports whether path answers with a 2xx, failures are expected and only logged verbosely.
	Probe(ctx context.Context, path string) bool
}

type RESTOption func(c *resty.Client)

func WithTimeout(timeout time.Duration) RESTOption {
	return func(c *resty.Client) {
		c.SetTimeout(timeout)
	}
}

func WithTransport(transport http.RoundTripper) RESTOption {
	return func(c *resty.Client) {
		c.SetTransport(transport)
	}
}

// WithKerberos signs every request with a SPNEGO token.
func WithKerberos(auth *KerberosAuth) RESTOption {
	return func(c *resty.Client) {
		if auth == nil {
			return
		}
		c.SetPreRequestHook(func(_ *resty.Client, r *http.Request) error {
			return auth.SetSPNEGOHeader(r)
		})
	}
}

type restClient struct {
	address string
	client  *resty.Client
}

// NewRESTClient creates a client for the resource manager webapp at address, e.g. "master:8088".
func NewRESTClient(address string, opts ...RESTOption) RESTClient {
	c := resty.New()
	c.SetHostURL(baseURL(address)).SetTimeout(defaultRequestTimeout)
	for _, opt := range opts {
		opt(c)
	}
	return &restClient{address: address, client: c}
}

func baseURL(address string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return strings.TrimSuffix(address, "/")
	}
	return "http://" + strings.TrimSuffix(address, "/")
}

func (r *restClient) Get(ctx context.Context, path string) ([]byte, error) {
	klog.V(4).Infof("GET %s%s", r.address, path)
	resp, err := r.client.R().SetContext(ctx).Get(path)
	if err := r.check(http.MethodGet, path, resp, err, true); err != nil {
		return nil, err
	}
	klog.V(5).Infof("GET %s%s response %s", r.address, path, string(resp.Body()))
	return resp.Body(), nil
}

func (r *restClient) Put(ctx context.Context, path string, contentType string, body []byte) ([]byte, error) {
	klog.V(4).Infof("PUT %s%s", r.address, path)
	klog.V(5).Infof("PUT %s%s body %s", r.address, path, string(body))
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Put(path)
	if err := r.check(http.MethodPut, path, resp, err, true); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (r *restClient) Probe(ctx context.Context, path string) bool {
	resp, err := r.client.R().SetContext(ctx).Get(path)
	if err := r.check(http.MethodGet, path, resp, err, false); err != nil {
		klog.V(5).Infof("probe %s%s not ready, %v", r.address, path, err)
		return false
	}
	return true
}

func (r *restClient) check(method, path string, resp *resty.Response, err error, logFailure bool) error {
	target := baseURL(r.address) + path
	if err != nil {
		if logFailure {
			klog.Errorf("%s %s failed, error %v", method, target, err)
		}
		return &TransportError{Op: method, Target: target, Err: err}
	}
	if !resp.IsSuccess() {
		if logFailure {
			klog.Errorf("%s %s failed, status %s", method, target, resp.Status())
		}
		return &TransportError{Op: method, Target: target, StatusCode: resp.StatusCode(), Output: resp.String()}
	}
	return nil
}
