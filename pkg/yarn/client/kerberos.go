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
	"fmt"
	"net/http"
	"os"
	"strings"

	krb5client "github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"k8s.io/klog/v2"
)

const DefaultKrb5Config = "/etc/krb5.conf"

// KerberosAuth authenticates resource manager web requests with SPNEGO,
// required when the webapp runs with hadoop.http.authentication.type=kerberos.
type KerberosAuth struct {
	client *krb5client.Client
	// spn is left empty to derive HTTP/<host> from the request url.
	spn string
}

// CreateKerberosAuth logs in with keytab for principal, e.g. yarn/master.example.com@EXAMPLE.COM.
func CreateKerberosAuth(keytabFilePath, principal, krb5ConfigFile string) (*KerberosAuth, error) {
	if krb5ConfigFile == "" {
		krb5ConfigFile = os.Getenv("KRB5_CONFIG")
	}
	if krb5ConfigFile == "" {
		krb5ConfigFile = DefaultKrb5Config
	}
	cfg, err := krb5config.Load(krb5ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load krb5 config %s: %w", krb5ConfigFile, err)
	}

	kt, err := keytab.Load(keytabFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load keytab %s: %w", keytabFilePath, err)
	}

	username, realm, err := splitPrincipal(principal)
	if err != nil {
		return nil, err
	}
	krbClient := krb5client.NewWithKeytab(username, realm, kt, cfg, krb5client.DisablePAFXFAST(true))
	if err := krbClient.Login(); err != nil {
		return nil, fmt.Errorf("kerberos login as %s failed: %w", principal, err)
	}
	klog.Infof("kerberos login as %s succeeded", principal)
	return &KerberosAuth{client: krbClient}, nil
}

func (k *KerberosAuth) SetSPNEGOHeader(r *http.Request) error {
	return spnego.SetSPNEGOHeader(k.client, r, k.spn)
}

func splitPrincipal(principal string) (string, string, error) {
	parts := strings.Split(principal, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("illegal kerberos principal %q, expect user[/host]@REALM", principal)
	}
	return parts[0], parts[1], nil
}
