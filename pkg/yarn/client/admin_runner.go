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
	"errors"
	"fmt"
	"strings"

	"k8s.io/klog/v2"
	"k8s.io/utils/exec"
)

const DefaultYarnBinary = "yarn"

// AdminRunner runs yarn command line tools against the generated hadoop conf dir.
type AdminRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

type adminRunner struct {
	exec      exec.Interface
	yarnBin   string
	configDir string
}

func NewAdminRunner(executor exec.Interface, yarnBin string, configDir string) AdminRunner {
	if yarnBin == "" {
		yarnBin = DefaultYarnBinary
	}
	return &adminRunner{exec: executor, yarnBin: yarnBin, configDir: configDir}
}

// Run executes `yarn --config <dir> args...` and returns the combined output.
func (a *adminRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmdArgs := append([]string{"--config", a.configDir}, args...)
	cmdLine := a.yarnBin + " " + strings.Join(cmdArgs, " ")
	klog.V(4).Infof("exec %s", cmdLine)

	out, err := a.exec.CommandContext(ctx, a.yarnBin, cmdArgs...).CombinedOutput()
	output := string(out)
	if err != nil {
		var exitErr exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("exit status %d", exitErr.ExitStatus())
		}
		klog.Errorf("exec %s failed, error %v, output %s", cmdLine, err, output)
		return output, &TransportError{Op: "exec", Target: cmdLine, Output: strings.TrimSpace(output), Err: err}
	}
	klog.V(5).Infof("exec %s output %s", cmdLine, output)
	return output, nil
}
