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

package main

import (
	"flag"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/koordinator-sh/yarn-queue-operator/cmd/yarn-queue-operator/options"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/controller/metrics"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/operator"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/server"
	"github.com/koordinator-sh/yarn-queue-operator/pkg/yarn/cache"
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	conf := options.NewConfiguration()
	conf.AddFlags(fs)
	goFlags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	klog.InitFlags(goFlags)
	fs.AddGoFlagSet(goFlags)
	help := fs.Bool("help", false, "help information")

	if err := fs.Parse(os.Args[1:]); err != nil {
		klog.Fatal(err)
	}
	if *help {
		fs.Usage()
		os.Exit(0)
	}
	if err := conf.Complete(fs); err != nil {
		klog.Fatal(err)
	}
	if err := conf.Validate(); err != nil {
		klog.Fatal(err)
	}
	fs.VisitAll(func(f *pflag.Flag) {
		klog.Infof("args: %s = %s", f.Name, f.Value)
	})

	stopCtx := signals.SetupSignalHandler()
	op, err := operator.NewYarnOperator(stopCtx, conf.OperatorOptions(), nil)
	if err != nil {
		klog.Fatal(err)
	}
	defer op.Close()
	if !op.CheckYarnReady(stopCtx) {
		klog.Warningf("resource manager is not ready yet")
	}

	syncer := cache.NewClusterSyncer(op, conf.SyncPeriod)
	if err := syncer.Start(stopCtx); err != nil {
		klog.Fatal(err)
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewYarnQueueCollector(conf.ClusterID, syncer),
	)

	if err := server.NewYarnQueueOperatorServer(op, registry, conf.ServerEndpoint).Run(stopCtx); err != nil {
		klog.Fatal(err)
	}
}
