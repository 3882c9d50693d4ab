// Copyright 2026 The Duolog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package duolog

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/compute/metadata"
)

// RuntimeInfo captures metadata about the platform the process runs on,
// expressed as labels a Logger can merge beneath its defaults.
type RuntimeInfo struct {
	// Platform names the detected environment: "cloud_function",
	// "cloud_run", "cloud_run_job", "appengine", "kubernetes", "gce",
	// or "" when nothing was recognized.
	Platform string
	Labels   Labels
}

var (
	runtimeInfo     RuntimeInfo
	runtimeInfoOnce sync.Once
)

// DetectRuntimeInfo inspects well-known environment variables and, where
// needed, the GCE metadata service to infer platform labels. Results are
// cached for the life of the process.
func DetectRuntimeInfo() RuntimeInfo {
	runtimeInfoOnce.Do(func() {
		runtimeInfo = detectRuntimeInfo()
	})
	return runtimeInfo
}

func detectRuntimeInfo() RuntimeInfo {
	info := RuntimeInfo{}
	md := newMetadataLookup()

	if detectCloudFunction(&info) {
		return info
	}
	if detectCloudRunService(&info) {
		return info
	}
	if detectCloudRunJob(&info) {
		return info
	}
	if detectAppEngine(&info) {
		return info
	}
	if detectKubernetes(&info, md) {
		return info
	}
	if detectComputeEngine(&info, md) {
		return info
	}
	return info
}

// detectCloudFunction populates info when running within Cloud Functions.
func detectCloudFunction(info *RuntimeInfo) bool {
	service := trimmedEnv("K_SERVICE")
	target := trimmedEnv("FUNCTION_TARGET")
	if service == "" || target == "" {
		return false
	}

	region := firstNonEmpty(trimmedEnv("FUNCTION_REGION"), trimmedEnv("GOOGLE_CLOUD_REGION"), trimmedEnv("CLOUD_RUN_REGION"))

	labels := Labels{
		"cloud_function.name":   service,
		"cloud_function.target": target,
	}
	if revision := trimmedEnv("K_REVISION"); revision != "" {
		labels["cloud_function.revision"] = revision
	}
	if region != "" {
		labels["cloud_function.region"] = region
	}

	info.Platform = "cloud_function"
	info.Labels = labels
	return true
}

// detectCloudRunService populates info when running within Cloud Run
// services.
func detectCloudRunService(info *RuntimeInfo) bool {
	service := trimmedEnv("K_SERVICE")
	revision := trimmedEnv("K_REVISION")
	if service == "" || revision == "" {
		return false
	}

	labels := Labels{
		"cloud_run.service":  service,
		"cloud_run.revision": revision,
	}
	if config := trimmedEnv("K_CONFIGURATION"); config != "" {
		labels["cloud_run.configuration"] = config
	}
	if region := firstNonEmpty(trimmedEnv("CLOUD_RUN_REGION"), trimmedEnv("GOOGLE_CLOUD_REGION")); region != "" {
		labels["cloud_run.region"] = region
	}

	info.Platform = "cloud_run"
	info.Labels = labels
	return true
}

// detectCloudRunJob populates info when running within Cloud Run jobs.
func detectCloudRunJob(info *RuntimeInfo) bool {
	job := trimmedEnv("CLOUD_RUN_JOB")
	execution := trimmedEnv("CLOUD_RUN_EXECUTION")
	if job == "" || execution == "" {
		return false
	}

	labels := Labels{
		"cloud_run.job":       job,
		"cloud_run.execution": execution,
	}
	if idx := trimmedEnv("CLOUD_RUN_TASK_INDEX"); idx != "" {
		labels["cloud_run.task_index"] = idx
	}
	if attempt := trimmedEnv("CLOUD_RUN_TASK_ATTEMPT"); attempt != "" {
		labels["cloud_run.task_attempt"] = attempt
	}
	if region := firstNonEmpty(trimmedEnv("CLOUD_RUN_REGION"), trimmedEnv("GOOGLE_CLOUD_REGION")); region != "" {
		labels["cloud_run.region"] = region
	}

	info.Platform = "cloud_run_job"
	info.Labels = labels
	return true
}

// detectAppEngine populates info when running within App Engine.
func detectAppEngine(info *RuntimeInfo) bool {
	service := trimmedEnv("GAE_SERVICE")
	version := trimmedEnv("GAE_VERSION")
	if service == "" && version == "" {
		return false
	}

	labels := Labels{}
	if service != "" {
		labels["appengine.service"] = service
	}
	if version != "" {
		labels["appengine.version"] = version
	}
	if inst := trimmedEnv("GAE_INSTANCE"); inst != "" {
		labels["appengine.instance"] = inst
	}

	info.Platform = "appengine"
	info.Labels = labels
	return true
}

// detectKubernetes populates info when running inside a Kubernetes cluster.
func detectKubernetes(info *RuntimeInfo, md *metadataLookup) bool {
	if trimmedEnv("KUBERNETES_SERVICE_HOST") == "" {
		return false
	}

	labels := Labels{}
	if cluster, ok := md.get("instance/attributes/cluster-name"); ok && cluster != "" {
		labels["k8s.cluster.name"] = cluster
	}
	if location, ok := md.get("instance/attributes/cluster-location"); ok && location != "" {
		labels["k8s.location"] = location
	}

	if namespace := readNamespace(); namespace != "" {
		labels["k8s.namespace.name"] = namespace
	} else if ns := trimmedEnv("NAMESPACE_NAME"); ns != "" {
		labels["k8s.namespace.name"] = ns
	} else if ns := trimmedEnv("NAMESPACE"); ns != "" {
		labels["k8s.namespace.name"] = ns
	}

	if pod := trimmedEnv("POD_NAME"); pod != "" {
		labels["k8s.pod.name"] = pod
	} else if host := trimmedEnv("HOSTNAME"); host != "" {
		labels["k8s.pod.name"] = host
	}
	if container := trimmedEnv("CONTAINER_NAME"); container != "" {
		labels["k8s.container.name"] = container
	}

	info.Platform = "kubernetes"
	if len(labels) > 0 {
		info.Labels = labels
	}
	return true
}

// detectComputeEngine populates info when running on Google Compute Engine.
func detectComputeEngine(info *RuntimeInfo, md *metadataLookup) bool {
	instanceID, ok := md.get("instance/id")
	if !ok || instanceID == "" {
		return false
	}

	labels := Labels{"gce.instance_id": instanceID}
	if zone, ok := md.get("instance/zone"); ok && zone != "" {
		if idx := strings.LastIndex(zone, "/"); idx >= 0 && idx+1 < len(zone) {
			zone = zone[idx+1:]
		}
		labels["gce.zone"] = zone
	}

	info.Platform = "gce"
	info.Labels = labels
	return true
}

// trimmedEnv reads an environment variable and trims surrounding whitespace.
func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// firstNonEmpty returns the first non-empty string after trimming
// whitespace.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// readNamespace reads the Kubernetes namespace from the serviceaccount
// secret.
func readNamespace() string {
	data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

type metadataCacheEntry struct {
	value     string
	ok        bool
	populated bool
}

type metadataLookup struct {
	cache map[string]metadataCacheEntry
}

// newMetadataLookup constructs a metadata lookup with local caching.
func newMetadataLookup() *metadataLookup {
	return &metadataLookup{cache: make(map[string]metadataCacheEntry)}
}

// get retrieves and caches metadata values for the given path.
func (l *metadataLookup) get(path string) (string, bool) {
	if entry, ok := l.cache[path]; ok && entry.populated {
		return entry.value, entry.ok
	}
	val, ok := metadataFetch(path)
	l.cache[path] = metadataCacheEntry{value: val, ok: ok, populated: true}
	return val, ok
}

// metadataFetch abstracts metadata retrieval so tests can substitute
// responses.
var metadataFetch = defaultMetadataFetch

// defaultMetadataFetch queries the GCE metadata service through the
// metadata client, skipping the network entirely off GCE.
func defaultMetadataFetch(path string) (string, bool) {
	if !metadata.OnGCE() {
		return "", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	val, err := metadata.GetWithContext(ctx, path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(val), true
}
