package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
)

// K8sClient provides in-cluster Kubernetes API access.
type K8sClient struct {
	namespace string
	apiBase   string
	tokenPath string
}

func NewK8sClient(namespace string) *K8sClient {
	return &K8sClient{
		namespace: namespace,
		apiBase:   inClusterAPIBase(),
		tokenPath: "/var/run/secrets/kubernetes.io/serviceaccount/token",
	}
}

func (k *K8sClient) FindPod(ctx context.Context, labelSelector string) (string, error) {
	client, token, err := k.httpClient()
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/api/v1/namespaces/%s/pods?labelSelector=%s&limit=1",
		k.apiBase, k.namespace, url.QueryEscape(labelSelector))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("list pods: %s %s", resp.Status, string(body))
	}

	var result struct {
		Items []struct {
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Items) == 0 {
		return "", fmt.Errorf("no pods found with label %s", labelSelector)
	}
	return result.Items[0].Metadata.Name, nil
}

// TailLogs returns the last n lines of the pod's log without following.
func (k *K8sClient) TailLogs(ctx context.Context, podName string, n int) (string, error) {
	client, token, err := k.httpClient()
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/api/v1/namespaces/%s/pods/%s/log?tailLines=%s&timestamps=false",
		k.apiBase, k.namespace, podName, strconv.Itoa(n))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pod logs: %s %s", resp.Status, string(body))
	}
	return string(body), nil
}

func (k *K8sClient) httpClient() (*http.Client, string, error) {
	token, err := os.ReadFile(k.tokenPath)
	if err != nil {
		return nil, "", fmt.Errorf("read sa token: %w", err)
	}
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}, string(token), nil
}

func inClusterAPIBase() string {
	host := os.Getenv("KUBERNETES_SERVICE_HOST")
	port := os.Getenv("KUBERNETES_SERVICE_PORT")
	if host == "" || port == "" {
		return "https://kubernetes.default.svc"
	}
	return fmt.Sprintf("https://%s:%s", host, port)
}

// PodSource reads the trailing window from the server pod's log.
type PodSource struct {
	k8s      *K8sClient
	podLabel string
	lastPod  string
}

func NewPodSource(k8s *K8sClient, podLabel string) *PodSource {
	return &PodSource{k8s: k8s, podLabel: podLabel}
}

func (s *PodSource) Name() string { return "pod " + s.k8s.namespace + "/" + s.podLabel }

func (s *PodSource) Tail(ctx context.Context, n int) ([]string, error) {
	pod, err := s.k8s.FindPod(ctx, s.podLabel)
	if err != nil {
		return nil, fmt.Errorf("%w: find pod: %v", ErrSourceUnavailable, err)
	}
	if pod != s.lastPod {
		log.Printf("reading logs from pod %s/%s", s.k8s.namespace, pod)
		s.lastPod = pod
	}
	text, err := s.k8s.TailLogs(ctx, pod, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, pod, err)
	}
	return splitWindow(text, n), nil
}
