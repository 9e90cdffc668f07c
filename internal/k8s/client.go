package k8s

import (
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/imamik/dpuprov/internal/config"
)

// FieldManager identifies dpuprov in server-side apply requests.
const FieldManager = "dpuprov"

// Client wraps the typed and dynamic Kubernetes clients.
type Client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface
	mapper        meta.RESTMapper
	timeouts      *config.Timeouts
	log           logr.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeouts sets the rollout timeouts and poll interval.
func WithTimeouts(t *config.Timeouts) Option {
	return func(c *Client) {
		c.timeouts = t
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewFromKubeconfig creates a Client from a kubeconfig file.
func NewFromKubeconfig(path string, opts ...Option) (*Client, error) {
	restConfig, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	groupResources, err := restmapper.GetAPIGroupResources(discoveryClient)
	if err != nil {
		return nil, fmt.Errorf("failed to get API group resources: %w", err)
	}

	return NewFromClients(clientset, dynamicClient, restmapper.NewDiscoveryRESTMapper(groupResources), opts...), nil
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(
	clientset kubernetes.Interface,
	dynamicClient dynamic.Interface,
	mapper meta.RESTMapper,
	opts ...Option,
) *Client {
	c := &Client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
		timeouts:      config.LoadTimeouts(),
		log:           logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
