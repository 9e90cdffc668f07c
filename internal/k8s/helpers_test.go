package k8s

import (
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/imamik/dpuprov/internal/config"
	dtesting "github.com/imamik/dpuprov/internal/testing"
)

var (
	machineConfigGVR = dtesting.MachineConfigGVR
	poolObject       = dtesting.PoolObject
)

func testTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Rollout:      500 * time.Millisecond,
		RolloutStart: 50 * time.Millisecond,
		Delete:       200 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}
}

type testEnv struct {
	client    *Client
	clientset *fake.Clientset
	dynamic   *dynamicfake.FakeDynamicClient
}

func setupTestClient(t *testing.T, objects ...runtime.Object) *testEnv {
	t.Helper()

	//nolint:staticcheck // SA1019: NewSimpleClientset is sufficient for our testing needs
	clientset := fake.NewSimpleClientset(&corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "worker-0", Labels: map[string]string{"existing": "yes"}},
	})
	scheme := runtime.NewScheme()
	_ = corev1.AddToScheme(scheme)
	dynamicClient := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, dtesting.ListKinds(), objects...)

	return &testEnv{
		client:    NewFromClients(clientset, dynamicClient, dtesting.RESTMapper(), WithTimeouts(testTimeouts())),
		clientset: clientset,
		dynamic:   dynamicClient,
	}
}
