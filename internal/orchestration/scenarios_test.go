package orchestration_test

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/device"
	"github.com/imamik/dpuprov/internal/fleet"
	"github.com/imamik/dpuprov/internal/k8s"
	"github.com/imamik/dpuprov/internal/orchestration"
	dtesting "github.com/imamik/dpuprov/internal/testing"
)

var _ = Describe("Fleet reprovisioning", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		cfg       *config.Config
		journal   *dtesting.Journal
		devices   *dtesting.DeviceFixture
		clientset *fake.Clientset
		dynamic   *dynamicfake.FakeDynamicClient
		futures   *fleet.Registry
		registry  *prometheus.Registry
		orch      *orchestration.Orchestrator
		log       logr.Logger
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		log = zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true))

		cfg = dtesting.NewConfigBuilder().WithWorkers(3).WithKubeconfig("/tmp/kubeconfig").Build()
		journal = dtesting.NewJournal()
		devices = dtesting.NewDeviceFixture(journal)

		var nodes []runtime.Object
		for _, name := range cfg.WorkerNames() {
			nodes = append(nodes, &corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: name}})
		}
		//nolint:staticcheck // SA1019: NewSimpleClientset is sufficient for our testing needs
		clientset = fake.NewSimpleClientset(nodes...)

		scheme := runtime.NewScheme()
		Expect(corev1.AddToScheme(scheme)).To(Succeed())
		dynamic = dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, dtesting.ListKinds(),
			dtesting.PoolObject("sriov", true, false, false, 3, 3))

		// The fake tracker cannot create objects through server-side apply.
		dynamic.PrependReactor("patch", "machineconfigpools",
			func(action k8stesting.Action) (bool, runtime.Object, error) {
				journal.Record("", dtesting.OpApply, action.(k8stesting.PatchAction).GetName())
				return true, dtesting.PoolObject("sriov", true, false, false, 3, 3), nil
			})

		cluster := k8s.NewFromClients(clientset, dynamic, dtesting.RESTMapper(),
			k8s.WithLogger(log),
			k8s.WithTimeouts(&config.Timeouts{
				Rollout:      time.Second,
				RolloutStart: 20 * time.Millisecond,
				Delete:       200 * time.Millisecond,
				PollInterval: 5 * time.Millisecond,
			}))

		images := &dtesting.MockImageEnsurer{}
		images.On("EnsureRecoveryImage", mock.Anything).Return(cfg.RecoveryImage.Path, nil)
		files := &dtesting.MockFileServer{}
		files.On("HostFile", mock.Anything, cfg.RecoveryImage.Path).Return("nfs://192.168.1.1/root/nfs/fedora-coreos.iso", nil)

		futures = fleet.NewRegistry(ctx, cfg.WorkerNames()...)
		registry = prometheus.NewRegistry()
		orch = orchestration.New(orchestration.Options{
			Images:    images,
			Files:     files,
			Cluster:   cluster,
			NewDevice: devices.Factory(),
			Tracker:   orchestration.NewTracker(cfg.WorkerNames()...),
			Metrics:   orchestration.NewMetrics(registry),
			Log:       log,
		})
	})

	AfterEach(func() {
		drain, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = futures.WaitAll(drain)
		cancel()
	})

	Context("when every device succeeds", func() {
		It("provisions, switches the mode and cold-resets every node", func() {
			Expect(orch.Run(ctx, cfg, futures)).To(Succeed())

			By("running the full sequence on every node")
			for _, name := range cfg.WorkerNames() {
				Expect(journal.Ops(name)).To(Equal([]string{
					device.OpBootFromURL, device.OpConnect,
					device.OpFirmwareUpgrade, device.OpFirmwareDefaults,
					device.OpColdBoot,
					device.OpBootFromURL, device.OpConnect,
					device.OpLoadBFB,
					device.OpColdBoot,
				}))
			}

			By("labelling every node")
			for _, name := range cfg.WorkerNames() {
				node, err := clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(node.Labels).To(HaveKeyWithValue(config.DefaultNodeLabel, "true"))
			}

			By("creating the mode switch")
			mc, err := dynamic.Resource(dtesting.MachineConfigGVR).Get(ctx, "99-sriov-bf2-dpu-mode", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(mc.GetLabels()).To(HaveKeyWithValue("machineconfiguration.openshift.io/role", "sriov"))

			By("counting one successful task series per phase")
			count, err := testutil.GatherAndCount(registry, "dpuprov_fleet_tasks_total")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})

	Context("when the switch manifest does not exist yet", func() {
		It("tolerates the delete and continues to create", func() {
			_, err := dynamic.Resource(dtesting.MachineConfigGVR).Get(ctx, "99-sriov-bf2-dpu-mode", metav1.GetOptions{})
			Expect(err).To(HaveOccurred())

			Expect(orch.SwitchNicMode(ctx, cfg, cfg.NicMode, futures)).To(Succeed())

			_, err = dynamic.Resource(dtesting.MachineConfigGVR).Get(ctx, "99-sriov-bf2-dpu-mode", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("when the switch manifest already exists", func() {
		It("replaces it with the requested mode", func() {
			cfg.NicMode.Mode = config.ModeNIC
			Expect(orch.SwitchNicMode(ctx, cfg, cfg.NicMode, futures)).To(Succeed())
			Expect(futures.WaitAll(ctx)).To(Succeed())

			Expect(orch.SwitchNicMode(ctx, cfg, cfg.NicMode, futures)).To(Succeed())

			list, err := dynamic.Resource(dtesting.MachineConfigGVR).List(ctx, metav1.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Items).To(HaveLen(1))
			Expect(list.Items[0].GetName()).To(Equal("99-sriov-bf2-nic-mode"))
		})
	})

	Context("when a device reports a firmware failure", func() {
		It("aborts the fleet before any cluster mutation", func() {
			release := devices.Gate("worker-0", device.OpFirmwareDefaults)
			DeferCleanup(release)
			devices.Fail("worker-2", device.OpLoadBFB, 1)

			err := orch.Run(ctx, cfg, futures)

			var fwErr *device.FirmwareError
			Expect(err).To(HaveOccurred())
			Expect(errors.As(err, &fwErr)).To(BeTrue())
			Expect(fwErr.Node).To(Equal("worker-2"))
			Expect(journal.Index("", dtesting.OpApply)).To(Equal(-1))
			Expect(journal.Ops("worker-0")).NotTo(ContainElement(device.OpFirmwareDefaults))

			node, getErr := clientset.CoreV1().Nodes().Get(ctx, "worker-0", metav1.GetOptions{})
			Expect(getErr).NotTo(HaveOccurred())
			Expect(node.Labels).NotTo(HaveKey(config.DefaultNodeLabel))
		})
	})

	Context("when a node is still busy", func() {
		It("holds the mode switch until the node finishes", func() {
			release := devices.Gate("worker-1", device.OpLoadBFB)
			Expect(orch.ProvisionBFB(ctx, cfg, cfg.BFB, futures)).To(Succeed())

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- orch.SwitchNicMode(ctx, cfg, cfg.NicMode, futures)
			}()

			Consistently(func() int {
				return journal.Index("", dtesting.OpApply)
			}, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(-1))

			release()
			Eventually(done, 5*time.Second).Should(Receive(BeNil()))
			Expect(journal.Index("", dtesting.OpApply)).To(BeNumerically(">", journal.Index("worker-1", device.OpLoadBFB)))
		})
	})
})
