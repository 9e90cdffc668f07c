package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/device"
)

// Event is one recorded operation. Node is empty for cluster-wide calls.
type Event struct {
	Node string
	Op   string
	Arg  string
}

func (e Event) String() string {
	s := e.Op
	if e.Node != "" {
		s = e.Node + " " + s
	}
	if e.Arg != "" {
		s += "(" + e.Arg + ")"
	}
	return s
}

// Journal is an ordered, concurrency-safe log of operations.
type Journal struct {
	mu     sync.Mutex
	events []Event
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an event.
func (j *Journal) Record(node, op, arg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, Event{Node: node, Op: op, Arg: arg})
}

// Events returns a copy of all events in order.
func (j *Journal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Event(nil), j.events...)
}

// Ops returns the operations recorded for node, in order.
func (j *Journal) Ops(node string) []string {
	var ops []string
	for _, e := range j.Events() {
		if e.Node == node {
			ops = append(ops, e.Op)
		}
	}
	return ops
}

// Index returns the position of the first event matching node and op, or -1.
func (j *Journal) Index(node, op string) int {
	for i, e := range j.Events() {
		if e.Node == node && e.Op == op {
			return i
		}
	}
	return -1
}

// LastIndex returns the position of the last event matching node and op, or -1.
func (j *Journal) LastIndex(node, op string) int {
	events := j.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Node == node && events[i].Op == op {
			return i
		}
	}
	return -1
}

// script controls how one node's fake device behaves.
type script struct {
	exitCodes map[string]int
	errs      map[string]error
	gates     map[string]chan struct{}
}

// DeviceFixture hands out scripted device handles that record into a
// Journal. By default every operation succeeds immediately.
type DeviceFixture struct {
	journal *Journal

	mu      sync.Mutex
	scripts map[string]*script
	created map[string]int
	closed  map[string]int
}

// NewDeviceFixture creates a fixture recording into journal.
func NewDeviceFixture(journal *Journal) *DeviceFixture {
	return &DeviceFixture{
		journal: journal,
		scripts: make(map[string]*script),
		created: make(map[string]int),
		closed:  make(map[string]int),
	}
}

func (f *DeviceFixture) script(node string) *script {
	s, ok := f.scripts[node]
	if !ok {
		s = &script{
			exitCodes: make(map[string]int),
			errs:      make(map[string]error),
			gates:     make(map[string]chan struct{}),
		}
		f.scripts[node] = s
	}
	return s
}

// Fail makes op on node return a result with exitCode.
func (f *DeviceFixture) Fail(node, op string, exitCode int) *DeviceFixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script(node).exitCodes[op] = exitCode
	return f
}

// Error makes op on node return err.
func (f *DeviceFixture) Error(node, op string, err error) *DeviceFixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script(node).errs[op] = err
	return f
}

// Gate blocks op on node until the returned function is called.
func (f *DeviceFixture) Gate(node, op string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.script(node).gates[op] = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Factory returns a device factory backed by the fixture.
func (f *DeviceFixture) Factory() func(config.Worker) (device.Handle, error) {
	return func(w config.Worker) (device.Handle, error) {
		f.mu.Lock()
		f.created[w.Name]++
		f.mu.Unlock()
		return &fakeHandle{name: w.Name, fixture: f}, nil
	}
}

// Created returns how many handles were created for node.
func (f *DeviceFixture) Created(node string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[node]
}

// Closed returns how many handles of node were closed.
func (f *DeviceFixture) Closed(node string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed[node]
}

type fakeHandle struct {
	name    string
	fixture *DeviceFixture
}

func (h *fakeHandle) do(ctx context.Context, op, arg string) (*device.Result, error) {
	f := h.fixture
	f.mu.Lock()
	s := f.script(h.name)
	gate := s.gates[op]
	code := s.exitCodes[op]
	err := s.errs[op]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
	}

	f.journal.Record(h.name, op, arg)
	if err != nil {
		return nil, err
	}
	return &device.Result{
		Command:  op,
		ExitCode: code,
		Output:   fmt.Sprintf("%s on %s exited %d", op, h.name, code),
	}, nil
}

func (h *fakeHandle) Name() string { return h.name }

func (h *fakeHandle) BootFromURL(ctx context.Context, url string) error {
	_, err := h.do(ctx, device.OpBootFromURL, url)
	return err
}

func (h *fakeHandle) Connect(ctx context.Context, user string) error {
	_, err := h.do(ctx, device.OpConnect, user)
	return err
}

func (h *fakeHandle) ColdBoot(ctx context.Context) error {
	_, err := h.do(ctx, device.OpColdBoot, "")
	return err
}

func (h *fakeHandle) FirmwareUpgrade(ctx context.Context) (*device.Result, error) {
	return h.do(ctx, device.OpFirmwareUpgrade, "")
}

func (h *fakeHandle) FirmwareDefaults(ctx context.Context) (*device.Result, error) {
	return h.do(ctx, device.OpFirmwareDefaults, "")
}

func (h *fakeHandle) LoadBFB(ctx context.Context) (*device.Result, error) {
	return h.do(ctx, device.OpLoadBFB, "")
}

func (h *fakeHandle) Close() error {
	h.fixture.mu.Lock()
	defer h.fixture.mu.Unlock()
	h.fixture.closed[h.name]++
	return nil
}

// Cluster operation names recorded by ClusterFixture.
const (
	OpApply       = "Apply"
	OpCreate      = "Create"
	OpDelete      = "Delete"
	OpLabelNode   = "LabelNode"
	OpWaitRollout = "WaitForPoolUpdated"
)

// ClusterFixture is a cluster client that records into a Journal. Cluster
// events carry an empty node, except LabelNode which records the node.
type ClusterFixture struct {
	journal *Journal

	mu   sync.Mutex
	errs map[string]error
}

// NewClusterFixture creates a fixture recording into journal.
func NewClusterFixture(journal *Journal) *ClusterFixture {
	return &ClusterFixture{journal: journal, errs: make(map[string]error)}
}

// Error makes op return err.
func (c *ClusterFixture) Error(op string, err error) *ClusterFixture {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[op] = err
	return c
}

func (c *ClusterFixture) do(node, op, arg string) error {
	c.journal.Record(node, op, arg)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[op]
}

// Apply records an apply.
func (c *ClusterFixture) Apply(_ context.Context, _ []byte) error {
	return c.do("", OpApply, "")
}

// Create records a create.
func (c *ClusterFixture) Create(_ context.Context, _ []byte) error {
	return c.do("", OpCreate, "")
}

// Delete records a delete.
func (c *ClusterFixture) Delete(_ context.Context, _ []byte) error {
	return c.do("", OpDelete, "")
}

// LabelNode records a label on node.
func (c *ClusterFixture) LabelNode(_ context.Context, node, key, value string) error {
	return c.do(node, OpLabelNode, key+"="+value)
}

// WaitForPoolUpdated records a rollout wait.
func (c *ClusterFixture) WaitForPoolUpdated(_ context.Context, pool string) error {
	return c.do("", OpWaitRollout, pool)
}
