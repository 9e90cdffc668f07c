package orchestration

import (
	"slices"
	"sync"
	"time"
)

// Stage is the last milestone a node reached.
type Stage string

// Stages of the BFB and cold-reset sequences.
const (
	StagePending           Stage = "Pending"
	StageBootRecovery      Stage = "BootRecovery"
	StageConnected         Stage = "Connected"
	StageFirmwareUpgraded  Stage = "FirmwareUpgraded"
	StageFirmwareDefaulted Stage = "FirmwareDefaulted"
	StageColdBooted        Stage = "ColdBooted"
	StageBootRecoveryAgain Stage = "BootRecoveryAgain"
	StageConnectedAgain    Stage = "ConnectedAgain"
	StageImageLoaded       Stage = "ImageLoaded"
	StageFailed            Stage = "Failed"
)

// Phase names.
const (
	PhaseBFB     = "bfb"
	PhaseNicMode = "nicmode"
)

// NodeStatus is a snapshot of one node's progress.
type NodeStatus struct {
	Node    string
	Phase   string
	Stage   Stage
	Err     error
	Updated time.Time
}

// Tracker records the progress of every node. The zero value is not
// usable; create it with NewTracker.
type Tracker struct {
	mu    sync.Mutex
	order []string
	nodes map[string]*NodeStatus
	now   func() time.Time
}

// NewTracker creates a tracker with every node pending.
func NewTracker(names ...string) *Tracker {
	t := &Tracker{
		nodes: make(map[string]*NodeStatus, len(names)),
		now:   time.Now,
	}
	for _, name := range names {
		t.order = append(t.order, name)
		t.nodes[name] = &NodeStatus{Node: name, Stage: StagePending, Updated: t.now()}
	}
	return t
}

// Set records that node reached stage in phase.
func (t *Tracker) Set(node, phase string, stage Stage) {
	if t == nil {
		return
	}
	t.update(node, func(s *NodeStatus) {
		s.Phase = phase
		s.Stage = stage
		s.Err = nil
	})
}

// Fail marks node as failed in phase with err.
func (t *Tracker) Fail(node, phase string, err error) {
	if t == nil {
		return
	}
	t.update(node, func(s *NodeStatus) {
		s.Phase = phase
		s.Stage = StageFailed
		s.Err = err
	})
}

func (t *Tracker) update(node string, fn func(*NodeStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.nodes[node]
	if !ok {
		s = &NodeStatus{Node: node}
		t.nodes[node] = s
		t.order = append(t.order, node)
	}
	fn(s)
	s.Updated = t.now()
}

// Snapshot returns the status of every node in registration order.
func (t *Tracker) Snapshot() []NodeStatus {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]NodeStatus, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.nodes[name])
	}
	return out
}

// Get returns the status of node.
func (t *Tracker) Get(node string) (NodeStatus, bool) {
	snap := t.Snapshot()
	i := slices.IndexFunc(snap, func(s NodeStatus) bool { return s.Node == node })
	if i < 0 {
		return NodeStatus{}, false
	}
	return snap[i], true
}
