package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"pulse/log"
)

var (
	// ErrCyclicConnection is returned when a connection would make a node
	// its own transitive upstream.
	ErrCyclicConnection = errors.New("cyclic node connection")
	// ErrNotConnectable is returned when the target node does not accept
	// an input.
	ErrNotConnectable = errors.New("node does not accept input")
)

type (
	// TokenProcessor replaces the default bulk fan-out for a token. It
	// receives all roots of the token, sorted by channel.
	TokenProcessor func(roots []*RootNode, numSamples int)

	// ChannelProcessor replaces the default per-channel processing for a
	// token.
	ChannelProcessor func(root *RootNode, numSamples int) []float64

	// SampleProcessor replaces the default per-sample processing for a
	// token.
	SampleProcessor func(root *RootNode, channel uint32) float64

	// Manager owns the global node registry, the per-token channel roots,
	// custom processor registrations, routing transitions and networks.
	//
	// Structural mutation and processing may come from different
	// goroutines: mutators hold the write lock, the processing paths
	// capture what they need under the read lock and then run without
	// it, so no mutation is ever observed mid-block.
	Manager struct {
		logger log.Logger

		mu            sync.RWMutex
		registry      map[string]Node
		ids           map[Node]string
		nextID        uint64
		roots         map[Token]map[uint32]*RootNode
		tokenProcs    map[Token]TokenProcessor
		channelProcs  map[Token]ChannelProcessor
		sampleProcs   map[Token]SampleProcessor
		networks      map[Token][]*NodeNetwork
		audioNetworks map[Token][]*NodeNetwork
		netProcessing map[Token]*atomic.Bool
	}

	// ManagerOption provides a way to set optional manager parameters.
	ManagerOption func(*Manager)
)

// WithManagerLogger sets the logger. If not provided, a silent logger is
// used.
func WithManagerLogger(l log.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager returns an empty manager.
func NewManager(options ...ManagerOption) *Manager {
	m := &Manager{
		logger:        log.Silent(),
		registry:      make(map[string]Node),
		ids:           make(map[Node]string),
		roots:         make(map[Token]map[uint32]*RootNode),
		tokenProcs:    make(map[Token]TokenProcessor),
		channelProcs:  make(map[Token]ChannelProcessor),
		sampleProcs:   make(map[Token]SampleProcessor),
		networks:      make(map[Token][]*NodeNetwork),
		audioNetworks: make(map[Token][]*NodeNetwork),
		netProcessing: make(map[Token]*atomic.Bool),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Register adds a node to the global registry under the id, generating a
// unique "node_<n>" id when empty. A node already present keeps its
// first id, which is returned.
func (m *Manager) Register(id string, n Node) string {
	if n == nil {
		panic("graph: register nil node")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerLocked(id, n)
}

func (m *Manager) registerLocked(id string, n Node) string {
	if existing, ok := m.ids[n]; ok {
		return existing
	}
	if id == "" {
		m.nextID++
		id = fmt.Sprintf("node_%d", m.nextID)
	}
	m.registry[id] = n
	m.ids[n] = id
	return id
}

// Node is a registry lookup by id, nil when unknown. Speculative lookups
// are expected while the graph is built up incrementally.
func (m *Manager) Node(id string) Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry[id]
}

// NodeID returns the registry id of a node, empty if unregistered.
func (m *Manager) NodeID(n Node) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ids[n]
}

// AddToRoot registers the node globally (auto-assigning an id when
// needed) and as a child of the (token, channel) root, creating the root
// lazily. A nil node is a hard programming error.
func (m *Manager) AddToRoot(n Node, token Token, channel uint32) {
	if n == nil {
		panic("graph: add nil node to root")
	}
	m.mu.Lock()
	m.registerLocked("", n)
	root := m.rootLocked(token, channel)
	m.mu.Unlock()
	root.Register(n)
}

// RemoveFromRoot removes only the per-root association; the node remains
// globally registered if referenced elsewhere. Once no channel uses the
// node anymore, its per-activation state is reset if it implements
// Resetter.
func (m *Manager) RemoveFromRoot(n Node, token Token, channel uint32) {
	if n == nil {
		return
	}
	m.mu.RLock()
	var root *RootNode
	if channels, ok := m.roots[token]; ok {
		root = channels[channel]
	}
	m.mu.RUnlock()
	if root == nil {
		return
	}
	root.Unregister(n)
	if b := stateOf(n); b != nil && b.ChannelMask() == 0 {
		if r, ok := n.(Resetter); ok {
			r.Reset()
		}
	}
}

// RootNodeFor returns the root for (token, channel), creating it lazily.
func (m *Manager) RootNodeFor(token Token, channel uint32) *RootNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rootLocked(token, channel)
}

func (m *Manager) rootLocked(token Token, channel uint32) *RootNode {
	channels, ok := m.roots[token]
	if !ok {
		channels = make(map[uint32]*RootNode)
		m.roots[token] = channels
	}
	root, ok := channels[channel]
	if !ok {
		root = NewRootNode(channel)
		channels[channel] = root
	}
	return root
}

// Connect wires the source node's output as the target node's input. An
// unresolved id is a documented soft failure: the call is a silent no-op
// so incremental scripting can connect speculatively. A connection that
// would close a cycle is refused.
func (m *Manager) Connect(sourceID, targetID string) error {
	m.mu.RLock()
	source := m.registry[sourceID]
	target := m.registry[targetID]
	m.mu.RUnlock()
	if source == nil || target == nil {
		return nil
	}
	in, ok := target.(Input)
	if !ok {
		return fmt.Errorf("connect %v -> %v: %w", sourceID, targetID, ErrNotConnectable)
	}
	if source == target || reaches(source, target) {
		return fmt.Errorf("connect %v -> %v: %w", sourceID, targetID, ErrCyclicConnection)
	}
	in.SetInput(source)
	return nil
}

// reaches reports whether target is a transitive upstream of n.
func reaches(n, target Node) bool {
	visited := make(map[Node]bool)
	var walk func(Node) bool
	walk = func(cur Node) bool {
		if cur == target {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		s, ok := cur.(Sourced)
		if !ok {
			return false
		}
		for _, up := range s.Inputs() {
			if up != nil && walk(up) {
				return true
			}
		}
		return false
	}
	return walk(n)
}

// NodeCount returns the sum of registered node references across the
// token's channels. A node shared between channels counts once per
// registration.
func (m *Manager) NodeCount(token Token) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, root := range m.roots[token] {
		count += root.Size()
	}
	return count
}

// ChannelCount returns the number of channels with a root under the
// token.
func (m *Manager) ChannelCount(token Token) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.roots[token])
}

// Channels returns the token's channels in ascending order.
func (m *Manager) Channels(token Token) []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channels := make([]uint32, 0, len(m.roots[token]))
	for ch := range m.roots[token] {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// SetTokenProcessor registers a custom bulk processor for the token.
func (m *Manager) SetTokenProcessor(token Token, p TokenProcessor) {
	m.mu.Lock()
	m.tokenProcs[token] = p
	m.mu.Unlock()
}

// SetChannelProcessor registers a custom per-channel processor.
func (m *Manager) SetChannelProcessor(token Token, p ChannelProcessor) {
	m.mu.Lock()
	m.channelProcs[token] = p
	m.mu.Unlock()
}

// SetSampleProcessor registers a custom per-sample processor.
func (m *Manager) SetSampleProcessor(token Token, p SampleProcessor) {
	m.mu.Lock()
	m.sampleProcs[token] = p
	m.mu.Unlock()
}

// ProcessToken runs one bulk pass over all roots of the token. A
// registered token processor supplies its own fan-out strategy;
// otherwise every root processes numSamples individually, after the
// token's networks rendered their blocks.
func (m *Manager) ProcessToken(token Token, numSamples int) {
	m.mu.RLock()
	proc := m.tokenProcs[token]
	channels := m.roots[token]
	roots := make([]*RootNode, 0, len(channels))
	for _, root := range channels {
		roots = append(roots, root)
	}
	m.mu.RUnlock()
	sort.Slice(roots, func(i, j int) bool { return roots[i].channel < roots[j].channel })

	if proc != nil {
		proc(roots, numSamples)
		return
	}
	if m.beginNetworks(token) {
		m.mu.RLock()
		nets := append([]*NodeNetwork{}, m.networks[token]...)
		m.mu.RUnlock()
		for _, w := range nets {
			if !w.Enabled() || w.isProcessed() {
				continue
			}
			w.ProcessBlock(numSamples)
			w.markProcessed(0)
		}
		for _, w := range nets {
			w.resetProcessed()
		}
		m.endNetworks(token)
	}
	for _, root := range roots {
		root.Process(numSamples)
	}
}

// ProcessChannel produces numSamples normalized samples for one channel.
// The normalization divisor is captured once before the block starts;
// structural mutation is not visible mid-block.
func (m *Manager) ProcessChannel(token Token, channel uint32, numSamples int) []float64 {
	root := m.RootNodeFor(token, channel)
	m.mu.RLock()
	proc := m.channelProcs[token]
	m.mu.RUnlock()
	if proc != nil {
		return proc(root, numSamples)
	}

	coef := root.Size()
	samples := root.Process(numSamples)
	for _, contribution := range m.audioNetworkOutputs(token, channel, numSamples) {
		for i := range samples {
			if i < len(contribution) {
				samples[i] += contribution[i]
			}
		}
	}
	for i := range samples {
		samples[i] = normalize(samples[i], coef)
	}
	return samples
}

// ProcessSample produces one normalized sample for the channel.
func (m *Manager) ProcessSample(token Token, channel uint32) float64 {
	root := m.RootNodeFor(token, channel)
	m.mu.RLock()
	proc := m.sampleProcs[token]
	m.mu.RUnlock()
	if proc != nil {
		return proc(root, channel)
	}
	return normalize(root.ProcessSample(), root.Size())
}

// normalize bounds the summed channel output for the real-time audio
// path: divide by the live node count, then a tanh soft knee above the
// limiter threshold. The knee applies even with no root nodes, so
// channels fed only by network contributions stay bounded too. This is
// an audio-domain policy, not a generic graph rule.
func normalize(sample float64, numNodes int) float64 {
	if numNodes > 0 {
		sample /= float64(numNodes)
	}

	const (
		threshold = 0.95
		knee      = 0.1
	)
	abs := math.Abs(sample)
	if abs > threshold {
		limited := threshold + math.Tanh((abs-threshold)/knee)*knee
		sample = math.Copysign(limited, sample)
	}
	return sample
}

// audioNetworkOutputs renders the token's audio-sink networks once per
// cycle and returns their blocks for the channel, scaled by the routing
// gain. The per-token guard makes re-entrant double processing within
// one cycle impossible.
func (m *Manager) audioNetworkOutputs(token Token, channel uint32, numSamples int) [][]float64 {
	if !m.beginNetworks(token) {
		return nil
	}
	defer m.endNetworks(token)

	m.mu.RLock()
	nets := append([]*NodeNetwork{}, m.audioNetworks[token]...)
	m.mu.RUnlock()

	var outputs [][]float64
	for _, w := range nets {
		if !w.Enabled() || !w.UsedByChannel(channel) {
			continue
		}
		if !w.isProcessed() {
			w.ProcessBlock(numSamples)
			w.markProcessed(0)
		}
		scale := w.routingScale(channel)
		if scale == 0 {
			continue
		}
		block := w.Buffer()
		if scale != 1 {
			scaled := make([]float64, len(block))
			for i, s := range block {
				scaled[i] = s * scale
			}
			block = scaled
		}
		outputs = append(outputs, block)
	}
	for _, w := range nets {
		if w.UsedByChannel(channel) {
			w.requestReset(channel)
		}
	}
	return outputs
}

func (m *Manager) beginNetworks(token Token) bool {
	return m.processingFlag(token).CompareAndSwap(false, true)
}

func (m *Manager) endNetworks(token Token) {
	m.processingFlag(token).Store(false)
}

func (m *Manager) processingFlag(token Token) *atomic.Bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	flag, ok := m.netProcessing[token]
	if !ok {
		flag = new(atomic.Bool)
		m.netProcessing[token] = flag
	}
	return flag
}

// AddNetwork registers a network under the token; nil is a no-op.
func (m *Manager) AddNetwork(w *NodeNetwork, token Token) {
	if w == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := &m.networks
	if w.Mode() == OutputAudioSink {
		list = &m.audioNetworks
	}
	for _, existing := range (*list)[token] {
		if existing == w {
			return
		}
	}
	(*list)[token] = append((*list)[token], w)
	m.logger.Debug(fmt.Sprintf("added network %v to %v: %d nodes", w.Name(), token, w.NodeCount()))
}

// RemoveNetwork drops the network from the token; nil or unknown is a
// no-op.
func (m *Manager) RemoveNetwork(w *NodeNetwork, token Token) {
	if w == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := &m.networks
	if w.Mode() == OutputAudioSink {
		list = &m.audioNetworks
	}
	nets := (*list)[token]
	for i, existing := range nets {
		if existing == w {
			(*list)[token] = append(nets[:i], nets[i+1:]...)
			return
		}
	}
}

// Networks returns all networks of the token, audio-sink ones last.
func (m *Manager) Networks(token Token) []*NodeNetwork {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*NodeNetwork, 0, len(m.networks[token])+len(m.audioNetworks[token]))
	all = append(all, m.networks[token]...)
	all = append(all, m.audioNetworks[token]...)
	return all
}

// RouteNodeToChannels adds the node to each target channel's root with a
// crossfade: the contribution gain on the new channels ramps 0→1 over
// fadeCycles calls to UpdateRoutingStates, while channels being left
// ramp down and are detached by CleanupCompletedRouting. With zero
// fadeCycles the rerouting is immediate.
func (m *Manager) RouteNodeToChannels(n Node, channels []uint32, fadeCycles uint32, token Token) {
	if n == nil {
		panic("graph: route nil node")
	}
	b := stateOf(n)
	if b == nil {
		m.logger.Warn("routing skipped: node carries no channel state")
		return
	}
	current := b.ChannelMask()
	var target uint32
	for _, ch := range channels {
		target |= 1 << ch
	}

	if fadeCycles == 0 {
		for ch := uint32(0); ch < 32; ch++ {
			if current&(1<<ch) != 0 && target&(1<<ch) == 0 {
				m.RemoveFromRoot(n, token, ch)
			}
		}
		for _, ch := range channels {
			if current&(1<<ch) == 0 {
				m.AddToRoot(n, token, ch)
			}
		}
		return
	}

	b.setRouting(newRoutingState(current, target, fadeCycles))
	for _, ch := range channels {
		if current&(1<<ch) == 0 {
			m.AddToRoot(n, token, ch)
		}
	}
}

// RouteNetworkToChannels routes an audio-sink network to the target
// channels with the same crossfade semantics as node routing.
func (m *Manager) RouteNetworkToChannels(w *NodeNetwork, channels []uint32, fadeCycles uint32, token Token) {
	if w == nil {
		return
	}
	if w.Mode() != OutputAudioSink {
		m.logger.Warn("routing skipped: network is not an audio sink")
		return
	}
	m.AddNetwork(w, token)
	w.SetEnabled(true)

	current := w.ChannelMask()
	var target uint32
	for _, ch := range channels {
		target |= 1 << ch
		w.RegisterChannel(ch)
		m.RootNodeFor(token, ch)
	}

	if fadeCycles == 0 {
		for ch := uint32(0); ch < 32; ch++ {
			if current&(1<<ch) != 0 && target&(1<<ch) == 0 {
				w.UnregisterChannel(ch)
			}
		}
		return
	}
	w.setRouting(newRoutingState(current, target, fadeCycles))
}

// UpdateRoutingStates advances every active fade by one cycle: one call
// equals one fade cycle, in equal linear steps.
func (m *Manager) UpdateRoutingStates(token Token) {
	for _, b := range m.routedStates(token) {
		if s := b.Routing(); s != nil {
			s.update()
		}
	}
}

// CleanupCompletedRouting detaches nodes and networks from the channels
// their completed fades left and removes the transition bookkeeping. It
// returns the number of transitions still pending.
func (m *Manager) CleanupCompletedRouting(token Token) int {
	m.mu.RLock()
	nodes := make([]Node, 0, len(m.registry))
	for _, n := range m.registry {
		nodes = append(nodes, n)
	}
	nets := append([]*NodeNetwork{}, m.audioNetworks[token]...)
	m.mu.RUnlock()

	pending := 0
	for _, n := range nodes {
		b := stateOf(n)
		if b == nil {
			continue
		}
		s := b.Routing()
		if s == nil {
			continue
		}
		switch s.Phase() {
		case RoutingActive:
			pending++
		case RoutingCompleted:
			from, to := s.masks()
			for ch := uint32(0); ch < 32; ch++ {
				if from&(1<<ch) != 0 && to&(1<<ch) == 0 {
					m.RemoveFromRoot(n, token, ch)
				}
			}
			b.setRouting(nil)
		}
	}
	for _, w := range nets {
		s := w.Routing()
		if s == nil {
			continue
		}
		switch s.Phase() {
		case RoutingActive:
			pending++
		case RoutingCompleted:
			from, to := s.masks()
			for ch := uint32(0); ch < 32; ch++ {
				if from&(1<<ch) != 0 && to&(1<<ch) == 0 {
					w.UnregisterChannel(ch)
				}
			}
			w.setRouting(nil)
		}
	}
	return pending
}

// routedStates collects the channel state of every node and audio
// network with an installed routing transition.
func (m *Manager) routedStates(token Token) []*Base {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var states []*Base
	for _, n := range m.registry {
		if b := stateOf(n); b != nil && b.Routing() != nil {
			states = append(states, b)
		}
	}
	for _, w := range m.audioNetworks[token] {
		if w.Routing() != nil {
			states = append(states, &w.Base)
		}
	}
	return states
}

// Validate checks the whole registry for structural errors. Connect
// refuses cycle-closing connections, but nodes wired directly through
// their own SetInput bypass that check; Validate catches those before
// streaming starts.
func (m *Manager) Validate() error {
	m.mu.RLock()
	nodes := make([]Node, 0, len(m.registry))
	for _, n := range m.registry {
		nodes = append(nodes, n)
	}
	m.mu.RUnlock()

	const (
		white = iota
		grey
		black
	)
	colors := make(map[Node]int)
	var visit func(Node) error
	visit = func(n Node) error {
		switch colors[n] {
		case grey:
			return fmt.Errorf("node %v: %w", m.NodeID(n), ErrCyclicConnection)
		case black:
			return nil
		}
		colors[n] = grey
		if s, ok := n.(Sourced); ok {
			for _, up := range s.Inputs() {
				if up == nil {
					continue
				}
				if err := visit(up); err != nil {
					return err
				}
			}
		}
		colors[n] = black
		return nil
	}
	for _, n := range nodes {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// Clear tears the whole graph down: registry, roots, processors and
// networks. Used on engine shutdown; the manager is reusable afterwards.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = make(map[string]Node)
	m.ids = make(map[Node]string)
	m.roots = make(map[Token]map[uint32]*RootNode)
	m.tokenProcs = make(map[Token]TokenProcessor)
	m.channelProcs = make(map[Token]ChannelProcessor)
	m.sampleProcs = make(map[Token]SampleProcessor)
	m.networks = make(map[Token][]*NodeNetwork)
	m.audioNetworks = make(map[Token][]*NodeNetwork)
	m.netProcessing = make(map[Token]*atomic.Bool)
}
