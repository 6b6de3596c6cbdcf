// Package node carries election messages between organizer, voters and
// auditors over libp2p: gossip topics for broadcasts and direct streams
// for messages addressed to one peer.
package node

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	circuit "github.com/libp2p/go-libp2p-circuit"
	"github.com/libp2p/go-libp2p-core/crypto"
	discoptions "github.com/libp2p/go-libp2p-core/discovery"
	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/routing"
	discovery "github.com/libp2p/go-libp2p-discovery"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	ddht "github.com/libp2p/go-libp2p-kad-dht/dual"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	swarm "github.com/libp2p/go-libp2p-swarm"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	ma "github.com/multiformats/go-multiaddr"

	. "VoteProof/log"
	. "VoteProof/message"
)

const (
	RootRendezvous = "P2P_vote_proof_root_rendezvous"
	DhtPrefix      = "/vote_proof"
	ProtocolID     = "/vote_proof/msg/1.0.0"

	// MaxMessageSize bounds what a direct stream may deliver.
	MaxMessageSize = 16 << 20
)

var ErrNoRoute = errors.New("no route for recipient")

// Config describes how the node joins the network.
type Config struct {
	ListenAddrs []string      `yaml:"listen"`
	Bootstrap   []string      `yaml:"bootstrap"`
	Relays      []string      `yaml:"relays"`
	RelayHop    bool          `yaml:"relayHop"`
	Rendezvous  string        `yaml:"rendezvous"`
	EnableDHT   bool          `yaml:"dht"`
	ServerMode  bool          `yaml:"server"`
	NATPortMap  bool          `yaml:"nat"`
	Refresh     time.Duration `yaml:"refresh"`
}

func (cfg Config) rendezvous() string {
	if cfg.Rendezvous == "" {
		return RootRendezvous
	}
	return cfg.Rendezvous
}

type Node struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config

	host   host.Host
	relays []peer.AddrInfo
	dual   *ddht.DHT
	disc *discovery.RoutingDiscovery

	gossip *pubsub.PubSub
	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	subs   []*pubsub.Subscription

	pingService *ping.PingService

	allPeers []peer.AddrInfo

	msgCh chan Message
	wg    sync.WaitGroup
}

// NewNode starts a host listening on cfg.ListenAddrs, connects it to the
// bootstrap peers and joins RootTopic. A nil key gets a fresh Ed25519 identity.
func NewNode(ctx context.Context, cfg Config, key crypto.PrivKey) (*Node, error) {
	var err error
	if key == nil {
		key, _, err = crypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("cannot NewNode: %w", err)
		}
	}
	relays, err := addrInfos(cfg.Relays)
	if err != nil {
		return nil, fmt.Errorf("cannot NewNode: relays: %w", err)
	}
	boots, err := addrInfos(cfg.Bootstrap)
	if err != nil {
		return nil, fmt.Errorf("cannot NewNode: bootstrap: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	node := &Node{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		relays: relays,
		topics: make(map[string]*pubsub.Topic),
		msgCh:  make(chan Message, 64),
	}

	opts := []libp2p.Option{libp2p.Identity(key)}
	if len(cfg.ListenAddrs) > 0 {
		opts = append(opts, libp2p.ListenAddrStrings(cfg.ListenAddrs...))
	}
	if cfg.EnableDHT {
		opts = append(opts, libp2p.Routing(func(h host.Host) (routing.PeerRouting, error) {
			dhtOpts := []dht.Option{dht.ProtocolPrefix(DhtPrefix), dht.Resiliency(1), dht.MaxRecordAge(time.Minute * 8)}
			if cfg.ServerMode {
				dhtOpts = append(dhtOpts, dht.Mode(dht.ModeServer))
			}
			var err error
			node.dual, err = ddht.New(ctx, h, ddht.DHTOption(dhtOpts...))
			if err != nil {
				return nil, err
			}
			node.disc = discovery.NewRoutingDiscovery(node.dual)
			return node.dual, nil
		}))
	}
	if cfg.RelayHop {
		opts = append(opts, libp2p.EnableRelay(circuit.OptHop))
	} else if len(relays) > 0 {
		opts = append(opts, libp2p.EnableRelay())
	}
	if len(relays) > 0 {
		opts = append(opts, libp2p.EnableAutoRelay(), libp2p.StaticRelays(relays))
	}
	if cfg.NATPortMap {
		opts = append(opts, libp2p.NATPortMap())
	}

	node.host, err = libp2p.New(ctx, opts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("cannot NewNode: %w", err)
	}
	node.host.SetStreamHandler(ProtocolID, node.handleStream)
	node.pingService = ping.NewPingService(node.host)

	if node.dual != nil {
		if err := node.dual.Bootstrap(ctx); err != nil {
			node.Close()
			return nil, fmt.Errorf("cannot NewNode: %w", err)
		}
	}
	if len(boots) > 0 {
		if node.connectToPeers(ctx, boots) == 0 {
			node.Close()
			return nil, fmt.Errorf("cannot NewNode: none of %d bootstrap peers reachable", len(boots))
		}
	}

	node.gossip, err = pubsub.NewGossipSub(ctx, node.host)
	if err != nil {
		node.Close()
		return nil, fmt.Errorf("cannot NewNode: %w", err)
	}
	if err := node.Join(RootTopic); err != nil {
		node.Close()
		return nil, err
	}
	if node.disc != nil {
		discovery.Advertise(ctx, node.disc, cfg.rendezvous(), discoptions.TTL(time.Minute*5))
		node.wg.Add(1)
		go node.startLoop(ctx)
	}
	Logger.Infof("node %s listening on %v", node.host.ID().ShortString(), node.host.Addrs())
	return node, nil
}

func addrInfos(addrs []string) ([]peer.AddrInfo, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	mas := make([]ma.Multiaddr, len(addrs))
	for i, a := range addrs {
		m, err := ma.NewMultiaddr(a)
		if err != nil {
			return nil, err
		}
		mas[i] = m
	}
	return peer.AddrInfosFromP2pAddrs(mas...)
}

// ID is the peer ID of the node, usable as the To of a direct message.
func (node *Node) ID() string {
	return node.host.ID().Pretty()
}

// AddrInfo returns the dialable addresses of the node.
func (node *Node) AddrInfo() peer.AddrInfo {
	return peer.AddrInfo{ID: node.host.ID(), Addrs: node.host.Addrs()}
}

// Messages delivers every message received from topics and streams.
func (node *Node) Messages() <-chan Message {
	return node.msgCh
}

// Connect dials the given peers and returns how many succeeded.
func (node *Node) Connect(ctx context.Context, peers ...peer.AddrInfo) int {
	return node.connectToPeers(ctx, peers)
}

// Join subscribes to a topic, typically the topic of an election.
func (node *Node) Join(topicName string) error {
	node.mu.Lock()
	defer node.mu.Unlock()
	if _, ok := node.topics[topicName]; ok {
		return nil
	}
	topic, err := node.gossip.Join(topicName)
	if err != nil {
		return fmt.Errorf("cannot Join %s: %w", topicName, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		_ = topic.Close()
		return fmt.Errorf("cannot Join %s: %w", topicName, err)
	}
	node.topics[topicName] = topic
	node.subs = append(node.subs, sub)
	node.wg.Add(1)
	go node.readMsgFromTopic(node.ctx, sub)
	return nil
}

// Advertise announces the node under rendezvous.
func (node *Node) Advertise(ctx context.Context, rendezvous string) error {
	if node.disc == nil {
		return errors.New("cannot Advertise: discovery needs the DHT")
	}
	discovery.Advertise(ctx, node.disc, rendezvous, discoptions.TTL(time.Minute*20))
	return nil
}

// FindPeers returns the peers advertised under rendezvous, sorted.
func (node *Node) FindPeers(ctx context.Context, rendezvous string) (peer.IDSlice, error) {
	if node.disc == nil {
		return nil, errors.New("cannot FindPeers: discovery needs the DHT")
	}
	peerAddrs, err := discovery.FindPeers(ctx, node.disc, rendezvous)
	if err != nil {
		return nil, fmt.Errorf("cannot FindPeers: %w", err)
	}
	slice := AddrInfo2IDSlice(peerAddrs)
	sort.Stable(slice)
	return slice, nil
}

// Ping measures the round trip to a connected peer.
func (node *Node) Ping(ctx context.Context, id peer.ID) (time.Duration, error) {
	select {
	case res := <-node.pingService.Ping(ctx, id):
		return res.RTT, res.Error
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Publish sends msg to its recipient: a topic when To names one, the peer
// otherwise.
func (node *Node) Publish(ctx context.Context, msg Message) error {
	r, id := routeOf(msg.GetTo())
	switch r {
	case routeTopic:
		topic, err := node.stringToTopic(msg.GetTo())
		if err != nil {
			return err
		}
		return node.publish(ctx, topic, msg)
	case routePeer:
		return node.sendToPeer(ctx, id, msg)
	default:
		return fmt.Errorf("cannot Publish to %q: %w", msg.GetTo(), ErrNoRoute)
	}
}

// Close stops the node and its host.
func (node *Node) Close() error {
	node.cancel()
	node.mu.Lock()
	for _, sub := range node.subs {
		sub.Cancel()
	}
	node.subs = nil
	node.mu.Unlock()
	var err error
	if node.dual != nil {
		err = node.dual.Close()
	}
	if node.host != nil {
		if cerr := node.host.Close(); err == nil {
			err = cerr
		}
	}
	node.wg.Wait()
	return err
}

func AddrInfo2IDSlice(addrInfos []peer.AddrInfo) peer.IDSlice {
	var slice peer.IDSlice
	for _, addr := range addrInfos {
		slice = append(slice, addr.ID)
	}
	return slice
}

type route int

const (
	routeNone route = iota
	routeTopic
	routePeer
)

// routeOf tells whether to is a topic (every topic starts with P2P) or a
// peer ID.
func routeOf(to string) (route, peer.ID) {
	if strings.HasPrefix(to, "P2P") {
		return routeTopic, ""
	}
	id, err := peer.Decode(to)
	if err != nil {
		return routeNone, ""
	}
	return routePeer, id
}

// startLoop refreshes the peers advertised under the rendezvous.
func (node *Node) startLoop(ctx context.Context) {
	defer node.wg.Done()
	refresh := node.cfg.Refresh
	if refresh <= 0 {
		refresh = time.Second * 25
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			Logger.Debugf("node loop stopped")
			return
		case <-ticker.C:
			discovery.Advertise(ctx, node.disc, node.cfg.rendezvous(), discoptions.TTL(time.Minute*5))
			node.refreshAllPeers(ctx)
			Logger.Debugf("dht mode: wan %s, lan %s", node.dual.WAN.Mode(), node.dual.LAN.Mode())
		}
	}
}

func (node *Node) refreshAllPeers(ctx context.Context) {
	peers, err := discovery.FindPeers(ctx, node.disc, node.cfg.rendezvous())
	if err != nil {
		Logger.Warnf("cannot refresh peers: %v", err)
		return
	}
	sort.SliceStable(peers, func(i, j int) bool {
		return string(peers[i].ID) < string(peers[j].ID)
	})
	node.connectToPeers(ctx, peers)
	node.mu.Lock()
	node.allPeers = peers
	node.mu.Unlock()
}

func (node *Node) deliver(data []byte, from peer.ID) {
	msg, err := ParseMsg(data)
	if err != nil {
		Logger.Warnf("dropping message from %s: %v", from.ShortString(), err)
		return
	}
	select {
	case node.msgCh <- msg:
	case <-node.ctx.Done():
	}
}

func (node *Node) readMsgFromTopic(ctx context.Context, sub *pubsub.Subscription) {
	defer node.wg.Done()
	Logger.Debugf("reading topic %s", sub.Topic())
	for {
		m, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if m.ReceivedFrom == node.host.ID() {
			continue
		}
		node.deliver(m.Data, m.ReceivedFrom)
	}
}

func (node *Node) handleStream(s network.Stream) {
	defer s.Close()
	data, err := io.ReadAll(io.LimitReader(s, MaxMessageSize+1))
	if err != nil {
		Logger.Warnf("cannot read stream: %v", err)
		_ = s.Reset()
		return
	}
	if len(data) > MaxMessageSize {
		Logger.Warnf("dropping oversized message from %s", s.Conn().RemotePeer().ShortString())
		return
	}
	node.deliver(data, s.Conn().RemotePeer())
}

// connectToPeers returns the number of peers it connected to.
func (node *Node) connectToPeers(ctx context.Context, peers []peer.AddrInfo) int {
	var wg sync.WaitGroup
	ch := make(chan error, len(peers))
	tried := 0
	for _, p := range peers {
		if p.ID == node.host.ID() {
			continue
		}
		tried++
		wg.Add(1)
		p := p
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, time.Second*2)
			defer cancel()
			err := node.host.Connect(ctx, p)
			if err != nil && len(node.relays) > 0 {
				err = node.connectViaRelay(ctx, p.ID)
			}
			if err != nil {
				ch <- err
				Logger.Debugf("cannot connect to %s: %v", p.ID.ShortString(), err)
			}
		}()
	}
	wg.Wait()
	close(ch)
	failed := 0
	for range ch {
		failed++
	}
	success := tried - failed
	Logger.Debugf("connected to %d of %d peers", success, tried)
	return success
}

// connectViaRelay dials id through the circuit of each static relay in turn.
func (node *Node) connectViaRelay(ctx context.Context, id peer.ID) error {
	if sw, ok := node.host.Network().(*swarm.Swarm); ok {
		sw.Backoff().Clear(id)
	}
	var err error
	for _, r := range node.relays {
		addr, merr := ma.NewMultiaddr("/p2p/" + r.ID.Pretty() + "/p2p-circuit/p2p/" + id.Pretty())
		if merr != nil {
			return merr
		}
		if err = node.host.Connect(ctx, peer.AddrInfo{ID: id, Addrs: []ma.Multiaddr{addr}}); err == nil {
			Logger.Debugf("connected to %s through %s", id.ShortString(), r.ID.ShortString())
			return nil
		}
	}
	return err
}

func (node *Node) publish(ctx context.Context, topic *pubsub.Topic, msg Message) error {
	sendData, err := msg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("cannot publish: %w", err)
	}
	if err := topic.Publish(ctx, sendData); err != nil {
		return fmt.Errorf("cannot publish: %w", err)
	}
	Logger.Debugf("published type %d to %s", msg.GetType(), topic.String())
	return nil
}

func (node *Node) sendToPeer(ctx context.Context, id peer.ID, msg Message) error {
	if node.host.Network().Connectedness(id) != network.Connected {
		addrInfo := node.host.Peerstore().PeerInfo(id)
		if node.connectToPeers(ctx, []peer.AddrInfo{addrInfo}) == 0 {
			return fmt.Errorf("cannot send to %s: not reachable", id.ShortString())
		}
	}
	sendData, err := msg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("cannot send: %w", err)
	}
	s, err := node.host.NewStream(ctx, id, ProtocolID)
	if err != nil {
		return fmt.Errorf("cannot send to %s: %w", id.ShortString(), err)
	}
	defer s.Close()
	if _, err := s.Write(sendData); err != nil {
		_ = s.Reset()
		return fmt.Errorf("cannot send to %s: %w", id.ShortString(), err)
	}
	if err := s.CloseWrite(); err != nil {
		return fmt.Errorf("cannot send to %s: %w", id.ShortString(), err)
	}
	Logger.Debugf("sent type %d to %s", msg.GetType(), id.ShortString())
	return nil
}

func (node *Node) stringToTopic(s string) (*pubsub.Topic, error) {
	node.mu.Lock()
	topic, ok := node.topics[s]
	node.mu.Unlock()
	if ok {
		return topic, nil
	}
	if err := node.Join(s); err != nil {
		return nil, err
	}
	node.mu.Lock()
	defer node.mu.Unlock()
	return node.topics[s], nil
}
