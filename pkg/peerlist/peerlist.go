// Package peerlist computes the deterministic cohort membership for a
// PeeringServer: one entry per StatefulSet ordinal, including the pod's own
// ordinal, addressed through the headless service's per-pod DNS identity.
package peerlist

import "fmt"

// Peer is one member of a cohort, addressed by its stable headless-service
// DNS name and the port the managed server listens on.
type Peer struct {
	Host string `json:"host"`
	Port int32  `json:"port"`
}

// Config is the document written to the ConfigMap and read by every managed
// server: the full peer list plus the ping cadence in milliseconds.
type Config struct {
	Peers              []Peer `json:"peers"`
	PingIntervalMillis int64  `json:"pingInterval"`
}

// DNSName returns the stable per-ordinal DNS name the cluster's resolver and
// the StatefulSet controller agree on:
// <name>-<ordinal>.<name>-headless.<namespace>.svc.cluster.local
func DNSName(name, namespace string, ordinal int32) string {
	return fmt.Sprintf("%s-%d.%s-headless.%s.svc.cluster.local", name, ordinal, name, namespace)
}

// Build enumerates ordinals [0, replicas) in order and returns the peer list
// for a cohort, self included. This is a pure function of
// (name, namespace, replicas, port): calling it twice with the same inputs
// yields byte-identical output, which is what idempotent reconciliation (P1)
// and the determinism law (P2) both require.
func Build(name, namespace string, replicas int32, port int32) []Peer {
	if replicas < 0 {
		replicas = 0
	}
	peers := make([]Peer, 0, replicas)
	for i := int32(0); i < replicas; i++ {
		peers = append(peers, Peer{Host: DNSName(name, namespace, i), Port: port})
	}
	return peers
}
